package main

import (
	"github.com/mewkiz/pkg/jsonutil"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewmew/recon/bin"
)

// config is the JSON sidecar the -config flag points at: a seed file that
// pre-populates symbols the container's own tables don't carry (stripped
// imports, hand-identified helpers) and the initial render options, the
// same role funcs.json/blocks.json played for the teacher's lifter.
type config struct {
	Symbols       map[string]bin.Addr `json:"symbols"`
	AddressColumn bool                `json:"address_column"`
}

// loadConfig reads path into a config, skipping silently (with a warning)
// if the file doesn't exist: the sidecar is optional, matching
// parseJSON's osutil.Exists guard.
func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	if !osutil.Exists(path) {
		warn.Printf("unable to locate config file %q", path)
		return cfg, nil
	}
	dbg.Printf("loadConfig(path = %q)", path)
	if err := jsonutil.ParseFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
