package main

import (
	"sort"
	"time"

	"github.com/mewmew/recon/analysis"
	"github.com/mewmew/recon/bin"
)

// startAndWaitIdle starts a's worker loop on its own goroutine and blocks
// until it has drained its discovery queue and finished the subsequent
// render pass, i.e. until Status reports idle. A CLI invocation has no
// renderer polling Status/update_id across repaints, so it only needs to
// reach the state a GUI session would sit in between edits.
func startAndWaitIdle(a *analysis.Analysis) {
	go a.Run()
	waitIdle(a)
}

// waitIdle blocks until a's worker reports no in-progress unit of work. It
// first waits (briefly) for Status to turn non-empty at least once, so a
// freshly spawned worker that hasn't had a scheduler turn yet isn't
// mistaken for one that's already idle; a file with nothing to analyse
// (no entry point) simply falls through that wait unchanged.
func waitIdle(a *analysis.Analysis) {
	for i := 0; i < 200 && a.Status() == ""; i++ {
		time.Sleep(time.Millisecond)
	}
	for a.Status() != "" {
		time.Sleep(5 * time.Millisecond)
	}
}

// runToIdle starts a, waits for its first pass to drain, and stops it; the
// one-shot form most subcommands need.
func runToIdle(a *analysis.Analysis) {
	startAndWaitIdle(a)
	a.Stop()
}

// seedSymbols applies a config's symbol table before analysis starts, so
// that PLT-trampoline renaming and sub_ fallback naming see them from the
// first pass.
func seedSymbols(a *analysis.Analysis, cfg config) {
	for name, addr := range cfg.Symbols {
		a.CreateSymbol(addr, name)
	}
	if cfg.AddressColumn {
		a.SetAddressColumn(true)
	}
}

// sortedEntries returns the discovered function entries in ascending
// address order, for stable CLI output.
func sortedEntries(functions map[bin.Addr]*analysis.Function) bin.Addrs {
	var entries bin.Addrs
	for addr := range functions {
		entries = append(entries, addr)
	}
	sort.Sort(entries)
	return entries
}

// sortedBlockEntries returns a function's block entries in ascending
// address order, for stable CLI output.
func sortedBlockEntries(blocks map[bin.Addr]*analysis.BasicBlock) bin.Addrs {
	var entries bin.Addrs
	for addr := range blocks {
		entries = append(entries, addr)
	}
	sort.Sort(entries)
	return entries
}
