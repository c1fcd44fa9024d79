package analysis

import (
	"fmt"

	"github.com/mewmew/recon/bin"
)

// Function is one or more basic blocks reachable from a single entry
// address, discovered by following control flow outward from a call site
// or the image's own entry point.
type Function struct {
	Entry bin.Addr
	Name  string
	// Blocks maps every basic block's entry address to itself.
	Blocks map[bin.Addr]*BasicBlock
	// IsPLT marks a function that is nothing but a jump through a single
	// PLT/IAT slot.
	IsPLT bool
	// Ready is set once the first findBasicBlocks pass has completed; the
	// renderer can use it to distinguish a function still being discovered
	// from one that's merely empty.
	Ready bool
	// UpdateID increases whenever this function's rendered text changes, so
	// a renderer can cheaply detect staleness by comparing a cached value.
	UpdateID uint64
}

// findBasicBlocks (re)discovers the function's blocks by following control
// flow outward from Entry, splitting an already-claimed block whenever a
// newly discovered edge lands in the middle of it.
func (f *Function) findBasicBlocks(a *Analysis) {
	f.Blocks = make(map[bin.Addr]*BasicBlock)
	f.IsPLT = false
	f.Ready = false
	f.UpdateID = a.nextUpdateID()

	entryBlock := &BasicBlock{Entry: f.Entry}
	queue := []*BasicBlock{entryBlock}
	known := make(map[bin.Addr]*BasicBlock)

	for len(queue) > 0 {
		block := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		block.populate(a, known)
		f.Blocks[block.Entry] = block

		for _, edge := range block.Exits {
			if _, ok := f.Blocks[edge]; ok {
				continue
			}
			queuedAlready := false
			for _, q := range queue {
				if q.Entry == edge {
					queuedAlready = true
					break
				}
			}
			if queuedAlready {
				continue
			}
			if owner, ok := known[edge]; ok {
				split(owner, edge, known, f.Blocks)
				continue
			}
			nb := &BasicBlock{Entry: edge}
			f.Blocks[edge] = nb
			known[edge] = nb
			queue = append(queue, nb)
		}
	}

	for _, block := range f.Blocks {
		block.Prev = nil
	}
	for _, block := range f.Blocks {
		for _, exit := range block.Exits {
			if target, ok := f.Blocks[exit]; ok {
				target.Prev = append(target.Prev, block.Entry)
			}
		}
	}

	f.checkPLTTrampoline(a)
}

// checkPLTTrampoline marks and renames f if it is nothing but a single
// instruction jumping straight to a PLT/IAT slot (§4.4.1 step 5), split
// out of findBasicBlocks so it can be exercised directly in tests without
// fighting the block-discovery algorithm's own successor-block creation.
func (f *Function) checkPLTTrampoline(a *Analysis) {
	if len(f.Blocks) == 1 {
		if only, ok := f.Blocks[f.Entry]; ok && len(only.Insts) == 1 {
			if name, isPLT := a.pltName(only.Insts[0]); isPLT {
				f.rename(name)
				f.IsPLT = true
				a.ImageView.CreateSymbol(f.Entry, f.Name)
			}
		}
	}
}

// findCalls returns the in-image targets of every call instruction across
// the function's blocks.
func (f *Function) findCalls(a *Analysis) []bin.Addr {
	var calls []bin.Addr
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			if !inst.IsCall() {
				continue
			}
			target, ok := inst.Target()
			if !ok {
				continue
			}
			if a.ImageView.InImage(target) {
				calls = append(calls, target)
			}
		}
	}
	return calls
}

// update re-renders every block and bumps UpdateID if anything changed.
func (f *Function) update(a *Analysis) bool {
	changed := false
	for _, block := range f.Blocks {
		if block.update(a.opts, a) {
			changed = true
		}
	}
	if changed {
		f.UpdateID = a.nextUpdateID()
	}
	return changed
}

func (f *Function) rename(name string) {
	f.Name = name
}

func defaultName(addr bin.Addr) string {
	return fmt.Sprintf("sub_%016X", uint64(addr))
}
