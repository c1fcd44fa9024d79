package analysis

import (
	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

// BasicBlock is a maximal run of instructions with no incoming edge except
// at its first instruction and no outgoing edge except at its last.
type BasicBlock struct {
	Entry bin.Addr
	Insts []arch.Inst
	// Exits lists every address control can leave this block for: both
	// targets of a conditional branch, the single target of an
	// unconditional branch, the next address when the block runs into an
	// instruction another block already claimed, or none at all for a
	// block-ending call, return, indirect jump or halt.
	Exits []bin.Addr
	// TruePath/FalsePath are only meaningful when HasTruePath/HasFalsePath
	// is set, recording a conditional branch's two successors.
	TruePath     bin.Addr
	HasTruePath  bool
	FalsePath    bin.Addr
	HasFalsePath bool
	// Prev lists the entry addresses of blocks with an edge into this one.
	Prev []bin.Addr

	text []arch.Text // cached render, parallel to Insts
}

// Text returns the block's cached rendered lines, parallel to Insts. It is
// populated the first time the owning Analysis renders the function and
// kept in step by update; a renderer reads it directly rather than calling
// Render itself so that every consumer sees the same cached text.
func (block *BasicBlock) Text() []arch.Text { return block.text }

// populate decodes instructions starting at block.Entry until it hits a
// block-ending instruction or runs into an address already claimed by
// another block. known records every instruction address claimed so far
// across the whole function, so the caller can detect and split blocks that
// this walk runs into midway.
func (block *BasicBlock) populate(a *Analysis, known map[bin.Addr]*BasicBlock) {
	addr := block.Entry
	for {
		known[addr] = block

		src := a.ImageView.Read(addr, maxDecodeWindow)
		inst := a.decode(src, addr)
		block.Insts = append(block.Insts, inst)

		if !inst.IsValid() {
			return
		}

		if inst.IsBlockEnding() {
			if inst.IsConditionalBranch() {
				if target, ok := inst.Target(); ok {
					block.TruePath = target
					block.HasTruePath = true
					block.Exits = append(block.Exits, target)
				}
				block.FalsePath = addr + bin.Addr(inst.Len())
				block.HasFalsePath = true
				block.Exits = append(block.Exits, block.FalsePath)
			} else if target, ok := inst.Target(); ok && !inst.IsCall() {
				block.Exits = append(block.Exits, target)
			}
			return
		}

		addr += bin.Addr(inst.Len())
		if _, ok := known[addr]; ok {
			block.Exits = append(block.Exits, addr)
			return
		}
	}
}

// split carves a new block starting at edge out of the middle of block,
// called when a later-discovered edge lands on an instruction this block
// already claimed. known and blocks are updated in place.
func split(block *BasicBlock, edge bin.Addr, known map[bin.Addr]*BasicBlock, blocks map[bin.Addr]*BasicBlock) {
	i := 0
	for ; i < len(block.Insts); i++ {
		if block.Insts[i].Addr() == edge {
			break
		}
	}

	newBlock := &BasicBlock{
		Entry:        edge,
		Exits:        block.Exits,
		TruePath:     block.TruePath,
		HasTruePath:  block.HasTruePath,
		FalsePath:    block.FalsePath,
		HasFalsePath: block.HasFalsePath,
		Insts:        append([]arch.Inst(nil), block.Insts[i:]...),
	}
	for _, inst := range newBlock.Insts {
		known[inst.Addr()] = newBlock
	}
	blocks[edge] = newBlock

	block.Exits = []bin.Addr{edge}
	block.HasTruePath = false
	block.HasFalsePath = false
	block.Insts = block.Insts[:i]
}

// update re-renders every instruction in the block and reports whether any
// of them produced different text, so the caller knows whether to bump the
// function's update_id.
func (block *BasicBlock) update(opts arch.RenderOptions, lookup arch.SymbolLookup) bool {
	changed := false
	for i, inst := range block.Insts {
		text := inst.Render(opts, lookup)
		if i >= len(block.text) {
			block.text = append(block.text, text)
			changed = true
			continue
		}
		if !textEqual(block.text[i], text) {
			block.text[i] = text
			changed = true
		}
	}
	return changed
}

func textEqual(a, b arch.Text) bool {
	if len(a.Lines) != len(b.Lines) || len(a.Tokens) != len(b.Tokens) {
		return false
	}
	for i := range a.Lines {
		if len(a.Lines[i]) != len(b.Lines[i]) {
			return false
		}
		for j := range a.Lines[i] {
			if a.Lines[i][j] != b.Lines[i][j] {
				return false
			}
		}
	}
	for i := range a.Tokens {
		if a.Tokens[i] != b.Tokens[i] {
			return false
		}
	}
	return true
}
