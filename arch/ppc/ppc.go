// Package ppc implements a decoder for the 32-bit big-endian PowerPC
// instruction set, grounded on the opcode tables and extended-mnemonic
// collapsing rules of the original Vector35 PPC.py disassembler.
package ppc

import (
	"fmt"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

var (
	dbg  = log.New(os.Stderr, term.MagentaBold("ppc:")+" ", 0)
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// OperandKind tags the variant held by an Operand.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandReg              // general-purpose register, "rN"
	OperandFPReg            // floating-point register, "fN"
	OperandCR               // condition register field, "crN"
	OperandImm              // signed or unsigned immediate
	OperandLabel            // pre-rendered extended-mnemonic label, e.g. "lt"
)

// Operand is a tagged PowerPC operand.
type Operand struct {
	Kind  OperandKind
	Reg   string
	Imm   int64
	Label string
}

// Inst is a decoded PowerPC instruction. Every instruction is exactly four
// bytes; Len always reports 4 once a word has been read.
type Inst struct {
	addr   bin.Addr
	word   uint32
	length int
	valid  bool

	Operation string
	Operands  []Operand
}

var _ arch.Inst = (*Inst)(nil)

func (in *Inst) Addr() bin.Addr { return in.addr }
func (in *Inst) Len() int       { return in.length }
func (in *Inst) Bytes() []byte {
	return []byte{byte(in.word >> 24), byte(in.word >> 16), byte(in.word >> 8), byte(in.word)}
}
func (in *Inst) IsValid() bool { return in.valid }

// branchOps is the set of unconditional jump mnemonics (after extended
// mnemonic collapsing resolves the '$' placeholder).
var branchOps = map[string]bool{"b": true, "ba": true, "blr": true, "bctr": true}

// callOps is the set of call mnemonics: bl/bla/bctrl and their conditional
// 'l' variants.
func isCallOp(op string) bool {
	if op == "bl" || op == "bla" || op == "bctrl" {
		return true
	}
	return len(op) > 1 && op[len(op)-1] == 'l' && op[0] == 'b' && op != "blr"
}

// IsConditionalBranch reports whether the instruction is a conditional
// branch (the b$ family with a resolved condition code, never the plain b).
func (in *Inst) IsConditionalBranch() bool {
	if in.Operation == "" {
		return false
	}
	if branchOps[in.Operation] || isCallOp(in.Operation) {
		return false
	}
	return in.Operation[0] == 'b' && in.Operation != "bl" && in.Operation != "bla"
}

// IsCall reports whether the instruction is bl/bla/bctrl or a conditional
// link-bit form.
func (in *Inst) IsCall() bool { return isCallOp(in.Operation) }

// IsLocalJump reports whether the instruction is an unconditional
// intra-function jump (b/ba) or a conditional branch.
func (in *Inst) IsLocalJump() bool {
	return in.Operation == "b" || in.Operation == "ba" || in.IsConditionalBranch()
}

// IsBlockEnding reports whether the instruction ends a basic block: any
// branch/call form, blr (return), bctr (indirect jump), or rfid.
func (in *Inst) IsBlockEnding() bool {
	switch in.Operation {
	case "b", "ba", "blr", "bctr", "rfid", "hrfid", "sc":
		return true
	}
	if in.IsConditionalBranch() || in.IsCall() {
		return true
	}
	return false
}

// Target returns the resolved absolute branch/call destination for any
// instruction whose last operand is an absolute or relative address
// immediate, matching the trailing-target-operand convention used by the
// bc/b handlers.
func (in *Inst) Target() (bin.Addr, bool) {
	if !in.IsLocalJump() && !in.IsCall() {
		return 0, false
	}
	if len(in.Operands) == 0 {
		return 0, false
	}
	last := in.Operands[len(in.Operands)-1]
	if last.Kind != OperandImm {
		return 0, false
	}
	return bin.Addr(uint64(last.Imm)), true
}

// MemTarget always reports nothing resolved: this decoder's Operand has no
// memory-operand kind at all (matching PPC.py, which never introduces one
// either), and the original tool's PLT recognition is x86-specific
// (Analysis.py's X86Instruction is the only format_text that ever sets
// self.plt). A PowerPC PLT stub loads its target through a TOC-relative
// displacement plus register pair that isn't statically resolvable from a
// single decoded instruction.
func (in *Inst) MemTarget() (bin.Addr, bool) { return 0, false }

func (in *Inst) String() string {
	if !in.valid {
		return "(bad)"
	}
	s := in.Operation
	for i, op := range in.Operands {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		switch op.Kind {
		case OperandImm:
			s += fmt.Sprintf("0x%x", op.Imm)
		case OperandLabel:
			s += op.Label
		default:
			s += op.Reg
		}
	}
	return s
}

// Decode decodes the big-endian 32-bit word at the front of src as a single
// PowerPC instruction at addr. It always returns a non-nil *Inst; fewer
// than four bytes available, or a primary opcode with no table entry,
// leaves Operation empty (IsValid() == false).
func Decode(src []byte, addr bin.Addr) *Inst {
	in := &Inst{addr: addr}
	if len(src) < 4 {
		in.length = len(src)
		return in
	}
	in.length = 4
	word := uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
	in.word = word

	primary := (word >> 26) & 63
	entry := mainOpcodeTable[primary]
	if entry == nil {
		return in
	}
	entry(in, word, addr)
	in.valid = in.Operation != ""
	return in
}
