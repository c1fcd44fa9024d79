// Package x86 implements a table-driven decoder for the x86 instruction set
// in 16-, 32- and 64-bit modes, grounded on the opcode tables and prefix
// handling of the original Vector35 X86.py disassembler.
package x86

import (
	"fmt"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

var (
	// dbg is a logger which logs debug messages with "x86:" prefix to
	// standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("x86:")+" ", 0)
	// warn is a logger which logs warning messages with "warning:" prefix
	// to standard error.
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// Mode is the processor execution mode: 16, 32 or 64-bit.
type Mode int

const (
	Mode16 Mode = 16
	Mode32 Mode = 32
	Mode64 Mode = 64
)

// Flag is a bitset of prefix/encoding flags carried by a decoded
// instruction, named after the original tool's FLAG_* constants.
type Flag uint32

const (
	FlagLock Flag = 1 << iota
	FlagRep
	FlagRepne
	FlagRepe
	FlagOpSize
	FlagAddrSize
	Flag64BitAddress
	FlagInsufficientLength
)

// FlagAnyRep is the union of the three REP-family flags.
const FlagAnyRep = FlagRep | FlagRepe | FlagRepne

// OperandKind tags the variant held by an Operand.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandImm
	OperandReg
	OperandMem
)

// Operand is a tagged x86 operand: an immediate, a register, or a memory
// reference.
type Operand struct {
	Kind OperandKind

	// OperandImm
	Imm  int64
	Size int // size in bytes, for Imm and Mem

	// OperandReg
	Reg string

	// OperandMem
	Segment      string // "" if none
	Base         string // "" if none
	Index        string // "" if none
	Scale        int    // 1, 2, 4 or 8
	Displacement int64
	RIPRelative  bool
	// ResolvedAddr holds disp + rip_after_instruction when RIPRelative is
	// set; it is filled in at the end of decode.
	ResolvedAddr bin.Addr
}

// ResolvedMemAddr reports the absolute address a memory operand
// dereferences when it carries no base or index register at all: a
// RIP-relative reference (ResolvedAddr, already disp + next-instruction
// address) or a flat displacement-only reference, the two encodings a real
// PLT/IAT thunk's indirect jump/call uses (`jmp qword [rip+disp]` in a PIC
// ELF, `jmp dword ptr [addr]` in a PE import thunk). A memory operand with
// a base or index register has no statically known address.
func (op Operand) ResolvedMemAddr() (bin.Addr, bool) {
	if op.Kind != OperandMem {
		return 0, false
	}
	if op.RIPRelative {
		return op.ResolvedAddr, true
	}
	if op.Base == "" && op.Index == "" {
		return bin.Addr(uint64(op.Displacement)), true
	}
	return 0, false
}

// Inst is a decoded x86 instruction.
type Inst struct {
	addr    bin.Addr
	length  int
	valid   bool
	opcode  []byte // original bytes, opcode[:length]
	mode    Mode
	addrSz  int // address size in bytes, for addr_size-relative ops
	opSz    int

	Operation string
	Flags     Flag
	Operands  []Operand
}

var _ arch.Inst = (*Inst)(nil)

// Addr returns the instruction's address.
func (in *Inst) Addr() bin.Addr { return in.addr }

// Len returns the encoded (or attempted) length in bytes.
func (in *Inst) Len() int { return in.length }

// Bytes returns the original opcode bytes.
func (in *Inst) Bytes() []byte { return in.opcode }

// IsValid reports whether the operation is non-null.
func (in *Inst) IsValid() bool { return in.valid }

// conditionalOps is the set of conditional-branch mnemonics (Jcc family
// plus the loop/jcxz forms), mirroring X86Instruction.isConditionalBranch.
var conditionalOps = map[string]bool{
	"jo": true, "jno": true, "jb": true, "jae": true, "je": true, "jne": true,
	"jbe": true, "ja": true, "js": true, "jns": true, "jpe": true, "jpo": true,
	"jl": true, "jge": true, "jle": true, "jg": true,
	"jcxz": true, "jecxz": true, "jrcxz": true, "loop": true,
}

// IsConditionalBranch reports whether the instruction is a conditional
// branch.
func (in *Inst) IsConditionalBranch() bool { return conditionalOps[in.Operation] }

// IsCall reports whether the instruction is a near or far call.
func (in *Inst) IsCall() bool {
	return in.Operation == "calln" || in.Operation == "callf"
}

// IsLocalJump reports whether the instruction is an unconditional
// intra-function jump or a conditional branch.
func (in *Inst) IsLocalJump() bool {
	return in.Operation == "jmpn" || in.IsConditionalBranch()
}

// IsBlockEnding reports whether the instruction ends a basic block.
func (in *Inst) IsBlockEnding() bool {
	switch in.Operation {
	case "jmpn", "jmpf", "retn", "retf", "hlt":
		return true
	}
	return in.IsConditionalBranch()
}

// Target returns the resolved absolute branch/call destination, if the
// instruction is a jump/call/conditional-branch with an immediate operand.
func (in *Inst) Target() (bin.Addr, bool) {
	if in.Operation != "jmpn" && !in.IsCall() && !in.IsConditionalBranch() {
		return 0, false
	}
	if len(in.Operands) == 0 || in.Operands[0].Kind != OperandImm {
		return 0, false
	}
	return bin.Addr(uint64(in.Operands[0].Imm)), true
}

// MemTarget resolves an indirect jmp/call's memory operand to the absolute
// slot address it dereferences, the encoding a real ELF/PE PLT trampoline
// uses in place of a direct immediate branch.
func (in *Inst) MemTarget() (bin.Addr, bool) {
	if in.Operation != "jmpn" && !in.IsCall() {
		return 0, false
	}
	if len(in.Operands) == 0 || in.Operands[0].Kind != OperandMem {
		return 0, false
	}
	return in.Operands[0].ResolvedMemAddr()
}

// String returns a debug-oriented representation (not the rendered form
// consumers should use; see Render).
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
		case OperandReg:
			s += op.Reg
		case OperandMem:
			s += "[mem]"
		}
	}
	return s
}

// decodeState threads per-instruction mutable state through the decode
// pipeline instead of relying on package-level mutable state (§9 design
// notes: "prefix-and-REX state... modeled as a small value type").
type decodeState struct {
	src    []byte
	pos    int
	addr   bin.Addr
	mode   Mode
	opSz   int // 2, 4 or 8
	addrSz int // 2, 4 or 8
	segOverride string
	flags  Flag
	rex    byte
	hasRex bool
}

func (d *decodeState) u8() (byte, bool) {
	if d.pos >= len(d.src) {
		return 0, false
	}
	v := d.src[d.pos]
	d.pos++
	return v, true
}

func (d *decodeState) peek() (byte, bool) {
	if d.pos >= len(d.src) {
		return 0, false
	}
	return d.src[d.pos], true
}

func (d *decodeState) bytes(n int) ([]byte, bool) {
	if d.pos+n > len(d.src) {
		return nil, false
	}
	b := d.src[d.pos : d.pos+n]
	d.pos += n
	return b, true
}

func (d *decodeState) u16() (uint16, bool) {
	b, ok := d.bytes(2)
	if !ok {
		return 0, false
	}
	return uint16(b[0]) | uint16(b[1])<<8, true
}

func (d *decodeState) u32() (uint32, bool) {
	b, ok := d.bytes(4)
	if !ok {
		return 0, false
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

func (d *decodeState) u64() (uint64, bool) {
	lo, ok := d.u32()
	if !ok {
		return 0, false
	}
	hi, ok := d.u32()
	if !ok {
		return 0, false
	}
	return uint64(lo) | uint64(hi)<<32, true
}

func (d *decodeState) rexW() bool { return d.hasRex && d.rex&0x8 != 0 }
func (d *decodeState) rexR() byte {
	if d.hasRex && d.rex&0x4 != 0 {
		return 8
	}
	return 0
}
func (d *decodeState) rexX() byte {
	if d.hasRex && d.rex&0x2 != 0 {
		return 8
	}
	return 0
}
func (d *decodeState) rexB() byte {
	if d.hasRex && d.rex&0x1 != 0 {
		return 8
	}
	return 0
}

// Decode decodes a single x86 instruction at addr from the leading bytes
// of src, under the given processor mode. It always returns a non-nil
// *Inst; on truncation or an unrecognised encoding, Operation is left
// empty (IsValid() == false) and Len() reports the attempted length.
func Decode(mode Mode, src []byte, addr bin.Addr) *Inst {
	d := &decodeState{src: src, addr: addr, mode: mode}
	switch mode {
	case Mode16:
		d.opSz, d.addrSz = 2, 2
	case Mode32:
		d.opSz, d.addrSz = 4, 4
	case Mode64:
		d.opSz, d.addrSz = 4, 8
	default:
		d.opSz, d.addrSz = 4, 4
	}

	in := &Inst{addr: addr, mode: mode}

	scanPrefixes(d)
	in.Flags = d.flags

	op, ok := d.u8()
	if !ok {
		in.length = d.pos
		in.valid = false
		return in
	}

	var entry *opcodeEntry
	switch op {
	case 0x0f:
		op2, ok := d.u8()
		if !ok {
			in.length = d.pos
			return in
		}
		entry = decodeTwoByte(d, op2)
	default:
		entry = mainTable[op]
	}

	if entry == nil || entry.decode == nil {
		in.length = d.pos
		in.valid = false
		return in
	}

	ok = entry.decode(d, in, entry)
	in.length = d.pos
	in.opSz = d.opSz
	in.addrSz = d.addrSz
	if !ok {
		in.valid = false
		return in
	}
	in.valid = in.Operation != ""

	if d.pos > len(src) {
		in.valid = false
	}
	in.opcode = append([]byte(nil), src[:min(in.length, len(src))]...)

	resolveRIPRelative(in)

	if in.Flags&FlagLock != 0 && !lockable(in.Operation) {
		in.valid = false
	}
	if mode == Mode64 && invalidIn64Bit[in.Operation] {
		in.valid = false
	}

	return in
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// scanPrefixes consumes the legacy-prefix and (64-bit mode) REX byte run
// preceding the opcode, per the pipeline described in the specification's
// x86 decoder section.
func scanPrefixes(d *decodeState) {
	for {
		b, ok := d.peek()
		if !ok {
			return
		}
		switch b {
		case 0x26, 0x2e, 0x36, 0x3e, 0x64, 0x65:
			d.segOverride = segOverrideName(b)
			d.pos++
		case 0x66: // OPSIZE
			switch d.mode {
			case Mode16:
				d.opSz = 4
			case Mode32, Mode64:
				d.opSz = 2
			}
			d.flags |= FlagOpSize
			d.pos++
		case 0x67: // ADDRSIZE
			switch d.mode {
			case Mode16:
				d.addrSz = 4
			case Mode32:
				d.addrSz = 2
			case Mode64:
				d.addrSz = 4
			}
			d.flags |= FlagAddrSize
			d.pos++
		case 0xf0:
			d.flags |= FlagLock
			d.pos++
		case 0xf2:
			d.flags |= FlagRepne
			d.flags &^= FlagRepe
			d.pos++
		case 0xf3:
			d.flags |= FlagRepe
			d.flags &^= FlagRepne
			d.pos++
		default:
			if d.mode == Mode64 && b >= 0x40 && b <= 0x4f {
				d.rex = b
				d.hasRex = true
				if b&0x8 != 0 {
					d.opSz = 8
				}
				d.pos++
				return // REX must be the last prefix before the opcode
			}
			return
		}
	}
}

func segOverrideName(b byte) string {
	switch b {
	case 0x26:
		return "es"
	case 0x2e:
		return "cs"
	case 0x36:
		return "ss"
	case 0x3e:
		return "ds"
	case 0x64:
		return "fs"
	case 0x65:
		return "gs"
	}
	return ""
}

// resolveRIPRelative fills ResolvedAddr for any memory operand marked
// RIPRelative: disp + the address immediately following the instruction.
func resolveRIPRelative(in *Inst) {
	if in.mode != Mode64 {
		return
	}
	after := in.addr + bin.Addr(in.length)
	for i := range in.Operands {
		op := &in.Operands[i]
		if op.Kind == OperandMem && op.RIPRelative {
			op.ResolvedAddr = after + bin.Addr(uint64(op.Displacement))
		}
	}
}

// lockable reports whether operation may legally carry the LOCK prefix:
// only memory-destination read-modify-write forms of a small allow-list,
// never mov/cmp/not-disallowed groups.
func lockable(op string) bool {
	switch op {
	case "add", "or", "adc", "sbb", "and", "sub", "xor", "not", "neg",
		"inc", "dec", "xchg", "btc", "btr", "bts", "cmpxchg", "xadd":
		return true
	}
	return false
}

// invalidIn64Bit is the set of operations removed in 64-bit mode.
var invalidIn64Bit = map[string]bool{
	"daa": true, "das": true, "aaa": true, "aas": true, "aam": true, "aad": true,
	"pusha": true, "popa": true, "pushad": true, "popad": true,
	"into": true, "bound": true,
}
