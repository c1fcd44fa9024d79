// Package arch defines the capabilities the analysis engine requires of a
// concrete architecture: a stateless Decoder plus the unified Inst
// predicate/render/patch contract. One decoder package (arch/x86,
// arch/ppc, arch/arm) implements this contract per architecture; the
// analysis engine (package analysis) is generic over it.
package arch

import "github.com/mewmew/recon/bin"

// Decoder decodes a single instruction at addr from the leading bytes of
// src. It always returns a non-nil Inst; a decode failure (truncated or
// invalid encoding) is reported through Inst.IsValid, not through a Go
// error, so that the caller's basic-block builder can still record the
// attempted length and terminate the block cleanly (§7 of the
// specification).
type Decoder func(src []byte, addr bin.Addr) Inst

// Inst is the architecture-agnostic facade the analysis engine consumes.
// Each architecture package wraps its own concrete decode result to
// satisfy it.
type Inst interface {
	// Addr returns the address the instruction was decoded at.
	Addr() bin.Addr
	// Len returns the encoded length in bytes (the attempted length, even
	// when IsValid is false).
	Len() int
	// Bytes returns the original opcode bytes.
	Bytes() []byte
	// IsValid reports whether the operation is non-null.
	IsValid() bool

	// IsConditionalBranch reports whether the instruction is a conditional
	// branch.
	IsConditionalBranch() bool
	// IsCall reports whether the instruction transfers control to a callee
	// expected to return.
	IsCall() bool
	// IsLocalJump reports whether the instruction is an unconditional
	// intra-function jump or a conditional branch.
	IsLocalJump() bool
	// IsBlockEnding reports whether the instruction ends a basic block:
	// branch, call-to-no-return, ret, halt, or unconditional register jump.
	IsBlockEnding() bool
	// Target returns the resolved absolute branch/call destination, if
	// computable at decode time (immediate-displaced branches only).
	Target() (addr bin.Addr, ok bool)
	// MemTarget returns the resolved absolute address a jump/call's memory
	// operand dereferences, when statically known: a RIP-relative or flat
	// displacement-only reference with no base/index register, the form a
	// real PLT/IAT thunk's indirect jump takes. Unlike Target, the result
	// names a data slot holding a destination, not code, so block discovery
	// must never treat it as a branch target; it exists only for trampoline
	// recognition and operand rendering.
	MemTarget() (addr bin.Addr, ok bool)

	// Render produces the styled text for this instruction.
	Render(opts RenderOptions, lookup SymbolLookup) Text
}

// Patcher is implemented by instructions that can neutralise their own
// call/branch site in place. Not every instruction supports every patch
// kind; callers check the bool return. Replacement bytes are always the
// same length as the original encoding so the patch can be written
// through ImageView.Write without touching the block graph.
type Patcher interface {
	PatchToNop() ([]byte, bool)
	PatchToAlwaysBranch() ([]byte, bool)
	PatchToInvertBranch() ([]byte, bool)
	PatchToZeroReturn() ([]byte, bool)
	PatchToFixedReturnValue(v uint64) ([]byte, bool)
}

// SymbolLookup is how the renderer resolves addresses to names; satisfied
// by image.ImageView plus the analysis engine's function table.
type SymbolLookup interface {
	// FunctionName returns the name of the function at addr, if analysis
	// has discovered one, and whether it is a PLT/IAT trampoline.
	FunctionName(addr bin.Addr) (name string, isPLT bool, ok bool)
	// SymbolName returns the image symbol table's name for addr.
	SymbolName(addr bin.Addr) (name string, ok bool)
	// InImage reports whether addr lies within [start, end) of the image.
	InImage(addr bin.Addr) bool
}

// RenderOptions toggles rendering features.
type RenderOptions struct {
	// Address prepends an eight-hex-digit address column to every
	// instruction when set.
	Address bool
}

// Color names the semantic colour of a rendered span/token.
type Color int

// Colours, matching the palette named in the specification's external
// interfaces section: function references are dark blue, PLT/IAT entries
// magenta, other symbols blue, address-column text navy.
const (
	ColorDefault Color = iota
	ColorFunction
	ColorPLT
	ColorSymbol
	ColorAddress
	ColorLabel
)

// Token is a clickable span within a rendered line; kind "ptr" carries the
// absolute address as Payload and is what the renderer uses for
// click-to-navigate.
type Token struct {
	Column      int
	Length      int
	Kind        string // "reg", "ptr", "imm"
	Payload     bin.Addr
	DisplayText string
}

// Span is a coloured run of text within a rendered line.
type Span struct {
	Text  string
	Color Color
}

// Text is the fully rendered form of one instruction: one or more coloured
// lines and the clickable tokens within them.
type Text struct {
	Lines  [][]Span
	Tokens []Token
}

// Token kind names, shared across architectures.
const (
	KindReg = "reg"
	KindPtr = "ptr"
)
