package x86

import (
	"fmt"

	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

// lineBuilder accumulates the coloured spans and tokens of one rendered
// instruction line, flushing plain-text runs whenever a colour change is
// needed.
type lineBuilder struct {
	spans  []arch.Span
	tokens []arch.Token
	col    int
}

func (lb *lineBuilder) push(s string, c arch.Color) {
	if s == "" {
		return
	}
	lb.spans = append(lb.spans, arch.Span{Text: s, Color: c})
	lb.col += len(s)
}

func (lb *lineBuilder) token(name string, kind string, payload bin.Addr) {
	lb.tokens = append(lb.tokens, arch.Token{Column: lb.col, Length: len(name), Kind: kind, Payload: payload, DisplayText: name})
}

// Render produces the styled text for in, replacing immediate operands
// that resolve to a known function, PLT/IAT slot, or image symbol with a
// coloured, clickable token, per the specification's rendering rules.
func (in *Inst) Render(opts arch.RenderOptions, lookup arch.SymbolLookup) arch.Text {
	lb := &lineBuilder{}

	if opts.Address {
		lb.push(fmt.Sprintf("%.8X   ", uint64(in.addr)), arch.ColorAddress)
	}

	if !in.valid {
		lb.push("??", arch.ColorDefault)
		return arch.Text{Lines: [][]arch.Span{lb.spans}, Tokens: lb.tokens}
	}

	operation := ""
	if in.Flags&FlagLock != 0 {
		operation += "lock "
	}
	if in.Flags&FlagAnyRep != 0 {
		operation += "rep"
		if in.Flags&FlagRepne != 0 {
			operation += "ne"
		} else if in.Flags&FlagRepe != 0 {
			operation += "e"
		}
		operation += " "
	}
	operation += in.Operation
	if len(operation) < 7 {
		operation += spaces(7 - len(operation))
	}
	result := operation + " "

	for j, op := range in.Operands {
		if j != 0 {
			result += ", "
		}
		switch op.Kind {
		case OperandImm:
			result = in.renderImm(lb, op, lookup, result)
		case OperandReg:
			result += op.Reg
		case OperandMem:
			result = in.renderMemOperand(lb, op, lookup, result)
		}
	}
	lb.push(result, arch.ColorDefault)

	return arch.Text{Lines: [][]arch.Span{lb.spans}, Tokens: lb.tokens}
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// renderImm appends the rendering of a single immediate operand to result,
// flushing to lb whenever a symbolic substitution requires a colour
// change, and returns the (possibly reset) plain-text accumulator.
func (in *Inst) renderImm(lb *lineBuilder, op Operand, lookup arch.SymbolLookup, result string) string {
	mask := uint64(1)<<(uint(op.Size)*8) - 1
	if op.Size >= 8 {
		mask = ^uint64(0)
	}
	value := uint64(op.Imm) & mask
	plain := fmt.Sprintf("0x%.*x", op.Size*2, value)

	if lookup == nil || op.Size != in.addrSz {
		return result + plain
	}

	addr := bin.Addr(value)
	if name, isPLT, ok := lookup.FunctionName(addr); ok {
		lb.push(result, arch.ColorDefault)
		color := arch.ColorFunction
		if isPLT {
			color = arch.ColorPLT
		}
		lb.token(name, arch.KindPtr, addr)
		lb.push(name, color)
		return ""
	}
	if lookup.InImage(addr) && !in.IsLocalJump() {
		if name, ok := lookup.SymbolName(addr); ok {
			lb.push(result, arch.ColorDefault)
			lb.token(name, arch.KindPtr, addr)
			lb.push(name, arch.ColorSymbol)
			return ""
		}
	}
	return result + plain
}

// renderMemOperand appends the rendering of a single memory operand to
// result. A resolved base-less/index-less address (RIP-relative or flat
// displacement, the form a real PLT/IAT thunk dereferences) that resolves
// to a known function, PLT/IAT slot, or image symbol is substituted in
// place of the raw displacement, mirroring renderImm's token/colour
// handling.
func (in *Inst) renderMemOperand(lb *lineBuilder, op Operand, lookup arch.SymbolLookup, result string) string {
	prefix := sizePrefix(op.Size)
	if op.Segment != "" {
		prefix += op.Segment + ":"
	}
	prefix += "["
	plus := false
	if op.Base != "" {
		prefix += op.Base
		plus = true
	}
	if op.Index != "" {
		if plus {
			prefix += "+"
		}
		prefix += op.Index
		if op.Scale > 1 {
			prefix += fmt.Sprintf("*%d", op.Scale)
		}
		plus = true
	}

	if addr, ok := op.ResolvedMemAddr(); ok && lookup != nil {
		if name, isPLT, ok := lookup.FunctionName(addr); ok {
			lb.push(result+prefix, arch.ColorDefault)
			color := arch.ColorFunction
			if isPLT {
				color = arch.ColorPLT
			}
			lb.token(name, arch.KindPtr, addr)
			lb.push(name, color)
			return "]"
		}
		if lookup.InImage(addr) {
			if name, ok := lookup.SymbolName(addr); ok {
				lb.push(result+prefix, arch.ColorDefault)
				lb.token(name, arch.KindPtr, addr)
				lb.push(name, arch.ColorSymbol)
				return "]"
			}
		}
	}

	return result + prefix + memDisplacement(op, plus) + "]"
}

func memDisplacement(op Operand, plus bool) string {
	if op.RIPRelative {
		if plus {
			return fmt.Sprintf("+0x%x", op.ResolvedAddr)
		}
		return fmt.Sprintf("0x%x", op.ResolvedAddr)
	}
	if op.Displacement != 0 || !plus {
		if plus && op.Displacement < 0 {
			return fmt.Sprintf("-0x%x", -op.Displacement)
		} else if plus {
			return fmt.Sprintf("+0x%x", op.Displacement)
		}
		return fmt.Sprintf("0x%x", op.Displacement)
	}
	return ""
}

func sizePrefix(size int) string {
	switch size {
	case 1:
		return "byte "
	case 2:
		return "word "
	case 4:
		return "dword "
	case 8:
		return "qword "
	case 10:
		return "tbyte "
	}
	return ""
}
