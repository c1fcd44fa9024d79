package arm

import (
	"fmt"

	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

// Render produces styled text for in. A resolved [pc, #imm] literal and any
// branch/call target get symbol substitution when lookup knows the address;
// everything else renders through Operand.String.
func (in *Inst) Render(opts arch.RenderOptions, lookup arch.SymbolLookup) arch.Text {
	var spans []arch.Span
	var tokens []arch.Token
	col := 0

	push := func(s string, c arch.Color) {
		if s == "" {
			return
		}
		spans = append(spans, arch.Span{Text: s, Color: c})
		col += len(s)
	}

	if opts.Address {
		push(fmt.Sprintf("%.8X   ", uint64(in.addr)), arch.ColorAddress)
	}

	if !in.valid {
		push("??", arch.ColorDefault)
		return arch.Text{Lines: [][]arch.Span{spans}, Tokens: tokens}
	}

	op := in.Operation
	if len(op) < 7 {
		op += spaces(7 - len(op))
	}
	result := op + " "

	for i, operand := range in.Operands {
		if i != 0 {
			result += ", "
		}
		if operand.Kind == OperandImm && lookup != nil {
			addr := bin.Addr(uint64(operand.Imm))
			if name, sub := substitute(lookup, operand.Imm); sub {
				push(result, arch.ColorDefault)
				result = ""
				color, isPLT := nameColor(lookup, operand.Imm)
				if isPLT {
					color = arch.ColorPLT
				}
				tokens = append(tokens, arch.Token{Column: col, Length: len(name), Kind: arch.KindPtr, Payload: addr, DisplayText: name})
				push(name, color)
				continue
			}
			if lookup.InImage(addr) && !in.IsLocalJump() {
				if name, ok := lookup.SymbolName(addr); ok {
					push(result, arch.ColorDefault)
					result = ""
					tokens = append(tokens, arch.Token{Column: col, Length: len(name), Kind: arch.KindPtr, Payload: addr, DisplayText: name})
					push(name, arch.ColorSymbol)
					continue
				}
			}
		}
		if operand.Kind == OperandMem && operand.Mem.ResolvedLiteral {
			addr := bin.Addr(uint64(operand.Mem.LiteralAddr))
			if lookup != nil {
				if name, _, ok := lookup.FunctionName(addr); ok {
					result += fmt.Sprintf("; =%s", name)
					continue
				}
				if lookup.InImage(addr) {
					if name, ok := lookup.SymbolName(addr); ok {
						result += fmt.Sprintf("; =%s", name)
						continue
					}
				}
			}
			result += fmt.Sprintf("; =0x%x", uint64(operand.Mem.LiteralAddr))
			continue
		}
		result += operand.String()
	}
	push(result, arch.ColorDefault)

	return arch.Text{Lines: [][]arch.Span{spans}, Tokens: tokens}
}

func substitute(lookup arch.SymbolLookup, imm int64) (string, bool) {
	addr := bin.Addr(uint64(imm))
	if name, _, ok := lookup.FunctionName(addr); ok {
		return name, true
	}
	return "", false
}

func nameColor(lookup arch.SymbolLookup, imm int64) (arch.Color, bool) {
	addr := bin.Addr(uint64(imm))
	_, isPLT, ok := lookup.FunctionName(addr)
	if !ok {
		return arch.ColorFunction, false
	}
	if isPLT {
		return arch.ColorPLT, true
	}
	return arch.ColorFunction, false
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
