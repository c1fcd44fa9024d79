package ppc

import (
	"fmt"

	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

// Render produces the styled text for in. PPC integer immediates render in
// signed hex; condition-register and extended-mnemonic label operands
// render as bare identifiers.
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
	if len(op) < 8 {
		op += spaces(8 - len(op))
	}
	result := op + " "

	for i, operand := range in.Operands {
		if i != 0 {
			result += ", "
		}
		switch operand.Kind {
		case OperandReg, OperandFPReg, OperandCR:
			result += operand.Reg
		case OperandLabel:
			result += operand.Label
		case OperandImm:
			addr := bin.Addr(uint64(operand.Imm))
			substituted := false
			if lookup != nil {
				if name, isPLT, ok := lookup.FunctionName(addr); ok {
					push(result, arch.ColorDefault)
					color := arch.ColorFunction
					if isPLT {
						color = arch.ColorPLT
					}
					tokens = append(tokens, arch.Token{Column: col, Length: len(name), Kind: arch.KindPtr, Payload: addr, DisplayText: name})
					push(name, color)
					result = ""
					substituted = true
				} else if lookup.InImage(addr) && !in.IsLocalJump() {
					if name, ok := lookup.SymbolName(addr); ok {
						push(result, arch.ColorDefault)
						tokens = append(tokens, arch.Token{Column: col, Length: len(name), Kind: arch.KindPtr, Payload: addr, DisplayText: name})
						push(name, arch.ColorSymbol)
						result = ""
						substituted = true
					}
				}
			}
			if !substituted {
				result += signedHex(operand.Imm)
			}
		}
	}
	push(result, arch.ColorDefault)

	return arch.Text{Lines: [][]arch.Span{spans}, Tokens: tokens}
}

func signedHex(v int64) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", -v)
	}
	return fmt.Sprintf("0x%x", v)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
