package arm

import "github.com/mewmew/recon/bin"

// armUnconditional decodes the cond==1111 instruction space. Only the BLX
// (immediate, unconditional-encoding) form is implemented, matching the
// source tool's arm_unconditional_instr. That function reads a free-standing
// `addr` it never received as a parameter; the fix applied here takes addr
// explicitly and derives the target the same way the A32 `bl` encoding does
// (instruction address + 8 + sign-extended word-aligned displacement), per
// the documented correction to that bug.
func armUnconditional(in *Inst, word uint32, addr bin.Addr) {
	op1 := (word >> 20) & 0xff
	if op1&0b11100000 != 0b10100000 {
		return
	}
	in.Operation = "blx"
	in.kind = "blx"
	imm24 := word & 0xffffff
	h := (word >> 23) & 2
	var disp int64
	if imm24&(1<<23) != 0 {
		disp = int64(int32(imm24 | 0xff000000))
	} else {
		disp = int64(imm24)
	}
	target := (uint64(addr) + 8 + uint64(disp<<2) + uint64(h) + 1) & 0xffffffff
	in.Operands = []Operand{immOp(int64(target))}
}

func armDataProcessing(in *Inst, word uint32, addr bin.Addr) {
	op := (word >> 25) & 1
	op1 := (word >> 20) & 0x1f
	op2 := (word >> 4) & 0xf
	rn := (word >> 16) & 0xf
	rd := (word >> 12) & 0xf
	imm5 := (word >> 7) & 0x1f
	typecode := (word >> 5) & 3
	rm := word & 0xf

	aluMnem := func(op1 uint32) string {
		table := [...]string{"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
			"", "", "", "", "orr", "", "bic", ""}
		return table[op1>>1]
	}
	sFlag := func(op1 uint32, m string) string {
		if m == "" {
			return ""
		}
		if op1&1 != 0 {
			return m + "s"
		}
		return m
	}

	if op == 0 {
		if op2 == 0b1001 {
			switch {
			case op1&0b11110 == 0b00000:
				in.Operation = sFlag(op1, "mul")
				in.Operands = []Operand{regOp(rn), regOp(rm), regOp(imm5 >> 1)}
			case op1&0b11110 == 0b00010:
				in.Operation = sFlag(op1, "mla")
				in.Operands = []Operand{regOp(rn), regOp(rm), regOp(imm5 >> 1), regOp(rd)}
			case op1&0b11110 == 0b01000:
				in.Operation = sFlag(op1, "umull")
				in.Operands = []Operand{regOp(rd), regOp(rn), regOp(rm), regOp(imm5 >> 1)}
			case op1&0b11110 == 0b01010:
				in.Operation = sFlag(op1, "umlal")
				in.Operands = []Operand{regOp(rd), regOp(rn), regOp(rm), regOp(imm5 >> 1)}
			case op1&0b11110 == 0b01100:
				in.Operation = sFlag(op1, "smull")
				in.Operands = []Operand{regOp(rd), regOp(rn), regOp(rm), regOp(imm5 >> 1)}
			case op1&0b11110 == 0b01110:
				in.Operation = sFlag(op1, "smlal")
				in.Operands = []Operand{regOp(rd), regOp(rn), regOp(rm), regOp(imm5 >> 1)}
			case op1 == 0b10000:
				in.Operation = "swp"
				in.Operands = []Operand{regOp(rd), regOp(rm), memOp(MemoryOperand{Base: regs[rn]})}
			case op1 == 0b10100:
				in.Operation = "swpb"
				in.Operands = []Operand{regOp(rd), regOp(rm), memOp(MemoryOperand{Base: regs[rn]})}
			case op1 == 0b11000:
				in.Operation = "strex"
				in.Operands = []Operand{regOp(rd), regOp(rm), memOp(MemoryOperand{Base: regs[rn]})}
			case op1 == 0b11001:
				in.Operation = "ldrex"
				in.Operands = []Operand{regOp(rd), memOp(MemoryOperand{Base: regs[rn]})}
			}
			return
		}
		if op2&0b1001 == 0b1001 && op2 == 0b1011 {
			// Halfword load/store, offset/pre-index forms only (the
			// unprivileged -t variants are not implemented).
			hw := func(rt uint32) {
				var offReg string
				var offNeg bool
				var hasImm bool
				var imm int64
				if op1&8 != 0 {
					if word&0x400000 != 0 {
						imm = int64(((word >> 4) & 0xf0) | (word & 0xf))
						hasImm = true
					} else {
						offReg = regs[rm]
					}
				} else {
					if word&0x400000 != 0 {
						imm = -int64(((word >> 4) & 0xf0) | (word & 0xf))
						hasImm = true
					} else {
						offReg = regs[rm]
						offNeg = true
					}
				}
				m := MemoryOperand{Base: regs[rn]}
				if op1&2 != 0 && op1&0x10 != 0 {
					if offReg != "" {
						m.HasIndexReg, m.IndexReg, m.IndexNeg = true, offReg, offNeg
					} else if hasImm {
						m.HasImm, m.Imm = true, imm
					}
					m.Writeback = true
					in.Operands = []Operand{regOp(rt), memOp(m)}
				} else {
					in.Operands = []Operand{regOp(rt), memOp(m)}
					if offReg != "" {
						in.Operands = append(in.Operands, Operand{Kind: OperandReg, Reg: offReg, Neg: offNeg})
					} else {
						in.Operands = append(in.Operands, immOp(imm))
					}
				}
			}
			if op1&0b00101 == 0b00000 {
				in.Operation = "strh"
				hw(rd)
			} else if op1&0b00101 == 0b00001 {
				in.Operation = "ldrh"
				hw(rd)
			}
			return
		}
		if op1&0b11001 == 0b10000 {
			switch {
			case op2 == 0:
				if op1&2 == 0 {
					in.Operation = "mrs"
					in.Operands = []Operand{regOp(rd), labelOp("apsr")}
				} else {
					in.Operation = "msr"
					in.Operands = []Operand{labelOp("apsr_" + [...]string{"", "g", "nzcvq", "nzcvqg"}[(rn>>2)&3]), regOp(rm)}
				}
			case op2 == 1:
				switch op1 {
				case 0b10010:
					in.Operation = "bx"
					in.kind = "bx"
					in.Operands = []Operand{regOp(rm)}
				case 0b10110:
					in.Operation = "clz"
					in.Operands = []Operand{regOp(rd), regOp(rm)}
				}
			case op2 == 2:
				if op1 == 0b10010 {
					in.Operation = "bxj"
					in.kind = "bxj"
					in.Operands = []Operand{regOp(rm)}
				}
			case op2 == 3:
				if op1 == 0b10010 {
					in.Operation = "blx"
					in.kind = "blx"
					in.Operands = []Operand{regOp(rm)}
				}
			case op2 == 7:
				switch op1 {
				case 0b10010:
					in.Operation = "bkpt"
					in.Operands = []Operand{immOp(int64(((word >> 4) & 0xfff0) | (word & 0xf)))}
				case 0b10110:
					in.Operation = "smc"
					in.kind = "smc"
					in.Operands = []Operand{immOp(int64(word & 0xf))}
				}
			}
			return
		}
		// Data-processing register-shifted-by-immediate / -by-register forms.
		var shifted Operand
		if op2&1 == 0 {
			shifted = regShiftImmed(rm, typecode, imm5, false)
		} else if op2&0b1001 == 0b0001 {
			shifted = regShiftReg(rm, typecode, imm5>>1, false)
		} else {
			return
		}
		switch {
		case op1&0b11110 == 0b11010 && op2&1 == 0 && imm5 == 0:
			in.Operation = sFlag(op1, "mov")
			if typecode == 3 {
				in.Operation = sFlag(op1, "rrx")
			}
			in.Operands = []Operand{regOp(rd), regOp(rm)}
		case op1&0b11000 == 0b10000:
			in.Operation = [...]string{"tst", "teq", "cmp", "cmn"}[(op1>>1)&3]
			in.Operands = []Operand{regOp(rn), shifted}
		case op1&0b11110 == 0b11110:
			in.Operation = sFlag(op1, "mvn")
			in.Operands = []Operand{regOp(rd), shifted}
		case op1&0b11110 == 0b11010:
			var sh string
			switch typecode {
			case 0:
				sh = "lsl"
			case 1:
				sh = "lsr"
			case 2:
				sh = "asr"
			default:
				sh = "ror"
			}
			in.Operation = sFlag(op1, sh)
			if op2&1 == 0 {
				in.Operands = []Operand{regOp(rd), regOp(rm), immOp(int64(imm5))}
			} else {
				in.Operands = []Operand{regOp(rd), regOp(rm), regOp(imm5 >> 1)}
			}
		default:
			m := aluMnem(op1)
			if m == "" {
				return
			}
			in.Operation = sFlag(op1, m)
			in.Operands = []Operand{regOp(rd), regOp(rn), shifted}
		}
		return
	}

	// op == 1: immediate / move-wide / msr forms.
	imm12 := word & 0xfff
	switch {
	case op1 == 0b10000:
		in.Operation = "movw"
		in.Operands = []Operand{regOp(rd), immOp(int64(((word >> 4) & 0xf000) | imm12))}
	case op1 == 0b10100:
		in.Operation = "movt"
		in.Operands = []Operand{regOp(rd), immOp(int64(((word >> 4) & 0xf000) | imm12))}
	case op1 == 0b10010:
		if rn == 0 {
			switch word & 0xff {
			case 0:
				in.Operation = "nop"
			case 1:
				in.Operation = "yield"
			case 2:
				in.Operation = "wfe"
			case 3:
				in.Operation = "wfi"
			case 4:
				in.Operation = "sev"
			}
		} else {
			in.Operation = "msr"
			in.Operands = []Operand{labelOp("apsr_" + [...]string{"", "g", "nzcvq", "nzcvqg"}[(rn>>2)&3]), immOp(int64(imm12))}
		}
	case op1 == 0b10110:
		in.Operation = "msr"
		in.Operands = []Operand{labelOp("apsr_" + [...]string{"", "g", "nzcvq", "nzcvqg"}[(rn>>2)&3]), immOp(int64(imm12))}
	case op1&0b11000 == 0b10000:
		in.Operation = [...]string{"tst", "teq", "cmp", "cmn"}[(op1>>1)&3]
		in.Operands = []Operand{regOp(rn), immOp(int64(imm12))}
	case op1&0b11110 == 0b11010:
		in.Operation = sFlag(op1, "mov")
		in.Operands = []Operand{regOp(rd), immOp(int64(imm12))}
	case op1&0b11110 == 0b11110:
		in.Operation = sFlag(op1, "mov")
		in.Operands = []Operand{regOp(rd), immOp(int64(int32(^imm12) & 0xffffffff))}
	default:
		m := aluMnem(op1)
		if m == "" {
			return
		}
		in.Operation = sFlag(op1, m)
		in.Operands = []Operand{regOp(rd), regOp(rn), immOp(int64(imm12))}
	}
}

// armLoadStore decodes the single-register load/store space (str/ldr/strb/
// ldrb), immediate-offset and register-offset forms. The unprivileged -t
// variants are not implemented.
func armLoadStore(in *Inst, word uint32, _ bin.Addr) {
	op1 := (word >> 20) & 0x1f
	a := (word >> 25) & 1
	rn := (word >> 16) & 0xf
	rt := (word >> 12) & 0xf
	imm5 := (word >> 7) & 0xf
	typecode := (word >> 5) & 3
	rm := word & 0xf
	imm12 := word & 0xfff

	var mnem string
	switch {
	case op1&0b00101 == 0b00000:
		mnem = "str"
	case op1&0b00101 == 0b00001:
		mnem = "ldr"
	case op1&0b00101 == 0b00100:
		mnem = "strb"
	case op1&0b00101 == 0b00101:
		mnem = "ldrb"
	default:
		return
	}
	in.Operation = mnem

	neg := op1&8 == 0
	var offset Operand
	if a == 0 {
		offset = immOp(int64(imm12))
		if neg {
			offset = immOp(-int64(imm12))
		}
	} else {
		offset = regShiftImmed(rm, typecode, imm5, neg)
	}

	m := MemoryOperand{Base: regs[rn]}
	if op1&2 != 0 && op1&0x10 != 0 {
		if a == 0 {
			m.HasImm, m.Imm = true, offset.Imm
		} else {
			m.HasIndexReg, m.IndexReg, m.IndexNeg = true, offset.Reg, offset.Neg
		}
		m.Writeback = true
		in.Operands = []Operand{regOp(rt), memOp(m)}
	} else {
		in.Operands = []Operand{regOp(rt), memOp(m), offset}
	}
}

func armBranch(in *Inst, word uint32, addr bin.Addr) {
	op := (word >> 20) & 0x3f
	rn := (word >> 16) & 0xf
	imm24 := word & 0xffffff

	branchTarget := func() int64 {
		var disp int64
		if imm24&(1<<23) != 0 {
			disp = int64(int32(imm24|0xff000000)) << 2
		} else {
			disp = int64(imm24) << 2
		}
		return int64((uint64(addr) + 8 + uint64(disp)) & 0xffffffff)
	}

	switch {
	case op&0x20 != 0 && op&0x10 != 0:
		in.Operation = "bl"
		in.kind = "bl"
		in.Operands = []Operand{immOp(branchTarget())}
	case op&0x20 != 0:
		in.Operation = "b"
		in.kind = "b"
		in.Operands = []Operand{immOp(branchTarget())}
	case op&1 != 0:
		in.Operation = "ldm" + dirSuffix(op)
		in.Operands = regListOperands(rn, word, op&2 != 0)
	default:
		in.Operation = "stm" + dirSuffix(op)
		in.Operands = regListOperands(rn, word, op&2 != 0)
	}
}

func dirSuffix(op uint32) string {
	s := "i"
	if op&8 == 0 {
		s = "d"
	}
	if op&0x10 != 0 {
		s += "b"
	} else {
		s += "a"
	}
	return s
}

func regListOperands(rn uint32, word uint32, writeback bool) []Operand {
	base := regs[rn]
	if writeback {
		base += "!"
	}
	ops := []Operand{labelOp(base)}
	for i := 0; i < 16; i++ {
		if word&(1<<uint(i)) != 0 {
			ops = append(ops, regOp(uint32(i)))
		}
	}
	return ops
}

func armSupervisor(in *Inst, word uint32) {
	op1 := (word >> 20) & 0x3f
	if op1&0b110000 == 0b110000 {
		in.Operation = "svc"
		in.kind = "svc"
		in.Operands = []Operand{immOp(int64(word & 0xffffff))}
	}
}
