package arm

import "github.com/mewmew/recon/bin"

// thumb16 decodes a 16-bit Thumb instruction. Coverage follows the source
// tool's thumb_16 dispatch for the shift/arith group, hi-register group,
// pc-relative load, a core subset of load/store, push/pop, compare-and-
// branch, and the conditional/unconditional branch encodings; the extended
// misc subgroup (it/cps/setend/rev/sxt/uxt/bkpt) is not implemented.
func thumb16(in *Inst, half uint32, addr bin.Addr) {
	op := (half >> 10) & 0x3f
	op2 := (half >> 6) & 0xf
	rm := (half >> 3) & 7
	rd := half & 7

	switch {
	case op&0b110000 == 0:
		thumb16Arith(in, half)
	case op == 0b010000:
		thumb16DataProcessing(in, half, op2, rm, rd)
	case op == 0b010001:
		thumb16HiReg(in, half, op2, rd)
	case op&0b111110 == 0b010010:
		target := (uint64(addr)+4)&^uint64(3) + uint64(half&0xff)<<2
		in.Operation = "ldr"
		in.Operands = []Operand{regOp((half >> 8) & 7), memOp(MemoryOperand{ResolvedLiteral: true, LiteralAddr: int64(target)})}
	case op&0b111100 == 0b010100, op&0b111000 == 0b011000, op&0b111000 == 0b100000:
		thumb16LoadStore(in, half)
	case op&0b111110 == 0b101000:
		in.Operation = "adr"
		in.Operands = []Operand{regOp((half >> 8) & 7), immOp(int64((uint64(addr)+4)&0xfffffffc + uint64(half&0xff)))}
	case op&0b111110 == 0b101010:
		in.Operation = "add"
		in.Operands = []Operand{regOp((half >> 8) & 7), labelOp("sp"), immOp(int64(half & 0xff))}
	case op&0b111100 == 0b101100:
		thumb16Misc(in, half, addr)
	case op&0b111110 == 0b110000:
		in.Operation = "stmia"
		in.Operands = regListLowOperands((half>>8)&7, half, true)
	case op&0b111110 == 0b110010:
		wb := half&(1<<((half>>8)&7)) == 0
		in.Operation = "ldmia"
		in.Operands = regListLowOperands((half>>8)&7, half, wb)
	case op&0b111100 == 0b110100:
		thumb16BranchOrSVC(in, half, addr)
	case op&0b111110 == 0b111000:
		in.Operation = "b"
		in.kind = "b"
		var disp int64
		if half&0x400 != 0 {
			disp = int64(int32((half&0x7ff)|0xfffff800)) << 1
		} else {
			disp = int64(half&0x7ff) << 1
		}
		target := (uint64(addr)+4)&^3 + uint64(disp) + 1
		in.Operands = []Operand{immOp(int64(target & 0xffffffff))}
	}
}

func thumb16Arith(in *Inst, half uint32) {
	op := (half >> 9) & 0x1f
	imm5 := (half >> 6) & 0x1f
	rm := (half >> 3) & 7
	rd := half & 7

	switch {
	case op&0b11100 == 0:
		if imm5 == 0 {
			in.Operation = "movs"
			in.Operands = []Operand{regOp(rd), regOp(rm)}
		} else {
			in.Operation = "lsl"
			in.Operands = []Operand{regOp(rd), regOp(rm), immOp(int64(imm5))}
		}
	case op&0b11100 == 0b00100:
		in.Operation = "lsr"
		in.Operands = []Operand{regOp(rd), regOp(rm), immOp(int64(imm5))}
	case op&0b11100 == 0b01000:
		in.Operation = "asr"
		in.Operands = []Operand{regOp(rd), regOp(rm), immOp(int64(imm5))}
	case op == 0b01100:
		in.Operation = "add"
		in.Operands = []Operand{regOp(rd), regOp(rm), regOp(imm5 & 7)}
	case op == 0b01101:
		in.Operation = "sub"
		in.Operands = []Operand{regOp(rd), regOp(rm), regOp(imm5 & 7)}
	case op == 0b01110:
		in.Operation = "add"
		in.Operands = []Operand{regOp(rd), regOp(rm), immOp(int64(imm5 & 7))}
	case op == 0b01111:
		in.Operation = "sub"
		in.Operands = []Operand{regOp(rd), regOp(rm), immOp(int64(imm5 & 7))}
	case op&0b11100 == 0b10000:
		in.Operation = "mov"
		in.Operands = []Operand{regOp((half >> 8) & 7), immOp(int64(half & 0xff))}
	case op&0b11100 == 0b10100:
		in.Operation = "cmp"
		in.Operands = []Operand{regOp((half >> 8) & 7), immOp(int64(half & 0xff))}
	case op&0b11100 == 0b11000:
		in.Operation = "add"
		in.Operands = []Operand{regOp((half >> 8) & 7), immOp(int64(half & 0xff))}
	case op&0b11100 == 0b11100:
		in.Operation = "sub"
		in.Operands = []Operand{regOp((half >> 8) & 7), immOp(int64(half & 0xff))}
	}
}

// thumb16DataProcessing decodes op==0b010000: rsb/mul and the 16 two-
// operand ALU mnemonics.
func thumb16DataProcessing(in *Inst, half uint32, op2, rm, rd uint32) {
	switch op2 {
	case 0b1001:
		in.Operation = "rsb"
		in.Operands = []Operand{regOp(rd), regOp(rm), immOp(0)}
	case 0b1101:
		in.Operation = "mul"
		in.Operands = []Operand{regOp(rd), regOp(rm), regOp(rd)}
	default:
		table := [...]string{"and", "eor", "lsl", "lsr", "asr", "adc", "sbc", "ror", "tst", "",
			"cmp", "cmn", "orr", "", "bic", "mvn"}
		m := table[op2]
		if m == "" {
			return
		}
		in.Operation = m
		in.Operands = []Operand{regOp(rd), regOp(rm)}
	}
}

func thumb16HiReg(in *Inst, half uint32, op2, rd uint32) {
	rdFull := rd + ((half>>4)&8)
	rmFull := (half >> 3) & 0xf
	switch {
	case op2&0b1100 == 0:
		in.Operation = "add"
		in.Operands = []Operand{regOp(rdFull), regOp(rmFull)}
	case op2&0b1100 == 0b0100:
		in.Operation = "cmp"
		in.Operands = []Operand{regOp(rdFull), regOp(rmFull)}
	case op2&0b1100 == 0b1000:
		in.Operation = "mov"
		in.Operands = []Operand{regOp(rdFull), regOp(rmFull)}
	case op2&0b1110 == 0b1100:
		in.Operation = "bx"
		in.kind = "bx"
		in.Operands = []Operand{regOp(rmFull)}
	case op2&0b1110 == 0b1110:
		in.Operation = "blx"
		in.kind = "blx"
		in.Operands = []Operand{regOp(rmFull)}
	}
}

func thumb16LoadStore(in *Inst, half uint32) {
	opa := (half >> 12) & 0xf
	opb := (half >> 9) & 7
	rm := (half >> 6) & 7
	rn := (half >> 3) & 7
	rt := half & 7

	switch opa {
	case 0b0101:
		in.Operation = [...]string{"str", "strh", "strb", "ldsrb", "ldr", "ldrh", "ldrb", "ldrsh"}[opb]
		in.Operands = []Operand{regOp(rt), memOp(MemoryOperand{Base: regs[rn], HasIndexReg: true, IndexReg: regs[rm]})}
	case 0b0110:
		in.Operation = [...]string{"str", "ldr"}[opb>>2]
		in.Operands = []Operand{regOp(rt), memOp(MemoryOperand{Base: regs[rn], HasImm: true, Imm: int64((half >> 6) & 0x1f) * 4})}
	case 0b0111:
		in.Operation = [...]string{"strb", "ldrb"}[opb>>2]
		in.Operands = []Operand{regOp(rt), memOp(MemoryOperand{Base: regs[rn], HasImm: true, Imm: int64((half >> 6) & 0x1f)})}
	case 0b1000:
		in.Operation = [...]string{"strh", "ldrh"}[opb>>2]
		in.Operands = []Operand{regOp(rt), memOp(MemoryOperand{Base: regs[rn], HasImm: true, Imm: int64((half>>6)&0x1f) * 2})}
	case 0b1001:
		in.Operation = [...]string{"str", "ldr"}[opb>>2]
		in.Operands = []Operand{regOp((half >> 8) & 7), memOp(MemoryOperand{Base: "sp", HasImm: true, Imm: int64(half & 0xff) * 4})}
	}
}

func thumb16Misc(in *Inst, half uint32, addr bin.Addr) {
	op := (half >> 5) & 0x7f
	switch {
	case op&0b1111100 == 0b0000000:
		in.Operation = "add"
		in.Operands = []Operand{labelOp("sp"), labelOp("sp"), immOp(int64(half & 0x7f))}
	case op&0b1111100 == 0b0000100:
		in.Operation = "sub"
		in.Operands = []Operand{labelOp("sp"), labelOp("sp"), immOp(int64(half & 0x7f))}
	case op&0b1101000 == 0b0001000:
		in.Operation = "cbz"
		in.kind = "cbz"
		in.Operands = cbzOperands(in, half, addr)
	case op&0b1110000 == 0b0100000:
		in.Operation = "push"
		in.Operands = pushPopOperands(half, "lr", 1<<8)
	case op&0b1101000 == 0b1001000:
		in.Operation = "cbnz"
		in.kind = "cbnz"
		in.Operands = cbzOperands(in, half, addr)
	case op&0b1110000 == 0b1100000:
		in.Operation = "pop"
		in.Operands = pushPopOperands(half, "pc", 1<<8)
	}
}

func cbzOperands(in *Inst, half uint32, addr bin.Addr) []Operand {
	ofs := ((half >> 3) & 0x40) | ((half >> 2) & 0x3e)
	target := ((uint64(addr)+4)&^uint64(3) + uint64(ofs) + 1) & 0xffffffff
	return []Operand{regOp(half & 7), immOp(int64(target))}
}

func pushPopOperands(half uint32, extra string, extraBit uint32) []Operand {
	var ops []Operand
	for i := 0; i < 8; i++ {
		if half&(1<<uint(i)) != 0 {
			ops = append(ops, regOp(uint32(i)))
		}
	}
	if half&extraBit != 0 {
		ops = append(ops, labelOp(extra))
	}
	return ops
}

func regListLowOperands(rn uint32, half uint32, writeback bool) []Operand {
	base := regs[rn]
	if writeback {
		base += "!"
	}
	ops := []Operand{labelOp(base)}
	for i := 0; i < 8; i++ {
		if half&(1<<uint(i)) != 0 {
			ops = append(ops, regOp(uint32(i)))
		}
	}
	return ops
}

func thumb16BranchOrSVC(in *Inst, half uint32, addr bin.Addr) {
	cc := (half >> 8) & 0xf
	if cc&0b1110 != 0b1110 {
		in.Operation = "b" + condSuffix[cc]
		in.kind = "b"
		in.cond = int(cc)
		var disp int64
		if half&0x80 != 0 {
			disp = int64(int32((half&0xff)|0xffffff00)) << 1
		} else {
			disp = int64(half&0xff) << 1
		}
		target := ((uint64(addr)+4)&^uint64(3) + uint64(disp) + 1) & 0xffffffff
		in.Operands = []Operand{immOp(int64(target))}
	} else if cc&0xf == 0xf {
		in.Operation = "svc"
		in.kind = "svc"
		in.Operands = []Operand{immOp(int64(half & 0xff))}
	}
}

// thumb32 decodes a 32-bit Thumb instruction; only the bl/blx branch
// encodings are implemented, matching the scope of the source tool's
// thumb_32, which dispatches exclusively to thumb_32_branch.
func thumb32(in *Inst, word uint32, addr bin.Addr) {
	op1 := (word >> 11) & 3
	op := (word >> 31) & 1
	if op1 != 0b10 || op != 1 {
		return
	}
	thumb32Branch(in, word, addr)
}

func thumb32Branch(in *Inst, word uint32, addr bin.Addr) {
	op1 := (word >> 28) & 7
	s := (word >> 10) & 1
	j1 := (word >> 29) & 1
	j2 := (word >> 27) & 1
	i1 := (j1 ^ s ^ 1) & 1
	i2 := (j2 ^ s ^ 1) & 1

	switch {
	case op1&0b101 == 0b100:
		in.Operation = "blx"
		in.kind = "blx"
		ofs := (s << 24) | (i1 << 23) | (i2 << 22) | ((word & 0x3ff) << 12) | (((word >> 17) & 0x3ff) << 2)
		target := thumb32Target(addr, s, ofs, 0)
		in.Operands = []Operand{immOp(target)}
	case op1&0b101 == 0b101:
		in.Operation = "bl"
		in.kind = "bl"
		ofs := (s << 24) | (i1 << 23) | (i2 << 22) | ((word & 0x3ff) << 12) | (((word >> 16) & 0x7ff) << 1)
		target := thumb32Target(addr, s, ofs, 1)
		in.Operands = []Operand{immOp(target)}
	}
}

func thumb32Target(addr bin.Addr, s, ofs, extra uint32) int64 {
	signed := int64(ofs)
	if s != 0 {
		signed = int64(int32(ofs | 0xfe000000))
	}
	target := (uint64(addr)+4)&^uint64(3) + uint64(signed) + uint64(extra)
	return int64(target & 0xffffffff)
}
