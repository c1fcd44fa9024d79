package x86

import "github.com/mewmew/recon/arch"

var _ arch.Patcher = (*Inst)(nil)

// PatchToNop fills the entire encoded length with 0x90 (NOP).
func (in *Inst) PatchToNop() ([]byte, bool) {
	if in.length <= 0 {
		return nil, false
	}
	out := make([]byte, in.length)
	for i := range out {
		out[i] = 0x90
	}
	return out, true
}

// PatchToAlwaysBranch replaces a conditional branch with an unconditional
// jump of identical length: a 2-byte short Jcc becomes EB <disp8>, a
// 6-byte near Jcc (0F 8x) becomes E9 <disp32> preceded by a single NOP to
// preserve length, matching the one-byte-shorter unconditional near jump
// form plus padding.
func (in *Inst) PatchToAlwaysBranch() ([]byte, bool) {
	if !in.IsConditionalBranch() {
		return nil, false
	}
	switch in.length {
	case 2:
		// Short Jcc: 7x <disp8> -> EB <disp8>.
		return []byte{0xeb, in.opcode[1]}, true
	case 6:
		// Near Jcc: 0F 8x <disp32> -> 90 E9 <disp32>, same length.
		out := make([]byte, 6)
		out[0] = 0x90
		out[1] = 0xe9
		copy(out[2:], in.opcode[2:6])
		return out, true
	}
	return nil, false
}

// PatchToInvertBranch flips the low bit of the condition code, which for
// every Jcc pair (jo/jno, jb/jae, ... ) toggles between the two halves of
// the pair; the opcode byte's low bit directly encodes this for both the
// short (0x70-0x7F) and near (0x0F 0x80-0x8F) forms.
func (in *Inst) PatchToInvertBranch() ([]byte, bool) {
	if !in.IsConditionalBranch() {
		return nil, false
	}
	out := append([]byte(nil), in.opcode...)
	switch in.length {
	case 2:
		out[0] ^= 1
	case 6:
		out[1] ^= 1
	default:
		return nil, false
	}
	return out, true
}

// PatchToZeroReturn replaces a call site with xor eax,eax padded with nop
// to the original instruction's length.
func (in *Inst) PatchToZeroReturn() ([]byte, bool) {
	if !in.IsCall() || in.length < 2 {
		return nil, false
	}
	out := make([]byte, in.length)
	out[0], out[1] = 0x31, 0xc0 // xor eax, eax
	for i := 2; i < len(out); i++ {
		out[i] = 0x90
	}
	return out, true
}

// PatchToFixedReturnValue replaces a call site with mov eax, imm32 padded
// with nop, requiring at least 5 bytes of call encoding to hold it.
func (in *Inst) PatchToFixedReturnValue(v uint64) ([]byte, bool) {
	if !in.IsCall() || in.length < 5 {
		return nil, false
	}
	out := make([]byte, in.length)
	out[0] = 0xb8 // mov eax, imm32
	out[1] = byte(v)
	out[2] = byte(v >> 8)
	out[3] = byte(v >> 16)
	out[4] = byte(v >> 24)
	for i := 5; i < len(out); i++ {
		out[i] = 0x90
	}
	return out, true
}
