package arm

import "github.com/mewmew/recon/arch"

var _ arch.Patcher = (*Inst)(nil)

func le16(w uint16) []byte { return []byte{byte(w), byte(w >> 8)} }
func le32(w uint32) []byte { return []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)} }

const (
	a32Nop    = 0xe1a00000 // mov r0, r0
	thumbNop  = 0x46c0     // mov r8, r8, the conventional ARMv4T Thumb nop
	a32ZeroR0 = 0xe3a00000 // mov r0, #0
)

// PatchToNop fills the encoded length with architecturally-neutral no-ops:
// mov r0, r0 for A32, and the classic mov r8, r8 Thumb encoding (doubled
// when the instruction occupied a 4-byte Thumb-32 slot).
func (in *Inst) PatchToNop() ([]byte, bool) {
	if !in.thumb {
		if in.length != 4 {
			return nil, false
		}
		return le32(a32Nop), true
	}
	switch in.length {
	case 2:
		return le16(thumbNop), true
	case 4:
		return append(le16(thumbNop), le16(thumbNop)...), true
	}
	return nil, false
}

// PatchToAlwaysBranch rewrites a conditional branch to execute
// unconditionally. For A32 it sets the condition nibble to 0b1110 (always).
// For Thumb-16 conditional branches it re-encodes as the unconditional
// Thumb-16 branch form, preserving the imm8 displacement sign-extended into
// the wider imm11 field. cbz/cbnz have no unconditional counterpart and are
// not supported.
func (in *Inst) PatchToAlwaysBranch() ([]byte, bool) {
	if !in.IsConditionalBranch() {
		return nil, false
	}
	if !in.thumb {
		if in.length != 4 {
			return nil, false
		}
		word := (in.raw &^ 0xf0000000) | 0xe0000000
		return le32(word), true
	}
	if in.length != 2 {
		return nil, false
	}
	if in.Operation == "cbz" || in.Operation == "cbnz" {
		return nil, false
	}
	imm8 := int8(byte(in.raw))
	imm11 := uint32(int32(imm8)) & 0x7ff
	word := uint16(0b11100<<11) | uint16(imm11)
	return le16(word), true
}

// PatchToInvertBranch flips the low bit of the condition field, which
// inverts every ARM condition pair (eq/ne, cs/cc, mi/pl, vs/vc, hi/ls,
// ge/lt, gt/le). For Thumb cbz/cbnz, which have no condition field, it
// toggles the single opcode bit that distinguishes the two mnemonics.
func (in *Inst) PatchToInvertBranch() ([]byte, bool) {
	if !in.IsConditionalBranch() {
		return nil, false
	}
	if !in.thumb {
		if in.length != 4 {
			return nil, false
		}
		return le32(in.raw ^ 0x10000000), true
	}
	if in.length != 2 {
		return nil, false
	}
	if in.Operation == "cbz" || in.Operation == "cbnz" {
		return le16(uint16(in.raw) ^ 0x0800), true
	}
	return le16(uint16(in.raw) ^ 0x0100), true
}

// PatchToZeroReturn replaces a call site with a zeroing of r0, the
// platform's integer return register, followed by a filler no-op when the
// call occupied more bytes than the zeroing form needs.
func (in *Inst) PatchToZeroReturn() ([]byte, bool) {
	if !in.IsCall() {
		return nil, false
	}
	if !in.thumb {
		if in.length != 4 {
			return nil, false
		}
		return le32(a32ZeroR0), true
	}
	switch in.length {
	case 2:
		return le16(0x2000), true // movs r0, #0
	case 4:
		return append(le16(0x2000), le16(thumbNop)...), true
	}
	return nil, false
}

// PatchToFixedReturnValue replaces a call site with a load of v into r0.
// Both the A32 and Thumb immediate forms used here carry an unrotated
// 8-bit field, so v must fit in 0-255; there is no room to synthesize a
// wider constant without growing the patch past the original call's length.
func (in *Inst) PatchToFixedReturnValue(v uint64) ([]byte, bool) {
	if !in.IsCall() || v > 0xff {
		return nil, false
	}
	if !in.thumb {
		if in.length != 4 {
			return nil, false
		}
		return le32(a32ZeroR0 | uint32(v)), true
	}
	switch in.length {
	case 2:
		return le16(0x2000 | uint16(v)), true
	case 4:
		return append(le16(0x2000|uint16(v)), le16(thumbNop)...), true
	}
	return nil, false
}
