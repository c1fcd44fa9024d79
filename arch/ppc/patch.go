package ppc

import "github.com/mewmew/recon/arch"

var _ arch.Patcher = (*Inst)(nil)

func wordBytes(w uint32) []byte {
	return []byte{byte(w >> 24), byte(w >> 16), byte(w >> 8), byte(w)}
}

// PatchToNop emits the canonical PowerPC nop encoding, ori r0, r0, 0
// (0x60000000), rather than a literal no-op opcode (PowerPC has none).
func (in *Inst) PatchToNop() ([]byte, bool) {
	if in.length != 4 {
		return nil, false
	}
	return wordBytes(0x60000000), true
}

// PatchToAlwaysBranch rewrites a bc-family conditional branch's BO field to
// 0b10100 (branch always, ignoring CTR and the condition register),
// preserving every other bit including the displacement.
func (in *Inst) PatchToAlwaysBranch() ([]byte, bool) {
	if !in.IsConditionalBranch() || in.length != 4 {
		return nil, false
	}
	word := in.word
	word &^= 0x3e00000 // clear BO field (bits 21-25 from LSB)
	word |= 0x14 << 21 // BO = 20: always branch
	return wordBytes(word), true
}

// PatchToInvertBranch flips bit 3 of the BI field, which cond_branch uses
// to select between a condition and its complement (lt/ge, gt/le, eq/ne,
// so/ns).
func (in *Inst) PatchToInvertBranch() ([]byte, bool) {
	if !in.IsConditionalBranch() || in.length != 4 {
		return nil, false
	}
	return wordBytes(in.word ^ 0x80000), true
}

// PatchToZeroReturn replaces a call site with li r3, 0 (addi r3, 0, 0),
// matching the platform's conventional integer return register.
func (in *Inst) PatchToZeroReturn() ([]byte, bool) {
	if !in.IsCall() || in.length != 4 {
		return nil, false
	}
	const word = 14<<26 | 3<<21 // addi r3, 0, 0
	return wordBytes(word), true
}

// PatchToFixedReturnValue replaces a call site with li r3, v. The PowerPC
// encoding only carries a 16-bit signed immediate per instruction and the
// call site is always exactly one instruction wide, so v must fit in that
// range; there is no room for a second oris to widen it without growing
// the patch past the original encoded length.
func (in *Inst) PatchToFixedReturnValue(v uint64) ([]byte, bool) {
	if !in.IsCall() || in.length != 4 {
		return nil, false
	}
	sv := int64(v)
	if sv < -0x8000 || sv > 0x7fff {
		return nil, false
	}
	word := uint32(14<<26 | 3<<21 | (uint32(v) & 0xffff))
	return wordBytes(word), true
}
