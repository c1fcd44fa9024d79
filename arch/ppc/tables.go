package ppc

import "github.com/mewmew/recon/bin"

// groupEntry names a mnemonic, the ordered operand fields that build it,
// and an optional post-processing step that may rewrite Operation/Operands
// (condition bits, extended mnemonics), mirroring the original tool's
// [mnemonic, fields, post] triples.
type groupEntry struct {
	mnemonic string
	fields   []string
	post     func(in *Inst, word uint32, addr bin.Addr)
}

func (e *groupEntry) apply(in *Inst, word uint32, addr bin.Addr) {
	in.Operation = e.mnemonic
	in.Operands = decodeOperands(word, e.fields)
	if e.post != nil {
		e.post(in, word, addr)
	}
}

// instrHandler decodes one primary-opcode (or group-dispatched) entry
// directly into in.
type instrHandler func(in *Inst, word uint32, addr bin.Addr)

// post-processing steps, mirroring PPC.py's bit-twiddling mnemonic
// modifiers.

func condBit(in *Inst, word uint32, addr bin.Addr) {
	if word&1 != 0 {
		in.Operation += "."
	}
}

func linkBit(in *Inst, word uint32, addr bin.Addr) {
	if word&1 != 0 {
		in.Operation += "l"
	}
}

func overflowBit(in *Inst, word uint32, addr bin.Addr) {
	if word&0x400 != 0 {
		in.Operation += "o"
	}
}

func condOverflowBits(in *Inst, word uint32, addr bin.Addr) {
	overflowBit(in, word, addr)
	condBit(in, word, addr)
}

func doubleBit(in *Inst, word uint32, addr bin.Addr) {
	if word&0x200000 != 0 {
		in.Operation = replaceDollar(in.Operation, "d")
	} else {
		in.Operation = replaceDollar(in.Operation, "w")
	}
}

func replaceDollar(s, with string) string {
	out := make([]byte, 0, len(s)+len(with))
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			out = append(out, with...)
		} else {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// condBranch resolves the extended mnemonics for the bc-family
// instructions: a ctr-decrement prefix (dnz/dz) plus a condition suffix
// (lt/gt/eq/so or ge/le/ne/ns), folding the BO/BI operands into the
// mnemonic and dropping them when fully resolved, exactly as the original
// tool's cond_branch does.
func condBranch(in *Inst) {
	bo := in.Operands[0].Imm
	bi := in.Operands[1].Imm

	cond := ""
	suffix := ""
	switch bo & 6 {
	case 0:
		cond = "dnz"
		if bo&0x8 != 0 {
			if bo&1 != 0 {
				suffix = "+"
			} else {
				suffix = "-"
			}
		}
	case 2:
		cond = "dz"
		if bo&0x8 != 0 {
			if bo&1 != 0 {
				suffix = "+"
			} else {
				suffix = "-"
			}
		}
	}

	var label *Operand
	if bo&0x10 == 0 {
		if bi&8 != 0 {
			switch bi & 3 {
			case 0:
				cond += "lt"
			case 1:
				cond += "gt"
			case 2:
				cond += "eq"
			case 3:
				cond += "so"
			}
		} else {
			switch bi & 3 {
			case 0:
				cond += "ge"
			case 1:
				cond += "le"
			case 2:
				cond += "ne"
			case 3:
				cond += "ns"
			}
		}
		if bi&0x1c != 0 {
			op := crOp(uint32(bi) >> 2)
			label = &op
		}
	}

	in.Operation = replaceDollar(in.Operation, cond) + suffix
	rest := in.Operands[2:]
	if label == nil {
		in.Operands = rest
	} else {
		in.Operands = append([]Operand{*label}, rest...)
	}
}

func linkBitAndCondBranch(in *Inst, word uint32, addr bin.Addr) {
	linkBit(in, word, addr)
	condBranch(in)
}

// crset/crclr/crmove fold a three-operand crNN form into a one- or
// two-operand extended mnemonic whenever the operands alias, matching the
// original tool's recognisers for creqv/crxor/cror self-references.
func crset(in *Inst, word uint32, addr bin.Addr) {
	if opEq(in.Operands[0], in.Operands[1]) && opEq(in.Operands[1], in.Operands[2]) {
		in.Operation = "crset"
		in.Operands = in.Operands[:1]
	}
}

func crclr(in *Inst, word uint32, addr bin.Addr) {
	if opEq(in.Operands[0], in.Operands[1]) && opEq(in.Operands[1], in.Operands[2]) {
		in.Operation = "crclr"
		in.Operands = in.Operands[:1]
	}
}

func crmove(in *Inst, word uint32, addr bin.Addr) {
	if opEq(in.Operands[1], in.Operands[2]) {
		in.Operation = "crmove"
		in.Operands = in.Operands[:2]
	}
}

func opEq(a, b Operand) bool {
	return a.Kind == b.Kind && a.Reg == b.Reg && a.Imm == b.Imm
}

var trapEncodings = map[int64]string{
	1: "lgt", 2: "llt", 4: "eq", 5: "lge", 6: "lle",
	8: "gt", 12: "ge", 16: "lt", 20: "le", 24: "ne",
}

func trap(in *Inst, word uint32, addr bin.Addr) {
	to := in.Operands[0].Imm
	if to == 31 {
		in.Operation = "trap"
		in.Operands = nil
		return
	}
	if suffix, ok := trapEncodings[to]; ok {
		in.Operation = in.Operation[:2] + suffix + in.Operation[2:]
		in.Operands = in.Operands[1:]
	}
}

var sprNames = map[int64]string{1: "xer", 8: "lr", 9: "ctr"}

func mfspr(in *Inst, word uint32, addr bin.Addr) {
	if name, ok := sprNames[in.Operands[1].Imm]; ok {
		in.Operation = "mf" + name
		in.Operands = in.Operands[:1]
	}
}

func mtspr(in *Inst, word uint32, addr bin.Addr) {
	if name, ok := sprNames[in.Operands[0].Imm]; ok {
		in.Operation = "mt" + name
		in.Operands = in.Operands[1:]
	}
}

// nopExt recognises "ori r0, r0, 0" as the canonical PowerPC nop encoding.
func nopExt(in *Inst, word uint32, addr bin.Addr) {
	if in.Operands[0].Reg == "r0" && in.Operands[1].Reg == "r0" && in.Operands[2].Imm == 0 {
		in.Operation = "nop"
		in.Operands = nil
	}
}

func li(in *Inst, word uint32, addr bin.Addr) {
	if in.Operands[1].Kind == OperandImm && in.Operands[1].Imm == 0 {
		in.Operation = "li"
		in.Operands = []Operand{in.Operands[0], in.Operands[2]}
	}
}

func lis(in *Inst, word uint32, addr bin.Addr) {
	if in.Operands[1].Kind == OperandImm && in.Operands[1].Imm == 0 {
		in.Operation = "lis"
		in.Operands = []Operand{in.Operands[0], in.Operands[2]}
	}
}

func mr(in *Inst, word uint32, addr bin.Addr) {
	if opEq(in.Operands[1], in.Operands[2]) {
		in.Operation = "mr"
		in.Operands = in.Operands[:2]
	}
	condBit(in, word, addr)
}

func nor(in *Inst, word uint32, addr bin.Addr) {
	if opEq(in.Operands[1], in.Operands[2]) {
		in.Operation = "not"
		in.Operands = in.Operands[:2]
	}
	condBit(in, word, addr)
}

func mtcr(in *Inst, word uint32, addr bin.Addr) {
	if in.Operands[0].Imm == 0xff {
		in.Operation = "mtcr"
		in.Operands = in.Operands[1:]
	}
}

// rlwinm recognises the standard set of rotate/shift/mask extended
// mnemonics (rotlwi, srwi, clrlwi, extrwi, slwi, clrrwi, extlwi), matching
// the original tool's arithmetic recognisers exactly.
func rlwinm(in *Inst, word uint32, addr bin.Addr) {
	rs, ra, sh, mb, me := in.Operands[0], in.Operands[1], in.Operands[2].Imm, in.Operands[3].Imm, in.Operands[4].Imm
	switch {
	case me == 31 && mb == 0:
		in.Operation = "rotlwi"
		in.Operands = []Operand{rs, ra, in.Operands[2]}
	case me == 31 && sh == 32-mb:
		in.Operation = "srwi"
		in.Operands = []Operand{rs, ra, in.Operands[3]}
	case me == 31 && sh == 0:
		in.Operation = "clrlwi"
		in.Operands = []Operand{rs, ra, in.Operands[3]}
	case me == 31 && sh >= 32-mb:
		in.Operation = "extrwi"
		in.Operands = []Operand{rs, ra, immOp(32 - mb), immOp((32 - mb) - sh)}
	case mb == 0 && me == 31-sh:
		in.Operation = "slwi"
		in.Operands = []Operand{rs, ra, in.Operands[2]}
	case sh == 0 && mb == 0:
		in.Operation = "clrrwi"
		in.Operands = []Operand{rs, ra, immOp(31 - me)}
	case mb == 0:
		in.Operation = "extlwi"
		in.Operands = []Operand{rs, ra, immOp(me + 1), in.Operands[2]}
	}
	condBit(in, word, addr)
}

func rlwnm(in *Inst, word uint32, addr bin.Addr) {
	mb, me := in.Operands[3].Imm, in.Operands[4].Imm
	if mb == 0 && me == 31 {
		in.Operation = "rotlw"
		in.Operands = in.Operands[:3]
	}
	condBit(in, word, addr)
}

// group dispatches the extended opcode (bits depend on the primary opcode)
// through a sub-table; an absent entry leaves the instruction invalid.
func group(table map[uint32]*groupEntry, extOp uint32, in *Inst, word uint32, addr bin.Addr) {
	e, ok := table[extOp]
	if !ok {
		return
	}
	e.apply(in, word, addr)
}

var group19 = map[uint32]*groupEntry{
	0:   {"mcrf", []string{"BF2", "BFA2"}, nil},
	16:  {"b$lr", []string{"BO", "BI"}, linkBitAndCondBranch},
	18:  {"rfid", nil, nil},
	33:  {"crnor", []string{"BT", "BA", "BB"}, nil},
	129: {"crandc", []string{"BT", "BA", "BB"}, nil},
	150: {"isync", nil, nil},
	193: {"crxor", []string{"BT", "BA", "BB"}, crclr},
	225: {"crnand", []string{"BT", "BA", "BB"}, nil},
	257: {"crand", []string{"BT", "BA", "BB"}, nil},
	274: {"hrfid", nil, nil},
	289: {"creqv", []string{"BT", "BA", "BB"}, crset},
	417: {"crorc", []string{"BT", "BA", "BB"}, nil},
	449: {"cror", []string{"BT", "BA", "BB"}, crmove},
	528: {"b$ctr", []string{"BO", "BI"}, linkBitAndCondBranch},
}

var group30 = map[uint32]*groupEntry{
	0: {"rldicl", []string{"rA", "rS", "sh", "mb"}, condBit},
	1: {"rldicl", []string{"rA", "rS", "sh", "mb"}, condBit},
	2: {"rldicr", []string{"rA", "rS", "sh", "me"}, condBit},
	3: {"rldicr", []string{"rA", "rS", "sh", "me"}, condBit},
	4: {"rldic", []string{"rA", "rS", "sh", "mb"}, condBit},
	5: {"rldic", []string{"rA", "rS", "sh", "mb"}, condBit},
	6: {"rldimi", []string{"rA", "rS", "sh", "mb"}, condBit},
	7: {"rldimi", []string{"rA", "rS", "sh", "mb"}, condBit},
	8: {"rldcl", []string{"rA", "rS", "rB", "mb"}, condBit},
	9: {"rldcr", []string{"rA", "rS", "rB", "me"}, condBit},
}

var group31 = map[uint32]*groupEntry{
	0:   {"cmp$", []string{"BF2", "rA", "rB"}, doubleBit},
	4:   {"tw", []string{"TO", "rA", "rB"}, trap},
	8:   {"subfc", []string{"rT", "rA", "rB"}, condOverflowBits},
	9:   {"mulhdu", []string{"rT", "rA", "rB"}, condBit},
	10:  {"addc", []string{"rT", "rA", "rB"}, condOverflowBits},
	11:  {"mulhwu", []string{"rT", "rA", "rB"}, condBit},
	19:  {"mfcr", []string{"rT"}, nil},
	20:  {"lwarx", []string{"rT", "rA|0", "rB"}, nil},
	21:  {"ldx", []string{"rT", "rA|0", "rB"}, nil},
	23:  {"lwzx", []string{"rT", "rA|0", "rB"}, nil},
	24:  {"slw", []string{"rA", "rS", "rB"}, condBit},
	26:  {"cntlzw", []string{"rA", "rS"}, condBit},
	27:  {"sld", []string{"rA", "rS", "rB"}, condBit},
	28:  {"and", []string{"rA", "rS", "rB"}, condBit},
	32:  {"cmp$l", []string{"BF2", "rA", "rB"}, doubleBit},
	40:  {"subf", []string{"rT", "rA", "rB"}, condOverflowBits},
	53:  {"ldux", []string{"rT", "rA", "rB"}, nil},
	54:  {"dcbst", []string{"rA|0", "rB"}, nil},
	55:  {"lwzux", []string{"rT", "rA", "rB"}, nil},
	58:  {"cntlzd", []string{"rA", "rS"}, condBit},
	60:  {"andc", []string{"rA", "rS", "rB"}, condBit},
	68:  {"td", []string{"TO", "rA", "rB"}, trap},
	73:  {"mulhd", []string{"rT", "rA", "rB"}, condBit},
	75:  {"mulhw", []string{"rT", "rA", "rB"}, condBit},
	83:  {"mfmsr", []string{"rT"}, nil},
	84:  {"ldarx", []string{"rT", "rA|0", "rB"}, nil},
	86:  {"dcbf", []string{"rA|0", "rB"}, nil},
	87:  {"lbzx", []string{"rT", "rA|0", "rB"}, nil},
	104: {"neg", []string{"rT", "rA"}, condOverflowBits},
	119: {"lbzux", []string{"rT", "rA", "rB"}, nil},
	122: {"popcntb", []string{"rA", "rS"}, condBit},
	124: {"nor", []string{"rA", "rS", "rB"}, nor},
	136: {"subfe", []string{"rT", "rA", "rB"}, condOverflowBits},
	138: {"adde", []string{"rT", "rA", "rB"}, condOverflowBits},
	144: {"mtcrf", []string{"FXM", "rS"}, mtcr},
	146: {"mtmsr", []string{"rS", "L2"}, nil},
	149: {"stdx", []string{"rS", "rA|0", "rB"}, nil},
	150: {"stwcx.", []string{"rS", "rA|0", "rB"}, nil},
	151: {"stwx", []string{"rS", "rA|0", "rB"}, nil},
	178: {"mtmsrd", []string{"rS", "L2"}, nil},
	181: {"stdux", []string{"rS", "rA", "rB"}, nil},
	183: {"stwux", []string{"rS", "rA", "rB"}, nil},
	200: {"subfze", []string{"rT", "rA"}, condOverflowBits},
	202: {"addze", []string{"rT", "rA"}, condOverflowBits},
	210: {"mtsr", []string{"SR", "rS"}, nil},
	214: {"stdcx.", []string{"rS", "rA|0", "rB"}, nil},
	215: {"stbx", []string{"rS", "rA|0", "rB"}, nil},
	232: {"subfme", []string{"rT", "rA"}, condOverflowBits},
	233: {"mulld", []string{"rT", "rA", "rB"}, condOverflowBits},
	234: {"addme", []string{"rT", "rA"}, condOverflowBits},
	235: {"mullw", []string{"rT", "rA", "rB"}, condOverflowBits},
	242: {"mtsrin", []string{"rS", "rB"}, nil},
	246: {"dcbtst", []string{"rA|0", "rB"}, nil},
	247: {"stbux", []string{"rS", "rA", "rB"}, nil},
	266: {"add", []string{"rT", "rA", "rB"}, condOverflowBits},
	274: {"tlbiel", []string{"rB", "L"}, nil},
	278: {"dcbt", []string{"rA|0", "rB"}, nil},
	279: {"lhzx", []string{"rT", "rA|0", "rB"}, nil},
	284: {"eqv", []string{"rA", "rS", "rB"}, condBit},
	306: {"tlbie", []string{"rB", "L"}, nil},
	310: {"eciwx", []string{"rT", "rA|0", "rB"}, nil},
	311: {"lhzux", []string{"rT", "rA", "rB"}, nil},
	316: {"xor", []string{"rA", "rS", "rB"}, condBit},
	339: {"mfspr", []string{"rT", "spr"}, mfspr},
	341: {"lwax", []string{"rT", "rA|0", "rB"}, nil},
	343: {"lhax", []string{"rT", "rA|0", "rB"}, nil},
	370: {"tlbia", nil, nil},
	371: {"mftb", []string{"rT", "spr"}, nil},
	373: {"lwaux", []string{"rT", "rA", "rB"}, nil},
	375: {"lhaux", []string{"rT", "rA", "rB"}, nil},
	402: {"slbmte", []string{"rS", "rB"}, nil},
	407: {"sthx", []string{"rS", "rA|0", "rB"}, nil},
	412: {"orc", []string{"rA", "rS", "rB"}, condBit},
	413: {"sradi", []string{"rA", "rS", "sh"}, condBit},
	434: {"slbie", []string{"rB"}, nil},
	438: {"ecowx", []string{"rS", "rA|0", "rB"}, nil},
	439: {"sthux", []string{"rS", "rA", "rB"}, nil},
	444: {"or", []string{"rA", "rS", "rB"}, mr},
	457: {"divdu", []string{"rT", "rA", "rB"}, condOverflowBits},
	459: {"divwu", []string{"rT", "rA", "rB"}, condOverflowBits},
	467: {"mtspr", []string{"spr", "rS"}, mtspr},
	476: {"nand", []string{"rA", "rS", "rB"}, condBit},
	489: {"divd", []string{"rT", "rA", "rB"}, condOverflowBits},
	491: {"divw", []string{"rT", "rA", "rB"}, condOverflowBits},
	498: {"slbia", nil, nil},
	512: {"mcrxr", []string{"BF2"}, nil},
	533: {"lswx", []string{"rT", "rA|0", "rB"}, nil},
	534: {"lwbrx", []string{"rT", "rA|0", "rB"}, nil},
	535: {"lfsx", []string{"frT", "rA|0", "rB"}, nil},
	536: {"srw", []string{"rA", "rS", "rB"}, condBit},
	539: {"srd", []string{"rA", "rS", "rB"}, condBit},
	566: {"tlbsync", nil, nil},
	567: {"lfsux", []string{"frT", "rA", "rB"}, nil},
	595: {"mfsr", []string{"rT", "SR"}, nil},
	597: {"lswi", []string{"rT", "rA|0", "NB"}, nil},
	598: {"sync", nil, nil},
	599: {"lfdx", []string{"frT", "rA|0", "rB"}, nil},
	631: {"lfdux", []string{"frT", "rA", "rB"}, nil},
	659: {"mfsrin", []string{"rT", "rB"}, nil},
	661: {"stswx", []string{"rS", "rA|0", "rB"}, nil},
	662: {"stwbrx", []string{"rS", "rA|0", "rB"}, nil},
	663: {"stfsx", []string{"frS", "rA|0", "rB"}, nil},
	695: {"stfsux", []string{"frS", "rA", "rB"}, nil},
	725: {"stswi", []string{"rS", "rA|0", "NB"}, nil},
	727: {"stfdx", []string{"frS", "rA|0", "rB"}, nil},
	759: {"stfdux", []string{"frS", "rA", "rB"}, nil},
	790: {"lhbrx", []string{"rT", "rA|0", "rB"}, nil},
	792: {"sraw", []string{"rA", "rS", "rB"}, condBit},
	794: {"srad", []string{"rA", "rS", "rB"}, condBit},
	824: {"srawi", []string{"rA", "rS", "SH"}, condBit},
	851: {"slbmfev", []string{"rT", "rB"}, nil},
	854: {"eieio", nil, nil},
	915: {"slbmfee", []string{"rT", "rB"}, nil},
	918: {"sthbrx", []string{"rS", "rA|0", "rB"}, nil},
	922: {"extsh", []string{"rA", "rS"}, condBit},
	954: {"extsb", []string{"rA", "rS"}, condBit},
	982: {"icbi", []string{"rA|0", "rB"}, nil},
	983: {"stfiwx", []string{"frS", "rA|0", "rB"}, nil},
	986: {"extsw", []string{"rA", "rS"}, condBit},
	1014: {"dcbz", []string{"rA|0", "rB"}, nil},
}

var group58 = map[uint32]*groupEntry{
	0: {"ld", []string{"rT", "rA|0", "DS"}, nil},
	1: {"ldu", []string{"rT", "rA", "DS"}, nil},
	2: {"lwa", []string{"rT", "rA|0", "DS"}, nil},
}

var group59 = map[uint32]*groupEntry{
	18: {"fdivs", []string{"frT", "frA", "frB"}, condBit},
	20: {"fsubs", []string{"frT", "frA", "frB"}, condBit},
	21: {"fadds", []string{"frT", "frA", "frB"}, condBit},
	22: {"fsqrts", []string{"frT", "frB"}, condBit},
	24: {"fres", []string{"frT", "frB"}, condBit},
	25: {"fmuls", []string{"frT", "frA", "frC"}, condBit},
	26: {"frsqrtes", []string{"frT", "frB"}, condBit},
	28: {"fmsubs", []string{"frT", "frA", "frC", "frB"}, condBit},
	29: {"fmadds", []string{"frT", "frA", "frC", "frB"}, condBit},
	30: {"fnmsubs", []string{"frT", "frA", "frC", "frB"}, condBit},
	31: {"fnmadds", []string{"frT", "frA", "frC", "frB"}, condBit},
}

var group63 = func() map[uint32]*groupEntry {
	m := map[uint32]*groupEntry{
		0:   {"fcmpu", []string{"BF2", "frA", "frB"}, nil},
		12:  {"frsp", []string{"frT", "frB"}, condBit},
		14:  {"fctiw", []string{"frT", "frB"}, condBit},
		15:  {"fctiwz", []string{"frT", "frB"}, condBit},
		32:  {"fcmpo", []string{"BF2", "frA", "frB"}, nil},
		38:  {"mtfsb1", []string{"BF"}, condBit},
		40:  {"fneg", []string{"frT", "frB"}, condBit},
		64:  {"mcrfs", []string{"BF2", "BFA2"}, nil},
		70:  {"mtfsb0", []string{"BF"}, condBit},
		72:  {"fmr", []string{"frT", "frB"}, condBit},
		134: {"mtfsfi", []string{"BF2", "U"}, condBit},
		136: {"fnabs", []string{"frT", "frB"}, condBit},
		264: {"fabs", []string{"frT", "frB"}, condBit},
		583: {"mffs", []string{"frT"}, condBit},
		711: {"mtfsf", []string{"FLM", "frB"}, condBit},
		814: {"fctid", []string{"frT", "frB"}, condBit},
		815: {"fctidz", []string{"frT", "frB"}, condBit},
		846: {"fcfid", []string{"frT", "frB"}, condBit},
	}
	for i := uint32(0); i < 32; i++ {
		shifted := i << 5
		m[18+shifted] = &groupEntry{"fdiv", []string{"frT", "frA", "frB"}, condBit}
		m[20+shifted] = &groupEntry{"fsub", []string{"frT", "frA", "frB"}, condBit}
		m[21+shifted] = &groupEntry{"fadd", []string{"frT", "frA", "frB"}, condBit}
		m[22+shifted] = &groupEntry{"fsqrt", []string{"frT", "frB"}, condBit}
		m[23+shifted] = &groupEntry{"fsel", []string{"frT", "frA", "frC", "frB"}, condBit}
		m[24+shifted] = &groupEntry{"fre", []string{"frT", "frB"}, condBit}
		m[25+shifted] = &groupEntry{"fmul", []string{"frT", "frA", "frC"}, condBit}
		m[26+shifted] = &groupEntry{"fsqrte", []string{"frT", "frB"}, condBit}
		m[28+shifted] = &groupEntry{"fmsub", []string{"frT", "frA", "frC", "frB"}, condBit}
		m[29+shifted] = &groupEntry{"fmadd", []string{"frT", "frA", "frC", "frB"}, condBit}
		m[30+shifted] = &groupEntry{"fnmsub", []string{"frT", "frA", "frC", "frB"}, condBit}
		m[31+shifted] = &groupEntry{"fnmadd", []string{"frT", "frA", "frC", "frB"}, condBit}
	}
	return m
}()

// bc decodes the primary-opcode-16 conditional branch family, resolving
// the absolute or relative target before condBranch folds BO/BI into the
// mnemonic.
func bc(in *Inst, word uint32, addr bin.Addr) {
	var target int64
	if word&2 != 0 {
		if word&1 != 0 {
			in.Operation = "b$la"
		} else {
			in.Operation = "b$a"
		}
		target = signExtend16(word & 0xfffc)
	} else {
		if word&1 != 0 {
			in.Operation = "b$l"
		} else {
			in.Operation = "b$"
		}
		target = signExtend16(word&0xfffc) + int64(addr)
	}
	in.Operands = decodeOperands(word, []string{"BO", "BI"})
	in.Operands = append(in.Operands, immOp(target))
	condBranch(in)
}

// b decodes the primary-opcode-18 unconditional branch family.
func b(in *Inst, word uint32, addr bin.Addr) {
	var target int64
	if word&2 != 0 {
		if word&1 != 0 {
			in.Operation = "bla"
		} else {
			in.Operation = "ba"
		}
		target = signExtend24(word & 0xfffffc)
	} else {
		if word&1 != 0 {
			in.Operation = "bl"
		} else {
			in.Operation = "b"
		}
		target = signExtend24(word&0xfffffc) + int64(addr)
	}
	in.Operands = []Operand{immOp(target)}
}

// std decodes the primary-opcode-62 store-doubleword pair (std/stdu),
// distinguished by the update bit.
func std(in *Inst, word uint32, addr bin.Addr) {
	if word&1 != 0 {
		in.Operation = "stdu"
	} else {
		in.Operation = "std"
	}
	in.Operands = decodeOperands(word, []string{"rS", "rA"})
	in.Operands = append(in.Operands, immOp(signExtend16(word&0xfffc)))
}

func entry(mnemonic string, flds []string, post func(in *Inst, word uint32, addr bin.Addr)) instrHandler {
	e := &groupEntry{mnemonic, flds, post}
	return e.apply
}

func groupHandler(table map[uint32]*groupEntry, shift uint, mask uint32) instrHandler {
	return func(in *Inst, word uint32, addr bin.Addr) {
		group(table, (word>>shift)&mask, in, word, addr)
	}
}

// mainOpcodeTable is indexed by the primary six-bit opcode field
// (word>>26)&63, mirroring MainOpcodeMap.
var mainOpcodeTable = [64]instrHandler{
	2:  entry("tdi", []string{"TO", "rA", "SI"}, trap),
	3:  entry("twi", []string{"TO", "rA", "SI"}, trap),
	7:  entry("mulli", []string{"rT", "rA", "SI"}, nil),
	8:  entry("subfic", []string{"rT", "rA", "SI"}, nil),
	10: entry("cmpl$i", []string{"BF2", "rA", "UI"}, doubleBit),
	11: entry("cmp$i", []string{"BF2", "rA", "SI"}, doubleBit),
	12: entry("addic", []string{"rT", "rA", "SI"}, nil),
	13: entry("addic.", []string{"rT", "rA", "SI"}, nil),
	14: entry("addi", []string{"rT", "rA|0", "SI"}, li),
	15: entry("addis", []string{"rT", "rA|0", "SI"}, lis),
	16: bc,
	17: entry("sc", []string{"LEV"}, nil),
	18: b,
	19: groupHandler(group19, 1, 1023),
	20: entry("rlwimi", []string{"rS", "rA", "SH", "MB", "ME"}, condBit),
	21: entry("rlwinm", []string{"rS", "rA", "SH", "MB", "ME"}, rlwinm),
	23: entry("rlwnm", []string{"rS", "rA", "rB", "MB", "ME"}, rlwnm),
	24: entry("ori", []string{"rS", "rA", "UI"}, nopExt),
	25: entry("oris", []string{"rS", "rA", "UI"}, nil),
	26: entry("xori", []string{"rS", "rA", "UI"}, nil),
	27: entry("xoris", []string{"rS", "rA", "UI"}, nil),
	28: entry("andi", []string{"rS", "rA", "UI"}, nil),
	29: entry("andis", []string{"rS", "rA", "UI"}, nil),
	30: groupHandler(group30, 1, 15),
	31: groupHandler(group31, 1, 1023),
	32: entry("lwz", []string{"rT", "rA|0", "SI"}, nil),
	33: entry("lwzu", []string{"rT", "rA", "SI"}, nil),
	34: entry("lbz", []string{"rT", "rA|0", "SI"}, nil),
	35: entry("lbzu", []string{"rT", "rA", "SI"}, nil),
	36: entry("stw", []string{"rS", "rA|0", "SI"}, nil),
	37: entry("stwu", []string{"rS", "rA", "SI"}, nil),
	38: entry("stb", []string{"rS", "rA|0", "SI"}, nil),
	39: entry("stbu", []string{"rS", "rA", "SI"}, nil),
	40: entry("lhz", []string{"rT", "rA|0", "SI"}, nil),
	41: entry("lhzu", []string{"rT", "rA", "SI"}, nil),
	42: entry("lha", []string{"rT", "rA|0", "SI"}, nil),
	43: entry("lhau", []string{"rT", "rA", "SI"}, nil),
	44: entry("sth", []string{"rS", "rA|0", "SI"}, nil),
	45: entry("sthu", []string{"rS", "rA", "SI"}, nil),
	46: entry("lmw", []string{"rT", "rA|0", "SI"}, nil),
	47: entry("stmw", []string{"rS", "rA|0", "SI"}, nil),
	48: entry("lfs", []string{"frT", "rA|0", "SI"}, nil),
	49: entry("lfsu", []string{"frT", "rA", "SI"}, nil),
	50: entry("lfd", []string{"frT", "rA|0", "SI"}, nil),
	51: entry("lfdu", []string{"frT", "rA", "SI"}, nil),
	52: entry("stfs", []string{"frS", "rA|0", "SI"}, nil),
	53: entry("stfsu", []string{"frS", "rA", "SI"}, nil),
	54: entry("stfd", []string{"frS", "rA|0", "SI"}, nil),
	55: entry("stfdu", []string{"frS", "rA", "SI"}, nil),
	58: groupHandler(group58, 0, 3),
	59: groupHandler(group59, 1, 31),
	62: std,
	63: groupHandler(group63, 1, 1023),
}
