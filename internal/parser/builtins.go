package parser

import "strings"

// pasmInstructions lists the P2 assembly mnemonics. A DAT or inline-PASM line
// whose first word is in this table has no label.
var pasmInstructions = map[string]bool{
	"abs": true, "add": true, "addct1": true, "addct2": true, "addct3": true, "addpix": true, "adds": true, "addsx": true,
	"addx": true, "akpin": true, "allowi": true, "altb": true, "altd": true, "altgb": true, "altgn": true, "altgw": true,
	"alti": true, "altr": true, "alts": true, "altsb": true, "altsn": true, "altsw": true, "and": true, "andn": true,
	"asmclk": true, "augd": true, "augs": true, "bitc": true, "bith": true, "bitl": true, "bitnc": true, "bitnot": true,
	"bitnz": true, "bitrnd": true, "bitz": true, "blnpix": true, "bmask": true, "brk": true, "call": true, "calla": true,
	"callb": true, "calld": true, "callpa": true, "callpb": true, "cmp": true, "cmpm": true, "cmpr": true, "cmps": true,
	"cmpsub": true, "cmpsx": true, "cmpx": true, "cogatn": true, "cogbrk": true, "cogid": true, "coginit": true, "cogstop": true,
	"crcbit": true, "crcnib": true, "decmod": true, "decod": true, "dirc": true, "dirh": true, "dirl": true, "dirnc": true,
	"dirnot": true, "dirnz": true, "dirrnd": true, "dirz": true, "djf": true, "djnf": true, "djnz": true, "djz": true,
	"drvc": true, "drvh": true, "drvl": true, "drvnc": true, "drvnot": true, "drvnz": true, "drvrnd": true, "drvz": true,
	"encod": true, "execf": true, "fblock": true, "fge": true, "fges": true, "fle": true, "fles": true, "fltc": true,
	"flth": true, "fltl": true, "fltnc": true, "fltnot": true, "fltnz": true, "fltrnd": true, "fltz": true, "getbrk": true,
	"getbyte": true, "getct": true, "getnib": true, "getptr": true, "getqx": true, "getqy": true, "getrnd": true, "getscp": true,
	"getword": true, "getxacc": true, "hubset": true, "ijnz": true, "ijz": true, "incmod": true, "jatn": true, "jct1": true,
	"jct2": true, "jct3": true, "jfbw": true, "jint": true, "jmp": true, "jmprel": true, "jnatn": true, "jnct1": true,
	"jnct2": true, "jnct3": true, "jnfbw": true, "jnint": true, "jnpat": true, "jnqmt": true, "jnse1": true, "jnse2": true,
	"jnse3": true, "jnse4": true, "jnxfi": true, "jnxmt": true, "jnxrl": true, "jnxro": true, "jpat": true, "jqmt": true,
	"jse1": true, "jse2": true, "jse3": true, "jse4": true, "jxfi": true, "jxmt": true, "jxrl": true, "jxro": true,
	"loc": true, "locknew": true, "lockrel": true, "lockret": true, "locktry": true, "mergeb": true, "mergew": true, "mixpix": true,
	"modc": true, "modcz": true, "modz": true, "mov": true, "movbyts": true, "mul": true, "mulpix": true, "muls": true,
	"muxc": true, "muxnc": true, "muxnibs": true, "muxnits": true, "muxnz": true, "muxq": true, "muxz": true, "neg": true,
	"negc": true, "negnc": true, "negnz": true, "negz": true, "nixint1": true, "nixint2": true, "nixint3": true, "nop": true,
	"not": true, "ones": true, "or": true, "outc": true, "outh": true, "outl": true, "outnc": true, "outnot": true,
	"outnz": true, "outrnd": true, "outz": true, "pollatn": true, "pollct1": true, "pollct2": true, "pollct3": true, "pollfbw": true,
	"pollint": true, "pollpat": true, "pollqmt": true, "pollse1": true, "pollse2": true, "pollse3": true, "pollse4": true, "pollxfi": true,
	"pollxmt": true, "pollxrl": true, "pollxro": true, "pop": true, "popa": true, "popb": true, "push": true, "pusha": true,
	"pushb": true, "qdiv": true, "qexp": true, "qfrac": true, "qlog": true, "qmul": true, "qrotate": true, "qsqrt": true,
	"qvector": true, "rcl": true, "rcr": true, "rczl": true, "rczr": true, "rdbyte": true, "rdfast": true, "rdlong": true,
	"rdlut": true, "rdpin": true, "rdword": true, "rep": true, "resi0": true, "resi1": true, "resi2": true, "resi3": true,
	"ret": true, "reta": true, "retb": true, "reti0": true, "reti1": true, "reti2": true, "reti3": true, "rev": true,
	"rfbyte": true, "rflong": true, "rfvar": true, "rfvars": true, "rfword": true, "rgbexp": true, "rgbsqz": true, "rol": true,
	"rolbyte": true, "rolnib": true, "rolword": true, "ror": true, "rqpin": true, "sal": true, "sar": true, "sca": true,
	"scas": true, "setbyte": true, "setcfrq": true, "setci": true, "setcmod": true, "setcq": true, "setcy": true, "setd": true,
	"setdacs": true, "setint1": true, "setint2": true, "setint3": true, "setluts": true, "setnib": true, "setpat": true, "setpiv": true,
	"setpix": true, "setq": true, "setq2": true, "setr": true, "sets": true, "setscp": true, "setse1": true, "setse2": true,
	"setse3": true, "setse4": true, "setword": true, "setxfrq": true, "seussf": true, "seussr": true, "shl": true, "shr": true,
	"signx": true, "skip": true, "skipf": true, "splitb": true, "splitw": true, "stalli": true, "sub": true, "subr": true,
	"subs": true, "subsx": true, "subx": true, "sumc": true, "sumnc": true, "sumnz": true, "sumz": true, "test": true,
	"testb": true, "testbn": true, "testn": true, "testp": true, "testpn": true, "tjf": true, "tjnf": true, "tjns": true,
	"tjnz": true, "tjs": true, "tjv": true, "tjz": true, "trgint1": true, "trgint2": true, "trgint3": true, "waitatn": true,
	"waitct1": true, "waitct2": true, "waitct3": true, "waitfbw": true, "waitint": true, "waitpat": true, "waitse1": true, "waitse2": true,
	"waitse3": true, "waitse4": true, "waitx": true, "waitxfi": true, "waitxmt": true, "waitxrl": true, "waitxro": true, "wfbyte": true,
	"wflong": true, "wfword": true, "wmlong": true, "wrbyte": true, "wrc": true, "wrfast": true, "wrlong": true, "wrlut": true,
	"wrnc": true, "wrnz": true, "wrpin": true, "wrword": true, "wrz": true, "wxpin": true, "wypin": true, "xcont": true,
	"xinit": true, "xor": true, "xoro32": true, "xstop": true, "xzero": true, "zerox": true,
}

var pasmDirectives = map[string]bool{
	"org": true, "orgh": true, "orgf": true, "fit": true, "end": true,
	"res": true, "file": true, "alignl": true, "alignw": true,
	"byte": true, "word": true, "long": true, "bytefit": true, "wordfit": true,
	"debug": true, "ditto": true, "asmclk": true,
}

var pasmEffects = map[string]bool{
	"wc": true, "wz": true, "wcz": true, "xorc": true, "xorz": true,
	"orc": true, "orz": true, "andc": true, "andz": true,
}

var storageTypes = map[string]bool{
	"byte": true, "word": true, "long": true, "bytefit": true, "wordfit": true,
}

var alignTypes = map[string]bool{
	"alignl": true, "alignw": true,
}

// flowOpeners are the Spin statements that open an indented block.
var flowOpeners = map[string]bool{
	"if": true, "ifnot": true, "elseif": true, "elseifnot": true, "else": true,
	"case": true, "case_fast": true, "repeat": true,
}

// IsStorageType reports whether name is BYTE, WORD, LONG, BYTEFIT or WORDFIT.
func IsStorageType(name string) bool {
	return storageTypes[strings.ToLower(name)]
}

// IsAlignType reports whether name is ALIGNL or ALIGNW.
func IsAlignType(name string) bool {
	return alignTypes[strings.ToLower(name)]
}

// IsPasmReserved reports whether name is an instruction, directive, effect or
// condition prefix and therefore cannot be a label.
func IsPasmReserved(name string) bool {
	lower := strings.ToLower(name)
	if pasmInstructions[lower] || pasmDirectives[lower] || pasmEffects[lower] {
		return true
	}

	return strings.HasPrefix(lower, "if_") || lower == "_ret_" || lower == "dat"
}
