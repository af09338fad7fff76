// Package vr describes the fixed set of two-byte ASCII type-representation
// codes (VRs, in the source standard's terminology) and their physical
// encoding rules.
package vr

// VR is a two-character type-representation code, e.g. "CS", "US", "SQ".
type VR string

// Unknown is used when explicit-VR bytes do not match any recognised code,
// or when implicit typing cannot resolve a tag against the dictionary.
const Unknown VR = "UN"

// Kind classifies how a VR's bytes are physically interpreted.
type Kind int

const (
	KindString Kind = iota
	KindBinaryInt
	KindBinaryFloat
	KindOpaque
	KindSequence
	KindTag
)

// Spec carries the per-VR metadata the reader and writer need: padding,
// whether the length field is 16 or 32 bits, whether undefined length is
// legal, the multi-value delimiter, and the physical Kind.
type Spec struct {
	VR             VR
	Kind           Kind
	PadByte        byte
	LongLength     bool // true: 4-byte length field (with 2 reserved bytes in explicit typing); false: 2-byte
	UndefinedOK    bool
	Delimiter      byte // 0 if the VR carries no multi-value delimiter
	ElementWidth   int  // byte width of one binary value; 0 for string/opaque VRs
	MaxStringBytes int  // maximum allowed length in bytes, 0 = unbounded/not applicable
}

const backslash = '\\'

// Table lists every VR this toolkit recognises, keyed by code.
var Table = map[VR]Spec{
	"AE": {VR: "AE", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 16},
	"AS": {VR: "AS", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 4},
	"AT": {VR: "AT", Kind: KindTag, PadByte: 0, ElementWidth: 4},
	"CS": {VR: "CS", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 16},
	"DA": {VR: "DA", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 8},
	"DS": {VR: "DS", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 16},
	"DT": {VR: "DT", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 26},
	"FL": {VR: "FL", Kind: KindBinaryFloat, PadByte: 0, ElementWidth: 4},
	"FD": {VR: "FD", Kind: KindBinaryFloat, PadByte: 0, ElementWidth: 8},
	"IS": {VR: "IS", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 12},
	"LO": {VR: "LO", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 64},
	"LT": {VR: "LT", Kind: KindString, PadByte: ' ', MaxStringBytes: 10240},
	"OB": {VR: "OB", Kind: KindOpaque, PadByte: 0, LongLength: true, UndefinedOK: true},
	"OD": {VR: "OD", Kind: KindBinaryFloat, PadByte: 0, LongLength: true, ElementWidth: 8},
	"OF": {VR: "OF", Kind: KindBinaryFloat, PadByte: 0, LongLength: true, ElementWidth: 4},
	"OW": {VR: "OW", Kind: KindOpaque, PadByte: 0, LongLength: true, UndefinedOK: true, ElementWidth: 2},
	"PN": {VR: "PN", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 64 * 3},
	"SH": {VR: "SH", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 16},
	"SL": {VR: "SL", Kind: KindBinaryInt, PadByte: 0, ElementWidth: 4},
	"SQ": {VR: "SQ", Kind: KindSequence, PadByte: 0, LongLength: true, UndefinedOK: true},
	"SS": {VR: "SS", Kind: KindBinaryInt, PadByte: 0, ElementWidth: 2},
	"ST": {VR: "ST", Kind: KindString, PadByte: ' ', MaxStringBytes: 1024},
	"TM": {VR: "TM", Kind: KindString, PadByte: ' ', Delimiter: backslash, MaxStringBytes: 16},
	"UI": {VR: "UI", Kind: KindString, PadByte: 0, Delimiter: backslash, MaxStringBytes: 64},
	"UL": {VR: "UL", Kind: KindBinaryInt, PadByte: 0, ElementWidth: 4},
	"UN": {VR: "UN", Kind: KindOpaque, PadByte: 0, LongLength: true, UndefinedOK: true},
	"US": {VR: "US", Kind: KindBinaryInt, PadByte: 0, ElementWidth: 2},
	"UT": {VR: "UT", Kind: KindString, PadByte: ' ', LongLength: true, UndefinedOK: false, MaxStringBytes: 1 << 32},
}

// Lookup returns the Spec for a VR, and whether it was recognised.
func Lookup(v VR) (Spec, bool) {
	s, ok := Table[v]
	return s, ok
}

// IsRecognised reports whether v names a VR in Table.
func IsRecognised(v VR) bool {
	_, ok := Table[v]
	return ok
}

// IsCharacterString reports whether values of this VR are decoded with the
// dataset's character encoding (as opposed to being plain ASCII, like UI,
// or binary).
func IsCharacterString(v VR) bool {
	switch v {
	case "SH", "LO", "ST", "PN", "LT", "UT":
		return true
	default:
		return false
	}
}

// NeedsLongLengthInExplicit reports, for explicit-VR typing, whether the
// on-wire length field for v is 4 bytes preceded by 2 reserved bytes
// (true) or a plain 2-byte field (false). This mirrors Spec.LongLength but
// is kept as a standalone helper because the wire rule is keyed on the VR
// bytes actually present on the wire, which may predate dictionary lookup.
func NeedsLongLengthInExplicit(v VR) bool {
	switch v {
	case "OB", "OD", "OF", "OW", "SQ", "UN", "UT":
		return true
	default:
		return false
	}
}
