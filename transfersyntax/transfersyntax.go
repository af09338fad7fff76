// Package transfersyntax is the registry mapping transfer-syntax UIDs to
// endianness, explicit/implicit typing, encapsulation, and codec name, per
// §4.5 and §6.
package transfersyntax

import (
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/internal/dcmlog"
)

// Endianness selects byte order for binary value decoding.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

// Syntax describes one registered transfer syntax.
type Syntax struct {
	UID          string
	Name         string
	Endian       Endianness
	Explicit     bool
	Encapsulated bool
	Deflated     bool
	Codec        string // "" if not encapsulated
}

var registry = map[string]Syntax{
	dictionary.UIDImplicitVRLittleEndian: {
		UID: dictionary.UIDImplicitVRLittleEndian, Name: "Implicit VR Little Endian",
		Endian: LittleEndian, Explicit: false,
	},
	dictionary.UIDExplicitVRLittleEndian: {
		UID: dictionary.UIDExplicitVRLittleEndian, Name: "Explicit VR Little Endian",
		Endian: LittleEndian, Explicit: true,
	},
	dictionary.UIDDeflatedExplicitVRLE: {
		UID: dictionary.UIDDeflatedExplicitVRLE, Name: "Deflated Explicit VR Little Endian",
		Endian: LittleEndian, Explicit: true, Deflated: true,
	},
	dictionary.UIDExplicitVRBigEndian: {
		UID: dictionary.UIDExplicitVRBigEndian, Name: "Explicit VR Big Endian",
		Endian: BigEndian, Explicit: true,
	},
	dictionary.UIDJPEGBaseline: {
		UID: dictionary.UIDJPEGBaseline, Name: "JPEG Baseline (Process 1)",
		Endian: LittleEndian, Explicit: true, Encapsulated: true, Codec: "jpegbaseline",
	},
	dictionary.UIDRLELossless: {
		UID: dictionary.UIDRLELossless, Name: "RLE Lossless",
		Endian: LittleEndian, Explicit: true, Encapsulated: true, Codec: "rle",
	},
}

// Register adds or replaces a transfer syntax in the process-wide
// registry. Intended for startup-time configuration (init-then-read
// discipline per §5); callers must serialize concurrent registrations
// themselves.
func Register(s Syntax) {
	registry[s.UID] = s
}

// unknownDefault is the fallback applied to an unrecognised UID: explicit
// little endian, not encapsulated, per §6 ("honored for parsing with
// default assumptions").
func unknownDefault(uid string) Syntax {
	return Syntax{UID: uid, Name: "Unknown Transfer Syntax", Endian: LittleEndian, Explicit: true}
}

// Lookup resolves a transfer-syntax UID. Unknown UIDs resolve to a
// default-assumption Syntax and are logged as a warning rather than
// failing, per §6.
func Lookup(uid string) Syntax {
	if s, ok := registry[uid]; ok {
		return s
	}
	dcmlog.Warn().Str("uid", uid).Msg("unrecognised transfer syntax UID, assuming explicit VR little endian")
	return unknownDefault(uid)
}

// IsRegistered reports whether uid has an explicit registry entry (as
// opposed to falling back to unknownDefault).
func IsRegistered(uid string) bool {
	_, ok := registry[uid]
	return ok
}
