package dictionary

import "strings"

// UIDCategory classifies a registered UID.
type UIDCategory int

const (
	CategoryTransferSyntax UIDCategory = iota
	CategorySOPClass
	CategorySOPInstance
	CategoryOther
)

// UIDEntry names a registered UID.
type UIDEntry struct {
	UID      string
	Name     string
	Category UIDCategory
}

// Well-known transfer syntax UIDs, named per spec.md §6: implicit VR little
// endian, explicit VR little endian, explicit VR big endian (read-only),
// deflated explicit VR little endian, the reference baseline JPEG codec
// syntax, and the supplemented uncompressed RLE codec syntax.
const (
	UIDImplicitVRLittleEndian = "1.2.840.10008.1.2"
	UIDExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	UIDDeflatedExplicitVRLE   = "1.2.840.10008.1.2.1.99"
	UIDExplicitVRBigEndian    = "1.2.840.10008.1.2.2"
	UIDJPEGBaseline           = "1.2.840.10008.1.2.4.50"
	UIDRLELossless            = "1.2.840.10008.1.2.5"
)

var uidTable = map[string]UIDEntry{
	UIDImplicitVRLittleEndian: {UID: UIDImplicitVRLittleEndian, Name: "Implicit VR Little Endian", Category: CategoryTransferSyntax},
	UIDExplicitVRLittleEndian: {UID: UIDExplicitVRLittleEndian, Name: "Explicit VR Little Endian", Category: CategoryTransferSyntax},
	UIDDeflatedExplicitVRLE:   {UID: UIDDeflatedExplicitVRLE, Name: "Deflated Explicit VR Little Endian", Category: CategoryTransferSyntax},
	UIDExplicitVRBigEndian:    {UID: UIDExplicitVRBigEndian, Name: "Explicit VR Big Endian", Category: CategoryTransferSyntax},
	UIDJPEGBaseline:           {UID: UIDJPEGBaseline, Name: "JPEG Baseline (Process 1)", Category: CategoryTransferSyntax},
	UIDRLELossless:            {UID: UIDRLELossless, Name: "RLE Lossless", Category: CategoryTransferSyntax},

	"1.2.840.10008.5.1.4.1.1.7": {UID: "1.2.840.10008.5.1.4.1.1.7", Name: "Secondary Capture Image Storage", Category: CategorySOPClass},
	"1.2.840.10008.5.1.4.1.1.2": {UID: "1.2.840.10008.5.1.4.1.1.2", Name: "CT Image Storage", Category: CategorySOPClass},
	"1.2.840.10008.5.1.4.1.1.4": {UID: "1.2.840.10008.5.1.4.1.1.4", Name: "MR Image Storage", Category: CategorySOPClass},
}

// LookupUID returns the registered name/category for a UID, trimming any
// trailing NUL padding byte that the wire encoding leaves in place.
func LookupUID(uid string) (UIDEntry, bool) {
	uid = strings.TrimRight(uid, "\x00 ")
	e, ok := uidTable[uid]
	return e, ok
}
