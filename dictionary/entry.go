// Package dictionary provides the static, read-mostly lookup tables the
// reader and writer consult: tag -> (keyword, VR, VM, retired), keyword ->
// tag, UID -> (name, category), masked tag patterns, and per-vendor
// private-tag tables.
//
// The tables below stand in for output that, in a production toolchain,
// would be generated at build time from the authoritative standard XML
// (an external, non-goal collaborator here; see the dropped-dependency
// note in DESIGN.md). They are hand-maintained but shaped exactly like
// generated output: one literal entry per tag.
package dictionary

import (
	"strings"

	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/vr"
)

// Entry describes everything the dictionary knows about one public tag.
type Entry struct {
	Tag            tag.Tag
	Keyword        string
	Name           string
	VR             vr.VR
	VRAlternatives []vr.VR
	VM             string
	Retired        bool
}

// unknownEntry is returned (not stored) when a tag has no dictionary entry.
func unknownEntry(t tag.Tag) Entry {
	return Entry{Tag: t, Keyword: "", Name: "Unknown" + t.String(), VR: vr.Unknown, VM: "1"}
}

// table is the static tag -> Entry map, built once at package init.
var table map[tag.Tag]Entry

// keywordIndex is a case-insensitive keyword -> Entry index, derived from
// table at init time.
var keywordIndex map[string]Entry

func reg(group, element uint16, keyword, name string, v vr.VR, vm string, retired bool, alts ...vr.VR) Entry {
	e := Entry{Tag: tag.New(group, element), Keyword: keyword, Name: name, VR: v, VM: vm, Retired: retired, VRAlternatives: alts}
	table[e.Tag] = e
	return e
}

func init() {
	table = make(map[tag.Tag]Entry, 256)

	// File Meta group (0002,xxxx) - always explicit VR little endian.
	reg(0x0002, 0x0000, "FileMetaInformationGroupLength", "File Meta Information Group Length", "UL", "1", false)
	reg(0x0002, 0x0001, "FileMetaInformationVersion", "File Meta Information Version", "OB", "1", false)
	reg(0x0002, 0x0002, "MediaStorageSOPClassUID", "Media Storage SOP Class UID", "UI", "1", false)
	reg(0x0002, 0x0003, "MediaStorageSOPInstanceUID", "Media Storage SOP Instance UID", "UI", "1", false)
	reg(0x0002, 0x0010, "TransferSyntaxUID", "Transfer Syntax UID", "UI", "1", false)
	reg(0x0002, 0x0012, "ImplementationClassUID", "Implementation Class UID", "UI", "1", false)
	reg(0x0002, 0x0013, "ImplementationVersionName", "Implementation Version Name", "SH", "1", false)
	reg(0x0002, 0x0016, "SourceApplicationEntityTitle", "Source Application Entity Title", "AE", "1", false)

	// Identification / patient / study (0008, 0010, 0020 groups)
	reg(0x0008, 0x0005, "SpecificCharacterSet", "Specific Character Set", "CS", "1-n", false)
	reg(0x0008, 0x0008, "ImageType", "Image Type", "CS", "2-n", false)
	reg(0x0008, 0x0016, "SOPClassUID", "SOP Class UID", "UI", "1", false)
	reg(0x0008, 0x0018, "SOPInstanceUID", "SOP Instance UID", "UI", "1", false)
	reg(0x0008, 0x0020, "StudyDate", "Study Date", "DA", "1", false)
	reg(0x0008, 0x0030, "StudyTime", "Study Time", "TM", "1", false)
	reg(0x0008, 0x0050, "AccessionNumber", "Accession Number", "SH", "1", false)
	reg(0x0008, 0x0060, "Modality", "Modality", "CS", "1", false)
	reg(0x0008, 0x0070, "Manufacturer", "Manufacturer", "LO", "1", false)
	reg(0x0008, 0x0090, "ReferringPhysicianName", "Referring Physician's Name", "PN", "1", false)
	reg(0x0008, 0x1030, "StudyDescription", "Study Description", "LO", "1", false)
	reg(0x0008, 0x103E, "SeriesDescription", "Series Description", "LO", "1", false)

	reg(0x0010, 0x0010, "PatientName", "Patient's Name", "PN", "1", false)
	reg(0x0010, 0x0020, "PatientID", "Patient ID", "LO", "1", false)
	reg(0x0010, 0x0030, "PatientBirthDate", "Patient's Birth Date", "DA", "1", false)
	reg(0x0010, 0x0040, "PatientSex", "Patient's Sex", "CS", "1", false)
	reg(0x0010, 0x1010, "PatientAge", "Patient's Age", "AS", "1", false)
	reg(0x0010, 0x1030, "PatientWeight", "Patient's Weight", "DS", "1", false)

	reg(0x0018, 0x0050, "SliceThickness", "Slice Thickness", "DS", "1", false)
	reg(0x0018, 0x0060, "KVP", "KVP", "DS", "1", false)
	reg(0x0018, 0x1030, "ProtocolName", "Protocol Name", "LO", "1", false)
	reg(0x0018, 0x1151, "XRayTubeCurrent", "X-Ray Tube Current", "IS", "1", false)

	reg(0x0020, 0x000D, "StudyInstanceUID", "Study Instance UID", "UI", "1", false)
	reg(0x0020, 0x000E, "SeriesInstanceUID", "Series Instance UID", "UI", "1", false)
	reg(0x0020, 0x0010, "StudyID", "Study ID", "SH", "1", false)
	reg(0x0020, 0x0011, "SeriesNumber", "Series Number", "IS", "1", false)
	reg(0x0020, 0x0013, "InstanceNumber", "Instance Number", "IS", "1", false)
	reg(0x0020, 0x0032, "ImagePositionPatient", "Image Position (Patient)", "DS", "3", false)
	reg(0x0020, 0x0037, "ImageOrientationPatient", "Image Orientation (Patient)", "DS", "6", false)
	reg(0x0020, 0x0052, "FrameOfReferenceUID", "Frame of Reference UID", "UI", "1", false)

	// Pixel / image description group (0028) - heavy on context-dependent
	// typing per spec.md S6.
	reg(0x0028, 0x0002, "SamplesPerPixel", "Samples per Pixel", "US", "1", false)
	reg(0x0028, 0x0004, "PhotometricInterpretation", "Photometric Interpretation", "CS", "1", false)
	reg(0x0028, 0x0006, "PlanarConfiguration", "Planar Configuration", "US", "1", false)
	reg(0x0028, 0x0008, "NumberOfFrames", "Number of Frames", "IS", "1", false)
	reg(0x0028, 0x0010, "Rows", "Rows", "US", "1", false)
	reg(0x0028, 0x0011, "Columns", "Columns", "US", "1", false)
	reg(0x0028, 0x0030, "PixelSpacing", "Pixel Spacing", "DS", "2", false)
	reg(0x0028, 0x0100, "BitsAllocated", "Bits Allocated", "US", "1", false)
	reg(0x0028, 0x0101, "BitsStored", "Bits Stored", "US", "1", false)
	reg(0x0028, 0x0102, "HighBit", "High Bit", "US", "1", false)
	reg(0x0028, 0x0103, "PixelRepresentation", "Pixel Representation", "US", "1", false)
	reg(0x0028, 0x0106, "SmallestImagePixelValue", "Smallest Image Pixel Value", "US", "1", false, "SS")
	reg(0x0028, 0x0107, "LargestImagePixelValue", "Largest Image Pixel Value", "US", "1", false, "SS")
	reg(0x0028, 0x1101, "RedPaletteColorLookupTableDescriptor", "Red Palette Color LUT Descriptor", "US", "3", false, "SS")
	reg(0x0028, 0x1102, "GreenPaletteColorLookupTableDescriptor", "Green Palette Color LUT Descriptor", "US", "3", false, "SS")
	reg(0x0028, 0x1103, "BluePaletteColorLookupTableDescriptor", "Blue Palette Color LUT Descriptor", "US", "3", false, "SS")
	reg(0x0028, 0x1201, "RedPaletteColorLookupTableData", "Red Palette Color LUT Data", "OW", "1", false, "US")
	reg(0x0028, 0x1202, "GreenPaletteColorLookupTableData", "Green Palette Color LUT Data", "OW", "1", false, "US")
	reg(0x0028, 0x1203, "BluePaletteColorLookupTableData", "Blue Palette Color LUT Data", "OW", "1", false, "US")
	reg(0x0028, 0x1050, "WindowCenter", "Window Center", "DS", "1-n", false)
	reg(0x0028, 0x1051, "WindowWidth", "Window Width", "DS", "1-n", false)

	// Sequences
	reg(0x0040, 0xA730, "ContentSequence", "Content Sequence", "SQ", "1", false)
	reg(0x0008, 0x1140, "ReferencedImageSequence", "Referenced Image Sequence", "SQ", "1", false)
	reg(0x0054, 0x0016, "RadiopharmaceuticalInformationSequence", "Radiopharmaceutical Information Sequence", "SQ", "1", false)

	// Structural pseudo-tags (not real public-dictionary content, but
	// addressed the same way so lookups never fall through to "unknown").
	reg(0xFFFE, 0xE000, "Item", "Item", "", "1", false)
	reg(0xFFFE, 0xE00D, "ItemDelimitationItem", "Item Delimitation Item", "", "1", false)
	reg(0xFFFE, 0xE0DD, "SequenceDelimitationItem", "Sequence Delimitation Item", "", "1", false)

	reg(0x7FE0, 0x0010, "PixelData", "Pixel Data", "OW", "1", false, "OB")

	keywordIndex = make(map[string]Entry, len(table))
	for _, e := range table {
		if e.Keyword != "" {
			keywordIndex[strings.ToLower(e.Keyword)] = e
		}
	}
}

// Lookup returns the dictionary entry for t, or a synthesized "Unknown"
// entry (VR UN, VM 1) plus false when t is not in the table.
func Lookup(t tag.Tag) (Entry, bool) {
	if e, ok := table[t]; ok {
		return e, true
	}
	// DICOM's "generic group length" rule: (gggg,0000) is always UL,
	// regardless of whether group gggg is otherwise known.
	if t.Element() == 0 {
		return Entry{Tag: t, Keyword: "GenericGroupLength", Name: "Generic Group Length", VR: "UL", VM: "1"}, true
	}
	if m, ok := MatchMasked(t); ok {
		return m, true
	}
	return unknownEntry(t), false
}

// LookupKeyword performs a case-insensitive keyword -> Entry lookup.
func LookupKeyword(keyword string) (Entry, bool) {
	e, ok := keywordIndex[strings.ToLower(keyword)]
	return e, ok
}
