package dictionary

import (
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/vr"
)

// maskedEntry pairs a MaskedPattern with the Entry template to synthesize
// for any tag it matches (repeating-group tags, where the literal group
// number varies but the element space is shared).
type maskedEntry struct {
	pattern tag.MaskedPattern
	name    string
	vr      vr.VR
	vm      string
}

// maskedTable covers the standard's repeating-group tags: overlay planes
// (group 60xx) and curve data (group 50xx, retired), which occupy sixteen
// and sixteen group slots respectively rather than one fixed group.
var maskedTable = []maskedEntry{
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000010},
		name:    "OverlayRows", vr: "US", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000011},
		name:    "OverlayColumns", vr: "US", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000015},
		name:    "NumberOfFramesInOverlay", vr: "IS", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000022},
		name:    "OverlayDescription", vr: "LO", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000040},
		name:    "OverlayType", vr: "CS", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000050},
		name:    "OverlayOrigin", vr: "SS", vm: "2",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000100},
		name:    "OverlayBitsAllocated", vr: "US", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60000102},
		name:    "OverlayBitPosition", vr: "US", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x60003000},
		name:    "OverlayData", vr: "OW", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x50000030},
		name:    "CurveDimensions", vr: "US", vm: "1",
	},
	{
		pattern: tag.MaskedPattern{Mask: 0xFFE1FFFF, Card: 0x50003000},
		name:    "CurveData", vr: "OW", vm: "1",
	},
}

// MatchMasked scans maskedTable for a pattern matching t, synthesizing an
// Entry on success. Used by Lookup as a fallback after the literal table.
func MatchMasked(t tag.Tag) (Entry, bool) {
	for _, m := range maskedTable {
		if m.pattern.Matches(t) {
			return Entry{Tag: t, Name: m.name, VR: m.vr, VM: m.vm}, true
		}
	}
	return Entry{}, false
}
