package dictionary

import (
	"testing"

	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/vr"
	"github.com/stretchr/testify/assert"
)

func TestLookupKnownTag(t *testing.T) {
	e, ok := Lookup(tag.New(0x0010, 0x0010))
	assert.True(t, ok)
	assert.Equal(t, "PatientName", e.Keyword)
	assert.Equal(t, vr.VR("PN"), e.VR)
}

func TestLookupGenericGroupLength(t *testing.T) {
	e, ok := Lookup(tag.New(0x0031, 0x0000))
	assert.True(t, ok)
	assert.EqualValues(t, "UL", e.VR)
}

func TestLookupMaskedOverlay(t *testing.T) {
	e, ok := Lookup(tag.New(0x6002, 0x0010))
	assert.True(t, ok)
	assert.Equal(t, "OverlayRows", e.Name)
}

func TestLookupUnknown(t *testing.T) {
	e, ok := Lookup(tag.New(0x0009, 0x9999))
	assert.False(t, ok)
	assert.EqualValues(t, "UN", e.VR)
}

func TestLookupKeywordCaseInsensitive(t *testing.T) {
	e, ok := LookupKeyword("patientname")
	assert.True(t, ok)
	assert.Equal(t, tag.New(0x0010, 0x0010), e.Tag)
}

func TestLookupUID(t *testing.T) {
	e, ok := LookupUID(UIDExplicitVRLittleEndian + "\x00")
	assert.True(t, ok)
	assert.Equal(t, CategoryTransferSyntax, e.Category)
}

func TestRegisterAndLookupPrivateCreator(t *testing.T) {
	RegisterPrivateCreator("Test Creator 1.0", 0x10, PrivateElementInfo{Name: "TestThing", VR: "LO", VM: "1"})
	assert.True(t, KnownPrivateCreator("  Test Creator 1.0 "))
	info, ok := LookupPrivate("TEST CREATOR 1.0", 0x10)
	assert.True(t, ok)
	assert.Equal(t, "TestThing", info.Name)
}
