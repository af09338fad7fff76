package transfersyntax

import (
	"testing"

	"github.com/opendcm-go/dicom/dictionary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownExplicitLittleEndian(t *testing.T) {
	s := Lookup(dictionary.UIDExplicitVRLittleEndian)
	assert.True(t, s.Explicit)
	assert.Equal(t, LittleEndian, s.Endian)
	assert.False(t, s.Encapsulated)
}

func TestLookupKnownImplicitLittleEndian(t *testing.T) {
	s := Lookup(dictionary.UIDImplicitVRLittleEndian)
	assert.False(t, s.Explicit)
	assert.Equal(t, LittleEndian, s.Endian)
}

func TestLookupEncapsulatedSyntaxesCarryCodec(t *testing.T) {
	s := Lookup(dictionary.UIDJPEGBaseline)
	assert.True(t, s.Encapsulated)
	assert.Equal(t, "jpegbaseline", s.Codec)

	s = Lookup(dictionary.UIDRLELossless)
	assert.True(t, s.Encapsulated)
	assert.Equal(t, "rle", s.Codec)
}

func TestLookupUnknownFallsBackToDefault(t *testing.T) {
	s := Lookup("1.2.3.4.5.6.not.registered")
	assert.True(t, s.Explicit)
	assert.Equal(t, LittleEndian, s.Endian)
	assert.False(t, s.Encapsulated)
	assert.False(t, IsRegistered("1.2.3.4.5.6.not.registered"))
}

func TestIsRegistered(t *testing.T) {
	assert.True(t, IsRegistered(dictionary.UIDExplicitVRLittleEndian))
	assert.False(t, IsRegistered("not.a.real.uid"))
}

func TestRegisterAddsNewSyntax(t *testing.T) {
	const uid = "1.2.840.test.private-syntax"
	Register(Syntax{UID: uid, Name: "Private Test Syntax", Endian: LittleEndian, Explicit: true})

	s := Lookup(uid)
	require.True(t, IsRegistered(uid))
	assert.Equal(t, "Private Test Syntax", s.Name)
}
