package vr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKnownVR(t *testing.T) {
	spec, ok := Lookup("US")
	assert.True(t, ok)
	assert.Equal(t, KindBinaryInt, spec.Kind)
	assert.Equal(t, 2, spec.ElementWidth)
}

func TestLookupUnknownVR(t *testing.T) {
	_, ok := Lookup("ZZ")
	assert.False(t, ok)
}

func TestNeedsLongLengthInExplicit(t *testing.T) {
	assert.True(t, NeedsLongLengthInExplicit("OB"))
	assert.True(t, NeedsLongLengthInExplicit("SQ"))
	assert.True(t, NeedsLongLengthInExplicit("UN"))
	assert.False(t, NeedsLongLengthInExplicit("US"))
	assert.False(t, NeedsLongLengthInExplicit("CS"))
}

func TestIsCharacterString(t *testing.T) {
	assert.True(t, IsCharacterString("PN"))
	assert.True(t, IsCharacterString("LO"))
	assert.False(t, IsCharacterString("UI"))
	assert.False(t, IsCharacterString("US"))
}

func TestEveryTableEntryRecognised(t *testing.T) {
	for code := range Table {
		assert.True(t, IsRecognised(code))
	}
}
