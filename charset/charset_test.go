package charset

import (
	"testing"

	"github.com/opendcm-go/dicom/config"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Term("ISO_IR 100"), Normalize("ISO-IR 100"))
	assert.Equal(t, Term("ISO_IR 100"), Normalize("ISO IR 100"))
	assert.Equal(t, Term("ISO_IR 100"), Normalize(" ISO_IR 100 "))
}

func TestResolveDefault(t *testing.T) {
	cs, err := Resolve("", config.Lenient)
	assert.NoError(t, err)
	assert.Equal(t, Term(""), cs.Primary)
	assert.True(t, cs.IsUTF8FastPath())
}

func TestResolveLatin1(t *testing.T) {
	cs, err := Resolve("ISO_IR 100", config.Strict)
	assert.NoError(t, err)
	assert.Equal(t, Term("ISO_IR 100"), cs.Primary)
	assert.False(t, cs.IsUTF8FastPath())
}

func TestResolveUnknownStrictFails(t *testing.T) {
	_, err := Resolve("ISO_IR 9999", config.Strict)
	assert.Error(t, err)
}

func TestResolveUnknownLenientFallsBackToUTF8(t *testing.T) {
	cs, err := Resolve("ISO_IR 9999", config.Lenient)
	assert.NoError(t, err)
	assert.True(t, cs.IsUTF8FastPath())
}

func TestResolveRejectsUTF8WithExtension(t *testing.T) {
	_, err := Resolve(`ISO_IR 192\ISO 2022 IR 87`, config.Strict)
	assert.Error(t, err)
}

func TestResolveMultiValuedWithExtensions(t *testing.T) {
	cs, err := Resolve(`ISO 2022 IR 6\ISO 2022 IR 87`, config.Strict)
	assert.NoError(t, err)
	assert.Len(t, cs.Extensions, 1)
}

func TestGB18030TrailingBackslash(t *testing.T) {
	cs, err := Resolve("GB18030", config.Strict)
	assert.NoError(t, err)
	assert.True(t, cs.IsMultiByteChineseTrailingBackslash())
}

func TestDecodeASCIIPassthrough(t *testing.T) {
	cs := Default()
	out, err := cs.Decode([]byte("HELLO"))
	assert.NoError(t, err)
	assert.Equal(t, "HELLO", out)
}

func TestDecodeWithEscapesNoExtensions(t *testing.T) {
	cs := Default()
	out, err := cs.DecodeWithEscapes([]byte("Yamada^Tarou"), PNDelimiters)
	assert.NoError(t, err)
	assert.Equal(t, "Yamada^Tarou", out)
}
