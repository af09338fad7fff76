package rle

import (
	"testing"

	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/pixeldata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripGrayscale8Bit(t *testing.T) {
	shape := dataset.PixelShape{Rows: 4, Columns: 4, BitsAllocated: 8, SamplesPerPixel: 1}
	raw := []byte{
		0, 0, 0, 0,
		1, 2, 3, 4,
		9, 9, 9, 9,
		255, 254, 253, 252,
	}
	c := Codec{}
	frags, err := c.Encode(raw, shape)
	require.NoError(t, err)
	require.Len(t, frags, 1)

	out, err := c.Decode(frags, shape)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestEncodeDecodeRoundTripRGB(t *testing.T) {
	shape := dataset.PixelShape{Rows: 2, Columns: 2, BitsAllocated: 8, SamplesPerPixel: 3}
	raw := make([]byte, 2*2*3)
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	c := Codec{}
	frags, err := c.Encode(raw, shape)
	require.NoError(t, err)

	out, err := c.Decode(frags, shape)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestEncodeDecodeRoundTrip16Bit(t *testing.T) {
	shape := dataset.PixelShape{Rows: 3, Columns: 3, BitsAllocated: 16, SamplesPerPixel: 1}
	raw := make([]byte, 3*3*2)
	for i := range raw {
		raw[i] = byte(i*31 + 5)
	}
	c := Codec{}
	frags, err := c.Encode(raw, shape)
	require.NoError(t, err)

	out, err := c.Decode(frags, shape)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestDecodeRejectsWrongFragmentCount(t *testing.T) {
	shape := dataset.PixelShape{Rows: 2, Columns: 2, BitsAllocated: 8, SamplesPerPixel: 1}
	c := Codec{}
	_, err := c.Decode([][]byte{{0}, {0}}, shape)
	assert.Error(t, err)
}

func TestDecodeRejectsSegmentCountMismatch(t *testing.T) {
	shape := dataset.PixelShape{Rows: 2, Columns: 2, BitsAllocated: 8, SamplesPerPixel: 3}
	c := Codec{}
	badHeader := make([]byte, headerSize)
	badHeader[0] = 1 // claims 1 segment, shape wants 3
	_, err := c.Decode([][]byte{badHeader}, shape)
	assert.Error(t, err)
}

func TestPackBitsUnpackBitsIdentity(t *testing.T) {
	plane := []byte{5, 5, 5, 5, 5, 1, 2, 3, 9, 9, 9, 0}
	packed := packBits(plane)
	unpacked, err := unpackBits(packed, len(plane))
	require.NoError(t, err)
	assert.Equal(t, plane, unpacked)
}

func TestRegisteredInPixeldataRegistry(t *testing.T) {
	c, ok := pixeldata.LookupCodec("rle")
	require.True(t, ok)
	assert.Equal(t, "rle", c.Name())
}
