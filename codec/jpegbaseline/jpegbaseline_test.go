package jpegbaseline

import (
	"testing"

	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/pixeldata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZigzagIsPermutationOf64(t *testing.T) {
	seen := make([]bool, 64)
	for _, v := range zigzag {
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 64)
		assert.False(t, seen[v], "duplicate entry %d", v)
		seen[v] = true
	}
}

func TestScaleQuantTableIdentityAtQuality50(t *testing.T) {
	scaled := ScaleQuantTable(baseQuantLuma, 50)
	assert.Equal(t, baseQuantLuma, scaled)
}

func TestScaleQuantTableMonotonicWithQuality(t *testing.T) {
	low := ScaleQuantTable(baseQuantLuma, 10)
	high := ScaleQuantTable(baseQuantLuma, 95)
	for i := range low {
		assert.GreaterOrEqual(t, low[i], high[i])
	}
}

func maxAbsDiff(a, b []byte) int {
	worst := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

func TestEncodeDecodeRoundTripFlatGrayscale(t *testing.T) {
	shape := dataset.PixelShape{Rows: 8, Columns: 8, BitsAllocated: 8, SamplesPerPixel: 1}
	raw := make([]byte, 8*8)
	for i := range raw {
		raw[i] = 128
	}
	c := Codec{Quality: 90}
	frags, err := c.Encode(raw, shape)
	require.NoError(t, err)

	out, err := c.Decode(frags, shape)
	require.NoError(t, err)
	require.Len(t, out, len(raw))
	assert.LessOrEqual(t, maxAbsDiff(raw, out), 6)
}

func TestEncodeDecodeRoundTripGradientGrayscale(t *testing.T) {
	shape := dataset.PixelShape{Rows: 16, Columns: 16, BitsAllocated: 8, SamplesPerPixel: 1}
	raw := make([]byte, 16*16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			raw[y*16+x] = byte((x + y) * 8)
		}
	}
	c := Codec{Quality: 90}
	frags, err := c.Encode(raw, shape)
	require.NoError(t, err)

	out, err := c.Decode(frags, shape)
	require.NoError(t, err)
	assert.LessOrEqual(t, maxAbsDiff(raw, out), 25)
}

func TestEncodeDecodeRoundTripFlatRGB(t *testing.T) {
	shape := dataset.PixelShape{Rows: 8, Columns: 8, BitsAllocated: 8, SamplesPerPixel: 3}
	raw := make([]byte, 8*8*3)
	for i := 0; i < 8*8; i++ {
		raw[i*3] = 200
		raw[i*3+1] = 60
		raw[i*3+2] = 30
	}
	c := Codec{Quality: 90}
	frags, err := c.Encode(raw, shape)
	require.NoError(t, err)

	out, err := c.Decode(frags, shape)
	require.NoError(t, err)
	require.Len(t, out, len(raw))
	assert.LessOrEqual(t, maxAbsDiff(raw, out), 20)
}

func TestRegisteredInPixeldataRegistry(t *testing.T) {
	c, ok := pixeldata.LookupCodec("jpegbaseline")
	require.True(t, ok)
	assert.Equal(t, "jpegbaseline", c.Name())
}

func TestDecodeRejectsNonSOIStream(t *testing.T) {
	c := Codec{}
	_, err := c.Decode([][]byte{{0x00, 0x01, 0x02}}, dataset.PixelShape{Rows: 1, Columns: 1, BitsAllocated: 8, SamplesPerPixel: 1})
	assert.Error(t, err)
}
