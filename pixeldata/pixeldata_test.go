package pixeldata

import (
	"bytes"
	"testing"

	"github.com/opendcm-go/dicom/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySource(t *testing.T) {
	s := InMemorySource([]byte{1, 2, 3, 4, 5})
	assert.EqualValues(t, 5, s.Length())

	span, err := s.ReadSpan(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, span)

	_, err = s.ReadSpan(3, 10)
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.CopyTo(&buf))
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf.Bytes())
}

func TestFrameIndexByOffsetTable(t *testing.T) {
	fv := dataset.FragmentedValue{
		OffsetTable: []uint32{0, 4},
		Fragments:   [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}},
	}
	fi := NewFrameIndex(fv, 2)

	frags, ok := fi.Frame(0)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{1, 2, 3, 4}}, frags)

	frags, ok = fi.Frame(1)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{5, 6, 7, 8}}, frags)
}

func TestFrameIndexOneFragmentPerFrameFallback(t *testing.T) {
	fv := dataset.FragmentedValue{
		Fragments: [][]byte{{1, 2}, {3, 4}, {5, 6}},
	}
	fi := NewFrameIndex(fv, 3)

	frags, ok := fi.Frame(2)
	require.True(t, ok)
	assert.Equal(t, [][]byte{{5, 6}}, frags)
}

func TestFrameIndexAmbiguousRefusesToGuess(t *testing.T) {
	fv := dataset.FragmentedValue{
		Fragments: [][]byte{{1, 2}, {3, 4}, {5, 6}},
	}
	fi := NewFrameIndex(fv, 2) // 3 fragments, 2 frames, no offset table

	_, ok := fi.Frame(0)
	assert.False(t, ok)
}

func TestFrameIndexOutOfRange(t *testing.T) {
	fi := NewFrameIndex(dataset.FragmentedValue{Fragments: [][]byte{{1}}}, 1)
	_, ok := fi.Frame(5)
	assert.False(t, ok)
	_, ok = fi.Frame(-1)
	assert.False(t, ok)
}

type stubCodec struct{ name string }

func (c stubCodec) Name() string { return c.name }
func (c stubCodec) Decode(fragments [][]byte, shape dataset.PixelShape) ([]byte, error) {
	return fragments[0], nil
}
func (c stubCodec) Encode(raw []byte, shape dataset.PixelShape) ([][]byte, error) {
	return [][]byte{raw}, nil
}
func (c stubCodec) Validate(fragments [][]byte, shape dataset.PixelShape) error { return nil }

func TestCodecRegistry(t *testing.T) {
	RegisterCodec("stub-test-codec", stubCodec{name: "stub-test-codec"})
	c, ok := LookupCodec("stub-test-codec")
	require.True(t, ok)
	assert.Equal(t, "stub-test-codec", c.Name())

	_, ok = LookupCodec("does-not-exist")
	assert.False(t, ok)
}
