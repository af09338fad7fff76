package dcmio_test

import (
	"encoding/binary"
	"testing"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmio"
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/transfersyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// growBuf is a minimal dcmio.Sink backed by a plain growable slice.
type growBuf struct {
	buf     []byte
	pending []byte
}

func (g *growBuf) Reserve(min int) []byte {
	g.pending = make([]byte, min)
	return g.pending
}

func (g *growBuf) Advance(n int) {
	g.buf = append(g.buf, g.pending[:n]...)
	g.pending = nil
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func padEven(b []byte) []byte {
	if len(b)%2 != 0 {
		return append(b, 0)
	}
	return b
}

// drive runs r to completion over a fully-buffered byte stream, returning
// the meta elements and main elements it yields, split the same way
// driver.ReadAll does: by the reader's State() at the moment each element
// is produced.
func drive(t *testing.T, r *dcmio.Reader, buf []byte) (meta, main []*dataset.Element) {
	t.Helper()
	for {
		before := r.Consumed()
		res := r.Advance(buf)
		if res.Outcome == dcmio.OutcomeNeedMore {
			eof := r.EOF()
			require.NotEqual(t, dcmio.OutcomeError, eof.Outcome, "unexpected EOF error: %v", eof.Err)
			return meta, main
		}
		delta := r.Consumed() - before
		buf = buf[delta:]
		switch res.Outcome {
		case dcmio.OutcomeElement:
			if r.State() == dcmio.FileMetaInfo {
				meta = append(meta, res.Element)
			} else {
				main = append(main, res.Element)
			}
		case dcmio.OutcomeDone:
			return meta, main
		case dcmio.OutcomeError:
			t.Fatalf("parse error: %v", res.Err)
		}
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	tsVal := padEven([]byte(dictionary.UIDExplicitVRLittleEndian))
	groupLen := uint32(8 + len(tsVal))

	meta := dataset.New(nil)
	meta.Insert(&dataset.Element{Tag: tag.FileMetaGroupLength, VR: "UL",
		Value: dataset.NumericValue{Raw: u32le(groupLen), ElementWidth: 4}})
	meta.Insert(&dataset.Element{Tag: tag.TransferSyntaxUID, VR: "UI",
		Value: dataset.StringValue{Raw: tsVal}})

	main := dataset.New(nil)
	main.Insert(&dataset.Element{Tag: tag.New(0x0008, 0x0060), VR: "CS",
		Value: dataset.StringValue{Raw: []byte("CT")}})

	item := dataset.New(main)
	item.Insert(&dataset.Element{Tag: tag.New(0x0008, 0x0060), VR: "CS",
		Value: dataset.StringValue{Raw: []byte("MR")}})
	main.Insert(&dataset.Element{Tag: tag.New(0x0040, 0xA730), VR: "SQ",
		Value: dataset.SequenceValue{Items: []*dataset.Dataset{item}}})

	cfg := config.Default()
	syntax := transfersyntax.Lookup(dictionary.UIDExplicitVRLittleEndian)

	sink := &growBuf{}
	w := dcmio.NewWriter(cfg, syntax)
	require.NoError(t, w.WriteFile(sink, meta, main))

	r := dcmio.NewReader(cfg)
	gotMeta, gotMain := drive(t, r, sink.buf)

	require.Len(t, gotMeta, 2)
	require.Len(t, gotMain, 2)

	modality, ok := gotMain[0].Value.(dataset.StringValue)
	require.True(t, ok)
	assert.Equal(t, "CT", string(modality.Raw))

	sv, ok := gotMain[1].Value.(dataset.SequenceValue)
	require.True(t, ok)
	require.Len(t, sv.Items, 1)
	itemMod, ok := sv.Items[0].Get(tag.New(0x0008, 0x0060))
	require.True(t, ok)
	itemStr, _ := itemMod.Value.(dataset.StringValue)
	assert.Equal(t, "MR", string(itemStr.Raw))
}

func TestWriterReaderRoundTripFragments(t *testing.T) {
	tsVal := padEven([]byte(dictionary.UIDRLELossless))
	groupLen := uint32(8 + len(tsVal))

	meta := dataset.New(nil)
	meta.Insert(&dataset.Element{Tag: tag.FileMetaGroupLength, VR: "UL",
		Value: dataset.NumericValue{Raw: u32le(groupLen), ElementWidth: 4}})
	meta.Insert(&dataset.Element{Tag: tag.TransferSyntaxUID, VR: "UI",
		Value: dataset.StringValue{Raw: tsVal}})

	main := dataset.New(nil)
	main.Insert(&dataset.Element{Tag: tag.PixelData, VR: "OB",
		Value: dataset.FragmentedValue{
			OffsetTable: []uint32{0},
			Fragments:   [][]byte{{1, 2, 3, 4}},
		}})

	cfg := config.Default()
	syntax := transfersyntax.Lookup(dictionary.UIDRLELossless)

	sink := &growBuf{}
	w := dcmio.NewWriter(cfg, syntax)
	require.NoError(t, w.WriteFile(sink, meta, main))

	r := dcmio.NewReader(cfg)
	_, gotMain := drive(t, r, sink.buf)

	require.Len(t, gotMain, 1)
	fv, ok := gotMain[0].Value.(dataset.FragmentedValue)
	require.True(t, ok)
	require.Len(t, fv.Fragments, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, fv.Fragments[0])
	assert.Equal(t, []uint32{0}, fv.OffsetTable)
}
