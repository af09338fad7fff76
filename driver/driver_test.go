package driver

import (
	"bytes"
	"context"
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

func buildStream(t *testing.T) []byte {
	t.Helper()
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
	main.Insert(&dataset.Element{Tag: tag.New(0x0010, 0x0010), VR: "PN",
		Value: dataset.StringValue{Raw: []byte("Doe^Jane")}})

	cfg := config.Default()
	syntax := transfersyntax.Lookup(dictionary.UIDExplicitVRLittleEndian)
	sink := &growBuf{}
	w := dcmio.NewWriter(cfg, syntax)
	require.NoError(t, w.WriteFile(sink, meta, main))
	return sink.buf
}

func TestReadAllSplitsMetaAndMain(t *testing.T) {
	stream := buildStream(t)
	meta, main, err := ReadAll(context.Background(), config.Default(), bytes.NewReader(stream), nil)
	require.Nil(t, err)

	_, ok := meta.Get(tag.TransferSyntaxUID)
	assert.True(t, ok)
	_, ok = meta.Get(tag.FileMetaGroupLength)
	assert.True(t, ok)

	modality, ok := main.GetString(tag.New(0x0008, 0x0060))
	require.True(t, ok)
	assert.Equal(t, "CT", modality)

	name, ok := main.GetString(tag.New(0x0010, 0x0010))
	require.True(t, ok)
	assert.Equal(t, "Doe^Jane", name)
}

func TestElementsStreamCancellation(t *testing.T) {
	stream := buildStream(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(config.Default(), bytes.NewReader(stream), nil)
	var sawCancelled bool
	for ev := range d.Elements(ctx) {
		if ev.Err != nil {
			sawCancelled = true
		}
	}
	assert.True(t, sawCancelled)
}
