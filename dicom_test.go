package dicom_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/opendcm-go/dicom"
	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/pixeldata"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/transfersyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func buildFile(t *testing.T) *dicom.File {
	t.Helper()
	tsVal := padEven([]byte(dictionary.UIDExplicitVRLittleEndian))
	groupLen := uint32(8 + len(tsVal))

	meta := dataset.New(nil)
	meta.Insert(&dataset.Element{Tag: tag.FileMetaGroupLength, VR: "UL",
		Value: dataset.NumericValue{Raw: u32le(groupLen), ElementWidth: 4}})
	meta.Insert(&dataset.Element{Tag: tag.TransferSyntaxUID, VR: "UI",
		Value: dataset.StringValue{Raw: tsVal}})

	main := dataset.New(nil)
	main.Insert(&dataset.Element{Tag: tag.New(0x0028, 0x0010), VR: "US",
		Value: dataset.NumericValue{Raw: []byte{2, 0}, ElementWidth: 2}}) // Rows=2
	main.Insert(&dataset.Element{Tag: tag.New(0x0028, 0x0011), VR: "US",
		Value: dataset.NumericValue{Raw: []byte{2, 0}, ElementWidth: 2}}) // Columns=2
	main.Insert(&dataset.Element{Tag: tag.New(0x0028, 0x0100), VR: "US",
		Value: dataset.NumericValue{Raw: []byte{8, 0}, ElementWidth: 2}}) // BitsAllocated=8
	main.Insert(&dataset.Element{Tag: tag.New(0x0028, 0x0002), VR: "US",
		Value: dataset.NumericValue{Raw: []byte{1, 0}, ElementWidth: 2}}) // SamplesPerPixel=1
	main.Insert(&dataset.Element{Tag: tag.New(0x0028, 0x0004), VR: "CS",
		Value: dataset.StringValue{Raw: []byte("MONOCHROME2")}})
	main.Insert(&dataset.Element{Tag: tag.PixelData, VR: "OW",
		Value: dataset.PixelValue{
			Source: pixeldata.InMemorySource([]byte{10, 20, 30, 40}),
			Shape:  dataset.PixelShape{Rows: 2, Columns: 2, BitsAllocated: 8, SamplesPerPixel: 1},
		}})

	return &dicom.File{Meta: meta, Main: main, Syntax: transfersyntax.Lookup(dictionary.UIDExplicitVRLittleEndian)}
}

func TestWriteToThenRead(t *testing.T) {
	f := buildFile(t)
	var buf bytes.Buffer
	require.NoError(t, f.WriteTo(&buf, config.Default()))

	got, err := dicom.Read(context.Background(), &buf, config.Default(), nil)
	require.NoError(t, err)

	rows, ok := got.Main.GetInt(tag.New(0x0028, 0x0010))
	require.True(t, ok)
	assert.EqualValues(t, 2, rows)

	shape := dicom.PixelShapeOf(got.Main)
	assert.EqualValues(t, 2, shape.Rows)
	assert.EqualValues(t, 2, shape.Columns)
	assert.Equal(t, "MONOCHROME2", shape.PhotometricInterpretation)

	frame, err := dicom.DecodeFrame(got.Main, got.Syntax, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 40}, frame)
}

func TestPixelShapeOfDefaults(t *testing.T) {
	ds := dataset.New(nil)
	shape := dicom.PixelShapeOf(ds)
	assert.EqualValues(t, 1, shape.SamplesPerPixel)
	assert.Equal(t, 1, shape.NumberOfFrames)
}
