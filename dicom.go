// Package dicom is the toolkit's high-level façade: it wires together the
// streaming reader/writer core (dcmio), the async driver (driver), the
// dataset model (dataset), the pixel-payload subsystem (pixeldata), and
// the pluggable codecs into a single Open/Save-style API, following the
// teacher's top-level Dicom type ergonomics.
package dicom

import (
	"context"
	"io"
	"os"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/dcmio"
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/driver"
	"github.com/opendcm-go/dicom/pixeldata"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/transfersyntax"
)

// File is a parsed DICOM file: its file-meta group and main dataset,
// kept separate the way the file-meta group's always-explicit-VR-little-
// endian encoding requires (§4.3).
type File struct {
	Meta   *dataset.Dataset
	Main   *dataset.Dataset
	Syntax transfersyntax.Syntax
}

// Open reads a complete DICOM file from path using cfg, reporting
// non-fatal conditions through issues (nil drops them).
func Open(path string, cfg config.Config, issues dcmerr.IssueHandler) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(context.Background(), f, cfg, issues)
}

// Read parses a complete DICOM stream from src.
func Read(ctx context.Context, src io.Reader, cfg config.Config, issues dcmerr.IssueHandler) (*File, error) {
	meta, main, derr := driver.ReadAll(ctx, cfg, src, issues)
	if derr != nil {
		return nil, derr
	}
	uid, _ := meta.GetString(tag.TransferSyntaxUID)
	if uid == "" {
		uid = dictionary.UIDImplicitVRLittleEndian
	}
	return &File{Meta: meta, Main: main, Syntax: transfersyntax.Lookup(uid)}, nil
}

// WriteTo serializes f to dst using its own resolved transfer syntax.
func (f *File) WriteTo(dst io.Writer, cfg config.Config) error {
	w := dcmio.NewWriter(cfg, f.Syntax)
	sink := &growSink{}
	if err := w.WriteFile(sink, f.Meta, f.Main); err != nil {
		return err
	}
	_, err := dst.Write(sink.committed)
	return err
}

// growSink is a dcmio.Sink over a plain growable byte slice: Reserve
// always appends fresh zeroed capacity and returns it, Advance commits
// the prefix actually used and discards any reserved-but-unused tail.
type growSink struct {
	committed []byte
	pending   []byte
}

func (s *growSink) Reserve(min int) []byte {
	s.pending = make([]byte, min)
	return s.pending
}

func (s *growSink) Advance(n int) {
	s.committed = append(s.committed, s.pending[:n]...)
	s.pending = nil
}

// Save serializes f to path using f.Syntax, as WriteTo does.
func (f *File) Save(path string, cfg config.Config) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.WriteTo(out, cfg)
}

// PixelShapeOf reads the sibling elements (0028,0010) Rows, (0028,0011)
// Columns, (0028,0100) BitsAllocated, (0028,0002) SamplesPerPixel,
// (0028,0004) PhotometricInterpretation, (0028,0103) PixelRepresentation,
// and (0028,0006) PlanarConfiguration off ds into a dataset.PixelShape,
// per §3's pixel-geometry sibling-element convention.
func PixelShapeOf(ds *dataset.Dataset) dataset.PixelShape {
	rows, _ := ds.GetInt(tagRows)
	cols, _ := ds.GetInt(tagColumns)
	bits, _ := ds.GetInt(tagBitsAllocated)
	samples, _ := ds.GetInt(tagSamplesPerPixel)
	frames, _ := ds.GetInt(tagNumberOfFrames)
	photo, _ := ds.GetString(tagPhotometricInterpretation)
	repr, _ := ds.GetInt(tagPixelRepresentation)
	planar, _ := ds.GetInt(tagPlanarConfiguration)
	if samples == 0 {
		samples = 1
	}
	if frames == 0 {
		frames = 1
	}
	return dataset.PixelShape{
		Rows: uint16(rows), Columns: uint16(cols), BitsAllocated: uint16(bits),
		SamplesPerPixel: uint16(samples), NumberOfFrames: int(frames),
		PhotometricInterpretation: photo, PixelRepresentation: uint16(repr),
		PlanarConfiguration: uint16(planar),
	}
}

var (
	tagRows                      = tag.New(0x0028, 0x0010)
	tagColumns                   = tag.New(0x0028, 0x0011)
	tagBitsAllocated             = tag.New(0x0028, 0x0100)
	tagSamplesPerPixel           = tag.New(0x0028, 0x0002)
	tagNumberOfFrames            = tag.New(0x0028, 0x0008)
	tagPhotometricInterpretation = tag.New(0x0028, 0x0004)
	tagPixelRepresentation       = tag.New(0x0028, 0x0103)
	tagPlanarConfiguration       = tag.New(0x0028, 0x0006)
)

// DecodeFrame decodes frame index i of ds's PixelData using the codec
// registered for syntax's codec identifier, or returns the raw
// (uncompressed) bytes directly when syntax is not encapsulated.
func DecodeFrame(ds *dataset.Dataset, syntax transfersyntax.Syntax, i int) ([]byte, error) {
	elem, ok := ds.Get(tag.PixelData)
	if !ok {
		return nil, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "no PixelData element present")
	}
	shape := PixelShapeOf(ds)

	switch v := elem.Value.(type) {
	case dataset.FragmentedValue:
		codec, ok := pixeldata.LookupCodec(syntax.Codec)
		if !ok {
			return nil, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "no codec registered for "+syntax.Codec)
		}
		idx := pixeldata.NewFrameIndex(v, shape.NumberOfFrames)
		frags, ok := idx.Frame(i)
		if !ok {
			return nil, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "could not resolve fragment boundaries for requested frame")
		}
		return codec.Decode(frags, shape)
	case dataset.PixelValue:
		frameSize := int(shape.Rows) * int(shape.Columns) * int(shape.SamplesPerPixel) * ((int(shape.BitsAllocated) + 7) / 8)
		b, err := v.Source.Load()
		if err != nil {
			return nil, err
		}
		start := i * frameSize
		if start+frameSize > len(b) {
			return nil, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "frame index out of range")
		}
		return b[start : start+frameSize], nil
	case dataset.LazyValue:
		frameSize := int(shape.Rows) * int(shape.Columns) * int(shape.SamplesPerPixel) * ((int(shape.BitsAllocated) + 7) / 8)
		b, err := v.Source.Load()
		if err != nil {
			return nil, err
		}
		start := i * frameSize
		if start+frameSize > len(b) {
			return nil, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "frame index out of range")
		}
		return b[start : start+frameSize], nil
	case dataset.BinaryValue:
		frameSize := int(shape.Rows) * int(shape.Columns) * int(shape.SamplesPerPixel) * ((int(shape.BitsAllocated) + 7) / 8)
		start := i * frameSize
		if start+frameSize > len(v.Raw) {
			return nil, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "frame index out of range")
		}
		return v.Raw[start : start+frameSize], nil
	default:
		return nil, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "PixelData element has no recognised pixel value shape")
	}
}
