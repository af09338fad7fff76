package dcmio

import (
	"encoding/binary"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/transfersyntax"
	"github.com/opendcm-go/dicom/vr"
)

// Sink is the writer's single output abstraction: reserve asks for a
// contiguous mutable span of at least min bytes, advance commits n bytes
// of it as written. This mirrors the reader's span-based Advance and lets
// the same Writer serialize into a growing in-memory buffer, a pooled
// bufio.Writer, or any other backing store a driver chooses (§4.4).
type Sink interface {
	Reserve(min int) []byte
	Advance(n int)
}

// Writer is the streaming writer core: the mirror image of Reader. It
// walks a *dataset.Dataset in ascending tag order and serializes the
// preamble, file-meta group, and main dataset per the resolved transfer
// syntax.
type Writer struct {
	cfg    config.Config
	syntax transfersyntax.Syntax
}

// NewWriter constructs a Writer that will serialize using syntax.
func NewWriter(cfg config.Config, syntax transfersyntax.Syntax) *Writer {
	return &Writer{cfg: cfg, syntax: syntax}
}

// WriteFile serializes preamble + "DICM" + meta + main dataset to sink,
// per the PreamblePolicy in cfg.
func (w *Writer) WriteFile(sink Sink, meta, main *dataset.Dataset) error {
	if w.cfg.Preamble != config.IgnorePreamble {
		buf := sink.Reserve(132)
		for i := range buf[:128] {
			buf[i] = 0
		}
		copy(buf[128:132], []byte("DICM"))
		sink.Advance(132)
	}
	if err := w.writeDataset(sink, meta, true); err != nil {
		return err
	}
	return w.writeDataset(sink, main, false)
}

// writeDataset serializes every element of ds, in ascending tag order, to
// sink. isMeta forces explicit-VR little-endian typing, matching the
// reader's special-casing of the file-meta group.
func (w *Writer) writeDataset(sink Sink, ds *dataset.Dataset, isMeta bool) error {
	for _, t := range ds.Tags() {
		e, _ := ds.Get(t)
		if err := w.writeElement(sink, e, isMeta); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) explicit(isMeta bool) bool {
	if isMeta {
		return true
	}
	return w.syntax.Explicit
}

func (w *Writer) bigEndian(isMeta bool) bool {
	if isMeta {
		return false
	}
	return w.syntax.Endian == transfersyntax.BigEndian
}

func (w *Writer) putU16(b []byte, v uint16, isMeta bool) {
	if w.bigEndian(isMeta) {
		binary.BigEndian.PutUint16(b, v)
	} else {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (w *Writer) putU32(b []byte, v uint32, isMeta bool) {
	if w.bigEndian(isMeta) {
		binary.BigEndian.PutUint32(b, v)
	} else {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (w *Writer) writeElement(sink Sink, e *dataset.Element, isMeta bool) error {
	switch v := e.Value.(type) {
	case dataset.SequenceValue:
		return w.writeSequence(sink, e, v, isMeta)
	case dataset.FragmentedValue:
		return w.writeFragments(sink, e, v)
	default:
		return w.writePrimitive(sink, e, isMeta)
	}
}

func (w *Writer) writeTagBytes(sink Sink, t tag.Tag, isMeta bool) {
	b := sink.Reserve(4)
	w.putU16(b[0:2], t.Group(), isMeta)
	w.putU16(b[2:4], t.Element(), isMeta)
	sink.Advance(4)
}

// writeHeader emits {tag, VR (if explicit), length} for a primitive
// element whose encoded value is exactly valueLen bytes.
func (w *Writer) writeHeader(sink Sink, t tag.Tag, v vr.VR, valueLen int, isMeta bool) {
	w.writeTagBytes(sink, t, isMeta)
	if !w.explicit(isMeta) {
		b := sink.Reserve(4)
		w.putU32(b, uint32(valueLen), isMeta)
		sink.Advance(4)
		return
	}
	long := vr.NeedsLongLengthInExplicit(v)
	if long {
		b := sink.Reserve(8)
		copy(b[0:2], []byte(v))
		b[2], b[3] = 0, 0
		w.putU32(b[4:8], uint32(valueLen), isMeta)
		sink.Advance(8)
		return
	}
	b := sink.Reserve(4)
	copy(b[0:2], []byte(v))
	w.putU16(b[2:4], uint16(valueLen), isMeta)
	sink.Advance(4)
}

func (w *Writer) writePrimitive(sink Sink, e *dataset.Element, isMeta bool) error {
	raw, padByte, err := w.encodeValue(e)
	if err != nil {
		return err
	}
	if len(raw)%2 != 0 {
		raw = append(raw, padByte)
	}
	w.writeHeader(sink, e.Tag, e.VR, len(raw), isMeta)
	if len(raw) == 0 {
		return nil
	}
	b := sink.Reserve(len(raw))
	copy(b, raw)
	sink.Advance(len(raw))
	return nil
}

// encodeValue renders e's value to on-wire bytes, applying the VR's
// padding byte and the writer's configured endianness for numeric VRs.
func (w *Writer) encodeValue(e *dataset.Element) ([]byte, byte, error) {
	spec, known := vr.Lookup(e.VR)
	padByte := byte(' ')
	if known {
		padByte = spec.PadByte
	}
	switch v := e.Value.(type) {
	case dataset.StringValue:
		return append([]byte(nil), v.Raw...), padByte, nil
	case dataset.BinaryValue:
		return append([]byte(nil), v.Raw...), 0, nil
	case dataset.NumericValue:
		return append([]byte(nil), v.Raw...), 0, nil
	case dataset.LazyValue:
		b, err := v.Source.Load()
		if err != nil {
			return nil, 0, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "failed to materialize lazy value for encoding")
		}
		return b, 0, nil
	case dataset.PixelValue:
		b, err := v.Source.Load()
		if err != nil {
			return nil, 0, dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, "failed to materialize pixel value for encoding")
		}
		return b, 0, nil
	default:
		return nil, 0, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "value kind has no primitive on-wire encoding")
	}
}

// writeSequence emits a sequence element with undefined length and an
// explicit sequence-delimitation item, matching what the reader produces
// for encapsulated/undefined-length input; this is always legal regardless
// of how the sequence was originally framed on read.
func (w *Writer) writeSequence(sink Sink, e *dataset.Element, sv dataset.SequenceValue, isMeta bool) error {
	w.writeTagBytes(sink, e.Tag, isMeta)
	if w.explicit(isMeta) {
		b := sink.Reserve(4)
		copy(b[0:2], []byte("SQ"))
		b[2], b[3] = 0, 0
		sink.Advance(4)
	}
	lb := sink.Reserve(4)
	w.putU32(lb, uint32(undefinedLength), isMeta)
	sink.Advance(4)

	for _, item := range sv.Items {
		w.writeTagBytes(sink, tag.Item, isMeta)
		lenB := sink.Reserve(4)
		w.putU32(lenB, uint32(undefinedLength), isMeta)
		sink.Advance(4)
		if err := w.writeDataset(sink, item, isMeta); err != nil {
			return err
		}
		w.writeTagBytes(sink, tag.ItemDelimitation, isMeta)
		zb := sink.Reserve(4)
		w.putU32(zb, 0, isMeta)
		sink.Advance(4)
	}

	w.writeTagBytes(sink, tag.SequenceDelimitationItem, isMeta)
	zb := sink.Reserve(4)
	w.putU32(zb, 0, isMeta)
	sink.Advance(4)
	return nil
}

// writeFragments emits an encapsulated pixel-data element: undefined
// length, the basic offset table as item 0, one item per fragment, and a
// terminating sequence-delimitation item (§4.6, invariant I4).
func (w *Writer) writeFragments(sink Sink, e *dataset.Element, fv dataset.FragmentedValue) error {
	w.writeTagBytes(sink, e.Tag, false)
	if w.explicit(false) {
		b := sink.Reserve(4)
		copy(b[0:2], []byte("OB"))
		b[2], b[3] = 0, 0
		sink.Advance(4)
	}
	lb := sink.Reserve(4)
	w.putU32(lb, uint32(undefinedLength), false)
	sink.Advance(4)

	w.writeTagBytes(sink, tag.Item, false)
	otLen := len(fv.OffsetTable) * 4
	otLenB := sink.Reserve(4)
	w.putU32(otLenB, uint32(otLen), false)
	sink.Advance(4)
	if otLen > 0 {
		b := sink.Reserve(otLen)
		for i, off := range fv.OffsetTable {
			binary.LittleEndian.PutUint32(b[i*4:i*4+4], off)
		}
		sink.Advance(otLen)
	}

	for _, frag := range fv.Fragments {
		w.writeTagBytes(sink, tag.Item, false)
		fl := len(frag)
		if fl%2 != 0 {
			frag = append(append([]byte(nil), frag...), 0)
			fl++
		}
		flB := sink.Reserve(4)
		w.putU32(flB, uint32(fl), false)
		sink.Advance(4)
		b := sink.Reserve(fl)
		copy(b, frag)
		sink.Advance(fl)
	}

	w.writeTagBytes(sink, tag.SequenceDelimitationItem, false)
	zb := sink.Reserve(4)
	w.putU32(zb, 0, false)
	sink.Advance(4)
	return nil
}
