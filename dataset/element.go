// Package dataset implements the element and dataset data model: the
// tagged-union element value model, the ordered tag->element dataset,
// and the per-dataset private-creator registry (§3, §4.5).
package dataset

import (
	"io"

	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/vr"
)

// ValueKind identifies which Value variant an Element carries.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumeric
	KindBinary
	KindSequence
	KindFragmented
	KindPixel
	KindLazy
)

// Value is the tagged-union payload of an Element. Concrete
// implementations are StringValue, NumericValue, BinaryValue,
// SequenceValue, FragmentedValue, and PixelValue; callers type-switch on
// Kind() where behavior diverges by variant, per the "polymorphic
// elements via inheritance -> tagged union" re-architecture note.
type Value interface {
	Kind() ValueKind
	// ToOwned returns a copy of this value backed by freshly allocated
	// memory, recursively for Sequence and Fragmented values.
	ToOwned() Value
}

// StringValue is a borrowed-or-owned byte range interpreted through the
// dataset's resolved character encoding.
type StringValue struct {
	Raw   []byte
	Owned bool
}

func (v StringValue) Kind() ValueKind { return KindString }
func (v StringValue) ToOwned() Value {
	if v.Owned {
		return v
	}
	cp := make([]byte, len(v.Raw))
	copy(cp, v.Raw)
	return StringValue{Raw: cp, Owned: true}
}

// NumericValue is a borrowed-or-owned byte range of fixed-width,
// little/big-endian (per the owning dataset's transfer syntax at decode
// time) integers or floats.
type NumericValue struct {
	Raw          []byte
	Owned        bool
	ElementWidth int  // 2, 4, or 8
	Float        bool
	Signed       bool
}

func (v NumericValue) Kind() ValueKind { return KindNumeric }
func (v NumericValue) ToOwned() Value {
	if v.Owned {
		return v
	}
	cp := make([]byte, len(v.Raw))
	copy(cp, v.Raw)
	v.Raw = cp
	v.Owned = true
	return v
}

// BinaryValue is an opaque borrowed-or-owned byte range.
type BinaryValue struct {
	Raw   []byte
	Owned bool
}

func (v BinaryValue) Kind() ValueKind { return KindBinary }
func (v BinaryValue) ToOwned() Value {
	if v.Owned {
		return v
	}
	cp := make([]byte, len(v.Raw))
	copy(cp, v.Raw)
	return BinaryValue{Raw: cp, Owned: true}
}

// SequenceValue is an ordered list of nested-item datasets.
type SequenceValue struct {
	Items           []*Dataset
	UndefinedLength bool
}

func (v SequenceValue) Kind() ValueKind { return KindSequence }
func (v SequenceValue) ToOwned() Value {
	items := make([]*Dataset, len(v.Items))
	for i, it := range v.Items {
		items[i] = it.ToOwned()
	}
	return SequenceValue{Items: items, UndefinedLength: v.UndefinedLength}
}

// FragmentedValue is a fragmented pixel payload: the basic offset table
// plus opaque fragments (invariant I4).
type FragmentedValue struct {
	OffsetTable []uint32
	Fragments   [][]byte
	Owned       bool
}

func (v FragmentedValue) Kind() ValueKind { return KindFragmented }
func (v FragmentedValue) ToOwned() Value {
	if v.Owned {
		return v
	}
	frags := make([][]byte, len(v.Fragments))
	for i, f := range v.Fragments {
		cp := make([]byte, len(f))
		copy(cp, f)
		frags[i] = cp
	}
	ot := make([]uint32, len(v.OffsetTable))
	copy(ot, v.OffsetTable)
	return FragmentedValue{OffsetTable: ot, Fragments: frags, Owned: true}
}

// PixelShape describes a contiguous pixel payload's geometry, drawn from
// the sibling elements named in §3.
type PixelShape struct {
	Rows                      uint16
	Columns                   uint16
	BitsAllocated             uint16
	SamplesPerPixel           uint16
	NumberOfFrames            int
	PhotometricInterpretation string
	PixelRepresentation       uint16
	PlanarConfiguration       uint16
}

// PixelSource is the narrow capability set a contiguous pixel payload's
// backing store exposes: length, bounded span read, stream copy, and
// eager full load. Concrete sources (immediate in-memory, lazy seekable)
// live in package pixeldata; dataset only depends on this interface, so
// pixeldata may depend on dataset without a cycle.
type PixelSource interface {
	Length() int64
	ReadSpan(offset, length int64) ([]byte, error)
	CopyTo(dst io.Writer) error
	Load() ([]byte, error)
}

// PixelValue is a contiguous (non-encapsulated) pixel payload.
type PixelValue struct {
	Source PixelSource
	Shape  PixelShape
}

func (v PixelValue) Kind() ValueKind { return KindPixel }
func (v PixelValue) ToOwned() Value {
	b, err := v.Source.Load()
	if err != nil {
		return v
	}
	return PixelValue{Source: immediateSource(b), Shape: v.Shape}
}

// immediateSource is the trivial in-memory PixelSource used by ToOwned;
// the fuller immediate/lazy implementations live in package pixeldata.
type immediateSource []byte

func (s immediateSource) Length() int64 { return int64(len(s)) }
func (s immediateSource) ReadSpan(offset, length int64) ([]byte, error) {
	return s[offset : offset+length], nil
}
func (s immediateSource) CopyTo(dst io.Writer) error {
	_, err := dst.Write(s)
	return err
}
func (s immediateSource) Load() ([]byte, error) { return s, nil }

// LazyValue is a generic large-element value replaced by a cursor into a
// seekable source, per the reader's LargeElementHandling=LazyLoad policy
// (§4.3). Unlike PixelValue it carries no shape: it applies to any VR
// whose declared length exceeds the configured threshold, not only pixel
// data.
type LazyValue struct {
	Source     PixelSource
	VR         vr.VR
	Compressed bool
}

func (v LazyValue) Kind() ValueKind { return KindLazy }
func (v LazyValue) ToOwned() Value {
	b, err := v.Source.Load()
	if err != nil {
		return v
	}
	return BinaryValue{Raw: b, Owned: true}
}

// Element is a tagged value: {tag, VR, value}. VR reflects the
// effective/resolved type-representation code; for elements whose typing
// depends on later context (§4.3 "context-dependent typing"), Candidates
// holds the legal alternatives and Resolved reports whether resolution
// has completed.
type Element struct {
	Tag        tag.Tag
	VR         vr.VR
	Value      Value
	Candidates []vr.VR
	Resolved   bool
}

// ToOwned returns a copy of e whose Value is fully owned.
func (e *Element) ToOwned() *Element {
	return &Element{Tag: e.Tag, VR: e.VR, Value: e.Value.ToOwned(), Candidates: e.Candidates, Resolved: e.Resolved}
}
