package dcmio

import (
	"encoding/binary"
	"io"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/vr"
)

// offsetSource adapts a single parent PixelSource (the driver's seekable
// view of the whole stream) into a bounded view over one lazily-loaded
// element's [base, base+length) span.
type offsetSource struct {
	parent dataset.PixelSource
	base   int64
	length int64
}

func (s *offsetSource) Length() int64 { return s.length }

func (s *offsetSource) ReadSpan(offset, length int64) ([]byte, error) {
	return s.parent.ReadSpan(s.base+offset, length)
}

func (s *offsetSource) CopyTo(dst io.Writer) error {
	b, err := s.parent.ReadSpan(s.base, s.length)
	if err != nil {
		return err
	}
	_, err = dst.Write(b)
	return err
}

func (s *offsetSource) Load() ([]byte, error) {
	return s.parent.ReadSpan(s.base, s.length)
}

// pixelReprDependentTags names the six tags whose effective signedness
// follows (0028,0103) PixelRepresentation regardless of declared VR,
// per §4.3.
var pixelReprDependentTags = map[tag.Tag]bool{
	tag.New(0x0028, 0x0106): true, // SmallestImagePixelValue
	tag.New(0x0028, 0x0107): true, // LargestImagePixelValue
	tag.New(0x0028, 0x0108): true, // SmallestValidPixelValue (retired)
	tag.New(0x0028, 0x0109): true, // LargestValidPixelValue (retired)
	tag.New(0x0028, 0x0120): true, // PixelPaddingValue
	tag.New(0x0028, 0x0121): true, // PixelPaddingRangeLimit
}

var pixelRepresentationTag = tag.New(0x0028, 0x0103)
var bitsAllocatedTag = tag.New(0x0028, 0x0100)

func isSignedVR(v vr.VR) bool { return v == "SS" || v == "SL" }

// stepDataset advances a frameDataset: the top-level main dataset, the
// file-meta group, or one sequence item.
func (r *Reader) stepDataset(f *frame, data []byte) (stepSignal, Result, int) {
	if f.remaining == 0 {
		return sigFrameDone, Result{}, 0
	}

	hdr, need, err, ok := r.readHeader(data)
	if !ok {
		return r.needMore(need)
	}
	if err != nil {
		return r.fail(dcmerr.InvalidTypeCode, hdr.Tag, true, err.Error())
	}

	if hdr.Tag == tag.ItemDelimitation {
		if f.isItem && f.remaining == -1 {
			r.consumed += int64(hdr.HeaderLen)
			return sigFrameDone, Result{}, hdr.HeaderLen
		}
		r.issue(hdr.Tag, true, dcmerr.UnexpectedDelimiter, dcmerr.Warning, "unexpected item delimitation")
		r.consumed += int64(hdr.HeaderLen)
		return sigContinue, Result{}, hdr.HeaderLen
	}
	if hdr.Tag == tag.SequenceDelimitationItem || hdr.Tag == tag.Item {
		return r.fail(dcmerr.UnexpectedDelimiter, hdr.Tag, true, "delimiter tag encountered outside its enclosing sequence")
	}

	if hdr.Length == undefinedLength {
		return r.stepUndefinedLengthElement(f, hdr)
	}
	if hdr.VR == "SQ" {
		return r.stepDefinedLengthSequence(f, hdr)
	}
	return r.stepDefinedLengthElement(f, hdr, data)
}

func (r *Reader) stepUndefinedLengthElement(f *frame, hdr elemHeader) (stepSignal, Result, int) {
	isSQ := hdr.VR == "SQ" || hdr.VR == vr.Unknown
	isPixelFragments := hdr.Tag == tag.PixelData && r.state == ReadTag && r.syntax.Encapsulated
	if !isSQ && !isPixelFragments {
		if r.cfg.Strict == config.Strict {
			return r.fail(dcmerr.UndefinedLengthWithoutDelimiter, hdr.Tag, true, "undefined length on a non-sequence, non-pixel-data element")
		}
		isSQ = true // lenient/permissive: fall back to sequence-style item framing
	}
	r.consumed += int64(hdr.HeaderLen)
	if isPixelFragments {
		r.stack = append(r.stack, &frame{kind: frameFragments, fragTag: hdr.Tag, enclosingDS: f.ds})
	} else {
		r.stack = append(r.stack, &frame{kind: frameSequence, seqTag: hdr.Tag, seqVR: hdr.VR, remaining: -1, undefinedLength: true, enclosingDS: f.ds})
	}
	return sigContinue, Result{}, hdr.HeaderLen
}

// stepDefinedLengthSequence handles an explicit-VR SQ element whose length
// is an ordinary defined byte count rather than the undefined-length
// sentinel: its items are still framed individually, but the sequence
// frame is popped once its declared byte budget is exhausted instead of
// waiting for a sequence-delimitation tag.
func (r *Reader) stepDefinedLengthSequence(f *frame, hdr elemHeader) (stepSignal, Result, int) {
	r.consumed += int64(hdr.HeaderLen)
	if hdr.Length == 0 {
		elem := &dataset.Element{Tag: hdr.Tag, VR: hdr.VR, Value: dataset.SequenceValue{}, Resolved: true}
		f.ds.Insert(elem)
		return sigElement, Result{Outcome: OutcomeElement, Element: elem}, hdr.HeaderLen
	}
	r.stack = append(r.stack, &frame{kind: frameSequence, seqTag: hdr.Tag, seqVR: hdr.VR, remaining: hdr.Length, enclosingDS: f.ds})
	return sigContinue, Result{}, hdr.HeaderLen
}

func (r *Reader) stepDefinedLengthElement(f *frame, hdr elemHeader, data []byte) (stepSignal, Result, int) {
	total := hdr.HeaderLen + int(hdr.Length)
	if hdr.Length%2 != 0 {
		if r.cfg.Strict == config.Strict {
			return r.fail(dcmerr.OddLength, hdr.Tag, true, "odd-length value")
		}
		r.issue(hdr.Tag, true, dcmerr.OddLength, dcmerr.Warning, "odd-length value")
	}

	handling := r.cfg.LargeElementHandling
	isLarge := hdr.Length > r.cfg.LargeElementThreshold
	if isLarge && handling == config.Callback && r.LargeElementCallback != nil {
		handling = r.LargeElementCallback(hdr.Tag, hdr.VR, hdr.Length, r.consumed+int64(hdr.HeaderLen))
	}
	if isLarge && handling == config.LazyLoad && r.LazySource == nil {
		r.issue(hdr.Tag, true, dcmerr.LazyUnsupportedOnStream, dcmerr.Warning, "no seekable lazy source registered; loading in memory")
		handling = config.LoadInMemory
	}

	if isLarge && handling == config.Skip {
		if len(data) < total {
			return r.needMore(total)
		}
		elem := &dataset.Element{Tag: hdr.Tag, VR: hdr.VR, Value: dataset.BinaryValue{}, Resolved: true}
		r.insertAndAdvance(f, elem, total)
		return sigElement, Result{Outcome: OutcomeElement, Element: elem}, total
	}
	if isLarge && handling == config.LazyLoad {
		offset := r.consumed + int64(hdr.HeaderLen)
		elem := &dataset.Element{Tag: hdr.Tag, VR: hdr.VR, Resolved: true,
			Value: dataset.LazyValue{Source: &offsetSource{parent: r.LazySource, base: offset, length: hdr.Length}, VR: hdr.VR}}
		if len(data) < hdr.HeaderLen {
			return r.needMore(hdr.HeaderLen)
		}
		r.insertAndAdvance(f, elem, hdr.HeaderLen+int(hdr.Length))
		return sigElement, Result{Outcome: OutcomeElement, Element: elem}, hdr.HeaderLen + int(hdr.Length)
	}

	if len(data) < total {
		if len(data) < hdr.HeaderLen {
			return r.needMore(total)
		}
		if r.cfg.Strict == config.Strict {
			return r.needMore(total)
		}
		// Lenient/permissive: declared length exceeds remaining bytes.
		// Read what remains and mark truncated.
		available := len(data) - hdr.HeaderLen
		raw := data[hdr.HeaderLen : hdr.HeaderLen+available]
		r.issue(hdr.Tag, true, dcmerr.TruncatedValue, dcmerr.Warning, "declared length exceeds remaining bytes")
		elem := r.buildElement(f, hdr, raw)
		r.insertAndAdvance(f, elem, hdr.HeaderLen+available)
		return sigElement, Result{Outcome: OutcomeElement, Element: elem}, hdr.HeaderLen + available
	}

	raw := data[hdr.HeaderLen:total:total]
	elem := r.buildElement(f, hdr, raw)
	r.insertAndAdvance(f, elem, total)
	return sigElement, Result{Outcome: OutcomeElement, Element: elem}, total
}

func (r *Reader) insertAndAdvance(f *frame, elem *dataset.Element, totalBytes int) {
	f.ds.Insert(elem)
	r.consumed += int64(totalBytes)
	if r.state == FileMetaInfo && elem.Tag == tag.FileMetaGroupLength {
		if n, ok := f.ds.GetInt(tag.FileMetaGroupLength); ok {
			// The group length counts the bytes after this element; the
			// step's charge for the element's own bytes follows.
			f.remaining = n + int64(totalBytes)
		}
	}
	if elem.Tag == bitsAllocatedTag {
		if n, ok := f.ds.GetInt(bitsAllocatedTag); ok {
			r.ctx.bitsAllocated = uint16(n)
			r.ctx.haveBitsAllocated = true
		}
	}
	if elem.Tag == pixelRepresentationTag {
		if n, ok := f.ds.GetInt(pixelRepresentationTag); ok {
			r.ctx.pixelRepr = uint16(n)
			r.ctx.havePixelRepr = true
		}
	}
}

// buildElement interprets raw bytes per hdr.VR's Kind, applying the
// context-dependent typing overrides named in §4.3.
func (r *Reader) buildElement(f *frame, hdr elemHeader, raw []byte) *dataset.Element {
	effectiveVR := hdr.VR

	if hdr.Tag == tag.PixelData && r.state == ReadTag && !r.syntax.Explicit && r.ctx.haveBitsAllocated {
		if r.ctx.bitsAllocated <= 8 {
			effectiveVR = "OB"
		} else {
			effectiveVR = "OW"
		}
	}
	signedOverride := false
	signedValue := false
	if pixelReprDependentTags[hdr.Tag] && r.ctx.havePixelRepr {
		signedOverride = true
		signedValue = r.ctx.pixelRepr != 0
		if signedValue {
			effectiveVR = "SS"
		} else {
			effectiveVR = "US"
		}
	}

	spec, known := vr.Lookup(effectiveVR)
	if !known {
		return &dataset.Element{Tag: hdr.Tag, VR: effectiveVR, Value: dataset.BinaryValue{Raw: raw}, Resolved: true}
	}
	switch spec.Kind {
	case vr.KindString:
		return &dataset.Element{Tag: hdr.Tag, VR: effectiveVR, Value: dataset.StringValue{Raw: raw}, Resolved: true}
	case vr.KindBinaryInt, vr.KindBinaryFloat:
		signed := isSignedVR(effectiveVR)
		if signedOverride {
			signed = signedValue
		}
		return &dataset.Element{Tag: hdr.Tag, VR: effectiveVR, Resolved: true, Value: dataset.NumericValue{
			Raw: raw, ElementWidth: spec.ElementWidth, Float: spec.Kind == vr.KindBinaryFloat, Signed: signed,
		}}
	case vr.KindTag:
		return &dataset.Element{Tag: hdr.Tag, VR: effectiveVR, Value: dataset.BinaryValue{Raw: raw}, Resolved: true}
	default:
		return &dataset.Element{Tag: hdr.Tag, VR: effectiveVR, Value: dataset.BinaryValue{Raw: raw}, Resolved: true}
	}
}

// stepSequence advances a frameSequence frame: reads the next item header
// and either pushes a new item frame or, on the sequence-delimitation
// tag, signals the frame is complete.
func (r *Reader) stepSequence(f *frame, data []byte) (stepSignal, Result, int) {
	if f.remaining == 0 {
		return sigFrameDone, Result{}, 0
	}
	hdr, need, err, ok := r.readHeader(data)
	if !ok {
		return r.needMore(need)
	}
	if err != nil {
		return r.fail(dcmerr.InvalidLength, hdr.Tag, true, err.Error())
	}
	switch hdr.Tag {
	case tag.SequenceDelimitationItem:
		r.consumed += int64(hdr.HeaderLen)
		return sigFrameDone, Result{}, hdr.HeaderLen
	case tag.Item:
		depth := 0
		for _, fr := range r.stack {
			if fr.isItem {
				depth++
			}
		}
		if depth+1 > r.cfg.MaxNestingDepth {
			return r.fail(dcmerr.NestingTooDeep, f.seqTag, true, "sequence item nesting exceeds configured depth limit")
		}
		remaining := int64(-1)
		if int64(hdr.Length) != undefinedLength {
			remaining = hdr.Length
		}
		item := dataset.New(f.enclosingDS)
		r.stack = append(r.stack, &frame{kind: frameDataset, ds: item, remaining: remaining, isItem: true})
		r.consumed += int64(hdr.HeaderLen)
		return sigContinue, Result{}, hdr.HeaderLen
	default:
		return r.fail(dcmerr.UnexpectedDelimiter, hdr.Tag, true, "expected item or sequence-delimitation tag")
	}
}

// stepFragments advances a frameFragments frame: item 0 is the basic
// offset table, items 1..N are opaque fragments, terminated by
// sequence-delimitation (§4.6, invariant I4).
func (r *Reader) stepFragments(f *frame, data []byte) (stepSignal, Result, int) {
	hdr, need, err, ok := r.readHeader(data)
	if !ok {
		return r.needMore(need)
	}
	if err != nil {
		return r.fail(dcmerr.InvalidLength, hdr.Tag, true, err.Error())
	}
	switch hdr.Tag {
	case tag.SequenceDelimitationItem:
		r.consumed += int64(hdr.HeaderLen)
		return sigFrameDone, Result{}, hdr.HeaderLen
	case tag.Item:
		total := hdr.HeaderLen + int(hdr.Length)
		if len(data) < total {
			return r.needMore(total)
		}
		body := data[hdr.HeaderLen:total:total]
		if !f.readOffsetTable {
			if hdr.Length%4 != 0 {
				return r.fail(dcmerr.InvalidLength, f.fragTag, true, "basic offset table length is not a multiple of 4")
			}
			entries := make([]uint32, hdr.Length/4)
			var lastVal uint32
			for i := range entries {
				v := binary.LittleEndian.Uint32(body[i*4 : i*4+4])
				if i > 0 && v < lastVal {
					r.issue(f.fragTag, true, dcmerr.InvalidLength, dcmerr.Warning, "offset table is not monotonically non-decreasing")
				}
				entries[i] = v
				lastVal = v
			}
			f.offsetTable = entries
			f.readOffsetTable = true
		} else {
			cp := make([]byte, len(body))
			copy(cp, body)
			f.fragments = append(f.fragments, cp)
		}
		r.consumed += int64(total)
		return sigContinue, Result{}, total
	default:
		return r.fail(dcmerr.UnexpectedDelimiter, hdr.Tag, true, "expected item or sequence-delimitation tag in fragment sequence")
	}
}

// EOF tells the reader the underlying stream has no more bytes. At the
// top level (between elements of the main dataset) this is a normal end
// of input. Mid-structure, strict mode fails with
// UndefinedLengthWithoutDelimiter; lenient/permissive close every open
// frame as if its delimiter had been found, per the §4.3 resolution
// table ("treat EOF as delimiter").
func (r *Reader) EOF() Result {
	if r.done {
		return Result{Outcome: OutcomeDone}
	}
	if r.AtTopLevel() {
		r.state = Done
		r.done = true
		return Result{Outcome: OutcomeDone}
	}
	if r.cfg.Strict == config.Strict {
		r.state = Error
		return Result{Outcome: OutcomeError, Err: dcmerr.New(dcmerr.UndefinedLengthWithoutDelimiter, r.consumed, dcmerr.Critical, "end of stream while a sequence/item/fragment-sequence was still open")}
	}
	for len(r.stack) > 1 {
		r.popFrame()
	}
	r.state = Done
	r.done = true
	return Result{Outcome: OutcomeDone}
}
