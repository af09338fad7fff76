package dcmio

import (
	"strings"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/transfersyntax"
	"github.com/opendcm-go/dicom/vr"
)

const undefinedLength = int64(0xFFFFFFFF)

// frame is one level of the reader's explicit, non-recursive nesting
// stack (§4.3).
type frame struct {
	kind frameKind

	// frameDataset
	ds        *dataset.Dataset
	remaining int64 // -1 = undefined length
	isItem    bool

	// frameSequence
	seqTag          tag.Tag
	seqVR           vr.VR
	items           []*dataset.Dataset
	undefinedLength bool

	// frameFragments
	fragTag         tag.Tag
	offsetTable     []uint32
	fragments       [][]byte
	readOffsetTable bool

	// enclosingDS is the dataset that owns the element this frame is
	// building (set for frameSequence/frameFragments frames so item/
	// fragment sub-frames know their parent for encoding inheritance).
	enclosingDS *dataset.Dataset
}

// pixelContext accumulates the sibling values §4.3's context-dependent
// typing rule depends on.
type pixelContext struct {
	bitsAllocated     uint16
	haveBitsAllocated bool
	pixelRepr         uint16
	havePixelRepr     bool
}

// Reader is the resumable streaming reader core.
type Reader struct {
	cfg    config.Config
	Issues dcmerr.IssueHandler

	// LazySource, if set, lets the reader honor LargeElementHandling=LazyLoad
	// by recording {offset,length} cursors instead of buffering bytes. If
	// nil, LazyLoad degrades to LoadInMemory with a warning issue.
	LazySource dataset.PixelSource

	// LargeElementCallback is invoked for elements whose length exceeds
	// cfg.LargeElementThreshold when cfg.LargeElementHandling is Callback;
	// it returns the policy to apply to this one element.
	LargeElementCallback func(t tag.Tag, v vr.VR, length int64, offset int64) config.LargeElementHandling

	state    State
	consumed int64

	preambleDone bool
	syntax       transfersyntax.Syntax

	stack []*frame
	ctx   pixelContext

	done bool
}

// NewReader constructs a Reader ready to parse from the start of a stream.
func NewReader(cfg config.Config) *Reader {
	return &Reader{cfg: cfg, state: Preamble}
}

func (r *Reader) State() State    { return r.state }
func (r *Reader) Consumed() int64 { return r.consumed }

// AtTopLevel reports whether the reader is between top-level elements,
// the point where EOF legitimately means "end of dataset".
func (r *Reader) AtTopLevel() bool { return r.preambleDone && len(r.stack) == 1 }

// Result is returned by Advance.
type Result struct {
	Outcome   Outcome
	Element   *dataset.Element
	NeedBytes int
	Err       *dcmerr.Error
}

type stepSignal int

const (
	sigElement stepSignal = iota
	sigNeedMore
	sigError
	sigFrameDone
	sigContinue
)

// Advance is the reader's single control operation (§4.3).
func (r *Reader) Advance(data []byte) Result {
	if r.done {
		return Result{Outcome: OutcomeDone}
	}
	if r.state == Preamble {
		return r.advancePreamble(data)
	}
	if len(r.stack) == 0 {
		r.stack = append(r.stack, &frame{kind: frameDataset, ds: dataset.New(nil), remaining: -1})
	}
	return r.step(data)
}

func (r *Reader) step(data []byte) Result {
	for {
		f := r.topFrame()
		if f == nil {
			r.state = Done
			r.done = true
			return Result{Outcome: OutcomeDone}
		}
		var sig stepSignal
		var res Result
		var consumed int
		depth := len(r.stack)
		switch f.kind {
		case frameDataset:
			sig, res, consumed = r.stepDataset(f, data)
		case frameSequence:
			sig, res, consumed = r.stepSequence(f, data)
		case frameFragments:
			sig, res, consumed = r.stepFragments(f, data)
		}
		switch sig {
		case sigElement, sigNeedMore, sigError:
			if sig != sigNeedMore {
				r.chargeAncestors(consumed, depth)
			}
			if sig == sigElement && len(r.stack) > 1 {
				// Elements inside a sequence item reach the caller as part
				// of their enclosing top-level sequence element.
				data = data[consumed:]
				continue
			}
			return res
		case sigFrameDone:
			data = data[consumed:]
			r.chargeAncestors(consumed, depth)
			if elem := r.popFrame(); elem != nil && len(r.stack) == 1 {
				return Result{Outcome: OutcomeElement, Element: elem}
			}
			continue
		case sigContinue:
			data = data[consumed:]
			r.chargeAncestors(consumed, depth)
			continue
		}
	}
}

// chargeAncestors debits n consumed bytes against every open frame's
// defined-length budget (frameDataset.remaining, frameSequence.remaining),
// not just the frame that did the consuming: a sequence nested inside a
// defined-length item must still count against that item's budget, and a
// fragment sequence nested inside a defined-length dataset frame likewise.
// Undefined-length frames (remaining == -1) are unaffected and terminate
// on their delimiter tag instead. Only the depth frames that were open
// before the step are charged: a frame the step itself pushed does not
// pay for the header that opened it.
func (r *Reader) chargeAncestors(n, depth int) {
	if n == 0 {
		return
	}
	for _, f := range r.stack[:depth] {
		if f.remaining > 0 {
			f.remaining -= int64(n)
			if f.remaining < 0 {
				f.remaining = 0
			}
		}
	}
}

func (r *Reader) topFrame() *frame {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// popFrame closes the top frame, attaching its result to the parent. It
// returns the sequence or fragmented-pixel element it built, or nil when
// the closed frame was a dataset.
func (r *Reader) popFrame() *dataset.Element {
	f := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	parent := r.topFrame()
	switch f.kind {
	case frameDataset:
		if f.isItem && parent != nil && parent.kind == frameSequence {
			parent.items = append(parent.items, f.ds)
		} else if parent == nil {
			if r.syntax.UID == "" {
				// The file-meta group frame is complete: resolve the
				// transfer syntax and start a fresh frame for the main
				// dataset, which follows immediately (§4.3).
				r.finishMeta(f.ds)
				r.stack = append(r.stack, &frame{kind: frameDataset, ds: dataset.New(nil), remaining: -1})
			}
			// else: the main dataset's own top-level frame exhausted at
			// end of stream; nothing further to attach.
		}
	case frameSequence:
		sv := dataset.SequenceValue{Items: f.items, UndefinedLength: f.undefinedLength}
		elem := &dataset.Element{Tag: f.seqTag, VR: f.seqVR, Value: sv, Resolved: true}
		if parent != nil && parent.kind == frameDataset {
			parent.ds.Insert(elem)
		}
		return elem
	case frameFragments:
		fv := dataset.FragmentedValue{OffsetTable: f.offsetTable, Fragments: f.fragments}
		elem := &dataset.Element{Tag: f.fragTag, VR: "OB", Value: fv, Resolved: true}
		if parent != nil && parent.kind == frameDataset {
			parent.ds.Insert(elem)
		}
		return elem
	}
	return nil
}

func (r *Reader) needMore(n int) (stepSignal, Result, int) {
	return sigNeedMore, Result{Outcome: OutcomeNeedMore, NeedBytes: n}, 0
}

func (r *Reader) fail(kind dcmerr.Kind, t tag.Tag, hasTag bool, reason string) (stepSignal, Result, int) {
	r.state = Error
	e := &dcmerr.Error{Kind: kind, Offset: r.consumed, Tag: dcmerr.Tag(t), HasTag: hasTag, Severity: dcmerr.Critical, Reason: reason}
	return sigError, Result{Outcome: OutcomeError, Err: e}, 0
}

func (r *Reader) issue(t tag.Tag, hasTag bool, kind dcmerr.Kind, sev dcmerr.Severity, msg string) {
	dcmerr.Report(r.Issues, dcmerr.Issue{Tag: dcmerr.Tag(t), HasTag: hasTag, Position: r.consumed, Kind: kind, Severity: sev, Message: msg})
}

// advancePreamble handles the top-level wrapper per the configured
// PreamblePolicy.
func (r *Reader) advancePreamble(data []byte) Result {
	switch r.cfg.Preamble {
	case config.IgnorePreamble:
		if len(data) < 132 {
			return Result{Outcome: OutcomeNeedMore, NeedBytes: 132}
		}
		r.consumed += 132
		r.preambleDone = true
		r.state = FileMetaInfo
		return r.Advance(data[132:])
	case config.RequirePreamble:
		if len(data) < 132 {
			return Result{Outcome: OutcomeNeedMore, NeedBytes: 132}
		}
		if string(data[128:132]) != "DICM" {
			r.state = Error
			return Result{Outcome: OutcomeError, Err: dcmerr.New(dcmerr.MalformedPreamble, r.consumed, dcmerr.Critical, "missing DICM magic prefix")}
		}
		r.consumed += 132
		r.preambleDone = true
		r.state = FileMetaInfo
		return r.Advance(data[132:])
	default: // OptionalPreamble
		if len(data) >= 4 && looksLikePlausibleTag(data) && len(data) < 132 {
			r.preambleDone = true
			r.state = FileMetaInfo
			return r.Advance(data)
		}
		if len(data) < 132 {
			return Result{Outcome: OutcomeNeedMore, NeedBytes: 132}
		}
		if string(data[128:132]) == "DICM" {
			r.consumed += 132
			r.preambleDone = true
			r.state = FileMetaInfo
			return r.Advance(data[132:])
		}
		r.preambleDone = true
		r.state = FileMetaInfo
		return r.Advance(data)
	}
}

func looksLikePlausibleTag(data []byte) bool {
	group := uint16(data[0]) | uint16(data[1])<<8
	return group%2 == 0
}

func (r *Reader) finishMeta(meta *dataset.Dataset) {
	uid, _ := meta.GetString(tag.TransferSyntaxUID)
	uid = strings.TrimRight(uid, " \x00")
	if uid == "" {
		uid = dictionary.UIDImplicitVRLittleEndian
		r.issue(0, false, dcmerr.MissingMetadata, dcmerr.Warning, "no transfer syntax UID in file meta; assuming implicit VR little endian")
	}
	r.syntax = transfersyntax.Lookup(uid)
	r.state = ReadTag
}
