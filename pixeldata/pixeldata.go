// Package pixeldata implements the pixel-payload subsystem: concrete
// dataset.PixelSource backing stores, frame reconstruction over a
// fragment sequence and its basic offset table, and the pluggable codec
// boundary (§4.6).
package pixeldata

import (
	"io"
	"os"

	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
)

// InMemorySource is the trivial dataset.PixelSource backed by an
// already-materialized byte slice.
type InMemorySource []byte

func (s InMemorySource) Length() int64 { return int64(len(s)) }

func (s InMemorySource) ReadSpan(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(s)) {
		return nil, dcmerr.New(dcmerr.DecodeError, offset, dcmerr.Err, "pixel span out of range")
	}
	return s[offset : offset+length], nil
}

func (s InMemorySource) CopyTo(dst io.Writer) error {
	_, err := dst.Write(s)
	return err
}

func (s InMemorySource) Load() ([]byte, error) { return s, nil }

// FileSource is a lazily-read dataset.PixelSource backed by a seekable
// file handle and a fixed [Base, Base+Size) span within it, used when the
// reader's LargeElementHandling is LazyLoad (§4.3). It does not limit how
// many file handles are open at once.
type FileSource struct {
	File *os.File
	Base int64
	Size int64
}

func (s *FileSource) Length() int64 { return s.Size }

func (s *FileSource) ReadSpan(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > s.Size {
		return nil, dcmerr.New(dcmerr.DecodeError, offset, dcmerr.Err, "pixel span out of range")
	}
	buf := make([]byte, length)
	if _, err := s.File.ReadAt(buf, s.Base+offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *FileSource) CopyTo(dst io.Writer) error {
	b, err := s.ReadSpan(0, s.Size)
	if err != nil {
		return err
	}
	_, err = dst.Write(b)
	return err
}

func (s *FileSource) Load() ([]byte, error) { return s.ReadSpan(0, s.Size) }

// FrameIndex resolves a fragmented pixel payload into per-frame byte
// ranges, following §4.6's two resolution rules: if the basic offset
// table has one entry per frame, its entries give each frame's starting byte offset
// directly; otherwise, if fragment count equals frame count, each
// fragment is one frame; any other combination (multiple fragments per
// frame without offset-table guidance) is ambiguous and reported rather
// than guessed at.
type FrameIndex struct {
	Fragments   [][]byte
	OffsetTable []uint32
	FrameCount  int
}

// NewFrameIndex builds a FrameIndex from a decoded FragmentedValue and the
// sibling NumberOfFrames value (defaulting to 1 if absent, per §3).
func NewFrameIndex(fv dataset.FragmentedValue, numberOfFrames int) *FrameIndex {
	if numberOfFrames <= 0 {
		numberOfFrames = 1
	}
	return &FrameIndex{Fragments: fv.Fragments, OffsetTable: fv.OffsetTable, FrameCount: numberOfFrames}
}

// Frame returns the raw (still codec-encoded) fragment bytes composing
// frame i. When the offset table is absent and fragment count doesn't
// match frame count, ok is false: the caller must pick a policy (reject,
// or treat every fragment after the first as a continuation of frame 0)
// rather than have this layer silently guess, per the toolkit's decision
// on the "inconsistent offset table" open question (see design notes).
func (fi *FrameIndex) Frame(i int) (fragments [][]byte, ok bool) {
	if i < 0 || i >= fi.FrameCount {
		return nil, false
	}
	if len(fi.OffsetTable) == fi.FrameCount {
		return fi.fragmentsByOffset(i)
	}
	if len(fi.Fragments) == fi.FrameCount {
		return fi.Fragments[i : i+1], true
	}
	return nil, false
}

func (fi *FrameIndex) fragmentsByOffset(i int) ([][]byte, bool) {
	// Compute each fragment's cumulative byte offset within the
	// concatenated fragment stream (excluding item headers), then bucket
	// fragments between this frame's offset-table entry and the next.
	start := fi.OffsetTable[i]
	var end uint32 = 1<<32 - 1
	if i+1 < len(fi.OffsetTable) {
		end = fi.OffsetTable[i+1]
	}
	var out [][]byte
	var pos uint32
	for _, frag := range fi.Fragments {
		if pos >= start && pos < end {
			out = append(out, frag)
		}
		pos += uint32(len(frag))
		if len(frag)%2 != 0 {
			pos++ // item padding
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// Codec decodes and encodes one frame of pixel data for a particular
// transfer-syntax codec identifier, the pluggable boundary named in §4.6
// and §4.7. Concrete implementations live in package codec's
// subpackages.
type Codec interface {
	Name() string
	Decode(fragments [][]byte, shape dataset.PixelShape) ([]byte, error)
	Encode(raw []byte, shape dataset.PixelShape) (fragments [][]byte, err error)
	Validate(fragments [][]byte, shape dataset.PixelShape) error
}

// registry is the process-wide codec registry keyed by transfer-syntax
// codec identifier (transfersyntax.Syntax.Codec).
var registry = map[string]Codec{}

// RegisterCodec adds or replaces a codec under name.
func RegisterCodec(name string, c Codec) { registry[name] = c }

// LookupCodec resolves a codec identifier to its implementation.
func LookupCodec(name string) (Codec, bool) {
	c, ok := registry[name]
	return c, ok
}
