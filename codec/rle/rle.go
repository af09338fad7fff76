// Package rle implements the RLE Lossless transfer syntax codec
// (1.2.840.10008.1.2.5): a byte-oriented run-length scheme applied
// independently to each color-plane/bit-plane "segment" of a frame, per
// the segmented-PackBits-style layout named in the toolkit's domain-stack
// supplement.
package rle

import (
	"encoding/binary"

	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/pixeldata"
)

const headerSize = 64 // 1 uint32 segment count + 15 uint32 segment offsets

// Codec implements pixeldata.Codec for RLE Lossless.
type Codec struct{}

func (Codec) Name() string { return "rle" }

// segmentsPerPixel returns how many RLE segments compose one sample:
// one per byte of BitsAllocated, times SamplesPerPixel (color planes are
// stored as independent segments, not interleaved, unlike raw pixel data).
func segmentsPerPixel(shape dataset.PixelShape) int {
	bytesPerSample := int(shape.BitsAllocated+7) / 8
	if bytesPerSample < 1 {
		bytesPerSample = 1
	}
	samples := int(shape.SamplesPerPixel)
	if samples < 1 {
		samples = 1
	}
	return bytesPerSample * samples
}

// Decode reconstructs one frame's raw pixel bytes from its RLE fragment.
// A frame's fragments are always a single item per §4.6 (RLE never splits
// one frame across multiple fragments).
func (c Codec) Decode(fragments [][]byte, shape dataset.PixelShape) ([]byte, error) {
	if len(fragments) != 1 {
		return nil, dcmerr.Codec(0, 0, "RLE frame must be exactly one fragment")
	}
	buf := fragments[0]
	if len(buf) < headerSize {
		return nil, dcmerr.Codec(0, 0, "RLE fragment shorter than its 64-byte segment header")
	}
	segCount := binary.LittleEndian.Uint32(buf[0:4])
	expected := segmentsPerPixel(shape)
	if int(segCount) != expected {
		return nil, dcmerr.Codec(0, 0, "RLE segment count does not match BitsAllocated/SamplesPerPixel")
	}
	offsets := make([]uint32, segCount)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(buf[4+i*4 : 8+i*4])
	}

	pixelsPerSegment := int(shape.Rows) * int(shape.Columns)
	bytesPerSample := int(shape.BitsAllocated+7) / 8
	samples := int(shape.SamplesPerPixel)
	if samples < 1 {
		samples = 1
	}
	out := make([]byte, pixelsPerSegment*bytesPerSample*samples)

	for seg := 0; seg < int(segCount); seg++ {
		start := int(offsets[seg])
		end := len(buf)
		if seg+1 < int(segCount) {
			end = int(offsets[seg+1])
		}
		if start < headerSize || start > len(buf) || end > len(buf) || start > end {
			return nil, dcmerr.Codec(0, int64(start), "RLE segment offset out of range")
		}
		decoded, err := unpackBits(buf[start:end], pixelsPerSegment)
		if err != nil {
			return nil, dcmerr.Codec(0, int64(start), err.Error())
		}
		// Segment byte i belongs to sample (seg / bytesPerSample), byte
		// position (seg % bytesPerSample) within that sample's bytes,
		// most-significant byte first (big-endian sample layout is RLE's
		// on-wire convention regardless of the transfer syntax's own
		// endianness, since RLE is byte-oriented).
		sample := seg / bytesPerSample
		byteIdx := bytesPerSample - 1 - seg%bytesPerSample // raw samples are little-endian
		stride := bytesPerSample * samples
		for px := 0; px < pixelsPerSegment; px++ {
			out[px*stride+sample*bytesPerSample+byteIdx] = decoded[px]
		}
	}
	return out, nil
}

// unpackBits reverses PackBits-style run-length coding: a control byte
// n in [0,127] means "copy the next n+1 literal bytes"; n in [-127,-1]
// (i.e. 129..255) means "repeat the next single byte -n+1 times"; n==-128
// (128) is a no-op padding byte.
func unpackBits(in []byte, wantLen int) ([]byte, error) {
	out := make([]byte, 0, wantLen)
	i := 0
	for i < len(in) && len(out) < wantLen {
		n := int8(in[i])
		i++
		switch {
		case n >= 0:
			count := int(n) + 1
			if i+count > len(in) {
				return nil, dcmerr.New(dcmerr.CodecError, int64(i), dcmerr.Err, "RLE literal run overruns segment")
			}
			out = append(out, in[i:i+count]...)
			i += count
		case n != -128:
			if i >= len(in) {
				return nil, dcmerr.New(dcmerr.CodecError, int64(i), dcmerr.Err, "RLE replicate run overruns segment")
			}
			count := -int(n) + 1
			b := in[i]
			i++
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
		}
	}
	if len(out) < wantLen {
		return nil, dcmerr.New(dcmerr.CodecError, int64(i), dcmerr.Err, "RLE segment decoded fewer pixels than expected")
	}
	return out[:wantLen], nil
}

// Encode packs one frame's raw pixel bytes into an RLE fragment.
func (c Codec) Encode(raw []byte, shape dataset.PixelShape) ([][]byte, error) {
	pixelsPerSegment := int(shape.Rows) * int(shape.Columns)
	bytesPerSample := int(shape.BitsAllocated+7) / 8
	samples := int(shape.SamplesPerPixel)
	if samples < 1 {
		samples = 1
	}
	stride := bytesPerSample * samples
	segCount := segmentsPerPixel(shape)
	if len(raw) != pixelsPerSegment*stride {
		return nil, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "raw pixel buffer does not match declared shape")
	}

	segments := make([][]byte, segCount)
	for seg := 0; seg < segCount; seg++ {
		sample := seg / bytesPerSample
		byteIdx := bytesPerSample - 1 - seg%bytesPerSample // most-significant byte first
		plane := make([]byte, pixelsPerSegment)
		for px := 0; px < pixelsPerSegment; px++ {
			plane[px] = raw[px*stride+sample*bytesPerSample+byteIdx]
		}
		segments[seg] = packBits(plane)
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(segCount))
	offset := uint32(headerSize)
	for i, s := range segments {
		binary.LittleEndian.PutUint32(header[4+i*4:8+i*4], offset)
		offset += uint32(len(s))
	}
	full := make([]byte, 0, offset)
	full = append(full, header...)
	for _, s := range segments {
		full = append(full, s...)
	}
	return [][]byte{full}, nil
}

// packBits is a straightforward (non-optimal but correct) PackBits
// encoder: it never emits a replicate run shorter than 3 bytes, since a
// 2-byte repeat costs as much encoded as a 2-byte literal run.
func packBits(plane []byte) []byte {
	var out []byte
	i := 0
	for i < len(plane) {
		runLen := 1
		for i+runLen < len(plane) && plane[i+runLen] == plane[i] && runLen < 128 {
			runLen++
		}
		if runLen >= 3 {
			out = append(out, byte(int8(-(runLen - 1))), plane[i])
			i += runLen
			continue
		}
		litStart := i
		litLen := 0
		for i < len(plane) && litLen < 128 {
			nextRun := 1
			for i+nextRun < len(plane) && plane[i+nextRun] == plane[i] && nextRun < 128 {
				nextRun++
			}
			if nextRun >= 3 {
				break
			}
			i++
			litLen++
		}
		out = append(out, byte(litLen-1))
		out = append(out, plane[litStart:litStart+litLen]...)
	}
	return out
}

func (c Codec) Validate(fragments [][]byte, shape dataset.PixelShape) error {
	if len(fragments) == 0 {
		return dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "no RLE fragments to validate")
	}
	_, err := c.Decode(fragments, shape)
	return err
}

func init() {
	pixeldata.RegisterCodec("rle", Codec{})
}

var _ pixeldata.Codec = Codec{}
