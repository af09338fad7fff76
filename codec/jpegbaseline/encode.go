package jpegbaseline

import (
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
)

// encodeJPEG produces a complete baseline JPEG stream for one frame of
// raw pixel bytes. It always encodes at 4:4:4 (no chroma subsampling) and
// uses the standard Annex K Huffman tables, trading a little compression
// ratio for a codec small enough to ground cleanly in the standard's own
// example tables rather than a custom-optimized variant.
func encodeJPEG(raw []byte, shape dataset.PixelShape, quality int) ([]byte, error) {
	w, h := int(shape.Columns), int(shape.Rows)
	nc := int(shape.SamplesPerPixel)
	if nc < 1 {
		nc = 1
	}
	if len(raw) != w*h*nc {
		return nil, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "raw pixel buffer does not match declared shape")
	}

	lumaQ := ScaleQuantTable(baseQuantLuma, quality)
	chromaQ := ScaleQuantTable(baseQuantChroma, quality)
	dcLuma := buildHuffEncode(stdDCLuma)
	acLuma := buildHuffEncode(stdACLuma)
	dcChroma := buildHuffEncode(stdDCChroma)
	acChroma := buildHuffEncode(stdACChroma)

	var out []byte
	out = appendMarker(out, markerSOI)
	out = appendDQT(out, 0, lumaQ)
	if nc == 3 {
		out = appendDQT(out, 1, chromaQ)
	}
	out = appendSOF0(out, w, h, nc)
	out = appendDHT(out, 0, 0, stdDCLuma)
	out = appendDHT(out, 1, 0, stdACLuma)
	if nc == 3 {
		out = appendDHT(out, 0, 1, stdDCChroma)
		out = appendDHT(out, 1, 1, stdACChroma)
	}
	out = appendSOS(out, nc)

	bw := &bitWriter{}
	mcusX := (w + 7) / 8
	mcusY := (h + 7) / 8
	predDC := make([]int, nc)

	planes := toPlanes(raw, w, h, nc)
	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			for ci := 0; ci < nc; ci++ {
				block := extractBlock(planes[ci], w, h, mx*8, my*8)
				coeffs := quantizeBlock(block, pick(ci, lumaQ, chromaQ))
				dcEnc, acEnc := pick2(ci, dcLuma, acLuma, dcChroma, acChroma)
				encodeBlock(bw, coeffs, &predDC[ci], dcEnc, acEnc)
			}
		}
	}
	entropy := bw.flush()
	out = append(out, entropy...)
	out = appendMarker(out, markerEOI)
	return out, nil
}

func pick(ci int, luma, chroma [64]int) [64]int {
	if ci == 0 {
		return luma
	}
	return chroma
}

func pick2(ci int, dcLuma, acLuma, dcChroma, acChroma *huffmanEncode) (*huffmanEncode, *huffmanEncode) {
	if ci == 0 {
		return dcLuma, acLuma
	}
	return dcChroma, acChroma
}

func toPlanes(raw []byte, w, h, nc int) [][]byte {
	planes := make([][]byte, nc)
	for ci := range planes {
		planes[ci] = make([]byte, w*h)
	}
	if nc == 1 {
		copy(planes[0], raw)
		return planes
	}
	for i := 0; i < w*h; i++ {
		r, g, b := raw[i*nc], raw[i*nc+1], raw[i*nc+2]
		y, cb, cr := rgbToYCbCr(r, g, b)
		planes[0][i] = y
		planes[1][i] = cb
		planes[2][i] = cr
	}
	return planes
}

// extractBlock reads an 8x8 sample block starting at (ox,oy), replicating
// the edge pixel when the block runs past the image's true bounds (MCU
// padding), and level-shifts samples to be centered on 0.
func extractBlock(plane []byte, w, h, ox, oy int) *[64]float64 {
	block := &[64]float64{}
	for y := 0; y < 8; y++ {
		sy := oy + y
		if sy >= h {
			sy = h - 1
		}
		for x := 0; x < 8; x++ {
			sx := ox + x
			if sx >= w {
				sx = w - 1
			}
			block[y*8+x] = float64(plane[sy*w+sx]) - 128
		}
	}
	return block
}

func quantizeBlock(block *[64]float64, qt [64]int) [64]int {
	coeffs := fdct8x8(block)
	var out [64]int
	for zz, natIdx := range zigzag {
		out[zz] = roundDiv(coeffs[natIdx], float64(qt[zz]))
	}
	return out
}

func roundDiv(v, d float64) int {
	q := v / d
	if q >= 0 {
		return int(q + 0.5)
	}
	return -int(-q + 0.5)
}

func encodeBlock(bw *bitWriter, coeffs [64]int, predDC *int, dcEnc, acEnc *huffmanEncode) {
	diff := coeffs[0] - *predDC
	*predDC = coeffs[0]
	n, bits := extendEncode(diff)
	bw.writeBits(uint16(dcEnc.code[n]), dcEnc.length[n])
	bw.writeBits(bits, n)

	run := 0
	for k := 1; k < 64; k++ {
		v := coeffs[k]
		if v == 0 {
			run++
			continue
		}
		for run >= 16 {
			bw.writeBits(uint16(acEnc.code[0xF0]), acEnc.length[0xF0])
			run -= 16
		}
		size, vbits := extendEncode(v)
		rs := byte(run<<4) | size
		bw.writeBits(uint16(acEnc.code[rs]), acEnc.length[rs])
		bw.writeBits(vbits, size)
		run = 0
	}
	if run > 0 {
		bw.writeBits(uint16(acEnc.code[0x00]), acEnc.length[0x00])
	}
}

func appendMarker(out []byte, m byte) []byte { return append(out, 0xFF, m) }

func appendDQT(out []byte, id byte, qt [64]int) []byte {
	out = appendMarker(out, markerDQT)
	out = append(out, 0, byte(2+1+64))
	out = append(out, id) // Pq=0 (8-bit precision)
	for _, v := range qt {
		out = append(out, byte(v))
	}
	return out
}

func appendSOF0(out []byte, w, h, nc int) []byte {
	out = appendMarker(out, markerSOF0)
	length := 8 + 3*nc
	out = append(out, byte(length>>8), byte(length))
	out = append(out, 8) // 8-bit precision
	out = append(out, byte(h>>8), byte(h), byte(w>>8), byte(w))
	out = append(out, byte(nc))
	for ci := 0; ci < nc; ci++ {
		out = append(out, byte(ci+1), 0x11, byte(pickQID(ci)))
	}
	return out
}

func pickQID(ci int) byte {
	if ci == 0 {
		return 0
	}
	return 1
}

func appendDHT(out []byte, class, id byte, spec huffSpec) []byte {
	out = appendMarker(out, markerDHT)
	total := 0
	for _, c := range spec.counts {
		total += int(c)
	}
	length := 2 + 1 + 16 + total
	out = append(out, byte(length>>8), byte(length))
	out = append(out, class<<4|id)
	out = append(out, spec.counts[:]...)
	out = append(out, spec.symbols...)
	return out
}

func appendSOS(out []byte, nc int) []byte {
	out = appendMarker(out, markerSOS)
	length := 6 + 2*nc
	out = append(out, byte(length>>8), byte(length))
	out = append(out, byte(nc))
	for ci := 0; ci < nc; ci++ {
		td, ta := byte(0), byte(0)
		if ci > 0 {
			td, ta = 1, 1
		}
		out = append(out, byte(ci+1), td<<4|ta)
	}
	out = append(out, 0, 63, 0)
	return out
}
