// Package jpegbaseline implements the reference lossy image codec for the
// JPEG Baseline (Process 1) transfer syntax (1.2.840.10008.1.2.4.50):
// marker scanning, Huffman-coded sequential baseline decode/encode, 8x8
// DCT, quantization, and YCbCr/RGB color conversion with 4:4:4/4:2:2/4:2:0
// subsampling (§4.7).
package jpegbaseline

import (
	"github.com/opendcm-go/dicom/dataset"
	"github.com/opendcm-go/dicom/dcmerr"
	"github.com/opendcm-go/dicom/pixeldata"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOF0 = 0xC0
	markerDHT  = 0xC4
	markerDQT  = 0xDB
	markerSOS  = 0xDA
	markerDRI  = 0xDD
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

type component struct {
	id       byte
	hSamp    byte
	vSamp    byte
	quantID  byte
	dcTable  byte
	acTable  byte
	dcPred   int
}

type frameHeader struct {
	precision  byte
	height     int
	width      int
	components []component
}

// Codec implements pixeldata.Codec for JPEG Baseline.
type Codec struct {
	// Quality is the encode-side quantization quality, 1-100.
	Quality int
}

func (c Codec) Name() string { return "jpegbaseline" }

func (c Codec) Decode(fragments [][]byte, shape dataset.PixelShape) ([]byte, error) {
	if len(fragments) == 0 {
		return nil, dcmerr.Codec(0, 0, "no JPEG fragments to decode")
	}
	// A single frame's compressed image may be split across multiple
	// fragments when no offset table resolves frame boundaries cleanly;
	// concatenating them reconstructs the one JPEG stream (§4.6).
	buf := fragments[0]
	if len(fragments) > 1 {
		joined := make([]byte, 0, len(buf))
		for _, f := range fragments {
			joined = append(joined, f...)
		}
		buf = joined
	}
	return decodeJPEG(buf, shape)
}

func (c Codec) Encode(raw []byte, shape dataset.PixelShape) ([][]byte, error) {
	q := c.Quality
	if q <= 0 {
		q = 85
	}
	out, err := encodeJPEG(raw, shape, q)
	if err != nil {
		return nil, err
	}
	return [][]byte{out}, nil
}

func (c Codec) Validate(fragments [][]byte, shape dataset.PixelShape) error {
	_, err := c.Decode(fragments, shape)
	return err
}

func init() {
	pixeldata.RegisterCodec("jpegbaseline", Codec{})
}

var _ pixeldata.Codec = Codec{}

// nextMarker walks buf looking for the next 0xFFxx marker at or after
// pos, skipping fill bytes (0xFF00 stuffing never occurs outside an
// entropy-coded segment, and plain 0xFF padding bytes before a marker are
// legal and skipped).
func nextMarker(buf []byte, pos int) (marker byte, segStart int, ok bool) {
	for pos+1 < len(buf) {
		if buf[pos] != 0xFF {
			pos++
			continue
		}
		m := buf[pos+1]
		if m == 0x00 || m == 0xFF {
			pos++
			continue
		}
		return m, pos + 2, true
	}
	return 0, 0, false
}

func u16(b []byte) int { return int(b[0])<<8 | int(b[1]) }

func decodeJPEG(buf []byte, shape dataset.PixelShape) ([]byte, error) {
	pos := 0
	m, next, ok := nextMarker(buf, pos)
	if !ok || m != markerSOI {
		return nil, dcmerr.Codec(0, 0, "JPEG stream does not start with SOI")
	}
	pos = next

	var quant [4][64]int
	var dcTables [4]*huffTable
	var acTables [4]*huffTable
	var fh frameHeader
	var restartInterval int

	for {
		m, next, ok := nextMarker(buf, pos)
		if !ok {
			return nil, dcmerr.Codec(0, int64(pos), "JPEG stream ended before SOS/EOI")
		}
		pos = next
		switch {
		case m == markerEOI:
			return nil, dcmerr.Codec(0, int64(pos), "JPEG stream reached EOI before a scan was decoded")
		case m == markerDQT:
			segLen := u16(buf[pos : pos+2])
			end := pos + segLen
			p := pos + 2
			for p < end {
				pq := buf[p] >> 4
				tq := buf[p] & 0x0F
				p++
				var table [64]int
				for i := 0; i < 64; i++ {
					if pq == 0 {
						table[i] = int(buf[p])
						p++
					} else {
						table[i] = u16(buf[p : p+2])
						p += 2
					}
				}
				quant[tq] = table
			}
			pos = end
		case m == markerDHT:
			segLen := u16(buf[pos : pos+2])
			end := pos + segLen
			p := pos + 2
			for p < end {
				class := buf[p] >> 4
				id := buf[p] & 0x0F
				p++
				var spec huffSpec
				copy(spec.counts[:], buf[p:p+16])
				p += 16
				total := 0
				for _, c := range spec.counts {
					total += int(c)
				}
				spec.symbols = append([]byte(nil), buf[p:p+total]...)
				p += total
				t := buildHuffTable(spec)
				if class == 0 {
					dcTables[id] = t
				} else {
					acTables[id] = t
				}
			}
			pos = end
		case m == markerDRI:
			restartInterval = u16(buf[pos+2 : pos+4])
			pos += u16(buf[pos : pos+2])
		case m == markerSOF0:
			segLen := u16(buf[pos : pos+2])
			p := pos + 2
			fh.precision = buf[p]
			fh.height = u16(buf[p+1 : p+3])
			fh.width = u16(buf[p+3 : p+5])
			nc := int(buf[p+5])
			p += 6
			fh.components = make([]component, nc)
			for i := 0; i < nc; i++ {
				fh.components[i] = component{
					id:      buf[p],
					hSamp:   buf[p+1] >> 4,
					vSamp:   buf[p+1] & 0x0F,
					quantID: buf[p+2],
				}
				p += 3
			}
			pos += segLen
		case m >= 0xC1 && m <= 0xCF && m != markerDHT && m != markerDRI:
			return nil, dcmerr.Codec(0, int64(pos), "non-baseline JPEG frame marker not supported")
		case m == markerSOS:
			segLen := u16(buf[pos : pos+2])
			p := pos + 2
			ns := int(buf[p])
			p++
			for i := 0; i < ns; i++ {
				cs := buf[p]
				dc := buf[p+1] >> 4
				ac := buf[p+1] & 0x0F
				p += 2
				for ci := range fh.components {
					if fh.components[ci].id == cs {
						fh.components[ci].dcTable = dc
						fh.components[ci].acTable = ac
					}
				}
			}
			entropyStart := pos + segLen
			return decodeScan(buf[entropyStart:], fh, quant, dcTables, acTables, restartInterval, shape)
		default:
			// APPn, COM, and any other segment we don't need: skip.
			segLen := u16(buf[pos : pos+2])
			pos += segLen
		}
	}
}

func decodeScan(entropy []byte, fh frameHeader, quant [4][64]int, dcTables, acTables [4]*huffTable, restartInterval int, shape dataset.PixelShape) ([]byte, error) {
	maxH, maxV := byte(1), byte(1)
	for _, c := range fh.components {
		if c.hSamp > maxH {
			maxH = c.hSamp
		}
		if c.vSamp > maxV {
			maxV = c.vSamp
		}
	}
	mcuW, mcuH := 8*int(maxH), 8*int(maxV)
	mcusX := (fh.width + mcuW - 1) / mcuW
	mcusY := (fh.height + mcuH - 1) / mcuH

	planes := make([][]byte, len(fh.components))
	planeW := make([]int, len(fh.components))
	planeH := make([]int, len(fh.components))
	for ci, c := range fh.components {
		w := mcusX * int(c.hSamp) * 8
		h := mcusY * int(c.vSamp) * 8
		planes[ci] = make([]byte, w*h)
		planeW[ci] = w
		planeH[ci] = h
	}

	br := newBitReader(entropy)
	mcuCount := 0
	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			for ci := range fh.components {
				c := &fh.components[ci]
				for by := 0; by < int(c.vSamp); by++ {
					for bx := 0; bx < int(c.hSamp); bx++ {
						block, err := decodeBlock(br, c, quant[c.quantID], dcTables[c.dcTable], acTables[c.acTable])
						if err != nil {
							return nil, err
						}
						ox := (mx*int(c.hSamp) + bx) * 8
						oy := (my*int(c.vSamp) + by) * 8
						writeBlock(planes[ci], planeW[ci], ox, oy, block)
					}
				}
			}
			mcuCount++
			if restartInterval > 0 && mcuCount%restartInterval == 0 && !(my == mcusY-1 && mx == mcusX-1) {
				for ci := range fh.components {
					fh.components[ci].dcPred = 0
				}
				resyncRestart(br)
			}
		}
	}

	return assemble(fh, planes, planeW, planeH, maxH, maxV, shape), nil
}

// resyncRestart discards bits up to and past the next RST marker, per
// the standard's restart-interval resynchronization rule.
func resyncRestart(br *bitReader) {
	br.bits = 0
	br.acc = 0
	for br.pos+1 < len(br.data) {
		if br.data[br.pos] == 0xFF {
			m := br.data[br.pos+1]
			if m >= markerRST0 && m <= markerRST7 {
				br.pos += 2
				br.hitMarker = false
				return
			}
		}
		br.pos++
	}
}

func decodeBlock(br *bitReader, c *component, qt [64]int, dcT, acT *huffTable) (*[64]float64, error) {
	if dcT == nil || acT == nil {
		return nil, dcmerr.Codec(0, 0, "scan references an undefined Huffman table")
	}
	natural := [64]float64{}

	s, err := dcT.decode(br)
	if err != nil {
		return nil, err
	}
	diff, err := receiveExtend(br, s)
	if err != nil {
		return nil, err
	}
	c.dcPred += diff
	natural[0] = float64(c.dcPred * qt[0])

	k := 1
	for k < 64 {
		rs, err := acT.decode(br)
		if err != nil {
			return nil, err
		}
		run := int(rs >> 4)
		size := rs & 0x0F
		if size == 0 {
			if run == 15 {
				k += 16
				continue
			}
			break // EOB
		}
		k += run
		if k >= 64 {
			break
		}
		val, err := receiveExtend(br, size)
		if err != nil {
			return nil, err
		}
		natural[zigzag[k]] = float64(val * qt[k])
		k++
	}

	return idct8x8(&natural), nil
}

func writeBlock(plane []byte, planeW, ox, oy int, block *[64]float64) {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			plane[(oy+y)*planeW+(ox+x)] = clamp8(block[y*8+x] + 128)
		}
	}
}

// assemble upsamples subsampled chroma planes to full resolution (nearest
// neighbor), converts YCbCr to RGB when the photometric interpretation
// calls for it, and crops to the frame's true (non-MCU-padded) dimensions.
func assemble(fh frameHeader, planes [][]byte, planeW, planeH []int, maxH, maxV byte, shape dataset.PixelShape) []byte {
	w, h := fh.width, fh.height
	nc := len(fh.components)
	out := make([]byte, w*h*nc)
	isColor := nc == 3

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			samples := make([]byte, nc)
			for ci, c := range fh.components {
				sx := x * int(c.hSamp) / int(maxH)
				sy := y * int(c.vSamp) / int(maxV)
				samples[ci] = planes[ci][sy*planeW[ci]+sx]
			}
			off := (y*w + x) * nc
			if isColor {
				r, g, b := ycbcrToRGB(samples[0], samples[1], samples[2])
				out[off], out[off+1], out[off+2] = r, g, b
			} else {
				out[off] = samples[0]
			}
		}
	}
	return out
}

func ycbcrToRGB(y, cb, cr byte) (byte, byte, byte) {
	yf := float64(y)
	cbf := float64(cb) - 128
	crf := float64(cr) - 128
	r := yf + 1.402*crf
	g := yf - 0.344136*cbf - 0.714136*crf
	b := yf + 1.772*cbf
	return clamp8(r), clamp8(g), clamp8(b)
}

func rgbToYCbCr(r, g, b byte) (byte, byte, byte) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	y := 0.299*rf + 0.587*gf + 0.114*bf
	cb := -0.168736*rf - 0.331264*gf + 0.5*bf + 128
	cr := 0.5*rf - 0.418688*gf - 0.081312*bf + 128
	return clamp8(y), clamp8(cb), clamp8(cr)
}
