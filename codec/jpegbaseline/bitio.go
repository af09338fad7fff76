package jpegbaseline

import "github.com/opendcm-go/dicom/dcmerr"

// bitReader reads MSB-first bits from an entropy-coded segment, undoing
// byte stuffing (0xFF is always followed by a literal 0x00 in the
// entropy stream; 0xFF followed by anything else is a marker and ends
// the segment) per §4.7.
type bitReader struct {
	data []byte
	pos  int
	acc  uint32
	bits int
	hitMarker bool
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) fill() error {
	for r.bits <= 24 {
		if r.hitMarker || r.pos >= len(r.data) {
			r.acc <<= 8
			r.bits += 8
			continue
		}
		b := r.data[r.pos]
		r.pos++
		if b == 0xFF {
			if r.pos < len(r.data) && r.data[r.pos] == 0x00 {
				r.pos++
			} else {
				r.hitMarker = true
				r.pos--
				r.acc <<= 8
				r.bits += 8
				continue
			}
		}
		r.acc = r.acc<<8 | uint32(b)
		r.bits += 8
	}
	return nil
}

func (r *bitReader) readBit() (int, error) {
	if r.bits < 1 {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	r.bits--
	bit := (r.acc >> uint(r.bits)) & 1
	return int(bit), nil
}

func (r *bitReader) readBits(n int) (int, error) {
	v := 0
	for i := 0; i < n; i++ {
		b, err := r.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | b
	}
	return v, nil
}

// markerPos reports the byte offset at which a marker terminated the
// entropy stream, for restart-interval resynchronization.
func (r *bitReader) markerPos() int { return r.pos }

// bitWriter accumulates MSB-first bits and stuffs 0x00 after every
// literal 0xFF byte it emits, mirroring bitReader's unstuffing.
type bitWriter struct {
	out  []byte
	acc  uint32
	bits int
}

func (w *bitWriter) writeBits(value uint16, n byte) {
	if n == 0 {
		return
	}
	w.acc = w.acc<<uint(n) | uint32(value)&((1<<uint(n))-1)
	w.bits += int(n)
	for w.bits >= 8 {
		w.bits -= 8
		b := byte(w.acc >> uint(w.bits))
		w.emit(b)
	}
}

func (w *bitWriter) emit(b byte) {
	w.out = append(w.out, b)
	if b == 0xFF {
		w.out = append(w.out, 0x00)
	}
}

// flush pads the final partial byte with 1-bits (the standard's
// convention) and returns the accumulated entropy-coded bytes.
func (w *bitWriter) flush() []byte {
	if w.bits > 0 {
		pad := 8 - w.bits
		w.writeBits(uint16(1<<uint(pad)-1), byte(pad))
	}
	return w.out
}

var errNeedMoreData = dcmerr.New(dcmerr.NeedMoreData, 0, dcmerr.Info, "need more entropy-coded bytes")
