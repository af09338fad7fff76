package jpegbaseline

import "github.com/opendcm-go/dicom/dcmerr"

// huffTable is a decode-ready canonical Huffman table: for each bit
// length, the first code of that length and the index into symbols where
// that length's symbols begin.
type huffTable struct {
	spec    huffSpec
	maxCode [17]int32 // maxCode[len], -1 if no codes of that length
	valPtr  [17]int32
	minCode [17]int32
}

func buildHuffTable(spec huffSpec) *huffTable {
	t := &huffTable{spec: spec}
	code := int32(0)
	k := int32(0)
	for length := 1; length <= 16; length++ {
		count := int32(spec.counts[length-1])
		if count == 0 {
			t.maxCode[length] = -1
			code <<= 1
			continue
		}
		t.valPtr[length] = k
		t.minCode[length] = code
		code += count
		k += count
		t.maxCode[length] = code - 1
		code <<= 1
	}
	return t
}

// huffmanEncode is a canonical Huffman encode table: symbol -> (code,
// length), built from the same spec the decoder uses so encode/decode
// stay consistent.
type huffmanEncode struct {
	code   map[byte]uint16
	length map[byte]byte
}

func buildHuffEncode(spec huffSpec) *huffmanEncode {
	e := &huffmanEncode{code: map[byte]uint16{}, length: map[byte]byte{}}
	code := uint16(0)
	k := 0
	for length := 1; length <= 16; length++ {
		count := int(spec.counts[length-1])
		for i := 0; i < count; i++ {
			sym := spec.symbols[k]
			e.code[sym] = code
			e.length[sym] = byte(length)
			code++
			k++
		}
		code <<= 1
	}
	return e
}

// decode reads one Huffman-coded symbol from br using t.
func (t *huffTable) decode(br *bitReader) (byte, error) {
	code := int32(0)
	for length := 1; length <= 16; length++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		code = (code << 1) | int32(bit)
		if t.maxCode[length] != -1 && code <= t.maxCode[length] && code >= t.minCode[length] {
			idx := t.valPtr[length] + (code - t.minCode[length])
			if int(idx) >= len(t.spec.symbols) {
				return 0, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "huffman symbol index out of range")
			}
			return t.spec.symbols[idx], nil
		}
	}
	return 0, dcmerr.New(dcmerr.CodecError, 0, dcmerr.Err, "huffman code not found in table (corrupt entropy stream)")
}

// receiveExtend reads an n-bit magnitude-coded value per the standard's
// Huffman-coded-difference convention: n==0 means value 0; otherwise the
// raw n-bit field is sign-extended around its half-range.
func receiveExtend(br *bitReader, n byte) (int, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := br.readBits(int(n))
	if err != nil {
		return 0, err
	}
	vt := 1 << (n - 1)
	if v < vt {
		return v - (1<<n - 1), nil
	}
	return v, nil
}

// extendEncode computes the (bitcount, bits) pair the standard's
// magnitude coding uses to represent a signed coefficient or DC
// difference.
func extendEncode(v int) (byte, uint16) {
	av := v
	if av < 0 {
		av = -av
	}
	n := byte(0)
	for (1 << n) <= av {
		n++
	}
	if v < 0 {
		v = v + (1<<n - 1)
	}
	return n, uint16(v)
}
