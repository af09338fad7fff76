package dcmio

import (
	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dictionary"
	"github.com/opendcm-go/dicom/tag"
	"github.com/opendcm-go/dicom/transfersyntax"
	"github.com/opendcm-go/dicom/vr"
)

// elemHeader is one element's decoded {tag, VR, length} header.
type elemHeader struct {
	Tag       tag.Tag
	VR        vr.VR
	Length    int64
	HeaderLen int
}

func (r *Reader) activeExplicit() bool {
	if r.state == FileMetaInfo {
		return true
	}
	return r.syntax.Explicit
}

func (r *Reader) activeBigEndian() bool {
	if r.state == FileMetaInfo {
		return false
	}
	return r.syntax.Endian == transfersyntax.BigEndian
}

func (r *Reader) u16(b []byte) uint16 {
	if r.activeBigEndian() {
		return uint16(b[0])<<8 | uint16(b[1])
	}
	return uint16(b[1])<<8 | uint16(b[0])
}

func (r *Reader) u32(b []byte) uint32 {
	if r.activeBigEndian() {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

// readHeader attempts to decode one element header from data. ok is false
// when more bytes are required (needBytes reports how many); err is
// non-nil on a genuine (non-recoverable-by-waiting) decode failure.
func (r *Reader) readHeader(data []byte) (hdr elemHeader, needBytes int, err error, ok bool) {
	if len(data) < 4 {
		return elemHeader{}, 4, nil, false
	}
	group := r.u16(data[0:2])
	elem := r.u16(data[2:4])
	t := tag.New(group, elem)

	if t == tag.Item || t == tag.ItemDelimitation || t == tag.SequenceDelimitationItem {
		if len(data) < 8 {
			return elemHeader{}, 8, nil, false
		}
		length := int64(r.u32(data[4:8]))
		return elemHeader{Tag: t, Length: length, HeaderLen: 8}, 0, nil, true
	}

	if r.activeExplicit() {
		if len(data) < 6 {
			return elemHeader{}, 6, nil, false
		}
		vrCode := vr.VR(data[4:6])
		spec, known := vr.Lookup(vrCode)
		long := spec.LongLength
		if !known {
			switch r.cfg.Strict {
			case config.Strict:
				return elemHeader{}, 0, errInvalidTRC(t, string(vrCode)), true
			default:
				long = true // matches the common long-form reserved-bytes layout
			}
		}
		if long {
			if len(data) < 12 {
				return elemHeader{}, 12, nil, false
			}
			length := int64(r.u32(data[8:12]))
			return elemHeader{Tag: t, VR: vrCode, Length: length, HeaderLen: 12}, 0, nil, true
		}
		if len(data) < 8 {
			return elemHeader{}, 8, nil, false
		}
		length := int64(r.u16(data[6:8]))
		return elemHeader{Tag: t, VR: vrCode, Length: length, HeaderLen: 8}, 0, nil, true
	}

	// Implicit typing: VR comes from the dictionary.
	if len(data) < 8 {
		return elemHeader{}, 8, nil, false
	}
	length := int64(r.u32(data[4:8]))
	entry, found := dictionary.Lookup(t)
	vrCode := entry.VR
	if !found || vrCode == "" {
		vrCode = vr.Unknown
	}
	return elemHeader{Tag: t, VR: vrCode, Length: length, HeaderLen: 8}, 0, nil, true
}

type headerError struct {
	tag    tag.Tag
	reason string
}

func (e *headerError) Error() string { return e.reason }

func errInvalidTRC(t tag.Tag, raw string) error {
	return &headerError{tag: t, reason: "invalid type-representation code bytes: " + raw}
}
