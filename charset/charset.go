// Package charset resolves the "specific character set" element to a
// decoder, following the mapping style of gillesdemey-go-dicom's
// charset.go but generalized to the toolkit's multi-valued/ISO-2022
// extension handling and strictness policy.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/dcmerr"
)

// Term is a normalized specific-character-set defined-term, e.g.
// "ISO_IR 100" or "ISO 2022 IR 149".
type Term string

// family classifies how a term's bytes interact with VM-separator
// detection and ISO-2022 escape handling.
type family int

const (
	familySingleByte family = iota
	familyUTF8
	familyGB18030orGBK
	familyISO2022
)

type termInfo struct {
	enc      encoding.Encoding
	fam      family
	isExtension bool
}

// terms maps every normalized defined term this toolkit recognises to its
// decoder and family. "" (default 7-bit) maps to a nil encoding, meaning
// pass the bytes through unchanged.
var terms = map[Term]termInfo{
	"":                 {enc: nil, fam: familySingleByte},
	"ISO_IR 6":         {enc: nil, fam: familySingleByte},
	"ISO 2022 IR 6":    {enc: nil, fam: familySingleByte},
	"ISO_IR 100":       {enc: charmap.ISO8859_1, fam: familySingleByte},
	"ISO 2022 IR 100":  {enc: charmap.ISO8859_1, fam: familySingleByte, isExtension: true},
	"ISO_IR 101":       {enc: charmap.ISO8859_2, fam: familySingleByte},
	"ISO 2022 IR 101":  {enc: charmap.ISO8859_2, fam: familySingleByte, isExtension: true},
	"ISO_IR 109":       {enc: charmap.ISO8859_3, fam: familySingleByte},
	"ISO 2022 IR 109":  {enc: charmap.ISO8859_3, fam: familySingleByte, isExtension: true},
	"ISO_IR 110":       {enc: charmap.ISO8859_4, fam: familySingleByte},
	"ISO 2022 IR 110":  {enc: charmap.ISO8859_4, fam: familySingleByte, isExtension: true},
	"ISO_IR 144":       {enc: charmap.ISO8859_5, fam: familySingleByte},
	"ISO 2022 IR 144":  {enc: charmap.ISO8859_5, fam: familySingleByte, isExtension: true},
	"ISO_IR 127":       {enc: charmap.ISO8859_6, fam: familySingleByte},
	"ISO 2022 IR 127":  {enc: charmap.ISO8859_6, fam: familySingleByte, isExtension: true},
	"ISO_IR 126":       {enc: charmap.ISO8859_7, fam: familySingleByte},
	"ISO 2022 IR 126":  {enc: charmap.ISO8859_7, fam: familySingleByte, isExtension: true},
	"ISO_IR 138":       {enc: charmap.ISO8859_8, fam: familySingleByte},
	"ISO 2022 IR 138":  {enc: charmap.ISO8859_8, fam: familySingleByte, isExtension: true},
	"ISO_IR 148":       {enc: charmap.ISO8859_9, fam: familySingleByte},
	"ISO 2022 IR 148":  {enc: charmap.ISO8859_9, fam: familySingleByte, isExtension: true},
	"ISO_IR 13":        {enc: japanese.ShiftJIS, fam: familySingleByte},
	"ISO 2022 IR 13":   {enc: japanese.ShiftJIS, fam: familyISO2022, isExtension: true},
	"ISO 2022 IR 87":   {enc: japanese.ISO2022JP, fam: familyISO2022, isExtension: true},
	"ISO 2022 IR 159":  {enc: japanese.ISO2022JP, fam: familyISO2022, isExtension: true},
	"ISO 2022 IR 149":  {enc: korean.EUCKR, fam: familyISO2022, isExtension: true},
	"ISO_IR 166":       {enc: charmap.Windows874, fam: familySingleByte},
	"ISO 2022 IR 166":  {enc: charmap.Windows874, fam: familySingleByte, isExtension: true},
	"ISO_IR 192":       {enc: unicode.UTF8, fam: familyUTF8},
	"GB18030":          {enc: simplifiedchinese.GB18030, fam: familyGB18030orGBK},
	"GBK":              {enc: simplifiedchinese.GBK, fam: familyGB18030orGBK},
}

// Normalize trims whitespace and folds common misspellings ("ISO IR 100",
// "ISO-IR 100") to the canonical defined term.
func Normalize(raw string) Term {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "ISO-IR", "ISO_IR")
	// "ISO IR 100" (missing underscore, still single-byte form, no escape
	// group prefix) folds to "ISO_IR 100".
	if strings.HasPrefix(s, "ISO IR ") {
		s = "ISO_IR " + strings.TrimPrefix(s, "ISO IR ")
	}
	return Term(s)
}

// CharacterSet is a resolved, ready-to-use decoder for one dataset's
// specific-character-set value.
type CharacterSet struct {
	Primary    Term
	Extensions []Term
	primaryInfo termInfo
	extInfo    []termInfo
}

// Resolve builds a CharacterSet from the raw (possibly multi-valued, "\"
// separated) value of the specific-character-set element. An empty value
// resolves to the default 7-bit encoding.
func Resolve(rawValue string, strict config.StrictMode) (CharacterSet, error) {
	if strings.TrimSpace(rawValue) == "" {
		return CharacterSet{Primary: "", primaryInfo: terms[""]}, nil
	}
	parts := strings.Split(rawValue, "\\")
	cs := CharacterSet{}
	for i, p := range parts {
		t := Normalize(p)
		info, ok := terms[t]
		if !ok {
			switch strict {
			case config.Strict:
				return CharacterSet{}, dcmerr.New(dcmerr.UnknownCharacterSet, 0, dcmerr.Err, "unknown character set term: "+string(t))
			case config.Lenient, config.Permissive:
				info = termInfo{enc: unicode.UTF8, fam: familyUTF8}
				t = "ISO_IR 192"
			}
		}
		if i == 0 {
			cs.Primary = t
			cs.primaryInfo = info
		} else {
			cs.Extensions = append(cs.Extensions, t)
			cs.extInfo = append(cs.extInfo, info)
		}
	}
	if err := cs.validateCombination(); err != nil {
		return CharacterSet{}, err
	}
	return cs, nil
}

// Default is the toolkit's 7-bit default encoding, used when a dataset
// has no specific-character-set element and no parent to inherit from
// (invariant/property P7).
func Default() CharacterSet {
	return CharacterSet{Primary: "", primaryInfo: terms[""]}
}

// validateCombination enforces the hard rule that UTF-8, GB18030, and GBK
// must not be combined with ISO-2022 extensions.
func (cs CharacterSet) validateCombination() error {
	if len(cs.Extensions) == 0 {
		return nil
	}
	switch cs.primaryInfo.fam {
	case familyUTF8, familyGB18030orGBK:
		return dcmerr.New(dcmerr.InvalidCharsetCombination, 0, dcmerr.Err,
			"UTF-8/GB18030/GBK must not be combined with ISO 2022 extensions")
	}
	return nil
}

// IsUTF8FastPath reports whether the primary encoding is UTF-8 or the
// 7-bit default, in which case raw bytes may be exposed to callers
// without a decode pass (the "UTF-8 fast path" in §4.2).
func (cs CharacterSet) IsUTF8FastPath() bool {
	return cs.primaryInfo.fam == familyUTF8 || cs.Primary == ""
}

// IsMultiByteChineseTrailingBackslash reports whether, under this
// character set's currently active encoding, the byte 0x5C may legally
// appear as the trailing byte of a two-byte sequence and must therefore
// never be treated as a value-multiplicity separator.
func (cs CharacterSet) IsMultiByteChineseTrailingBackslash() bool {
	return cs.primaryInfo.fam == familyGB18030orGBK
}

// Decode converts raw bytes using the primary decoder. Extensions
// (invoked via in-band ISO-2022 escape sequences) are handled by
// DecodeWithEscapes for text elements that may contain them.
func (cs CharacterSet) Decode(raw []byte) (string, error) {
	if cs.primaryInfo.enc == nil || cs.IsUTF8FastPath() {
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return string(raw), nil
	}
	dec := cs.primaryInfo.enc.NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", dcmerr.New(dcmerr.DecodeError, 0, dcmerr.Err, err.Error())
	}
	return string(out), nil
}

// DecodeWithEscapes decodes raw using the primary encoding, switching to
// an extension decoder whenever an ISO-2022 escape sequence is
// encountered, and switching back to the primary encoding at each value
// delimiter (CR, LF, TAB, FF, and for PN values the component/group
// separators), as required by §4.2.
func (cs CharacterSet) DecodeWithEscapes(raw []byte, delimiters []byte) (string, error) {
	if len(cs.Extensions) == 0 {
		return cs.Decode(raw)
	}
	var b strings.Builder
	active := cs.primaryInfo
	i := 0
	flushFrom := 0
	isDelim := func(c byte) bool {
		for _, d := range delimiters {
			if c == d {
				return true
			}
		}
		return false
	}
	decodeSegment := func(seg []byte, info termInfo) {
		if len(seg) == 0 {
			return
		}
		if info.enc == nil {
			b.Write(seg)
			return
		}
		dec := info.enc.NewDecoder()
		out, err := dec.Bytes(seg)
		if err != nil {
			b.Write(seg)
			return
		}
		b.Write(out)
	}
	for i < len(raw) {
		if raw[i] == 0x1B { // ESC
			decodeSegment(raw[flushFrom:i], active)
			n, info := matchEscape(raw[i:], cs)
			if n > 0 {
				active = info
				i += n
				flushFrom = i
				continue
			}
		}
		if isDelim(raw[i]) {
			decodeSegment(raw[flushFrom:i+1], active)
			flushFrom = i + 1
			active = cs.primaryInfo
		}
		i++
	}
	decodeSegment(raw[flushFrom:], active)
	return b.String(), nil
}

// matchEscape recognises the ISO-2022 escape sequences for the
// extensions registered on cs, returning the sequence length consumed
// and the termInfo to switch to. Returns (0, termInfo{}) if raw does not
// start with a recognised escape.
func matchEscape(raw []byte, cs CharacterSet) (int, termInfo) {
	escapes := map[string]int{
		"\x1b(B":   0, // ASCII
		"\x1b(J":   1,
		"\x1b$@":   1,
		"\x1b$B":   1,
		"\x1b$(D":  1,
		"\x1b$)C":  1,
		"\x1b$)A":  1,
		"\x1b-A":   1,
		"\x1b-F":   1,
		"\x1b-G":   1,
		"\x1b-H":   1,
		"\x1b-M":   1,
		"\x1b-L":   1,
	}
	for seq := range escapes {
		if strings.HasPrefix(string(raw), seq) {
			if seq == "\x1b(B" {
				return len(seq), termInfo{enc: nil, fam: familySingleByte}
			}
			if len(cs.extInfo) > 0 {
				return len(seq), cs.extInfo[0]
			}
			return len(seq), termInfo{enc: nil, fam: familySingleByte}
		}
	}
	return 0, termInfo{}
}

// StandardDelimiters are the byte delimiters after which an ISO-2022
// extension reverts to the primary encoding for non-PN text elements.
var StandardDelimiters = []byte{'\r', '\n', '\t', '\f'}

// PNDelimiters additionally include the personal-name component and
// group separators ('^' and '=').
var PNDelimiters = []byte{'\r', '\n', '\t', '\f', '^', '='}
