package dataset

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opendcm-go/dicom/charset"
	"github.com/opendcm-go/dicom/config"
	"github.com/opendcm-go/dicom/tag"
)

// Dataset is an ordered mapping tag->element: keys are unique and
// enumeration always yields tags in ascending order (property P1). It
// carries an optional non-owning parent back-reference for character-set
// inheritance (property P7), and a private-creator registry scoped to
// this dataset (§4.5).
type Dataset struct {
	elements map[tag.Tag]*Element
	order    []tag.Tag // kept sorted ascending

	parent *Dataset
	priv   *privateRegistry
}

// New constructs an empty Dataset. parent may be nil for a top-level
// dataset, or the enclosing dataset for a sequence item.
func New(parent *Dataset) *Dataset {
	return &Dataset{
		elements: make(map[tag.Tag]*Element),
		parent:   parent,
		priv:     newPrivateRegistry(),
	}
}

// Parent returns the non-owning back-reference, or nil at the top level.
func (d *Dataset) Parent() *Dataset { return d.parent }

func (d *Dataset) insertSorted(t tag.Tag) {
	i := sort.Search(len(d.order), func(i int) bool { return d.order[i] >= t })
	d.order = append(d.order, 0)
	copy(d.order[i+1:], d.order[i:])
	d.order[i] = t
}

func (d *Dataset) removeSorted(t tag.Tag) {
	i := sort.Search(len(d.order), func(i int) bool { return d.order[i] >= t })
	if i < len(d.order) && d.order[i] == t {
		d.order = append(d.order[:i], d.order[i+1:]...)
	}
}

// Insert adds or replaces the element at e.Tag. If e is a private-creator
// declaration (tag.IsPrivateCreator), its creator string is registered so
// later private-data lookups can resolve it (invariant I2).
func (d *Dataset) Insert(e *Element) {
	if _, exists := d.elements[e.Tag]; !exists {
		d.insertSorted(e.Tag)
	}
	d.elements[e.Tag] = e
	if e.Tag.IsPrivateCreator() {
		if sv, ok := e.Value.(StringValue); ok {
			d.registerCreatorDeclaration(e.Tag, strings.TrimRight(string(sv.Raw), " \x00"))
		}
	}
}

// Remove deletes the element at t, returning whether it was present.
func (d *Dataset) Remove(t tag.Tag) bool {
	if _, ok := d.elements[t]; !ok {
		return false
	}
	if t.IsPrivateCreator() {
		d.unregisterCreatorDeclaration(t)
	}
	delete(d.elements, t)
	d.removeSorted(t)
	return true
}

// Contains reports whether t is present.
func (d *Dataset) Contains(t tag.Tag) bool {
	_, ok := d.elements[t]
	return ok
}

// Get returns the element at t.
func (d *Dataset) Get(t tag.Tag) (*Element, bool) {
	e, ok := d.elements[t]
	return e, ok
}

// Len returns the number of elements.
func (d *Dataset) Len() int { return len(d.order) }

// Clear removes every element, dropping any owned backing storage.
func (d *Dataset) Clear() {
	d.elements = make(map[tag.Tag]*Element)
	d.order = nil
	d.priv = newPrivateRegistry()
}

// Tags returns the dataset's tags in ascending order (property P1). The
// returned slice must not be mutated by the caller.
func (d *Dataset) Tags() []tag.Tag { return d.order }

// GetSequence returns the nested items of a sequence-valued element.
func (d *Dataset) GetSequence(t tag.Tag) ([]*Dataset, bool) {
	e, ok := d.elements[t]
	if !ok {
		return nil, false
	}
	sv, ok := e.Value.(SequenceValue)
	if !ok {
		return nil, false
	}
	return sv.Items, true
}

// GetString decodes a string-kind element's bytes using the dataset's
// resolved character encoding.
func (d *Dataset) GetString(t tag.Tag) (string, bool) {
	e, ok := d.elements[t]
	if !ok {
		return "", false
	}
	sv, ok := e.Value.(StringValue)
	if !ok {
		return "", false
	}
	enc := d.ResolvedEncoding()
	delims := charset.StandardDelimiters
	if e.VR == "PN" {
		delims = charset.PNDelimiters
	}
	s, err := enc.DecodeWithEscapes(sv.Raw, delims)
	if err != nil {
		return "", false
	}
	return s, true
}

// GetInt returns a numeric-kind element's first value as an int64.
func (d *Dataset) GetInt(t tag.Tag) (int64, bool) {
	e, ok := d.elements[t]
	if !ok {
		return 0, false
	}
	switch v := e.Value.(type) {
	case NumericValue:
		return decodeInt(v)
	case StringValue:
		s, _ := d.GetString(t)
		s = strings.TrimSpace(strings.SplitN(s, "\\", 2)[0])
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func decodeInt(v NumericValue) (int64, bool) {
	if len(v.Raw) < v.ElementWidth || v.ElementWidth == 0 {
		return 0, false
	}
	var u uint64
	for i := 0; i < v.ElementWidth; i++ {
		u |= uint64(v.Raw[i]) << (8 * i)
	}
	if v.Signed {
		switch v.ElementWidth {
		case 2:
			return int64(int16(u)), true
		case 4:
			return int64(int32(u)), true
		}
	}
	return int64(u), true
}

// dicomDateLayout / dicomTimeLayout are the on-wire DA/TM layouts.
const (
	dicomDateLayout = "20060102"
	dicomTimeLayout = "150405"
)

// GetDateTime parses a DA, TM, or DT element's first value into a
// time.Time. Fractional seconds and UTC offsets in TM/DT values are
// accepted but not required.
func (d *Dataset) GetDateTime(t tag.Tag) (time.Time, bool) {
	s, ok := d.GetString(t)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(strings.SplitN(s, "\\", 2)[0])
	for _, layout := range []string{dicomDateLayout, dicomTimeLayout, dicomDateLayout + dicomTimeLayout, dicomDateLayout + dicomTimeLayout + "-0700", time.RFC3339} {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

// ResolvedEncoding returns this dataset's effective character encoding:
// its own specific-character-set element if present, else the nearest
// ancestor's, else the default (property P7).
func (d *Dataset) ResolvedEncoding() charset.CharacterSet {
	if e, ok := d.elements[tag.SpecificCharacterSet]; ok {
		if sv, ok := e.Value.(StringValue); ok {
			cs, err := charset.Resolve(strings.TrimRight(string(sv.Raw), " \x00"), config.Lenient)
			if err == nil {
				return cs
			}
		}
	}
	if d.parent != nil {
		return d.parent.ResolvedEncoding()
	}
	return charset.Default()
}

// ToOwned returns a deep copy of d whose elements (recursively, into
// sequence items) are fully owned.
func (d *Dataset) ToOwned() *Dataset {
	out := New(d.parent)
	for _, t := range d.order {
		out.Insert(d.elements[t].ToOwned())
	}
	return out
}

// StripPrivateTags removes every private-creator declaration matching
// filter (or all of them if filter is nil) and every private-data element
// in its slot, recursively into nested sequence items (property P5).
// Returns the number of elements removed.
func (d *Dataset) StripPrivateTags(filter func(creator string) bool) int {
	removed := 0
	var toRemove []tag.Tag
	for _, t := range d.order {
		if t.IsPrivateCreator() {
			g, ok := d.priv.slots[t.Group()]
			c := ""
			if ok {
				c = g[t.Element()]
			}
			if filter == nil || filter(c) {
				toRemove = append(toRemove, t)
			}
		} else if t.IsPrivateData() {
			if c, ok := d.GetCreator(t); ok {
				if filter == nil || filter(c) {
					toRemove = append(toRemove, t)
				}
			} else {
				// Orphan private data with no creator cannot be
				// attributed, so it is stripped only when no filter
				// is given.
				if filter == nil {
					toRemove = append(toRemove, t)
				}
			}
		}
	}
	for _, t := range toRemove {
		d.Remove(t)
		removed++
	}
	for _, t := range d.order {
		e := d.elements[t]
		if sv, ok := e.Value.(SequenceValue); ok {
			for _, item := range sv.Items {
				removed += item.StripPrivateTags(filter)
			}
		}
	}
	return removed
}
