package dataset

import (
	"testing"

	"github.com/opendcm-go/dicom/tag"
	"github.com/stretchr/testify/assert"
)

func TestInsertKeepsTagsSorted(t *testing.T) {
	ds := New(nil)
	ds.Insert(&Element{Tag: tag.New(0x0010, 0x0010), VR: "PN", Value: StringValue{Raw: []byte("Doe^John")}})
	ds.Insert(&Element{Tag: tag.New(0x0008, 0x0060), VR: "CS", Value: StringValue{Raw: []byte("CT")}})
	ds.Insert(&Element{Tag: tag.New(0x0020, 0x000D), VR: "UI", Value: StringValue{Raw: []byte("1.2.3")}})

	tags := ds.Tags()
	assert.Len(t, tags, 3)
	assert.Equal(t, tag.New(0x0008, 0x0060), tags[0])
	assert.Equal(t, tag.New(0x0010, 0x0010), tags[1])
	assert.Equal(t, tag.New(0x0020, 0x000D), tags[2])
}

func TestInsertReplacesExisting(t *testing.T) {
	ds := New(nil)
	tg := tag.New(0x0008, 0x0060)
	ds.Insert(&Element{Tag: tg, VR: "CS", Value: StringValue{Raw: []byte("CT")}})
	ds.Insert(&Element{Tag: tg, VR: "CS", Value: StringValue{Raw: []byte("MR")}})
	assert.Len(t, ds.Tags(), 1)
	s, _ := ds.GetString(tg)
	assert.Equal(t, "MR", s)
}

func TestRemove(t *testing.T) {
	ds := New(nil)
	tg := tag.New(0x0008, 0x0060)
	ds.Insert(&Element{Tag: tg, VR: "CS", Value: StringValue{Raw: []byte("CT")}})
	assert.True(t, ds.Remove(tg))
	assert.False(t, ds.Contains(tg))
	assert.False(t, ds.Remove(tg))
}

func TestGetIntFromNumericValue(t *testing.T) {
	ds := New(nil)
	tg := tag.New(0x0028, 0x0010)
	ds.Insert(&Element{Tag: tg, VR: "US", Value: NumericValue{Raw: []byte{0x40, 0x01}, ElementWidth: 2}})
	n, ok := ds.GetInt(tg)
	assert.True(t, ok)
	assert.EqualValues(t, 0x0140, n)
}

func TestGetIntFromSignedNumericValue(t *testing.T) {
	ds := New(nil)
	tg := tag.New(0x0028, 0x0106)
	ds.Insert(&Element{Tag: tg, VR: "SS", Value: NumericValue{Raw: []byte{0xFF, 0xFF}, ElementWidth: 2, Signed: true}})
	n, ok := ds.GetInt(tg)
	assert.True(t, ok)
	assert.EqualValues(t, -1, n)
}

func TestGetIntFromIntegerString(t *testing.T) {
	ds := New(nil)
	tg := tag.New(0x0020, 0x0013)
	ds.Insert(&Element{Tag: tg, VR: "IS", Value: StringValue{Raw: []byte("42")}})
	n, ok := ds.GetInt(tg)
	assert.True(t, ok)
	assert.EqualValues(t, 42, n)
}

func TestGetSequence(t *testing.T) {
	ds := New(nil)
	item := New(ds)
	item.Insert(&Element{Tag: tag.New(0x0008, 0x0060), VR: "CS", Value: StringValue{Raw: []byte("CT")}})
	tg := tag.New(0x0040, 0xA730)
	ds.Insert(&Element{Tag: tg, VR: "SQ", Value: SequenceValue{Items: []*Dataset{item}}})

	items, ok := ds.GetSequence(tg)
	assert.True(t, ok)
	assert.Len(t, items, 1)
	s, _ := items[0].GetString(tag.New(0x0008, 0x0060))
	assert.Equal(t, "CT", s)
}

func TestResolvedEncodingInheritsFromParent(t *testing.T) {
	root := New(nil)
	root.Insert(&Element{Tag: tag.SpecificCharacterSet, VR: "CS", Value: StringValue{Raw: []byte("ISO_IR 100")}})
	item := New(root)
	enc := item.ResolvedEncoding()
	assert.Equal(t, "ISO_IR 100", string(enc.Primary))
}

func TestResolvedEncodingDefaultsWithNoParent(t *testing.T) {
	ds := New(nil)
	enc := ds.ResolvedEncoding()
	assert.True(t, enc.IsUTF8FastPath())
}

func TestPrivateCreatorRegistrationAndLookup(t *testing.T) {
	ds := New(nil)
	creatorTag := tag.New(0x0009, 0x0010)
	ds.Insert(&Element{Tag: creatorTag, VR: "LO", Value: StringValue{Raw: []byte("ACME HEALTH 1.0")}})
	dataTag := tag.New(0x0009, 0x1001)
	ds.Insert(&Element{Tag: dataTag, VR: "LO", Value: StringValue{Raw: []byte("value")}})

	creator, ok := ds.GetCreator(dataTag)
	assert.True(t, ok)
	assert.Equal(t, "ACME HEALTH 1.0", creator)
	assert.Empty(t, ds.FindOrphanPrivateElements())
}

func TestFindOrphanPrivateElements(t *testing.T) {
	ds := New(nil)
	dataTag := tag.New(0x0009, 0x1001)
	ds.Insert(&Element{Tag: dataTag, VR: "LO", Value: StringValue{Raw: []byte("value")}})
	orphans := ds.FindOrphanPrivateElements()
	assert.Equal(t, []tag.Tag{dataTag}, orphans)
}

func TestStripPrivateTagsRemovesCreatorAndData(t *testing.T) {
	ds := New(nil)
	creatorTag := tag.New(0x0009, 0x0010)
	dataTag := tag.New(0x0009, 0x1001)
	publicTag := tag.New(0x0008, 0x0060)
	ds.Insert(&Element{Tag: creatorTag, VR: "LO", Value: StringValue{Raw: []byte("ACME HEALTH 1.0")}})
	ds.Insert(&Element{Tag: dataTag, VR: "LO", Value: StringValue{Raw: []byte("value")}})
	ds.Insert(&Element{Tag: publicTag, VR: "CS", Value: StringValue{Raw: []byte("CT")}})

	removed := ds.StripPrivateTags(nil)
	assert.Equal(t, 2, removed)
	assert.True(t, ds.Contains(publicTag))
	assert.False(t, ds.Contains(creatorTag))
	assert.False(t, ds.Contains(dataTag))

	_, ok := ds.GetCreator(dataTag)
	assert.False(t, ok, "creator registry must not outlive the stripped creator declaration")

	reallocated := ds.AllocateSlot(0x0009, "ACME HEALTH 1.0")
	assert.Equal(t, tag.New(0x0009, 0x0010), reallocated, "freed slot must be reusable from 0x10, not left reserved")
}

func TestAllocateSlotReusesExistingForSameCreator(t *testing.T) {
	ds := New(nil)
	a := ds.AllocateSlot(0x0009, "ACME HEALTH 1.0")
	b := ds.AllocateSlot(0x0009, "ACME HEALTH 1.0")
	assert.Equal(t, a, b)
}

func TestAllocateSlotAssignsDistinctSlots(t *testing.T) {
	ds := New(nil)
	a := ds.AllocateSlot(0x0009, "Creator A")
	b := ds.AllocateSlot(0x0009, "Creator B")
	assert.NotEqual(t, a, b)
}

func TestToOwnedDeepCopiesSequenceItems(t *testing.T) {
	ds := New(nil)
	item := New(ds)
	item.Insert(&Element{Tag: tag.New(0x0008, 0x0060), VR: "CS", Value: StringValue{Raw: []byte("CT")}})
	tg := tag.New(0x0040, 0xA730)
	ds.Insert(&Element{Tag: tg, VR: "SQ", Value: SequenceValue{Items: []*Dataset{item}}})

	owned := ds.ToOwned()
	items, _ := owned.GetSequence(tg)
	assert.Len(t, items, 1)
	assert.NotSame(t, item, items[0])
}
