package dataset

import "github.com/opendcm-go/dicom/tag"

// privateRegistry tracks, for one dataset's scope, which private-creator
// slots (0x10..0xFF) have been allocated in which odd groups, per §4.5.
// Freshly constructed for every Dataset (including sequence items), since
// private reservations do not inherit across item boundaries (§4.3).
type privateRegistry struct {
	// slots maps group -> slot byte -> creator string.
	slots map[uint16]map[uint16]string
}

func newPrivateRegistry() *privateRegistry {
	return &privateRegistry{slots: make(map[uint16]map[uint16]string)}
}

// AllocateSlot reserves (or returns the existing) slot for creator within
// group, returning the full private-creator-declaration tag (g,00xx).
func (d *Dataset) AllocateSlot(group uint16, creator string) tag.Tag {
	g, ok := d.priv.slots[group]
	if !ok {
		g = make(map[uint16]string)
		d.priv.slots[group] = g
	}
	for slot, c := range g {
		if c == creator {
			return tag.New(group, slot)
		}
	}
	var slot uint16 = 0x10
	for {
		if _, used := g[slot]; !used {
			break
		}
		slot++
		if slot > 0xFF {
			// Exhausted; caller must compact first. Return the last slot
			// rather than silently overwriting a reservation.
			return tag.New(group, 0xFF)
		}
	}
	g[slot] = creator
	return tag.New(group, slot)
}

// Compact renumbers a group's slots to remove gaps (lowest creator gets
// 0x10, next 0x11, ...), returning the old->new full-tag remapping so
// callers can relocate the corresponding private-data elements.
func (d *Dataset) Compact(group uint16) map[tag.Tag]tag.Tag {
	g, ok := d.priv.slots[group]
	if !ok || len(g) == 0 {
		return nil
	}
	oldSlots := make([]uint16, 0, len(g))
	for s := range g {
		oldSlots = append(oldSlots, s)
	}
	// Simple insertion sort; the slot count per group is at most 240.
	for i := 1; i < len(oldSlots); i++ {
		for j := i; j > 0 && oldSlots[j-1] > oldSlots[j]; j-- {
			oldSlots[j-1], oldSlots[j] = oldSlots[j], oldSlots[j-1]
		}
	}
	remap := make(map[tag.Tag]tag.Tag, len(oldSlots))
	newGroup := make(map[uint16]string, len(oldSlots))
	next := uint16(0x10)
	for _, old := range oldSlots {
		remap[tag.New(group, old)] = tag.New(group, next)
		newGroup[next] = g[old]
		next++
	}
	d.priv.slots[group] = newGroup
	return remap
}

// GetCreator returns the creator string reserved for t's slot, if t is
// private data and the creator declaration exists in this scope.
func (d *Dataset) GetCreator(t tag.Tag) (string, bool) {
	if !t.IsPrivateData() {
		return "", false
	}
	creatorTag := t.CreatorSlot()
	g, ok := d.priv.slots[t.Group()]
	if !ok {
		return "", false
	}
	c, ok := g[creatorTag.Element()]
	return c, ok
}

// FindOrphanPrivateElements returns tags of private-data elements in this
// dataset whose creator slot has no declaration (invariant I1).
func (d *Dataset) FindOrphanPrivateElements() []tag.Tag {
	var orphans []tag.Tag
	for _, t := range d.order {
		if !t.IsPrivateData() {
			continue
		}
		if _, ok := d.GetCreator(t); !ok {
			orphans = append(orphans, t)
		}
	}
	return orphans
}

// registerCreatorDeclaration records a private-creator declaration
// element as it is inserted, so later private-data lookups resolve it.
func (d *Dataset) registerCreatorDeclaration(t tag.Tag, creator string) {
	g, ok := d.priv.slots[t.Group()]
	if !ok {
		g = make(map[uint16]string)
		d.priv.slots[t.Group()] = g
	}
	g[t.Element()] = creator
}

// unregisterCreatorDeclaration drops t's slot reservation, dropping the
// group map entirely once its last slot is freed. Called when a
// private-creator declaration element is removed from the dataset, so the
// registry never outlives the element that populated it (property P5).
func (d *Dataset) unregisterCreatorDeclaration(t tag.Tag) {
	g, ok := d.priv.slots[t.Group()]
	if !ok {
		return
	}
	delete(g, t.Element())
	if len(g) == 0 {
		delete(d.priv.slots, t.Group())
	}
}
