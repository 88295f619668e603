package arena

import "unsafe"

// Key is an identifier type the arena can split into bucket/slot/item fields.
// Wider keys are rejected at compile time: a 64-bit bucket table would not fit.
type Key interface {
	~uint16 | ~uint32
}

type cell[T any] struct {
	live bool
	rec  T
}

// Arena maps ids to in-place constructed records.
// It is not safe for concurrent use; the replay hotpath owns it exclusively.
type Arena[ID Key, T any] struct {
	construct func(id ID) T

	buckets [][][]cell[T]

	itemBits uint
	slotBits uint
	itemMask ID
	slotMask ID

	live int
}

// New creates an arena. construct builds the record stored for a fresh id.
func New[ID Key, T any](construct func(id ID) T) *Arena[ID, T] {
	var zero ID
	digits := uint(unsafe.Sizeof(zero)) * 8

	bucketBits := digits / 2
	slotBits := digits / 4
	itemBits := digits / 4

	return &Arena[ID, T]{
		construct: construct,
		buckets:   make([][][]cell[T], 1<<bucketBits),
		itemBits:  itemBits,
		slotBits:  slotBits,
		itemMask:  ID(1)<<itemBits - 1,
		slotMask:  ID(1)<<slotBits - 1,
	}
}

// Invalid returns the sentinel id (all bits set) that can never hold a record.
func Invalid[ID Key]() ID {
	return ^ID(0)
}

func (a *Arena[ID, T]) split(id ID) (bucket, slot, item int) {
	item = int(id & a.itemMask)
	slot = int((id >> a.itemBits) & a.slotMask)
	bucket = int(id >> (a.itemBits + a.slotBits))
	return bucket, slot, item
}

// Create constructs a new record for id. It fails for the sentinel id and when
// the id already holds a live record, which is left untouched.
func (a *Arena[ID, T]) Create(id ID) (*T, bool) {
	c := a.cell(id)
	if c == nil || c.live {
		return nil, false
	}
	a.fill(c, id)
	return &c.rec, true
}

// Retrieve returns the live record for id, constructing it first if needed.
// It fails only for the sentinel id.
func (a *Arena[ID, T]) Retrieve(id ID) (*T, bool) {
	c := a.cell(id)
	if c == nil {
		return nil, false
	}
	if !c.live {
		a.fill(c, id)
	}
	return &c.rec, true
}

// Find looks id up without allocating.
func (a *Arena[ID, T]) Find(id ID) (*T, bool) {
	b, s, i := a.split(id)

	bucket := a.buckets[b]
	if bucket == nil {
		return nil, false
	}
	slot := bucket[s]
	if slot == nil {
		return nil, false
	}
	c := &slot[i]
	if !c.live {
		return nil, false
	}
	return &c.rec, true
}

// Remove destroys the record in place. Its storage is kept for reuse.
func (a *Arena[ID, T]) Remove(id ID) {
	b, s, i := a.split(id)
	if a.buckets[b] == nil || a.buckets[b][s] == nil {
		return
	}

	c := &a.buckets[b][s][i]
	if !c.live {
		return
	}

	var zero T
	c.rec = zero
	c.live = false
	a.live--
}

// Len returns the number of live records.
func (a *Arena[ID, T]) Len() int {
	return a.live
}

// Range calls fn for every live record in ascending id order until fn returns false.
func (a *Arena[ID, T]) Range(fn func(id ID, rec *T) bool) {
	for b, bucket := range a.buckets {
		if bucket == nil {
			continue
		}
		for s, slot := range bucket {
			if slot == nil {
				continue
			}
			for i := range slot {
				if !slot[i].live {
					continue
				}
				id := ID(b)<<(a.itemBits+a.slotBits) | ID(s)<<a.itemBits | ID(i)
				if !fn(id, &slot[i].rec) {
					return
				}
			}
		}
	}
}

// cell returns the storage for id, allocating its bucket and slot on first touch.
func (a *Arena[ID, T]) cell(id ID) *cell[T] {
	if id == Invalid[ID]() {
		return nil
	}

	b, s, i := a.split(id)

	if a.buckets[b] == nil {
		a.buckets[b] = make([][]cell[T], 1<<a.slotBits)
	}
	bucket := a.buckets[b]

	if bucket[s] == nil {
		bucket[s] = make([]cell[T], 1<<a.itemBits)
	}

	return &bucket[s][i]
}

func (a *Arena[ID, T]) fill(c *cell[T], id ID) {
	if a.construct != nil {
		c.rec = a.construct(id)
	} else {
		var zero T
		c.rec = zero
	}
	c.live = true
	a.live++
}
