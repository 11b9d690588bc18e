package btree

import (
	"bytes"
	"sort"
)

// LeafNode is a page interpreted as a sorted directory of variable-length
// key/value-array records. Slots are kept in ascending key order at all
// times, so lookups are a binary search and scans are a linear walk.
type LeafNode struct {
	page      *Page
	valLayout ValueLayout
}

// NewLeafNode wraps page as an empty leaf.
func NewLeafNode(page *Page, valLayout ValueLayout) *LeafNode {
	page.reset()
	return &LeafNode{page: page, valLayout: valLayout}
}

func (l *LeafNode) slotCount() int {
	return (l.page.freeStart() - headerSize) / slotSize
}

func (l *LeafNode) slotPos(i int) int {
	return headerSize + i*slotSize
}

func (l *LeafNode) entryAt(i int) pageEntry {
	off, length := readSlot(l.page, l.slotPos(i))
	return pageEntry{rec: l.page[off : off+entryHeaderSize+length]}
}

// EntryCount returns the number of live records.
func (l *LeafNode) EntryCount() int {
	return l.slotCount()
}

// search returns the index of key in the slot directory and true, or
// the index at which it would be inserted to keep the directory sorted
// and false.
func (l *LeafNode) search(key []byte) (int, bool) {
	n := l.slotCount()
	i := sort.Search(n, func(i int) bool {
		return bytes.Compare(l.entryAt(i).key(), key) >= 0
	})
	if i < n && bytes.Equal(l.entryAt(i).key(), key) {
		return i, true
	}
	return i, false
}

// Find returns an iterator over key's values, or false if key is
// absent.
func (l *LeafNode) Find(key []byte) (*ValuesIter, bool) {
	idx, ok := l.search(key)
	if !ok {
		return nil, false
	}
	e := l.entryAt(idx)
	return e.valuesIter(l.valLayout), true
}

// LeafVisitFunc is called once per record in ascending key order during
// a Scan. Returning false stops the scan early.
type LeafVisitFunc func(key []byte, values *ValuesIter) bool

// Scan walks records whose key is in [lo, hi) in ascending order. A nil
// lo starts at the first record; a nil hi runs to the last.
func (l *LeafNode) Scan(lo, hi []byte, fn LeafVisitFunc) {
	n := l.slotCount()
	start := 0
	if lo != nil {
		start = sort.Search(n, func(i int) bool {
			return bytes.Compare(l.entryAt(i).key(), lo) >= 0
		})
	}
	for i := start; i < n; i++ {
		e := l.entryAt(i)
		if hi != nil && bytes.Compare(e.key(), hi) >= 0 {
			return
		}
		if !fn(e.key(), e.valuesIter(l.valLayout)) {
			return
		}
	}
}

// Insert adds val to key's value array, creating the record if key is
// not yet present. Returns errOutOfSpace if the leaf has no room;
// callers are expected to compact or split and retry.
func (l *LeafNode) Insert(key, val []byte) error {
	idx, found := l.search(key)
	if found {
		return l.extend(idx, val)
	}
	return l.insertNew(idx, key, val)
}

// extend grows the record at slot idx by one value. The new record is
// bump-allocated fresh at the tail of the page and the old bytes are
// abandoned as garbage: this is the source of the fragmentation that
// Compact later reclaims.
//
// The allocation is aligned to the value layout's own alignment, not a
// fixed byte boundary: the key ‖ padding ‖ values region must place
// every value at an address that is a multiple of valLayout.Align
// regardless of what that alignment is, so the allocation that backs
// the region has to honor the same alignment, not a smaller one.
func (l *LeafNode) extend(idx int, val []byte) error {
	pos := l.slotPos(idx)
	off, length := readSlot(l.page, pos)
	old := pageEntry{rec: l.page[off : off+entryHeaderSize+length]}
	keyLen := old.keyLen()
	align := int(l.valLayout.Align)
	size := int(l.valLayout.Size)
	newCount := old.valCount() + 1
	start := valuesStart(keyLen, align)
	newDataLen := start + newCount*size
	newTotal := entryHeaderSize + newDataLen

	alloc, err := l.page.allocEnd(layout{size: newTotal, align: align})
	if err != nil {
		return err
	}
	ne := pageEntry{rec: alloc.bytes}
	ne.setKeyLen(keyLen)
	ne.setValCount(newCount)
	copy(ne.data(), old.data()[:start+old.valCount()*size])
	copy(ne.data()[newDataLen-size:], val)
	writeSlot(l.page, pos, alloc.offset, newDataLen)
	return nil
}

// insertNew opens a new slot at idx and allocates a fresh one-value
// record for key.
func (l *LeafNode) insertNew(idx int, key, val []byte) error {
	keyLen := len(key)
	align := int(l.valLayout.Align)
	size := int(l.valLayout.Size)
	start := valuesStart(keyLen, align)
	dataLen := start + size
	total := entryHeaderSize + dataLen

	pos := l.slotPos(idx)
	savedFreeStart := l.page.freeStart()
	// shiftStart moves the directory tail in place; save it so a
	// subsequent allocEnd failure can be rolled back byte-for-byte
	// instead of just rewinding freeStart, which would leave the moved
	// bytes duplicated/lost (the true tail entries become unreachable
	// past the rewound freeStart, silently corrupting the directory).
	savedTail := append([]byte(nil), l.page[pos:savedFreeStart]...)
	if err := l.page.shiftStart(pos, slotSize); err != nil {
		return err
	}
	alloc, err := l.page.allocEnd(layout{size: total, align: align})
	if err != nil {
		copy(l.page[pos:savedFreeStart], savedTail)
		l.page.setFreeStart(savedFreeStart)
		return err
	}
	e := pageEntry{rec: alloc.bytes}
	e.setKeyLen(keyLen)
	e.setValCount(1)
	data := e.data()
	copy(data[:keyLen], key)
	copy(data[start:start+size], val)
	writeSlot(l.page, pos, alloc.offset, dataLen)
	return nil
}

type leafItem struct {
	key  []byte
	vals [][]byte
}

func (l *LeafNode) items() []leafItem {
	n := l.slotCount()
	items := make([]leafItem, n)
	for i := 0; i < n; i++ {
		e := l.entryAt(i)
		items[i] = leafItem{
			key:  append([]byte(nil), e.key()...),
			vals: e.valuesIter(l.valLayout).All(),
		}
	}
	return items
}

// writeItems repopulates an empty (just-reset) page with items in
// order, bump-allocating each slot and record from scratch. Because
// items are written in ascending order, allocStart naturally keeps the
// slot directory sorted.
func writeItems(page *Page, vl ValueLayout, items []leafItem) {
	align := int(vl.Align)
	size := int(vl.Size)
	for _, it := range items {
		keyLen := len(it.key)
		start := valuesStart(keyLen, align)
		dataLen := start + len(it.vals)*size
		total := entryHeaderSize + dataLen

		slotAlloc, err := page.allocStart(layout{size: slotSize, align: 1})
		if err != nil {
			panic("btree: writeItems: slot directory overflowed a page that held this data before")
		}
		recAlloc, err := page.allocEnd(layout{size: total, align: align})
		if err != nil {
			panic("btree: writeItems: record region overflowed a page that held this data before")
		}
		e := pageEntry{rec: recAlloc.bytes}
		e.setKeyLen(keyLen)
		e.setValCount(len(it.vals))
		data := e.data()
		copy(data[:keyLen], it.key)
		off := start
		for _, v := range it.vals {
			copy(data[off:off+size], v)
			off += size
		}
		writeSlot(page, slotAlloc.offset, recAlloc.offset, dataLen)
	}
}

// Compact rewrites the page in place, eliminating garbage left behind
// by extend so that freeLen reflects the true amount of reusable space.
func (l *LeafNode) Compact() {
	items := l.items()
	l.page.reset()
	writeItems(l.page, l.valLayout, items)
}

// Split divides this leaf's records across itself and newPage roughly
// in half, returning the new right sibling and the smallest key now
// held by it (the pivot to promote into the parent).
func (l *LeafNode) Split(newPage *Page) (*LeafNode, []byte) {
	items := l.items()
	mid := len(items) / 2

	l.page.reset()
	writeItems(l.page, l.valLayout, items[:mid])

	right := NewLeafNode(newPage, l.valLayout)
	writeItems(right.page, l.valLayout, items[mid:])

	pivot := append([]byte(nil), items[mid].key...)
	return right, pivot
}
