package btree

import "encoding/binary"

// ValueLayout describes the fixed shape of every value stored in a
// tree: Size bytes, aligned to Align. Size must be a multiple of
// Align, and Align must be a power of two (the standard layout rule).
type ValueLayout struct {
	Size  uint32
	Align uint32
}

func (vl ValueLayout) validate() error {
	if vl.Align == 0 || !isPowerOfTwo(int(vl.Align)) {
		return ErrBadLayout
	}
	if vl.Size == 0 || vl.Size%vl.Align != 0 {
		return ErrBadLayout
	}
	return nil
}

func (vl ValueLayout) asLayout() layout {
	return layout{size: int(vl.Size), align: int(vl.Align)}
}

// slotSize is the fixed size of an EntryRef: a 2-byte offset and a
// 2-byte length, both relative to the owning page.
const slotSize = 4

func readSlot(p *Page, pos int) (offset, length int) {
	offset = int(binary.LittleEndian.Uint16(p[pos : pos+2]))
	length = int(binary.LittleEndian.Uint16(p[pos+2 : pos+4]))
	return
}

func writeSlot(p *Page, pos, offset, length int) {
	binary.LittleEndian.PutUint16(p[pos:pos+2], uint16(offset))
	binary.LittleEndian.PutUint16(p[pos+2:pos+4], uint16(length))
}

// entryHeaderSize is the size of PageEntry's fixed prefix: key_len and
// val_count, each a u16.
const entryHeaderSize = 4

// pageEntry is a view over a leaf record's bytes: a 4-byte header
// (key_len, val_count) followed by the data region (key ‖ padding ‖
// values). rec must span exactly entryHeaderSize+dataLen bytes.
type pageEntry struct {
	rec []byte
}

func (e pageEntry) keyLen() int {
	return int(binary.LittleEndian.Uint16(e.rec[0:2]))
}

func (e pageEntry) valCount() int {
	return int(binary.LittleEndian.Uint16(e.rec[2:4]))
}

func (e pageEntry) setValCount(n int) {
	binary.LittleEndian.PutUint16(e.rec[2:4], uint16(n))
}

func (e pageEntry) setKeyLen(n int) {
	binary.LittleEndian.PutUint16(e.rec[0:2], uint16(n))
}

func (e pageEntry) data() []byte {
	return e.rec[entryHeaderSize:]
}

func (e pageEntry) key() []byte {
	return e.data()[:e.keyLen()]
}

// valuesStart returns the offset, relative to data(), where the value
// array begins: immediately after the key, padded so the first value
// satisfies align.
func valuesStart(keyLen, align int) int {
	return keyLen + padFor(entryHeaderSize+keyLen, align)
}

// valuesIter returns a lazy, restartable sequence over this entry's
// values under the given layout.
func (e pageEntry) valuesIter(vl ValueLayout) *ValuesIter {
	start := valuesStart(e.keyLen(), int(vl.Align))
	return &ValuesIter{layout: vl, data: e.data()[start:]}
}

// recordSize returns the total entryHeaderSize+dataLen footprint for a
// record holding the given key length and value count under layout vl.
func recordSize(keyLen int, valCount int, vl ValueLayout) int {
	dataLen := valuesStart(keyLen, int(vl.Align)) + valCount*int(vl.Size)
	return entryHeaderSize + dataLen
}

// ValuesIter is a lazy, finite, restartable sequence over a single
// entry's fixed-size values. It holds a view into page memory: callers
// must not retain a ValuesIter (or any value it yields) across a
// mutation of the owning tree.
type ValuesIter struct {
	layout ValueLayout
	data   []byte
	offset int
}

// Next returns the next value and true, or (nil, false) once
// exhausted.
func (it *ValuesIter) Next() ([]byte, bool) {
	size := int(it.layout.Size)
	end := it.offset + size
	if end > len(it.data) {
		return nil, false
	}
	v := it.data[it.offset:end]
	it.offset = end
	return v, true
}

// Len reports the exact number of values remaining.
func (it *ValuesIter) Len() int {
	return (len(it.data) - it.offset) / int(it.layout.Size)
}

// All drains the iterator into a freshly allocated slice of copies,
// safe to retain across mutations.
func (it *ValuesIter) All() [][]byte {
	out := make([][]byte, 0, it.Len())
	for {
		v, ok := it.Next()
		if !ok {
			return out
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, cp)
	}
}
