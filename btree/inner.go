package btree

import (
	"bytes"
	"sort"
)

// nodeRef is a tagged reference to a child node. Children live as Go
// heap objects owned by their parent, never as on-page pointers: this
// engine keeps no disk representation, so there is nothing to gain
// from encoding child addresses as bytes the way pivots are.
type nodeRef struct {
	leaf  *LeafNode
	inner *InnerNode
}

func leafRef(l *LeafNode) nodeRef   { return nodeRef{leaf: l} }
func innerRef(n *InnerNode) nodeRef { return nodeRef{inner: n} }

func (r nodeRef) isLeaf() bool { return r.leaf != nil }

// InnerNode dispatches over a row of pivot keys stored in its page's
// slot directory and a parallel slice of child references. For pivot
// count p, there are p+1 children: children[0] holds every key less
// than pivots[0], and children[i+1] holds every key in
// [pivots[i], pivots[i+1]) (or up to +Inf for the last child).
//
// Pivots carry no value array — each record is just the raw key bytes,
// since the slot's length already gives the key's length and there is
// no value_count to track.
type InnerNode struct {
	page     *Page
	children []nodeRef
}

// NewInnerNode wraps page as a fresh inner node with a single child
// and no pivots.
func NewInnerNode(page *Page, firstChild nodeRef) *InnerNode {
	page.reset()
	return &InnerNode{page: page, children: []nodeRef{firstChild}}
}

func (n *InnerNode) pivotCount() int {
	return (n.page.freeStart() - headerSize) / slotSize
}

func (n *InnerNode) slotPos(i int) int {
	return headerSize + i*slotSize
}

func (n *InnerNode) pivotAt(i int) []byte {
	off, length := readSlot(n.page, n.slotPos(i))
	return n.page[off : off+length]
}

// ChildCount returns the number of children (always pivotCount+1).
func (n *InnerNode) ChildCount() int {
	return n.pivotCount() + 1
}

// smallestChildGE returns the index of the child subtree that may
// contain key: the smallest index c such that every key in children[c]
// is >= the pivot guarding it and key has not yet reached the next
// pivot. Concretely: the number of pivots that are <= key.
//
// This resolves to a strict '>' search rather than '>=': pivots[i] is
// itself the smallest key living in children[i+1], so a lookup for a
// key equal to pivots[i] must land in children[i+1], not children[i].
func (n *InnerNode) smallestChildGE(key []byte) int {
	cnt := n.pivotCount()
	return sort.Search(cnt, func(i int) bool {
		return bytes.Compare(n.pivotAt(i), key) > 0
	})
}

// Child returns the child reference key should be dispatched to.
func (n *InnerNode) Child(key []byte) nodeRef {
	return n.children[n.smallestChildGE(key)]
}

// InsertPivot records that child now owns every key >= pivotKey that
// was previously owned by the child immediately to its left, splitting
// that ownership at pivotKey. idx must be smallestChildGE(pivotKey) as
// observed before the insert (i.e. the position the new pivot belongs
// at). Returns errOutOfSpace if the page has no room, in which case
// the caller should Split and retry.
func (n *InnerNode) InsertPivot(idx int, pivotKey []byte, child nodeRef) error {
	pos := n.slotPos(idx)
	saved := n.page.freeStart()
	// See LeafNode.insertNew: shiftStart moves the directory tail in
	// place, so rewinding freeStart alone on an allocEnd failure would
	// leave that tail duplicated/lost. Save it and restore verbatim.
	savedTail := append([]byte(nil), n.page[pos:saved]...)
	if err := n.page.shiftStart(pos, slotSize); err != nil {
		return err
	}
	alloc, err := n.page.allocEnd(layout{size: len(pivotKey), align: 1})
	if err != nil {
		copy(n.page[pos:saved], savedTail)
		n.page.setFreeStart(saved)
		return err
	}
	copy(alloc.bytes, pivotKey)
	writeSlot(n.page, pos, alloc.offset, len(pivotKey))

	n.children = append(n.children, nodeRef{})
	copy(n.children[idx+2:], n.children[idx+1:])
	n.children[idx+1] = child
	return nil
}

func writePivots(page *Page, pivots [][]byte) {
	for _, key := range pivots {
		slotAlloc, err := page.allocStart(layout{size: slotSize, align: 1})
		if err != nil {
			panic("btree: writePivots: slot directory overflowed a page that held this data before")
		}
		recAlloc, err := page.allocEnd(layout{size: len(key), align: 1})
		if err != nil {
			panic("btree: writePivots: record region overflowed a page that held this data before")
		}
		copy(recAlloc.bytes, key)
		writeSlot(page, slotAlloc.offset, recAlloc.offset, len(key))
	}
}

// Split divides this node's pivots and children across itself and
// newPage, symmetric to LeafNode.Split: the middle pivot is not
// duplicated into either half but promoted to the caller, who is
// expected to install it as a pivot in this node's parent.
func (n *InnerNode) Split(newPage *Page) (*InnerNode, []byte) {
	cnt := n.pivotCount()
	pivots := make([][]byte, cnt)
	for i := 0; i < cnt; i++ {
		pivots[i] = append([]byte(nil), n.pivotAt(i)...)
	}
	mid := cnt / 2
	promoted := pivots[mid]

	leftChildren := append([]nodeRef{}, n.children[:mid+1]...)
	rightChildren := append([]nodeRef{}, n.children[mid+1:]...)

	n.page.reset()
	writePivots(n.page, pivots[:mid])
	n.children = leftChildren

	right := NewInnerNode(newPage, rightChildren[0])
	writePivots(right.page, pivots[mid+1:])
	right.children = rightChildren

	return right, promoted
}
