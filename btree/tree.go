package btree

import (
	"bytes"
	"errors"
)

// BTree owns a root node and the pool its pages are drawn from. A tree
// is single-threaded: callers must not call Insert/Get concurrently on
// the same tree, though distinct trees may safely share one Pool.
type BTree struct {
	root      nodeRef
	valLayout ValueLayout
	pool      *Pool
}

// New creates an empty tree whose values all have the given layout,
// drawing pages from pool. A nil pool gets a private one.
func New(valLayout ValueLayout, pool *Pool) (*BTree, error) {
	if err := valLayout.validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		pool = NewPool()
	}
	root := NewLeafNode(pool.Get(), valLayout)
	return &BTree{root: leafRef(root), valLayout: valLayout, pool: pool}, nil
}

// Get returns an iterator over key's values, or false if key is absent.
func (t *BTree) Get(key []byte) (*ValuesIter, bool) {
	ref := t.root
	for !ref.isLeaf() {
		ref = ref.inner.Child(key)
	}
	return ref.leaf.Find(key)
}

// Insert appends val to key's value array, creating the record if
// absent. It returns ErrKeyTooLarge if key exceeds the maximum
// representable length, or ErrBadValueSize if val does not match the
// tree's value layout.
func (t *BTree) Insert(key, val []byte) error {
	if len(key) > maxKeyLen {
		return ErrKeyTooLarge
	}
	if uint32(len(val)) != t.valLayout.Size {
		return ErrBadValueSize
	}

	sub, err := t.insertRec(t.root, key, val)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}

	newRoot := NewInnerNode(t.pool.Get(), t.root)
	if err := newRoot.InsertPivot(0, sub.pivot, sub.right); err != nil {
		panic("btree: freshly split root overflowed immediately")
	}
	t.root = innerRef(newRoot)
	return nil
}

// splitInfo reports that a node split during an insert and must be
// grafted into its parent as a new pivot/child pair.
type splitInfo struct {
	pivot []byte
	right nodeRef
}

// insertRec descends to the leaf owning key, inserts, and propagates
// any resulting split back up one level at a time. It returns a
// non-nil splitInfo exactly when ref itself just split and its parent
// (or the caller of Insert, for the root) must install the new pivot.
func (t *BTree) insertRec(ref nodeRef, key, val []byte) (*splitInfo, error) {
	if ref.isLeaf() {
		return t.insertLeaf(ref.leaf, key, val)
	}
	return t.insertInner(ref.inner, key, val)
}

func (t *BTree) insertLeaf(leaf *LeafNode, key, val []byte) (*splitInfo, error) {
	err := leaf.Insert(key, val)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, errOutOfSpace) {
		return nil, err
	}

	leaf.Compact()
	if err := leaf.Insert(key, val); err == nil {
		return nil, nil
	} else if !errors.Is(err, errOutOfSpace) {
		return nil, err
	}

	right, pivot := leaf.Split(t.pool.Get())
	var insErr error
	if bytes.Compare(key, pivot) >= 0 {
		insErr = right.Insert(key, val)
	} else {
		insErr = leaf.Insert(key, val)
	}
	if insErr != nil {
		return nil, insErr
	}
	return &splitInfo{pivot: pivot, right: leafRef(right)}, nil
}

func (t *BTree) insertInner(inner *InnerNode, key, val []byte) (*splitInfo, error) {
	idx := inner.smallestChildGE(key)
	sub, err := t.insertRec(inner.children[idx], key, val)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}

	if err := inner.InsertPivot(idx, sub.pivot, sub.right); err == nil {
		return nil, nil
	} else if !errors.Is(err, errOutOfSpace) {
		return nil, err
	}

	right, promoted := inner.Split(t.pool.Get())
	var side *InnerNode
	if bytes.Compare(sub.pivot, promoted) >= 0 {
		side = right
	} else {
		side = inner
	}
	if err := side.InsertPivot(side.smallestChildGE(sub.pivot), sub.pivot, sub.right); err != nil {
		return nil, err
	}
	return &splitInfo{pivot: promoted, right: innerRef(right)}, nil
}
