package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInnerNodeDispatchSingleChild(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	inner := NewInnerNode(newPage(), leafRef(leaf))

	require.Equal(t, 1, inner.ChildCount())
	require.Equal(t, leaf, inner.Child([]byte("anything")).leaf)
}

func TestInnerNodeDispatchAfterInsertPivot(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leftLeaf := NewLeafNode(newPage(), vl)
	rightLeaf := NewLeafNode(newPage(), vl)
	inner := NewInnerNode(newPage(), leafRef(leftLeaf))

	require.NoError(t, inner.InsertPivot(0, []byte("m"), leafRef(rightLeaf)))
	require.Equal(t, 2, inner.ChildCount())

	require.Equal(t, leftLeaf, inner.Child([]byte("a")).leaf)
	require.Equal(t, rightLeaf, inner.Child([]byte("m")).leaf, "a key equal to the pivot belongs to the right child")
	require.Equal(t, rightLeaf, inner.Child([]byte("z")).leaf)
}

func TestInnerNodeSplitPromotesMiddlePivotOnly(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaves := make([]*LeafNode, 6)
	for i := range leaves {
		leaves[i] = NewLeafNode(newPage(), vl)
	}
	inner := NewInnerNode(newPage(), leafRef(leaves[0]))
	pivots := []string{"b", "d", "f", "h", "j"}
	for i, p := range pivots {
		require.NoError(t, inner.InsertPivot(i, []byte(p), leafRef(leaves[i+1])))
	}
	require.Equal(t, 6, inner.ChildCount())

	right, promoted := inner.Split(newPage())
	require.Equal(t, []byte("f"), promoted)
	require.Equal(t, 3, inner.ChildCount())
	require.Equal(t, 3, right.ChildCount())

	require.Equal(t, leaves[0], inner.Child([]byte("a")).leaf)
	require.Equal(t, leaves[2], inner.Child([]byte("e")).leaf)
	require.Equal(t, leaves[3], right.Child([]byte("f")).leaf)
	require.Equal(t, leaves[5], right.Child([]byte("z")).leaf)
}

// TestInnerNodeInsertPivotOutOfSpaceAtNonTailPreservesDirectory mirrors
// TestLeafInsertOutOfSpaceAtNonTailPreservesDirectory for InnerNode:
// fills the pivot directory to the exact byte so that one more pivot's
// shiftStart succeeds (it only needs 4 bytes) while its allocEnd fails
// (it needs the pivot key's full length), then inserts at idx 0 — the
// worst case, shifting every existing pivot — and checks nothing moved.
func TestInnerNodeInsertPivotOutOfSpaceAtNonTailPreservesDirectory(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	inner := NewInnerNode(newPage(), leafRef(leaf))

	// Each "p%07d" pivot key is 8 bytes with no header, so every record
	// costs 8 (key) + 4 (slot) = 12 bytes. The page has 16372 free
	// bytes, holding exactly 1364 pivots with 4 left over — too little
	// for one more (12 needed) but enough to open the slot gap (4
	// needed), regardless of where in the directory it's opened.
	const n = 1364
	for i := 0; i < n; i++ {
		require.NoError(t, inner.InsertPivot(i, []byte(fmt.Sprintf("p%07d", i)), leafRef(leaf)))
	}
	require.Equal(t, 4, inner.page.freeLen())
	require.Equal(t, n+1, inner.ChildCount())

	err := inner.InsertPivot(0, []byte("o9999999"), leafRef(leaf))
	require.ErrorIs(t, err, errOutOfSpace)

	require.Equal(t, n, inner.pivotCount(), "the failed insert must not change the pivot count")
	require.Equal(t, n+1, inner.ChildCount(), "the failed insert must not change the child count")

	for _, i := range []int{0, 700, n - 1} {
		require.Equal(t, []byte(fmt.Sprintf("p%07d", i)), inner.pivotAt(i), "pivot %d must be untouched, not a shifted duplicate of a neighbor", i)
	}
}
