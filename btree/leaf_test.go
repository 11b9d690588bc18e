package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func val(n byte) []byte { return []byte{n, n, n, n} }

func TestLeafInsertAndFind(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)

	require.NoError(t, leaf.Insert([]byte("banana"), val(1)))
	require.NoError(t, leaf.Insert([]byte("apple"), val(2)))
	require.NoError(t, leaf.Insert([]byte("cherry"), val(3)))
	require.Equal(t, 3, leaf.EntryCount())

	it, ok := leaf.Find([]byte("apple"))
	require.True(t, ok)
	v, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, val(2), v)

	_, ok = leaf.Find([]byte("missing"))
	require.False(t, ok)
}

func TestLeafKeysStaySorted(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	keys := []string{"d", "b", "a", "c", "e"}
	for i, k := range keys {
		require.NoError(t, leaf.Insert([]byte(k), val(byte(i))))
	}

	var seen []string
	leaf.Scan(nil, nil, func(key []byte, _ *ValuesIter) bool {
		seen = append(seen, string(key))
		return true
	})
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestLeafInsertExtendsExistingKey(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)

	require.NoError(t, leaf.Insert([]byte("k"), val(1)))
	require.NoError(t, leaf.Insert([]byte("k"), val(2)))
	require.NoError(t, leaf.Insert([]byte("k"), val(3)))
	require.Equal(t, 1, leaf.EntryCount())

	it, ok := leaf.Find([]byte("k"))
	require.True(t, ok)
	require.Equal(t, 3, it.Len())
	var got []byte
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v[0])
	}
	require.Equal(t, []byte{1, 2, 3}, got)
}

func TestLeafScanRange(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	for i := 0; i < 10; i++ {
		require.NoError(t, leaf.Insert([]byte(fmt.Sprintf("k%02d", i)), val(byte(i))))
	}

	var seen []string
	leaf.Scan([]byte("k03"), []byte("k07"), func(key []byte, _ *ValuesIter) bool {
		seen = append(seen, string(key))
		return true
	})
	require.Equal(t, []string{"k03", "k04", "k05", "k06"}, seen)
}

func TestLeafCompactReclaimsFragmentation(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	require.NoError(t, leaf.Insert([]byte("k"), val(1)))
	freeBefore := leaf.page.freeLen()

	for i := byte(2); i < 20; i++ {
		require.NoError(t, leaf.Insert([]byte("k"), val(i)))
	}
	freeAfterExtends := leaf.page.freeLen()
	require.Less(t, freeAfterExtends, freeBefore)

	leaf.Compact()
	require.Equal(t, 1, leaf.EntryCount())
	it, ok := leaf.Find([]byte("k"))
	require.True(t, ok)
	require.Equal(t, 19, it.Len())
}

func TestLeafSplitDividesRoughlyInHalf(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	for i := 0; i < 10; i++ {
		require.NoError(t, leaf.Insert([]byte(fmt.Sprintf("k%02d", i)), val(byte(i))))
	}

	right, pivot := leaf.Split(newPage())
	require.Equal(t, 5, leaf.EntryCount())
	require.Equal(t, 5, right.EntryCount())
	require.Equal(t, []byte("k05"), pivot)

	_, ok := leaf.Find([]byte("k04"))
	require.True(t, ok)
	_, ok = leaf.Find([]byte("k05"))
	require.False(t, ok)
	_, ok = right.Find([]byte("k05"))
	require.True(t, ok)
}

// TestLeafInsertOutOfSpaceAtNonTailPreservesDirectory fills a leaf to
// the exact byte so that inserting one more record requires the
// shiftStart gap-open to succeed (it only needs 4 bytes) while the
// following allocEnd fails (it needs a full record's worth). The new
// key is chosen to sort before every existing key, so the failed
// insert's shiftStart must move the entire existing slot directory —
// exercising the rollback path that a tail-only append never would.
func TestLeafInsertOutOfSpaceAtNonTailPreservesDirectory(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)

	// Each "k%07d" key is 8 bytes; with this layout every record is
	// exactly 16 bytes (4-byte header + 8-byte key + 4-byte value, no
	// padding since 4+8 is already a multiple of 4) plus a 4-byte slot,
	// 20 bytes total. The page has PageSize-headerSize = 16372 free
	// bytes, which holds exactly 818 such records with 12 left over —
	// too little for one more (20 needed) but enough to open the slot
	// gap (4 needed).
	const n = 818
	for i := 0; i < n; i++ {
		require.NoError(t, leaf.Insert([]byte(fmt.Sprintf("k%07d", i)), val(byte(i))))
	}
	require.Equal(t, 12, leaf.page.freeLen())

	err := leaf.Insert([]byte("j9999999"), val(0xFF))
	require.ErrorIs(t, err, errOutOfSpace)

	require.Equal(t, n, leaf.EntryCount(), "the failed insert must not change the entry count")
	_, ok := leaf.Find([]byte("j9999999"))
	require.False(t, ok, "the failed insert must not appear to have landed")

	for _, i := range []int{0, 400, n - 1} {
		it, ok := leaf.Find([]byte(fmt.Sprintf("k%07d", i)))
		require.True(t, ok, "key %d must still be present after the failed insert", i)
		v, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, byte(i), v[0], "key %d's value must be untouched, not a shifted duplicate of a neighbor", i)
	}
}

func TestLeafInsertOutOfSpaceReported(t *testing.T) {
	vl := ValueLayout{Size: 4, Align: 4}
	leaf := NewLeafNode(newPage(), vl)
	big := make([]byte, maxKeyLen)
	for i := range big {
		big[i] = byte(i)
	}

	var lastErr error
	for i := 0; i < PageSize; i++ {
		key := append(append([]byte(nil), big[:8]...), byte(i), byte(i>>8))
		if err := leaf.Insert(key, val(1)); err != nil {
			lastErr = err
			break
		}
	}
	require.ErrorIs(t, lastErr, errOutOfSpace)
}
