package btree

import "errors"

// errOutOfSpace signals that a page-level allocation could not be
// satisfied. It never crosses the package boundary: every call site
// that can receive it either compacts-and-retries, splits, or bubbles a
// pivot to its parent.
var errOutOfSpace = errors.New("btree: out of space")

// ErrKeyTooLarge is returned by Insert when key exceeds the maximum
// representable key length (65535 bytes, the EntryRef length field's
// range).
var ErrKeyTooLarge = errors.New("btree: key exceeds maximum length")

// ErrBadValueSize is returned by Insert when val's length does not
// match the tree's configured ValueLayout.Size.
var ErrBadValueSize = errors.New("btree: value size does not match layout")

// ErrBadLayout is returned by New when the supplied ValueLayout is
// malformed: Align must be a power of two and Size must be a multiple
// of Align.
var ErrBadLayout = errors.New("btree: invalid value layout")

const maxKeyLen = 0xFFFF
