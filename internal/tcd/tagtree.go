package tcd

import "github.com/kestrelcodec/jp2k/internal/bio"

// TagTree implements the quad-tree cumulative-minimum structure used by the
// packet header codec for code-block inclusion and zero-bit-plane counts.
//
// Level 0 holds one node per leaf (x, y); each level above halves both
// dimensions (ceil) until a single root node remains. A node's value is the
// minimum of its children, maintained incrementally as leaves are set.
type TagTree struct {
	width  int
	height int
	levels int
	nodes  [][]tagNode
}

type tagNode struct {
	value int
	low   int
	known bool
}

const tagTreeMaxValue = int(^uint(0) >> 1) // MaxInt

// NewTagTree creates a tag tree over a width x height leaf grid.
func NewTagTree(width, height int) *TagTree {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	t := &TagTree{width: width, height: height}

	w, h := width, height
	for w > 1 || h > 1 {
		t.levels++
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	t.levels++

	t.nodes = make([][]tagNode, t.levels)
	w, h = width, height
	for level := 0; level < t.levels; level++ {
		t.nodes[level] = make([]tagNode, w*h)
		for i := range t.nodes[level] {
			t.nodes[level][i].value = tagTreeMaxValue
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}

	return t
}

// leafPath returns, for each level from the leaf (0) to the root
// (t.levels-1), the flat index of the ancestor of (x, y) at that level.
func (t *TagTree) leafPath(x, y int) []int {
	idx := make([]int, t.levels)
	w, cx, cy := t.width, x, y
	for level := 0; level < t.levels; level++ {
		idx[level] = cy*w + cx
		cx, cy = cx/2, cy/2
		w = (w + 1) / 2
	}
	return idx
}

// SetValue sets the value at leaf (x, y), propagating the new minimum to
// every ancestor whose current value is not already that small or smaller.
// This must be called for every leaf before the tree is used for Encode or
// Decode, mirroring how the encoder knows every code-block's final
// inclusion layer and zero-bit-plane count before writing any packet.
func (t *TagTree) SetValue(x, y, value int) {
	idx := t.leafPath(x, y)
	for level := 0; level < t.levels; level++ {
		n := &t.nodes[level][idx[level]]
		if n.value <= value {
			break
		}
		n.value = value
	}
}

// Reset clears the incremental encode/decode state (but not the leaf
// values) so the tree can be walked again from the beginning, e.g. for a
// fresh tile.
func (t *TagTree) Reset() {
	for level := range t.nodes {
		for i := range t.nodes[level] {
			t.nodes[level][i].low = 0
			t.nodes[level][i].known = false
		}
	}
}

// Encode emits the bits that resolve leaf (x, y) against threshold,
// walking from the root down to the leaf. A node already fully resolved by
// an earlier (lower-threshold) call costs no further bits. The sequence of
// calls with a non-decreasing threshold across layers reconstructs the
// standard incremental tag-tree packet-header coding of 4.C.
func (t *TagTree) Encode(bw *bio.ByteStuffingWriter, x, y, threshold int) error {
	idx := t.leafPath(x, y)
	for level := t.levels - 1; level >= 0; level-- {
		n := &t.nodes[level][idx[level]]
		if n.known {
			continue
		}
		for n.low < n.value && n.low < threshold {
			if err := bw.WriteBit(0); err != nil {
				return err
			}
			n.low++
		}
		if n.low == n.value && n.low < threshold {
			if err := bw.WriteBit(1); err != nil {
				return err
			}
			n.known = true
		}
	}
	return nil
}

// Decode mirrors Encode: it consumes exactly the bits Encode would have
// written for the same (x, y, threshold) sequence and returns the leaf's
// current lower bound plus whether that bound is now known to be exact.
// A false second return means "value >= threshold"; the caller must call
// Decode again with a larger threshold to learn more.
func (t *TagTree) Decode(br *bio.ByteStuffingReader, x, y, threshold int) (int, bool, error) {
	idx := t.leafPath(x, y)
	for level := t.levels - 1; level >= 0; level-- {
		n := &t.nodes[level][idx[level]]
		if n.known {
			continue
		}
		for n.low < threshold {
			bit, err := br.ReadBit()
			if err != nil {
				return 0, false, err
			}
			if bit == 1 {
				n.value = n.low
				n.known = true
				break
			}
			n.low++
		}
	}
	leaf := &t.nodes[0][idx[0]]
	return leaf.low, leaf.known, nil
}
