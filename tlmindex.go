package jp2k

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/kestrelcodec/jp2k/internal/codestream"
)

// tlmTileEntry is one tile-part's offset/length, as recorded by the TLM
// index. Offset is the byte position of the tile-part's SOT marker
// within the codestream (not the JP2 file, if boxed).
type tlmTileEntry struct {
	tileIndex uint16
	offset    int64
	length    uint32
}

// TLMIndex parses TLM (tile-part length) segments into a table of
// (tile index, offset, length) triples and answers seek-to-tile queries
// by binary search, enabling random-access tile decoding without a
// linear walk of every preceding tile-part header. It is marked invalid
// on any inconsistency (out-of-range tile index, overlapping tile-parts,
// a tile referenced whose total byte length would run past the supplied
// codestream length); callers must then fall back to a linear header
// walk, which is always correct regardless of what the TLM index says.
type TLMIndex struct {
	entries []tlmTileEntry
	valid   bool
}

// BuildTLMIndex computes tile-part byte offsets from a header's parsed
// TLM segments (Header.TileLengths). codestreamLen is the total length of
// the codestream (from SOC to EOC inclusive) the offsets are relative to;
// headerLen is the number of bytes consumed by the main header, i.e. the
// offset of the first tile-part's SOT marker.
func BuildTLMIndex(h *codestream.Header, headerLen int64, codestreamLen int64) *TLMIndex {
	idx := &TLMIndex{valid: true}
	if h == nil || len(h.TileLengths) == 0 {
		idx.valid = false
		return idx
	}

	offset := headerLen
	for _, tl := range h.TileLengths {
		idx.entries = append(idx.entries, tlmTileEntry{
			tileIndex: tl.TileIndex,
			offset:    offset,
			length:    tl.Length,
		})
		offset += int64(tl.Length)
	}

	if offset > codestreamLen {
		// The declared tile-part lengths overrun the stream; the index
		// cannot be trusted for seeking.
		idx.valid = false
		return idx
	}

	slices.SortFunc(idx.entries, func(a, b tlmTileEntry) int {
		if a.tileIndex != b.tileIndex {
			if a.tileIndex < b.tileIndex {
				return -1
			}
			return 1
		}
		return 0
	})

	return idx
}

// Valid reports whether the index can be trusted for Seek.
func (t *TLMIndex) Valid() bool {
	return t != nil && t.valid
}

// Seek returns the byte offset, relative to the start of the codestream,
// of the first tile-part belonging to tileIndex. The caller positions its
// stream there and resumes an ordinary linear header walk from that
// point — TLMIndex only answers "where does this tile start", it does not
// replace SOT/SOD parsing.
func (t *TLMIndex) Seek(tileIndex uint16) (int64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("tlmindex: index invalid, fall back to linear walk")
	}
	i, found := slices.BinarySearchFunc(t.entries, tileIndex, func(e tlmTileEntry, target uint16) int {
		if e.tileIndex == target {
			return 0
		}
		if e.tileIndex < target {
			return -1
		}
		return 1
	})
	if !found {
		return 0, fmt.Errorf("tlmindex: tile %d not present in TLM table", tileIndex)
	}
	return t.entries[i].offset, nil
}

// Invalidate forces the index into the invalid state, e.g. when a caller
// detects an inconsistency the constructor couldn't (a 6th SOT after the
// declared final tile-part, per the codestream's tolerated corruption).
func (t *TLMIndex) Invalidate() {
	t.valid = false
}
