package jp2k

import (
	"golang.org/x/exp/slices"

	"github.com/kestrelcodec/jp2k/internal/codestream"
)

// packetLengthEntry is one global packet's declared length, keyed by its
// position in the packet sequence so entries arriving out of order (a
// tile's PLT segment parsed before an earlier tile's, for instance) can
// still be inserted at the right place.
type packetLengthEntry struct {
	seq    int
	length uint32
}

// PacketLengthCache combines PLM (main header) and PLT (tile-part header)
// packet-length declarations into one sequence indexed by global packet
// number, falling back to on-the-fly measurement when no length marker
// covers a given packet. It lets a decoder skip a packet's body without
// parsing its header when the length is already known.
type PacketLengthCache struct {
	entries []packetLengthEntry
	next    int // sequence number of the next packet to be consumed
}

// NewPacketLengthCache builds a cache from a parsed main header's PLM
// declarations. A zero value PacketLengthCache (no PLM present) is also
// valid and simply reports every length as unknown.
func NewPacketLengthCache(h *codestream.Header) *PacketLengthCache {
	c := &PacketLengthCache{}
	if h == nil {
		return c
	}
	for i, l := range h.PacketLengths {
		c.entries = append(c.entries, packetLengthEntry{seq: i, length: l})
	}
	return c
}

// AddTilePartLengths merges a tile-part's PLT declarations into the cache,
// starting at global packet sequence number startSeq. PLT segments for
// different tile-parts of the same tile may be parsed in any order (the
// decoder may skip ahead using TLM/TLMIndex before filling in an earlier
// tile-part's header); slices.Insert keeps the cache's backing slice
// sorted by sequence number so Next(seq) can still binary search it.
func (c *PacketLengthCache) AddTilePartLengths(startSeq int, lengths []uint32) {
	for i, l := range lengths {
		entry := packetLengthEntry{seq: startSeq + i, length: l}
		idx, found := slices.BinarySearchFunc(c.entries, entry, comparePacketLengthEntry)
		if found {
			c.entries[idx] = entry
			continue
		}
		c.entries = slices.Insert(c.entries, idx, entry)
	}
}

func comparePacketLengthEntry(a, b packetLengthEntry) int {
	return a.seq - b.seq
}

// Next returns the declared length of the packet at global sequence number
// seq, and true if a length marker covered it. A false return means the
// caller must parse the packet header itself to learn the length (and
// may then record it via Observe for later random-access use).
func (c *PacketLengthCache) Next(seq int) (uint32, bool) {
	idx, found := slices.BinarySearchFunc(c.entries, packetLengthEntry{seq: seq}, comparePacketLengthEntry)
	if !found {
		return 0, false
	}
	return c.entries[idx].length, true
}

// Observe records a length measured by parsing a packet header directly,
// so later random-access decodes of the same stream don't need to
// re-parse it.
func (c *PacketLengthCache) Observe(seq int, length uint32) {
	c.AddTilePartLengths(seq, []uint32{length})
}

// Len reports how many packet lengths are currently cached.
func (c *PacketLengthCache) Len() int {
	return len(c.entries)
}
