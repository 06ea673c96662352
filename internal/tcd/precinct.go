package tcd

import "github.com/kestrelcodec/jp2k/internal/codestream"

// BuildPrecincts groups the code-blocks of each resolution level into
// precincts for packet organization. Arbitrary precinct partitioning (PPx/PPy
// below the whole resolution) is not implemented; each resolution level is
// treated as a single precinct spanning all of its bands, which is a valid
// degenerate case of the general precinct grid and matches the coarsest
// PPx/PPy=15 (whole tile) configuration.
func BuildPrecincts(h *codestream.Header, tc *TileComponent) {
	_ = h
	for _, res := range tc.Resolutions {
		res.PrecinctsX = 1
		res.PrecinctsY = 1

		totalCBs := 0
		for _, band := range res.Bands {
			totalCBs += len(band.CodeBlocks)
		}

		p := &Precinct{
			Index:      0,
			X0:         res.X0,
			Y0:         res.Y0,
			X1:         res.X1,
			Y1:         res.Y1,
			CodeBlocks: make([][]*CodeBlock, len(res.Bands)),
		}

		if totalCBs > 0 {
			p.InclusionTree = NewTagTree(totalCBs, 1)
			p.IMSBTree = NewTagTree(totalCBs, 1)
		}

		for bi, band := range res.Bands {
			p.CodeBlocks[bi] = band.CodeBlocks
		}

		res.Precincts = []*Precinct{p}
	}
}

// leafIndex returns the flat tag-tree leaf position for the cbIdx'th
// code-block of the bandIdx'th band in a precinct, counting code-blocks
// across all of the precinct's bands in order. This is required because a
// precinct's inclusion and zero-bit-plane trees are shared across all of its
// bands, not recomputed per band.
func leafIndex(precinct *Precinct, bandIdx, cbIdx int) int {
	leaf := cbIdx
	for i := 0; i < bandIdx; i++ {
		leaf += len(precinct.CodeBlocks[i])
	}
	return leaf
}
