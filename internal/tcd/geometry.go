package tcd

import (
	"github.com/kestrelcodec/jp2k/internal/codestream"
	"github.com/kestrelcodec/jp2k/internal/entropy"
)

// buildResolution computes the geometry of a resolution level within a
// tile-component, including its bands and code-blocks. It is shared by the
// encoder and decoder so that both sides address sub-band data identically.
func buildResolution(h *codestream.Header, tc *TileComponent, resLevel int) *Resolution {
	cs := h.CodingStyle

	scale := 1 << (int(cs.NumDecompositions) - resLevel)
	rx0 := ceilDiv(tc.X0, scale)
	ry0 := ceilDiv(tc.Y0, scale)
	rx1 := ceilDiv(tc.X1, scale)
	ry1 := ceilDiv(tc.Y1, scale)

	res := &Resolution{
		Level: resLevel,
		X0:    rx0,
		Y0:    ry0,
		X1:    rx1,
		Y1:    ry1,
	}

	if resLevel == 0 {
		res.NumBands = 1
		res.Bands = []*Band{buildBand(h, res, entropy.BandLL)}
	} else {
		res.NumBands = 3
		res.Bands = []*Band{
			buildBand(h, res, entropy.BandHL),
			buildBand(h, res, entropy.BandLH),
			buildBand(h, res, entropy.BandHH),
		}
	}

	return res
}

// buildBand computes the geometry of a single sub-band, including its
// code-block grid, relative to the whole-tile-component coefficient buffer.
func buildBand(h *codestream.Header, res *Resolution, bandType int) *Band {
	cs := h.CodingStyle

	band := &Band{
		Type: bandType,
	}

	switch bandType {
	case entropy.BandLL:
		band.X0 = res.X0
		band.Y0 = res.Y0
		band.X1 = res.X1
		band.Y1 = res.Y1
	case entropy.BandHL:
		band.X0 = res.X0
		band.Y0 = res.Y0
		band.X1 = res.X1
		band.Y1 = (res.Y0 + res.Y1) / 2
	case entropy.BandLH:
		band.X0 = res.X0
		band.Y0 = res.Y0
		band.X1 = (res.X0 + res.X1) / 2
		band.Y1 = res.Y1
	case entropy.BandHH:
		band.X0 = (res.X0 + res.X1) / 2
		band.Y0 = (res.Y0 + res.Y1) / 2
		band.X1 = res.X1
		band.Y1 = res.Y1
	}

	cbWidth := 1 << (cs.CodeBlockWidthExp + 2)
	cbHeight := 1 << (cs.CodeBlockHeightExp + 2)

	band.CodeBlocksX = ceilDiv(band.X1-band.X0, cbWidth)
	band.CodeBlocksY = ceilDiv(band.Y1-band.Y0, cbHeight)

	numCB := band.CodeBlocksX * band.CodeBlocksY
	band.CodeBlocks = make([]*CodeBlock, numCB)

	for i := 0; i < numCB; i++ {
		cbX := i % band.CodeBlocksX
		cbY := i / band.CodeBlocksX

		cb := &CodeBlock{
			Index: i,
			X0:    band.X0 + cbX*cbWidth,
			Y0:    band.Y0 + cbY*cbHeight,
			X1:    min(band.X0+(cbX+1)*cbWidth, band.X1),
			Y1:    min(band.Y0+(cbY+1)*cbHeight, band.Y1),
		}
		band.CodeBlocks[i] = cb
	}

	return band
}

// bandRect reports the band-relative rectangle of a code-block, i.e. its
// bounds translated so the band's own origin is (0, 0). This is the
// addressing used to gather/scatter code-block samples from/to the
// whole-tile-component coefficient buffer.
func bandRect(band *Band, cb *CodeBlock) (x0, y0, x1, y1 int) {
	return cb.X0 - band.X0, cb.Y0 - band.Y0, cb.X1 - band.X0, cb.Y1 - band.Y0
}

// maxBitPlanes returns a deterministic upper bound on the number of
// magnitude bit-planes a code-block in the given band can need, derived
// from the component's bit depth, the coded guard bits and the number of
// decomposition levels applied. It is computed identically on the encode
// and decode sides so zero-bit-plane counts never need to cross the wire;
// only each code-block's actual (non-zero) bit-plane count is signalled.
func maxBitPlanes(h *codestream.Header, compIndex int) int {
	comp := h.ComponentInfo[compIndex]
	precision := comp.Precision()

	guardBits := int(h.Quantization.NumGuardBits)

	return precision + guardBits + int(h.CodingStyle.NumDecompositions) + 2
}
