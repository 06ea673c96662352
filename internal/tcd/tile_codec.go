package tcd

import "fmt"

// gatherCodeBlock copies a code-block's samples out of a tile-component's
// packed coefficient buffer, addressing them by the code-block's absolute
// bounds translated into the component-local coordinate frame that tc.Data
// uses (origin at tc.X0, tc.Y0).
func gatherCodeBlock(tc *TileComponent, cb *CodeBlock) []int32 {
	stride := tc.X1 - tc.X0
	w := cb.X1 - cb.X0
	h := cb.Y1 - cb.Y0
	out := make([]int32, w*h)

	for y := 0; y < h; y++ {
		srcRow := (cb.Y0 - tc.Y0 + y) * stride
		dstRow := y * w
		for x := 0; x < w; x++ {
			out[dstRow+x] = tc.Data[srcRow+(cb.X0-tc.X0+x)]
		}
	}
	return out
}

// scatterCodeBlock writes decoded coefficients back into a tile-component's
// packed coefficient buffer at the code-block's position.
func scatterCodeBlock(tc *TileComponent, cb *CodeBlock) {
	if len(cb.Coefficients) == 0 {
		return
	}

	stride := tc.X1 - tc.X0
	w := cb.X1 - cb.X0
	h := cb.Y1 - cb.Y0

	for y := 0; y < h; y++ {
		dstRow := (cb.Y0 - tc.Y0 + y) * stride
		srcRow := y * w
		for x := 0; x < w; x++ {
			tc.Data[dstRow+(cb.X0-tc.X0+x)] = cb.Coefficients[srcRow+x]
		}
	}
}

// DecodeComponent decodes every code-block of a tile-component that T2 has
// already populated with compressed data and zero-bit-plane counts, then
// scatters the reconstructed coefficients into the component's coefficient
// buffer ready for ApplyInverseDWT.
func (d *TileDecoder) DecodeComponent(compIndex int) error {
	tc := d.tile.Components[compIndex]
	mb := maxBitPlanes(d.header, compIndex)

	for _, res := range tc.Resolutions {
		for _, band := range res.Bands {
			for _, cb := range band.CodeBlocks {
				if len(cb.Data) == 0 {
					continue
				}
				cb.TotalBitPlanes = mb - cb.ZeroBitPlanes
				if cb.TotalBitPlanes < 0 {
					cb.TotalBitPlanes = 0
				}
				if err := d.DecodeCodeBlock(cb, band.Type); err != nil {
					// Tier-1 integrity failures are absorbed: the
					// block's contribution is zeroed and the tile is
					// still returned, per the codec's corruption
					// recovery policy.
					if d.onCorrupt != nil {
						d.onCorrupt(compIndex, fmt.Errorf("code-block at (%d,%d)-(%d,%d): %w", cb.X0, cb.Y0, cb.X1, cb.Y1, err))
					}
					cb.Coefficients = make([]int32, (cb.X1-cb.X0)*(cb.Y1-cb.Y0))
					scatterCodeBlock(tc, cb)
					continue
				}
				scatterCodeBlock(tc, cb)
			}
		}
	}
	return nil
}

// EncodeComponent runs the forward DWT output of a tile-component through
// entropy coding, gathering each code-block's samples from the packed
// coefficient buffer and deriving the zero-bit-plane count that Tier-2
// needs to signal from the component's maximum bit-plane bound.
func (e *TileEncoder) EncodeComponent(compIndex int) {
	tc := e.tile.Components[compIndex]
	mb := maxBitPlanes(e.header, compIndex)

	for _, res := range tc.Resolutions {
		for _, band := range res.Bands {
			for _, cb := range band.CodeBlocks {
				data := gatherCodeBlock(tc, cb)

				zero := true
				for _, v := range data {
					if v != 0 {
						zero = false
						break
					}
				}
				if zero {
					cb.Data = nil
					cb.TotalBitPlanes = 0
					cb.ZeroBitPlanes = mb
					continue
				}

				e.EncodeCodeBlock(cb, data, band.Type)

				zbp := mb - cb.TotalBitPlanes
				if zbp < 0 {
					zbp = 0
				}
				cb.ZeroBitPlanes = zbp
			}
		}
	}
}
