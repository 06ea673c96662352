// Package tcd implements the Tile Coder/Decoder for JPEG 2000.
//
// The TCD orchestrates the encoding and decoding of individual tiles,
// including:
// - Wavelet transform (DWT)
// - Quantization
// - Code-block entropy coding (T1)
// - Packet assembly (T2)
package tcd

import (
	"github.com/kestrelcodec/jp2k/internal/codestream"
	"github.com/kestrelcodec/jp2k/internal/dwt"
	"github.com/kestrelcodec/jp2k/internal/entropy"
)

// Tile represents a single tile in the image.
type Tile struct {
	// Tile index
	Index int

	// Tile bounds in image coordinates
	X0, Y0, X1, Y1 int

	// Components
	Components []*TileComponent
}

// TileComponent represents a single component within a tile.
type TileComponent struct {
	// Component index
	Index int

	// Component bounds (may differ due to subsampling)
	X0, Y0, X1, Y1 int

	// Resolution levels
	Resolutions []*Resolution

	// Coefficient data
	Data []int32

	// Floating point data for 9-7 transform
	DataFloat []float64
}

// Resolution represents a resolution level within a tile-component.
type Resolution struct {
	// Resolution level (0 = finest)
	Level int

	// Bounds at this resolution
	X0, Y0, X1, Y1 int

	// Number of bands (1 for LL, 3 for others)
	NumBands int

	// Bands at this resolution
	Bands []*Band

	// Precincts
	Precincts []*Precinct

	// Precinct grid dimensions
	PrecinctsX, PrecinctsY int
}

// Band represents a subband within a resolution level.
type Band struct {
	// Band type (LL, HL, LH, HH)
	Type int

	// Band bounds
	X0, Y0, X1, Y1 int

	// Quantization step size
	StepSize float64

	// Code-blocks
	CodeBlocks []*CodeBlock

	// Code-block grid dimensions
	CodeBlocksX, CodeBlocksY int
}

// Precinct represents a precinct for packet organization.
type Precinct struct {
	// Precinct index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Code-blocks in this precinct, per band
	CodeBlocks [][]*CodeBlock

	// Tag trees for inclusion and IMSB
	InclusionTree *TagTree
	IMSBTree      *TagTree
}

// CodeBlock represents a code-block for entropy coding.
type CodeBlock struct {
	// Code-block index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Encoded data
	Data []byte

	// Coding passes
	Passes []CodingPass

	// Number of zero bit-planes
	ZeroBitPlanes int

	// Total number of bit-planes
	TotalBitPlanes int

	// Included in previous layers
	IncludedInLayers int

	// Decoded coefficient data
	Coefficients []int32

	// inclusionSent tracks whether this code-block's inclusion tag tree
	// leaf has already had its final value set during packet encoding.
	inclusionSent bool
}

// CodingPass represents a single coding pass.
type CodingPass struct {
	// Pass type (significance, refinement, cleanup)
	Type int

	// Length in bytes
	Length int

	// Cumulative length
	CumulativeLength int

	// Rate-distortion slope
	Slope float64

	// Terminated flag
	Terminated bool
}

// Pass type constants.
const (
	PassSignificance = iota
	PassRefinement
	PassCleanup
)

// TileDecoder decodes a single tile.
type TileDecoder struct {
	header     *codestream.Header
	tileHeader *codestream.TilePartHeader
	tile       *Tile
	htj2k      bool // True if using High-Throughput mode

	// onCorrupt, if set, is called whenever DecodeCodeBlock returns an
	// error for a code-block. The block's contribution is zeroed and
	// decoding continues rather than aborting the tile. DecodeCodeBlock
	// performs no tier-1 integrity checks (segsym, termination or MQ
	// state) and always returns nil, so the callback is not reached
	// from DecodeComponent.
	onCorrupt func(compIndex int, err error)
}

// NewTileDecoder creates a new tile decoder.
func NewTileDecoder(header *codestream.Header) *TileDecoder {
	return &TileDecoder{
		header: header,
		htj2k:  header.IsHTJ2K(),
	}
}

// SetHTJ2K sets whether this decoder uses High-Throughput mode.
func (d *TileDecoder) SetHTJ2K(htj2k bool) {
	d.htj2k = htj2k
}

// SetCorruptHandler installs a callback invoked each time a code-block's
// entropy decode fails and is absorbed by zeroing its contribution.
func (d *TileDecoder) SetCorruptHandler(fn func(compIndex int, err error)) {
	d.onCorrupt = fn
}

// Tile returns the current tile being decoded.
func (d *TileDecoder) Tile() *Tile {
	return d.tile
}

// InitTile initializes a tile for decoding.
func (d *TileDecoder) InitTile(tileIndex int) {
	h := d.header

	// Calculate tile bounds
	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	d.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	// Initialize components
	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		// Apply subsampling
		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
		}

		// Allocate data
		width := cx1 - cx0
		height := cy1 - cy0
		tc.Data = make([]int32, width*height)

		// Initialize resolutions
		numRes := int(h.CodingStyle.NumDecompositions) + 1
		tc.Resolutions = make([]*Resolution, numRes)

		for r := 0; r < numRes; r++ {
			tc.Resolutions[r] = buildResolution(h, tc, r)
		}

		BuildPrecincts(h, tc)

		d.tile.Components[c] = tc
	}
}

// DecodeCodeBlock decodes a single code-block.
func (d *TileDecoder) DecodeCodeBlock(cb *CodeBlock, bandType int) error {
	if len(cb.Data) == 0 {
		return nil
	}

	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	if d.htj2k {
		// Use HTJ2K decoder
		htDec := entropy.GetHTDecoder(width, height)
		cb.Coefficients = htDec.Decode(cb.Data, cb.TotalBitPlanes, bandType)
		entropy.PutHTDecoder(htDec)
	} else {
		// Use standard EBCOT decoder
		t1 := entropy.NewT1(width, height)
		cb.Coefficients = t1.Decode(cb.Data, cb.TotalBitPlanes, bandType)
	}

	return nil
}

// ApplyInverseDWT applies the inverse wavelet transform.
func (d *TileDecoder) ApplyInverseDWT(tc *TileComponent) {
	h := d.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.WaveletTransform == 1 {
		// 5-3 reversible
		dwt.ReconstructMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		// 9-7 irreversible
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.ReconstructMultiLevel97(tc.DataFloat, width, height, numLevels)
		for i, v := range tc.DataFloat {
			tc.Data[i] = int32(v + 0.5)
		}
	}
}

// TileEncoder encodes a single tile.
type TileEncoder struct {
	header *codestream.Header
	tile   *Tile
	htj2k  bool // True if using High-Throughput mode
}

// NewTileEncoder creates a new tile encoder.
func NewTileEncoder(header *codestream.Header) *TileEncoder {
	return &TileEncoder{
		header: header,
		htj2k:  header.IsHTJ2K(),
	}
}

// SetHTJ2K sets whether this encoder uses High-Throughput mode.
func (e *TileEncoder) SetHTJ2K(htj2k bool) {
	e.htj2k = htj2k
}

// InitTile initializes a tile for encoding.
func (e *TileEncoder) InitTile(tileIndex int, componentData [][]int32) {
	h := e.header

	// Calculate tile bounds (same as decoder)
	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	e.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	// Initialize components with provided data
	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
			Data:  componentData[c],
		}

		// Initialize resolutions (same geometry the decoder builds)
		numRes := int(h.CodingStyle.NumDecompositions) + 1
		tc.Resolutions = make([]*Resolution, numRes)
		for r := 0; r < numRes; r++ {
			tc.Resolutions[r] = buildResolution(h, tc, r)
		}
		BuildPrecincts(h, tc)

		e.tile.Components[c] = tc
	}
}

// ApplyForwardDWT applies the forward wavelet transform.
func (e *TileEncoder) ApplyForwardDWT(tc *TileComponent) {
	h := e.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.WaveletTransform == 1 {
		// 5-3 reversible
		dwt.DecomposeMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		// 9-7 irreversible
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.DecomposeMultiLevel97(tc.DataFloat, width, height, numLevels)
		// Quantize back to integers
		for i, v := range tc.DataFloat {
			if v >= 0 {
				tc.Data[i] = int32(v + 0.5)
			} else {
				tc.Data[i] = int32(v - 0.5)
			}
		}
	}
}

// EncodeCodeBlock encodes a single code-block.
func (e *TileEncoder) EncodeCodeBlock(cb *CodeBlock, data []int32, bandType int) {
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	if e.htj2k {
		// Use HTJ2K encoder
		htEnc := entropy.GetHTEncoder(width, height)
		htEnc.SetData(data)
		cb.Data = htEnc.Encode(bandType)
		cb.TotalBitPlanes = htEnc.NumBitplanes()
		entropy.PutHTEncoder(htEnc)
	} else {
		// Use standard EBCOT encoder
		t1 := entropy.NewT1(width, height)
		t1.SetData(data)
		cb.Data = t1.Encode(bandType)
		cb.TotalBitPlanes = t1.NumBPS()
	}
}

// Helper functions

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
