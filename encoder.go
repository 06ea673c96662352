package jp2k

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"

	"golang.org/x/text/encoding/charmap"

	"github.com/kestrelcodec/jp2k/internal/box"
	"github.com/kestrelcodec/jp2k/internal/codestream"
	"github.com/kestrelcodec/jp2k/internal/mct"
	"github.com/kestrelcodec/jp2k/internal/tcd"
)

// encoder handles JPEG 2000 encoding.
type encoder struct {
	w       io.Writer
	img     image.Image
	options *Options

	// Image parameters
	width         int
	height        int
	numComponents int
	precision     int
	signed        bool

	// Component data
	componentData [][]int32

	// header mirrors the marker data written to the codestream; the tile
	// encoder needs it to build the same resolution/band/code-block
	// geometry the decoder reconstructs from the wire format.
	header *codestream.Header
}

// newEncoder creates a new encoder.
func newEncoder(w io.Writer, img image.Image, options *Options) *encoder {
	bounds := img.Bounds()
	return &encoder{
		w:       w,
		img:     img,
		options: options,
		width:   bounds.Dx(),
		height:  bounds.Dy(),
	}
}

// encode encodes the image.
func (e *encoder) encode() error {
	// Extract image data
	if err := e.extractImageData(); err != nil {
		return fmt.Errorf("extracting image data: %w", err)
	}

	e.header = e.buildHeader()

	// Apply preprocessing
	if err := e.preprocess(); err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}

	// Generate codestream
	codestream, err := e.generateCodestream()
	if err != nil {
		return fmt.Errorf("generating codestream: %w", err)
	}

	// Write output based on format
	switch e.options.Format {
	case FormatJP2:
		return e.writeJP2(codestream)
	case FormatJ2K:
		_, err := e.w.Write(codestream)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", e.options.Format)
	}
}

// extractImageData extracts pixel data from the source image.
func (e *encoder) extractImageData() error {
	bounds := e.img.Bounds()

	// Determine image properties based on type
	switch img := e.img.(type) {
	case *image.Gray:
		e.numComponents = 1
		e.precision = 8
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.GrayAt(x, y).Y)
			}
		}

	case *image.Gray16:
		e.numComponents = 1
		e.precision = 16
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.Gray16At(x, y).Y)
			}
		}

	case *image.RGBA:
		e.numComponents = 3 // We'll ignore alpha for now
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.RGBA64:
		e.numComponents = 3
		e.precision = 16
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.NRGBA:
		e.numComponents = 4
		e.precision = 8
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	case *image.NRGBA64:
		e.numComponents = 4
		e.precision = 16
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	default:
		// Generic fallback - convert to RGBA
		e.numComponents = 3
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				r, g, b, _ := e.img.At(x, y).RGBA()
				e.componentData[0][idx] = int32(r >> 8)
				e.componentData[1][idx] = int32(g >> 8)
				e.componentData[2][idx] = int32(b >> 8)
			}
		}
	}

	// Apply precision override if specified
	if e.options.Precision > 0 && e.options.Precision <= 16 && e.options.Precision != e.precision {
		targetPrecision := e.options.Precision
		srcMax := int32((1 << e.precision) - 1)
		dstMax := int32((1 << targetPrecision) - 1)

		for c := 0; c < e.numComponents; c++ {
			for i := range e.componentData[c] {
				// Scale from source precision to target precision
				e.componentData[c][i] = e.componentData[c][i] * dstMax / srcMax
			}
		}
		e.precision = targetPrecision
	}

	return nil
}

// preprocess applies preprocessing transforms.
func (e *encoder) preprocess() error {
	// Apply DC level shift
	for c := 0; c < e.numComponents; c++ {
		mct.DCLevelShiftForward(e.componentData[c], e.precision)
	}

	// Apply MCT if we have 3+ components
	if mct.ShouldApplyMCT(e.numComponents, true) {
		if e.options.Lossless {
			mct.ForwardRCT(e.componentData[0], e.componentData[1], e.componentData[2])
		} else {
			// Convert to float for ICT
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(e.componentData[c]))
				mct.ConvertInt32ToFloat64(e.componentData[c], compFloat[c])
			}
			mct.ForwardICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				mct.ConvertFloat64ToInt32(compFloat[c], e.componentData[c])
			}
		}
	}

	// The wavelet transform itself is applied per tile (see encodeTile),
	// since tiling and code-block addressing both need the same
	// per-tile-component geometry the decoder reconstructs.

	return nil
}

// codeBlockExponents derives the COD marker's code-block size exponents and
// style flags from the encoder options, shared by the marker writer and the
// tile-encoder header so both agree on code-block geometry.
func (e *encoder) codeBlockExponents() (widthExp, heightExp, style uint8) {
	cbWidth := e.options.CodeBlockSize.X
	cbHeight := e.options.CodeBlockSize.Y

	if e.options.HighThroughput {
		htWidth := e.options.HTBlockWidth
		htHeight := e.options.HTBlockHeight
		if htWidth == 0 {
			htWidth = 128
		}
		if htHeight == 0 {
			htHeight = 128
		}
		switch htWidth {
		case 32:
			cbWidth = 5
		case 128:
			cbWidth = 7
		default:
			cbWidth = 7
		}
		switch htHeight {
		case 32:
			cbHeight = 5
		case 128:
			cbHeight = 7
		default:
			cbHeight = 7
		}
		style = codestream.CodeBlockHT
	} else {
		if cbWidth <= 0 {
			cbWidth = 6
		}
		if cbHeight <= 0 {
			cbHeight = 6
		}
	}

	return uint8(cbWidth - 2), uint8(cbHeight - 2), style
}

// buildHeader assembles the structured header the tile encoder uses to
// derive resolution, band and code-block geometry, mirroring the values
// generateSIZ/generateCOD/generateQCD write to the codestream.
func (e *encoder) buildHeader() *codestream.Header {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}

	cbWidthExp, cbHeightExp, cbStyle := e.codeBlockExponents()

	numLayers := e.options.NumLayers
	if numLayers <= 0 {
		numLayers = 1
	}

	mctFlag := uint8(0)
	if e.numComponents >= 3 {
		mctFlag = 1
	}

	waveletTransform := uint8(0)
	if e.options.Lossless {
		waveletTransform = 1
	}

	scod := uint8(0)
	if e.options.EnableSOP {
		scod |= codestream.CodingStyleSOP
	}
	if e.options.EnableEPH {
		scod |= codestream.CodingStyleEPH
	}

	cod := codestream.CodingStyleDefault{
		CodingStyle:         scod,
		ProgressionOrder:    uint8(e.options.ProgressionOrder),
		NumLayers:           uint16(numLayers),
		MultipleComponentXf: mctFlag,
		NumDecompositions:   uint8(numRes - 1),
		CodeBlockWidthExp:   cbWidthExp,
		CodeBlockHeightExp:  cbHeightExp,
		CodeBlockStyle:      cbStyle,
		WaveletTransform:    waveletTransform,
	}

	compInfo := make([]codestream.ComponentInfo, e.numComponents)
	for c := range compInfo {
		bitDepth := uint8(e.precision - 1)
		if e.signed {
			bitDepth |= 0x80
		}
		compInfo[c] = codestream.ComponentInfo{
			BitDepth:     bitDepth,
			SubsamplingX: 1,
			SubsamplingY: 1,
		}
	}

	tileWidth := e.width
	tileHeight := e.height
	if e.options.TileSize.X > 0 {
		tileWidth = e.options.TileSize.X
	}
	if e.options.TileSize.Y > 0 {
		tileHeight = e.options.TileSize.Y
	}

	h := &codestream.Header{
		Profile:       uint16(e.options.Profile),
		ImageWidth:    uint32(e.width),
		ImageHeight:   uint32(e.height),
		TileWidth:     uint32(tileWidth),
		TileHeight:    uint32(tileHeight),
		NumComponents: uint16(e.numComponents),
		ComponentInfo: compInfo,
		CodingStyle:   cod,
		Quantization:  codestream.QuantizationDefault{NumGuardBits: 1},
	}
	h.CalculateDerivedValues()
	return h
}

// generateCodestream generates the JPEG 2000 codestream.
func (e *encoder) generateCodestream() ([]byte, error) {
	var buf []byte

	// SOC marker
	buf = append(buf, 0xFF, 0x4F)

	// SIZ marker
	siz := e.generateSIZ()
	buf = append(buf, siz...)

	// CAP marker (required for HTJ2K mode)
	if e.options.HighThroughput {
		cap := e.generateCAP()
		buf = append(buf, cap...)
	}

	// COD marker
	cod := e.generateCOD()
	buf = append(buf, cod...)

	// QCD marker
	qcd := e.generateQCD()
	buf = append(buf, qcd...)

	// Comment marker (optional)
	if e.options.Comment != "" {
		com := e.generateCOM()
		buf = append(buf, com...)
	}

	// Generate tile data
	tileData, err := e.generateTiles()
	if err != nil {
		return nil, err
	}
	buf = append(buf, tileData...)

	// EOC marker
	buf = append(buf, 0xFF, 0xD9)

	return buf, nil
}

// generateSIZ generates the SIZ marker segment.
func (e *encoder) generateSIZ() []byte {
	numComp := e.numComponents

	// Length = 38 + 3*numComponents
	length := 38 + 3*numComp

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.SIZ))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	// Rsiz (profile)
	binary.BigEndian.PutUint16(buf[4:6], uint16(e.options.Profile))

	// Image dimensions
	binary.BigEndian.PutUint32(buf[6:10], uint32(e.width))
	binary.BigEndian.PutUint32(buf[10:14], uint32(e.height))

	// Image offset (0, 0)
	binary.BigEndian.PutUint32(buf[14:18], 0)
	binary.BigEndian.PutUint32(buf[18:22], 0)

	// Tile size
	tileWidth := e.width
	tileHeight := e.height
	if e.options.TileSize.X > 0 {
		tileWidth = e.options.TileSize.X
	}
	if e.options.TileSize.Y > 0 {
		tileHeight = e.options.TileSize.Y
	}
	binary.BigEndian.PutUint32(buf[22:26], uint32(tileWidth))
	binary.BigEndian.PutUint32(buf[26:30], uint32(tileHeight))

	// Tile offset
	binary.BigEndian.PutUint32(buf[30:34], 0)
	binary.BigEndian.PutUint32(buf[34:38], 0)

	// Number of components
	binary.BigEndian.PutUint16(buf[38:40], uint16(numComp))

	// Component info
	for c := 0; c < numComp; c++ {
		offset := 40 + c*3
		// Ssiz: bit depth (precision - 1, with sign bit)
		ssiz := uint8(e.precision - 1)
		if e.signed {
			ssiz |= 0x80
		}
		buf[offset] = ssiz
		// XRsiz, YRsiz: subsampling
		buf[offset+1] = 1
		buf[offset+2] = 1
	}

	return buf
}

// generateCOD generates the COD marker segment.
func (e *encoder) generateCOD() []byte {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}

	// Base length = 12 (without precinct sizes)
	length := 12

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.COD))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	// Scod: coding style
	scod := uint8(0)
	if e.options.EnableSOP {
		scod |= codestream.CodingStyleSOP
	}
	if e.options.EnableEPH {
		scod |= codestream.CodingStyleEPH
	}
	buf[4] = scod

	// SGcod
	buf[5] = uint8(e.options.ProgressionOrder) // Progression order
	numLayers := e.options.NumLayers
	if numLayers <= 0 {
		numLayers = 1
	}
	binary.BigEndian.PutUint16(buf[6:8], uint16(numLayers))
	if e.numComponents >= 3 {
		buf[8] = 1
	}

	// SPcod
	buf[9] = uint8(numRes - 1) // Number of decomposition levels

	cbWidthExp, cbHeightExp, cbStyle := e.codeBlockExponents()
	buf[10] = cbWidthExp
	buf[11] = cbHeightExp
	buf[12] = cbStyle

	if e.options.Lossless {
		buf[13] = 1 // 5-3 reversible wavelet
	} else {
		buf[13] = 0 // 9-7 irreversible wavelet
	}

	return buf
}

// generateQCD generates the QCD marker segment.
func (e *encoder) generateQCD() []byte {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}

	// Calculate number of subbands
	numBands := 3*(numRes-1) + 1

	var buf []byte
	if e.options.Lossless {
		// No quantization
		length := 3 + numBands
		buf = make([]byte, 2+length)
		binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.QCD))
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))

		// Sqcd: no quantization, 0 guard bits
		buf[4] = codestream.QuantizationNone

		// SPqcd: one exponent per subband
		for i := 0; i < numBands; i++ {
			// Default exponent based on subband level
			buf[5+i] = uint8(e.precision + i/3) << 3
		}
	} else {
		// Scalar derived quantization
		length := 5
		buf = make([]byte, 2+length)
		binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.QCD))
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))

		// Sqcd: scalar derived, 1 guard bit
		buf[4] = codestream.QuantizationScalarDerived | (1 << 5)

		// Base step size
		stepSize := uint16(0x4000) // Default step size
		if e.options.Quality > 0 {
			// Adjust based on quality
			stepSize = uint16((100 - e.options.Quality) * 256)
		}
		binary.BigEndian.PutUint16(buf[5:7], stepSize)
	}

	return buf
}

// generateCOM generates the COM marker segment.
func (e *encoder) generateCOM() []byte {
	comment, err := charmap.ISO8859_1.NewEncoder().String(e.options.Comment)
	if err != nil {
		// Characters outside Latin-1 can't round-trip through Rcom=1;
		// fall back to the raw bytes rather than failing the encode.
		comment = e.options.Comment
	}
	commentBytes := []byte(comment)
	length := 4 + len(commentBytes)

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.COM))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	binary.BigEndian.PutUint16(buf[4:6], codestream.CommentLatin1)
	copy(buf[6:], commentBytes)

	return buf
}

// generateCAP generates the CAP (extended capabilities) marker segment.
// This marker is required for HTJ2K mode to signal the use of the
// High-Throughput block coder.
func (e *encoder) generateCAP() []byte {
	// CAP marker format:
	// - Marker (2 bytes): 0xFF50
	// - Length (2 bytes): 6 (length field + Pcap)
	// - Pcap (4 bytes): capabilities flags
	// Total: 8 bytes

	length := 6 // Length includes itself and Pcap

	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.CAP))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	// Set Pcap with HTJ2K capability flag (bit 15)
	pcap := codestream.CapPcapHTJ2K
	binary.BigEndian.PutUint32(buf[4:8], pcap)

	return buf
}

// generateTiles encodes every tile and concatenates their tile-parts in
// raster order. Each tile only reads e.componentData (never writes it) and
// produces its own tile-part buffer, so tiles are dispatched onto the
// configured WorkerPool and only stitched back together in order once every
// tile has finished.
func (e *encoder) generateTiles() ([]byte, error) {
	numTiles := int(e.header.NumTilesX * e.header.NumTilesY)
	if numTiles == 0 {
		numTiles = 1
	}

	results := make([][]byte, numTiles)
	errs := make([]error, numTiles)
	pool := e.options.pool()

	for i := 0; i < numTiles; i++ {
		tileIdx := i
		pool.Enqueue(func() {
			tileData, err := e.encodeTile(tileIdx)
			if err != nil {
				errs[tileIdx] = fmt.Errorf("encoding tile %d: %w", tileIdx, err)
				return
			}
			results[tileIdx] = tileData
		})
	}
	pool.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var buf []byte
	for _, tileData := range results {
		buf = append(buf, tileData...)
	}
	return buf, nil
}

// tileComponentData crops the encoder's full-image, preprocessed component
// buffers down to a single tile's bounds, in the tile-local coordinate
// frame tcd.TileEncoder expects.
func (e *encoder) tileComponentData(x0, y0, x1, y1 int) [][]int32 {
	w := x1 - x0
	h := y1 - y0

	out := make([][]int32, e.numComponents)
	for c := 0; c < e.numComponents; c++ {
		data := make([]int32, w*h)
		for y := 0; y < h; y++ {
			srcRow := (y0 + y) * e.width
			dstRow := y * w
			for x := 0; x < w; x++ {
				data[dstRow+x] = e.componentData[c][srcRow+x0+x]
			}
		}
		out[c] = data
	}
	return out
}

// encodeTile runs the forward wavelet transform and entropy coding for one
// tile, organizes the result into Tier-2 packets and wraps it in a
// tile-part header.
func (e *encoder) encodeTile(tileIdx int) ([]byte, error) {
	h := e.header

	numTilesX := int(h.NumTilesX)
	if numTilesX == 0 {
		numTilesX = 1
	}
	tileX := tileIdx % numTilesX
	tileY := tileIdx / numTilesX

	x0 := tileX * int(h.TileWidth)
	y0 := tileY * int(h.TileHeight)
	x1 := x0 + int(h.TileWidth)
	y1 := y0 + int(h.TileHeight)
	if x1 > e.width {
		x1 = e.width
	}
	if y1 > e.height {
		y1 = e.height
	}

	tileEncoder := tcd.NewTileEncoder(h)
	tileEncoder.InitTile(tileIdx, e.tileComponentData(x0, y0, x1, y1))
	tile := tileEncoder.Tile()

	for c := range tile.Components {
		tc := tile.Components[c]
		tileEncoder.ApplyForwardDWT(tc)
		tileEncoder.EncodeComponent(c)
	}

	numRes := int(h.CodingStyle.NumDecompositions) + 1
	order := codestream.ProgressionOrder(h.CodingStyle.ProgressionOrder)
	precinctCounts := uniformPrecinctCounts(int(h.NumComponents), numRes)
	numLayers := int(h.CodingStyle.NumLayers)
	if numLayers <= 0 {
		numLayers = 1
	}

	sopEnabled := h.CodingStyle.CodingStyle&codestream.CodingStyleSOP != 0
	ephEnabled := h.CodingStyle.CodingStyle&codestream.CodingStyleEPH != 0

	var packetBuf bytes.Buffer
	pe := tcd.NewPacketEncoder(&packetBuf)
	pi := tcd.NewPacketIterator(int(h.NumComponents), numRes, numLayers, precinctCounts, order)

	for {
		p, ok := pi.Next()
		if !ok {
			break
		}
		tc := tile.Components[p.Component]
		res := tc.Resolutions[p.Resolution]
		if p.Precinct >= len(res.Precincts) {
			continue
		}
		precinct := res.Precincts[p.Precinct]
		if err := pe.EncodePacket(precinct, p.Layer, sopEnabled, ephEnabled); err != nil {
			return nil, fmt.Errorf("encoding packet: %w", err)
		}
	}

	return e.createTileHeader(tileIdx, packetBuf.Bytes()), nil
}

// createTileHeader creates the tile-part header.
func (e *encoder) createTileHeader(tileIdx int, tileData []byte) []byte {
	sotLength := 10
	tilePartLength := uint32(14 + len(tileData))

	header := make([]byte, 14)
	binary.BigEndian.PutUint16(header[0:2], uint16(codestream.SOT))
	binary.BigEndian.PutUint16(header[2:4], uint16(sotLength))
	binary.BigEndian.PutUint16(header[4:6], uint16(tileIdx))
	binary.BigEndian.PutUint32(header[6:10], tilePartLength)
	header[10] = 0 // Tile-part index
	header[11] = 1 // Number of tile-parts
	binary.BigEndian.PutUint16(header[12:14], uint16(codestream.SOD))

	return append(header, tileData...)
}

// writeJP2 writes a JP2 file.
func (e *encoder) writeJP2(codestream []byte) error {
	boxWriter := box.NewWriter(e.w)

	// Write signature
	if err := boxWriter.WriteSignature(); err != nil {
		return err
	}

	// Write file type box
	ftypBox := box.CreateFileTypeBox()
	if err := boxWriter.WriteBox(ftypBox); err != nil {
		return err
	}

	// Determine colorspace from options or default based on components
	var colorspace uint32
	switch e.options.ColorSpace {
	case ColorSpaceBilevel:
		colorspace = box.CSBilevel1
	case ColorSpaceGray:
		colorspace = box.CSGray
	case ColorSpaceSRGB:
		colorspace = box.CSSRGB
	case ColorSpaceSYCC:
		colorspace = box.CSYCbCr1
	case ColorSpaceYCbCr2:
		colorspace = box.CSYCbCr2
	case ColorSpaceYCbCr3:
		colorspace = box.CSYCbCr3
	case ColorSpacePhotoYCC:
		colorspace = box.CSPhotoYCC
	case ColorSpaceCMY:
		colorspace = box.CSCMY
	case ColorSpaceCMYK:
		colorspace = box.CSCMYK
	case ColorSpaceYCCK:
		colorspace = box.CSYCCK
	case ColorSpaceCIELab:
		colorspace = box.CSCIELab
	case ColorSpaceCIEJab:
		colorspace = box.CSCIEJab
	case ColorSpaceESRGB:
		colorspace = box.CSeSRGB
	case ColorSpaceROMMRGB:
		colorspace = box.CSROMMRGB
	case ColorSpaceYPbPr60:
		colorspace = box.CSYPbPr1125
	case ColorSpaceYPbPr50:
		colorspace = box.CSYPbPr1250
	case ColorSpaceEYCC:
		colorspace = box.CSeSYCC
	default:
		// Default based on number of components
		if e.numComponents == 1 {
			colorspace = box.CSGray
		} else {
			// 3 or 4 components default to sRGB (4th component is alpha)
			colorspace = box.CSSRGB
		}
	}

	// Write JP2 header
	jp2hBox := box.CreateJP2Header(
		uint32(e.width),
		uint32(e.height),
		uint16(e.numComponents),
		uint8(e.precision-1),
		colorspace,
	)
	if err := boxWriter.WriteBox(jp2hBox); err != nil {
		return err
	}

	// Write codestream
	jp2cBox := box.CreateCodestreamBox(codestream)
	if err := boxWriter.WriteBox(jp2cBox); err != nil {
		return err
	}

	return nil
}

// Ensure encoder implements required interfaces
var _ color.Model = (*encoder)(nil).colorModel()

func (e *encoder) colorModel() color.Model {
	return nil
}
