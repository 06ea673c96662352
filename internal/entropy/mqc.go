// Package entropy implements entropy coding for JPEG 2000.
//
// This includes:
// - MQ coder (arithmetic entropy coder)
// - Context modeling for EBCOT
// - Raw (bypass) mode
package entropy

// mqQeTable, mqNextMPS and mqNextLPS together form the 94-state probability
// transition table of ISO/IEC 15444-1 Annex C, Table C.2. Even indices carry
// MPS=0, odd indices carry MPS=1, so a context's current MPS is recoverable
// from its state index alone (stateIdx&1) without a separate field.
//
// The table is declared as three parallel arrays rather than a single slice
// of structs: every hot path in this package (Encode, Decode, and the
// unrolled fast-path passes in t1_fast5.go) looks up Qe, NMPS and NLPS
// independently for a given state index, so keeping them as flat, densely
// packed arrays avoids a struct-field load for the two fields a given call
// site doesn't need.
var (
	mqQeTable = [94]uint32{
		0x5601, 0x5601, 0x3401, 0x3401, 0x1801, 0x1801, 0x0AC1, 0x0AC1,
		0x0521, 0x0521, 0x0221, 0x0221, 0x5601, 0x5601, 0x5401, 0x5401,
		0x4801, 0x4801, 0x3801, 0x3801, 0x3001, 0x3001, 0x2401, 0x2401,
		0x1C01, 0x1C01, 0x1601, 0x1601, 0x5601, 0x5601, 0x5401, 0x5401,
		0x5101, 0x5101, 0x4801, 0x4801, 0x3801, 0x3801, 0x3401, 0x3401,
		0x3001, 0x3001, 0x2801, 0x2801, 0x2401, 0x2401, 0x2201, 0x2201,
		0x1C01, 0x1C01, 0x1801, 0x1801, 0x1601, 0x1601, 0x1401, 0x1401,
		0x1201, 0x1201, 0x1101, 0x1101, 0x0AC1, 0x0AC1, 0x09C1, 0x09C1,
		0x08A1, 0x08A1, 0x0521, 0x0521, 0x0441, 0x0441, 0x02A1, 0x02A1,
		0x0221, 0x0221, 0x0141, 0x0141, 0x0111, 0x0111, 0x0085, 0x0085,
		0x0049, 0x0049, 0x0025, 0x0025, 0x0015, 0x0015, 0x0009, 0x0009,
		0x0005, 0x0005, 0x0001, 0x0001, 0x5601, 0x5601,
	}
	mqNextMPS = [94]uint8{
		2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 76, 77, 14, 15, 16, 17,
		18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 58, 59, 30, 31, 32, 33,
		34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49,
		50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 63, 64, 65,
		66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 77, 78, 79, 80, 81,
		82, 83, 84, 85, 86, 87, 88, 89, 90, 91, 90, 91, 92, 93,
	}
	mqNextLPS = [94]uint8{
		3, 2, 12, 13, 18, 19, 24, 25, 58, 59, 66, 67, 13, 12, 28, 29,
		28, 29, 28, 29, 34, 35, 36, 37, 40, 41, 42, 43, 29, 28, 28, 29,
		30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 38, 39, 40, 41, 42, 43,
		44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59,
		60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75,
		76, 77, 78, 79, 80, 81, 82, 83, 84, 85, 86, 87, 92, 93,
	}
)

// Context indices for EBCOT coding passes.
const (
	// Zero coding contexts (9 contexts based on neighbors)
	CtxZC0 = iota // LL band
	CtxZC1
	CtxZC2
	CtxZC3
	CtxZC4
	CtxZC5
	CtxZC6
	CtxZC7
	CtxZC8

	// Sign coding contexts (5 contexts)
	CtxSC0
	CtxSC1
	CtxSC2
	CtxSC3
	CtxSC4

	// Magnitude refinement contexts (3 contexts)
	CtxMag0
	CtxMag1
	CtxMag2

	// Run-length context
	CtxRL

	// Uniform context
	CtxUni

	NumContexts // Total number of contexts
)

// initialUniformState is the state index both encoder and decoder seed
// CtxUni with: state 92 carries Qe=0x5601, MPS=0, and is its own NMPS/NLPS
// successor, so coding a uniformly-distributed bit never changes it.
const initialUniformState = 92

// MQEncoder implements the MQ arithmetic encoder.
type MQEncoder struct {
	// Interval size (A register)
	A uint32
	// Code register (C register)
	C uint32
	// Bit counter
	CT uint32
	// Output buffer
	buf []byte
	// Buffer position (index of last written byte)
	bp int
	// Context states - each context holds an index into the state table
	contexts [NumContexts]uint8
}

// NewMQEncoder creates a new MQ encoder.
func NewMQEncoder() *MQEncoder {
	e := &MQEncoder{
		A:   0x8000,
		C:   0,
		CT:  12,
		buf: make([]byte, 1, 8192), // Pre-allocate 8KB for output
		bp:  0,
	}
	e.buf[0] = 0 // Initial byte (bp[-1] in the INITENC procedure)
	e.resetContexts()
	return e
}

// Reset resets the encoder state.
func (e *MQEncoder) Reset() {
	e.A = 0x8000
	e.C = 0
	e.CT = 12
	// Reuse buffer capacity, just reset length
	if cap(e.buf) > 0 {
		e.buf = e.buf[:1]
	} else {
		e.buf = make([]byte, 1, 8192)
	}
	e.buf[0] = 0
	e.bp = 0
	e.resetContexts()
}

func (e *MQEncoder) resetContexts() {
	for i := range e.contexts {
		e.contexts[i] = 0
	}
	e.contexts[CtxUni] = initialUniformState
}

// Encode encodes a binary decision (0 or 1) for the given context.
// Optimized: uses flat arrays and inlines MPS/LPS handling.
func (e *MQEncoder) Encode(ctx int, decision int) {
	stateIdx := e.contexts[ctx]
	qe := mqQeTable[stateIdx]
	// MPS is determined by state index: even = 0, odd = 1
	mps := stateIdx & 1

	e.A -= qe

	if uint8(decision) == mps {
		// MPS path (most probable symbol)
		if (e.A & 0x8000) == 0 {
			if e.A < qe {
				e.A = qe
			} else {
				e.C += qe
			}
			e.contexts[ctx] = mqNextMPS[stateIdx]
			e.renormalize()
		} else {
			e.C += qe
		}
	} else {
		// LPS path (least probable symbol)
		if e.A < qe {
			e.C += qe
		} else {
			e.A = qe
		}
		e.contexts[ctx] = mqNextLPS[stateIdx]
		e.renormalize()
	}
}

// renormalize performs encoder interval renormalization (RENORME).
func (e *MQEncoder) renormalize() {
	for (e.A & 0x8000) == 0 {
		e.A <<= 1
		e.C <<= 1
		e.CT--
		if e.CT == 0 {
			e.emitByte()
		}
	}
}

// emitByte implements the BYTEOUT procedure: it outputs the pending byte,
// carrying into the previous byte and stuffing a zero bit whenever that byte
// is 0xFF so no emitted byte sequence can be mistaken for a marker code.
func (e *MQEncoder) emitByte() {
	if e.buf[e.bp] == 0xFF {
		e.bp++
		if e.bp >= len(e.buf) {
			e.buf = append(e.buf, 0)
		}
		e.buf[e.bp] = byte(e.C >> 20)
		e.C &= 0xFFFFF
		e.CT = 7
		return
	}
	if (e.C & 0x8000000) == 0 {
		e.bp++
		if e.bp >= len(e.buf) {
			e.buf = append(e.buf, 0)
		}
		e.buf[e.bp] = byte(e.C >> 19)
		e.C &= 0x7FFFF
		e.CT = 8
		return
	}
	e.buf[e.bp]++
	if e.buf[e.bp] == 0xFF {
		e.C &= 0x7FFFFFF
		e.bp++
		if e.bp >= len(e.buf) {
			e.buf = append(e.buf, 0)
		}
		e.buf[e.bp] = byte(e.C >> 20)
		e.C &= 0xFFFFF
		e.CT = 7
		return
	}
	e.bp++
	if e.bp >= len(e.buf) {
		e.buf = append(e.buf, 0)
	}
	e.buf[e.bp] = byte(e.C >> 19)
	e.C &= 0x7FFFF
	e.CT = 8
}

// Flush finalizes the encoding and returns the compressed data.
func (e *MQEncoder) Flush() []byte {
	// C.2.9 Termination of coding (FLUSH)
	e.padC()
	e.C <<= e.CT
	e.emitByte()
	e.C <<= e.CT
	e.emitByte()

	// Don't include trailing 0xFF
	endPos := e.bp + 1
	if endPos > 0 && e.buf[endPos-1] == 0xFF {
		endPos--
	}

	// Skip the initial dummy byte
	if endPos > 1 {
		return e.buf[1:endPos]
	}
	return nil
}

// padC sets the low bits of C so that the two bytes FLUSH emits afterward
// terminate the segment with the shortest sequence that any run of
// appended zero bytes still decodes identically.
func (e *MQEncoder) padC() {
	tempC := e.C + e.A
	e.C |= 0xFFFF
	if e.C >= tempC {
		e.C -= 0x8000
	}
}

// Bytes returns the current encoded data (without flushing).
func (e *MQEncoder) Bytes() []byte {
	if e.bp > 0 {
		return e.buf[1 : e.bp+1]
	}
	return nil
}

// MQDecoder implements the MQ arithmetic decoder.
type MQDecoder struct {
	// Code register
	C uint32
	// Interval size
	A uint32
	// Bit counter
	CT uint32
	// Input buffer position
	bp int
	// Input data
	data []byte
	// Context states - each context holds an index into the state table
	contexts [NumContexts]uint8
	// End of byte stream counter
	endCounter int
}

// NewMQDecoder creates a new MQ decoder.
func NewMQDecoder(data []byte) *MQDecoder {
	d := &MQDecoder{
		A:    0x8000,
		C:    0,
		CT:   0,
		data: data,
		bp:   -1,
	}
	d.ResetAllContexts()

	// Initialize C register (INITDEC procedure)
	// C.3.5 Initialization of the decoder
	if len(data) == 0 {
		d.C = 0xFF << 16
	} else {
		d.bp = 0
		d.C = uint32(data[0]) << 16
	}
	d.fetchByte()
	d.C <<= 7
	d.CT -= 7
	d.A = 0x8000

	return d
}

// fetchByte implements the BYTEIN procedure: a byte beyond the end of the
// segment reads as 0xFF (standard §C.3), and a 0xFF data byte is followed by
// a 7-bit stuffed byte rather than a full one, mirroring emitByte's stuffing
// on the encode side.
func (d *MQDecoder) fetchByte() {
	if d.bp < 0 {
		d.bp = 0
	}

	if d.bp >= len(d.data) {
		d.C += 0xFF00
		d.CT = 8
		d.endCounter++
		return
	}

	var nextByte byte
	if d.bp+1 < len(d.data) {
		nextByte = d.data[d.bp+1]
	} else {
		nextByte = 0xFF
	}

	if d.data[d.bp] == 0xFF {
		if nextByte > 0x8F {
			// Marker - don't advance
			d.C += 0xFF00
			d.CT = 8
			d.endCounter++
		} else {
			d.bp++
			d.C += uint32(nextByte) << 9
			d.CT = 7
		}
	} else {
		d.bp++
		d.C += uint32(nextByte) << 8
		d.CT = 8
	}
}

// Decode decodes a binary decision for the given context.
// Optimized: uses flat arrays and inlines exchange handling.
func (d *MQDecoder) Decode(ctx int) int {
	stateIdx := d.contexts[ctx]
	qe := mqQeTable[stateIdx]
	mps := int(stateIdx & 1)

	d.A -= qe

	if (d.C >> 16) < qe {
		// Upper (LPS) sub-interval
		var decision int
		if d.A < qe {
			// Conditional exchange: actually MPS
			d.A = qe
			decision = mps
			d.contexts[ctx] = mqNextMPS[stateIdx]
		} else {
			// LPS
			d.A = qe
			decision = 1 - mps
			d.contexts[ctx] = mqNextLPS[stateIdx]
		}
		d.renormalize()
		return decision
	}

	// Lower (MPS) sub-interval
	d.C -= qe << 16
	if (d.A & 0x8000) == 0 {
		var decision int
		if d.A < qe {
			// Conditional exchange: actually LPS
			decision = 1 - mps
			d.contexts[ctx] = mqNextLPS[stateIdx]
		} else {
			// MPS
			decision = mps
			d.contexts[ctx] = mqNextMPS[stateIdx]
		}
		d.renormalize()
		return decision
	}
	return mps
}

// renormalize performs decoder interval renormalization (RENORMD).
func (d *MQDecoder) renormalize() {
	for (d.A & 0x8000) == 0 {
		if d.CT == 0 {
			d.fetchByte()
		}
		d.A <<= 1
		d.C <<= 1
		d.CT--
	}
}

// ResetContext resets a specific context to its initial state.
func (d *MQDecoder) ResetContext(ctx int) {
	if ctx == CtxUni {
		d.contexts[ctx] = initialUniformState
	} else {
		d.contexts[ctx] = 0
	}
}

// ResetAllContexts resets all contexts to their initial states.
func (d *MQDecoder) ResetAllContexts() {
	for i := range d.contexts {
		d.contexts[i] = 0
	}
	d.contexts[CtxUni] = initialUniformState
}

// RawDecoder implements raw (bypass) mode decoding.
type RawDecoder struct {
	data []byte
	pos  int
	c    byte
	ct   int
}

// NewRawDecoder creates a new raw decoder.
func NewRawDecoder(data []byte) *RawDecoder {
	return &RawDecoder{data: data}
}

// DecodeBit decodes a single bit in raw mode.
func (r *RawDecoder) DecodeBit() int {
	if r.ct == 0 {
		if r.c == 0xFF {
			if r.pos < len(r.data) && r.data[r.pos] > 0x8F {
				r.c = 0xFF
				r.ct = 8
			} else if r.pos < len(r.data) {
				r.c = r.data[r.pos]
				r.pos++
				r.ct = 7
			} else {
				r.c = 0xFF
				r.ct = 8
			}
		} else {
			if r.pos < len(r.data) {
				r.c = r.data[r.pos]
				r.pos++
				r.ct = 8
			} else {
				r.c = 0xFF
				r.ct = 8
			}
		}
	}
	r.ct--
	return int((r.c >> r.ct) & 1)
}

// RawEncoder implements raw (bypass) mode encoding.
type RawEncoder struct {
	buf []byte
	c   uint32
	ct  int
}

// NewRawEncoder creates a new raw encoder.
func NewRawEncoder() *RawEncoder {
	return &RawEncoder{
		buf: make([]byte, 0, 64),
		ct:  8,
	}
}

// EncodeBit encodes a single bit in raw mode.
func (r *RawEncoder) EncodeBit(bit int) {
	r.ct--
	r.c = r.c + (uint32(bit&1) << r.ct)
	if r.ct == 0 {
		r.buf = append(r.buf, byte(r.c))
		r.ct = 8
		if byte(r.c) == 0xFF {
			r.ct = 7
		}
		r.c = 0
	}
}

// Flush flushes remaining bits and returns the data.
func (r *RawEncoder) Flush() []byte {
	if r.ct < 8 {
		r.buf = append(r.buf, byte(r.c))
	}
	return r.buf
}
