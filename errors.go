package jp2k

import "fmt"

// ErrorKind identifies the category of a codec error, letting callers
// branch on failure type with errors.As instead of matching message text.
type ErrorKind int

const (
	// ErrUnexpectedEndOfStream indicates a read could not be satisfied
	// because the input was exhausted.
	ErrUnexpectedEndOfStream ErrorKind = iota
	// ErrInvalidMarker indicates a marker id outside 0xFF00..0xFFFF, or a
	// marker that appeared outside the states it is legal in.
	ErrInvalidMarker
	// ErrCorruptJP2Box indicates a box length smaller than the 8-byte
	// header, or a box whose length extends past its enclosing box.
	ErrCorruptJP2Box
	// ErrCorruptCodeStream indicates a mandatory marker is missing or
	// declared sizes are inconsistent with no recovery hint.
	ErrCorruptCodeStream
	// ErrCorruptTilePart indicates a tile-part's declared length overruns
	// the remaining stream.
	ErrCorruptTilePart
	// ErrCorruptCodeBlock indicates a tier-1 integrity check (segsym,
	// pterm) failed.
	ErrCorruptCodeBlock
	// ErrTruncatedPacketHeader indicates the tier-2 bit-stream was
	// exhausted while decoding a packet header field.
	ErrTruncatedPacketHeader
	// ErrInvalidConfiguration indicates a user-supplied option was
	// outside its supported range.
	ErrInvalidConfiguration
	// ErrIoFailure indicates a caller-supplied sink or source reported
	// a failure.
	ErrIoFailure
)

// String returns the error kind's name.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpectedEndOfStream:
		return "UnexpectedEndOfStream"
	case ErrInvalidMarker:
		return "InvalidMarker"
	case ErrCorruptJP2Box:
		return "CorruptJP2Box"
	case ErrCorruptCodeStream:
		return "CorruptCodeStream"
	case ErrCorruptTilePart:
		return "CorruptTilePart"
	case ErrCorruptCodeBlock:
		return "CorruptCodeBlock"
	case ErrTruncatedPacketHeader:
		return "TruncatedPacketHeader"
	case ErrInvalidConfiguration:
		return "InvalidConfiguration"
	case ErrIoFailure:
		return "IoFailure"
	default:
		return "Unknown"
	}
}

// CodecError is the concrete error type returned for every codec failure
// kind in §7. It carries the structured context (marker id, tile index,
// byte offset) a diagnostic sink needs to render a precise message,
// rather than relying on message-text matching.
type CodecError struct {
	Kind ErrorKind

	// Marker is the marker id involved, if any (0 if not applicable).
	Marker uint16
	// TileIndex is the tile involved, if any (-1 if not applicable).
	TileIndex int
	// Offset is the byte offset in the stream where the error was
	// detected, if known (-1 if not applicable).
	Offset int64

	Msg string
	Err error
}

func (e *CodecError) Error() string {
	s := fmt.Sprintf("jp2k: %s: %s", e.Kind, e.Msg)
	if e.Marker != 0 {
		s += fmt.Sprintf(" (marker=0x%04X)", e.Marker)
	}
	if e.TileIndex >= 0 {
		s += fmt.Sprintf(" (tile=%d)", e.TileIndex)
	}
	if e.Offset >= 0 {
		s += fmt.Sprintf(" (offset=%d)", e.Offset)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// newCodecError builds a CodecError with no marker/tile/offset context set.
func newCodecError(kind ErrorKind, msg string, err error) *CodecError {
	return &CodecError{Kind: kind, TileIndex: -1, Offset: -1, Msg: msg, Err: err}
}

// withMarker attaches a marker id to the error, returning the same error
// for chaining at the call site.
func (e *CodecError) withMarker(marker uint16) *CodecError {
	e.Marker = marker
	return e
}

// withTile attaches a tile index to the error, returning the same error
// for chaining at the call site.
func (e *CodecError) withTile(tileIndex int) *CodecError {
	e.TileIndex = tileIndex
	return e
}

// withOffset attaches a byte offset to the error, returning the same
// error for chaining at the call site.
func (e *CodecError) withOffset(offset int64) *CodecError {
	e.Offset = offset
	return e
}
