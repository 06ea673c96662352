package jp2k

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity classifies a Diagnostic's importance. It never changes the
// codec's return value; only Severity == error can accompany an
// operation's fatal failure, and even then the CodecError returned from
// Encode/Decode carries the authoritative reason.
type Severity int

const (
	// SeverityInfo reports routine, expected fallback behaviour (e.g. a
	// profile override chosen silently in favour of a conflicting option).
	SeverityInfo Severity = iota
	// SeverityWarn reports recoverable corruption: a truncated tile-part,
	// an undeclared extra tile-part, a zeroed code-block.
	SeverityWarn
	// SeverityError reports a condition that accompanies (or precedes) a
	// fatal return from the call that produced it.
	SeverityError
)

// String returns the severity's name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diag is one diagnostic event. Component names one of the six core
// subsystems or an ambient concern ("t1", "t2", "markers", "jp2box",
// "dwt", "facade"); Session, when non-nil, is the correlation id of the
// Session that produced it.
type Diag struct {
	Severity  Severity
	Component string
	Message   string
	Session   uuid.UUID
}

// String renders the diagnostic the way the default sink logs it.
func (d Diag) String() string {
	if d.Session == uuid.Nil {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Component, d.Message)
	}
	return fmt.Sprintf("[%s] %s (session=%s): %s", d.Severity, d.Component, d.Session, d.Message)
}

// Diagnostic is the caller-supplied reporting hook every subsystem that can
// produce a non-fatal event (tier-1 block zeroing, truncated tile-part
// recovery, marker tolerance fallbacks, profile overrides) reports through,
// a single typed callback shared by encode and decode.
type Diagnostic func(Diag)

// defaultDiagnostic is the fallback sink installed when a caller leaves
// Options.Diagnostic / Config.Diagnostic nil. It writes through the
// standard library's log package for non-fatal events.
func defaultDiagnostic(d Diag) {
	log.Print(d.String())
}

// NewFileDiagnostic returns a Diagnostic that writes through a rotating
// log file, for long-running server-side transcoding sessions that would
// otherwise need external logrotate configuration around a plain os.File.
// filename, maxSizeMB, maxBackups and maxAgeDays are passed straight
// through to lumberjack.Logger.
func NewFileDiagnostic(filename string, maxSizeMB, maxBackups, maxAgeDays int) Diagnostic {
	logger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	l := log.New(logger, "", log.LstdFlags)
	return func(d Diag) {
		l.Print(d.String())
	}
}

// NewMultiDiagnostic fans a single diagnostic event out to several sinks,
// e.g. the default stderr-backed logger plus a rotating file sink.
func NewMultiDiagnostic(sinks ...Diagnostic) Diagnostic {
	return func(d Diag) {
		for _, sink := range sinks {
			if sink != nil {
				sink(d)
			}
		}
	}
}

// discardDiagnostic drops every event. Used internally when a call site
// wants to suppress a particular diagnostic stream without nil checks.
func discardDiagnostic(Diag) {}

// stampSession wraps sink so every Diag it receives carries session,
// unless the event already named one (a sub-component forwarding a Diag
// it received from elsewhere shouldn't have its origin overwritten).
func stampSession(sink Diagnostic, session uuid.UUID) Diagnostic {
	return func(d Diag) {
		if d.Session == uuid.Nil {
			d.Session = session
		}
		sink(d)
	}
}
