package migration

import (
	"errors"
	"fmt"
)

// Kind classifies the seven error categories the engine surfaces.
// Callers should match on these with errors.Is/errors.As rather than
// type-switch, since a Kind is always wrapped in an *Error.
type Kind int

const (
	// KindIO covers disk/filesystem failures, scaffolding paths only.
	KindIO Kind = iota
	// KindBackend wraps any failure reported by the concrete vector-store driver.
	KindBackend
	// KindSerde covers payload encode/decode failures.
	KindSerde
	// KindGraph covers missing head, missing target revision, or an
	// Applied entry lacking a persistence handle.
	KindGraph
	// KindContext covers a migration asking for an absent resource.
	KindContext
	// KindMissingMigration covers LatestRevision called on an empty set.
	KindMissingMigration
	// KindUUIDParse covers a malformed identifier in a ledger record.
	KindUUIDParse
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindBackend:
		return "backend"
	case KindSerde:
		return "serde"
	case KindGraph:
		return "graph"
	case KindContext:
		return "context"
	case KindMissingMigration:
		return "missing_migration"
	case KindUUIDParse:
		return "uuid_parse"
	default:
		return "unknown"
	}
}

// Error is the engine's single error type: one Kind field plus a
// wrapped cause, rather than a distinct type per failure mode.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

// Error renders this level only ("kind: message"); the wrapped cause is
// reached via Unwrap, not embedded here, so Chain can print each level
// once instead of nesting the same text repeatedly.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is(err, ErrNotFound) match regardless of message/wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Wrapped != nil || t.Message != "" {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is comparisons against a Kind alone.
var (
	ErrNotFound            = &Error{Kind: KindGraph}
	ErrResourceMissing     = &Error{Kind: KindContext}
	ErrMissingMigration    = &Error{Kind: KindMissingMigration}
	ErrDuplicateLedgerName = &Error{Kind: KindSerde}
)

func newError(kind Kind, message string, wrapped error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: wrapped}
}

func ioErrorf(wrapped error, format string, args ...any) error {
	return newError(KindIO, fmt.Sprintf(format, args...), wrapped)
}

func backendErrorf(wrapped error, format string, args ...any) error {
	return newError(KindBackend, fmt.Sprintf(format, args...), wrapped)
}

func serdeErrorf(wrapped error, format string, args ...any) error {
	return newError(KindSerde, fmt.Sprintf(format, args...), wrapped)
}

// DuplicateLedgerNameErrorf builds the KindSerde error a Ledger
// implementation returns from Retrieve when two records share a name,
// so errors.Is(err, ErrDuplicateLedgerName) succeeds from outside this
// package.
func DuplicateLedgerNameErrorf(format string, args ...any) error {
	return serdeErrorf(nil, format, args...)
}

func graphNotFound(what string) error {
	return newError(KindGraph, fmt.Sprintf("%s not found", what), nil)
}

func contextErrorf(format string, args ...any) error {
	return newError(KindContext, fmt.Sprintf(format, args...), nil)
}

func uuidParseErrorf(wrapped error, format string, args ...any) error {
	return newError(KindUUIDParse, fmt.Sprintf(format, args...), wrapped)
}

// Chain renders the full cause chain, one line per wrapped error, for
// CLI-facing failure output.
func Chain(err error) string {
	var b []byte
	for err != nil {
		if len(b) > 0 {
			b = append(b, '\n', ' ', ' ', '-', ' ')
		}
		b = append(b, err.Error()...)
		err = errors.Unwrap(err)
	}
	return string(b)
}
