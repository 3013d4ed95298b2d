package docengine

import (
	"errors"
	"fmt"
)

// Kind classifies a docengine error by failure mode.
// Callers that need to branch on the failure mode should use errors.As to
// recover an *Error and switch on Kind, rather than string-matching Error().
type Kind int

const (
	// KindUnknown is never returned by this package; it is the zero value.
	KindUnknown Kind = iota

	// KindMissingField: ensureIndex was called without a field name.
	KindMissingField

	// KindUniqueViolation: an insert or update would create a duplicate key
	// in a unique index. Always surfaced after the index set has rolled
	// back any partial mutation.
	KindUniqueViolation

	// KindInvalidDocument: structural validation failed (e.g. a reserved
	// top-level key starting with '$').
	KindInvalidDocument

	// KindInvalidParameter: $skip/$limit negative or non-numeric, or a
	// $sort direction other than +1/-1.
	KindInvalidParameter

	// KindPersistenceFailure: the persistence collaborator failed; the
	// wrapped Cause is whatever it returned.
	KindPersistenceFailure

	// KindNotFound: a typed not-found, available through ErrNotFound. No
	// operation in this package returns it: FindOne reports a nil result
	// when nothing matches, and removeIndex on an absent field is not an
	// error.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing_field"
	case KindUniqueViolation:
		return "unique_violation"
	case KindInvalidDocument:
		return "invalid_document"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindPersistenceFailure:
		return "persistence_failure"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the structured error value every docengine public operation
// reports through its callback.
type Error struct {
	Kind    Kind
	Message string
	Field   string // populated for UniqueViolation/InvalidDocument/InvalidParameter where relevant
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrUniqueViolation) etc. work against the Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Sentinel instances usable with errors.Is(err, docengine.ErrUniqueViolation).
var (
	ErrMissingField      = &Error{Kind: KindMissingField, Message: "missing field name"}
	ErrUniqueViolation   = &Error{Kind: KindUniqueViolation, Message: "unique constraint violated"}
	ErrInvalidDocument   = &Error{Kind: KindInvalidDocument, Message: "invalid document"}
	ErrInvalidParameter  = &Error{Kind: KindInvalidParameter, Message: "invalid parameter"}
	ErrPersistenceFailed = &Error{Kind: KindPersistenceFailure, Message: "persistence failure"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
)

// asDocEngineError unwraps err looking for a *Error, mirroring errors.As but
// saving call sites the import.
func asDocEngineError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
