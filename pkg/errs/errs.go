// Package errs defines the typed error taxonomy shared by services and the
// HTTP layer.
//
// Services return *errs.Error values; pkg/response turns them into status
// codes. Wrap lower-level causes so errors.Is keeps working:
//
//	return errs.Upstream("assist.Demand", "demand score unavailable", err)
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and transports.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindUnauthenticated
	KindConflict
	KindIntegrity
	KindUpstream
	KindTimeout
	KindRateLimit
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindValidation:      "validation",
	KindNotFound:        "not_found",
	KindAuthorization:   "forbidden",
	KindUnauthenticated: "unauthenticated",
	KindConflict:        "conflict",
	KindIntegrity:       "integrity",
	KindUpstream:        "upstream",
	KindTimeout:         "timeout",
	KindRateLimit:       "rate_limited",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Error is the concrete error type returned by the service layer.
type Error struct {
	Kind    Kind
	Op      string            // operation that failed, e.g. "negotiation.Resolve"
	Message string            // safe to show to clients
	Fields  map[string]string // field errors (validation) or record ids (integrity)
	Err     error             // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// FieldsOf returns the Fields of the first *Error in err's chain.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal Server Error"
}

// ─── Constructors ────────────────────────────────────────────────────────────

func Validation(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "Validation failed", Fields: fields}
}

func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(op, format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(op, message string) *Error {
	return &Error{Kind: KindUnauthenticated, Op: op, Message: message}
}

func Conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Integrity reports a partially applied multi-record change. ids names every
// record involved so an operator can reconcile them.
func Integrity(op, message string, ids map[string]string, cause error) *Error {
	return &Error{Kind: KindIntegrity, Op: op, Message: message, Fields: ids, Err: cause}
}

func Upstream(op, message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Message: message, Err: cause}
}

func Timeout(op, message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: message, Err: cause}
}

func RateLimited(op, message string) *Error {
	return &Error{Kind: KindRateLimit, Op: op, Message: message}
}
