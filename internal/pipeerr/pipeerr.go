// Package pipeerr defines the typed error taxonomy of the import pipeline.
//
// The legacy tool this was ported from used exceptions for control flow in
// the resolution stages; per the design notes that is replaced here with
// explicit error values carrying a Kind, so callers can switch on the
// failure class without string-matching messages.
package pipeerr

import "fmt"

// Kind classifies a pipeline error per the error handling design.
type Kind int

const (
	// Parse marks a malformed log record. Always fatal at parse stage.
	Parse Kind = iota
	// RepositoryConsistency marks a revision that the previous one does
	// not directly precede under a strict-apply RepositoryState.
	RepositoryConsistency
	// TagResolution marks a label that could not be resolved: no
	// candidate, an inconsistent branch path, an unreachable missing
	// file, or a partial-label threshold overrun.
	TagResolution
	// ImportFailed marks a post-resolution invariant violation.
	ImportFailed
	// Content marks a content-fetch failure surfacing from the emitter path.
	Content
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case RepositoryConsistency:
		return "repository-consistency"
	case TagResolution:
		return "tag-resolution"
	case ImportFailed:
		return "import-failed"
	case Content:
		return "content"
	default:
		return "unknown"
	}
}

// Error is a typed pipeline failure.
type Error struct {
	kind    Kind
	msg     string
	wrapped error
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message context to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), wrapped: err}
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Kind reports the error's class.
func (e *Error) Kind() Kind { return e.kind }

// Unwrap supports errors.Is/As against the wrapped cause.
func (e *Error) Unwrap() error { return e.wrapped }

// Fatal reports whether this error class always halts the pipeline
// regardless of continue-on-error, per the error handling design: Parse
// and ImportFailed are always fatal; RepositoryConsistency is fatal only
// under strict apply (callers decide that before wrapping); TagResolution
// is downgradeable by continue-on-error.
func (e *Error) Fatal() bool {
	switch e.kind {
	case Parse, ImportFailed:
		return true
	default:
		return false
	}
}
