package domainerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain error so callers can map it to the correct
// user-facing behaviour without inspecting messages.
type Kind string

const (
	KindValidationFailed  Kind = "validation_failed"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindIllegalTransition Kind = "illegal_transition"
	KindConflict          Kind = "conflict"
)

// FieldViolation describes one failed check on an input field.
type FieldViolation struct {
	Field string
	Rule  string
}

func (v FieldViolation) String() string {
	if v.Rule == "" {
		return v.Field
	}
	return v.Field + " (" + v.Rule + ")"
}

// Error is the single error type crossing the use-case boundary.
// Infrastructure errors are never wrapped into it; they propagate unchanged.
type Error struct {
	Kind       Kind
	Msg        string
	Violations []FieldViolation
}

func (e *Error) Error() string {
	if len(e.Violations) == 0 {
		return string(e.Kind) + ": " + e.Msg
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, strings.Join(parts, ", "))
}

// NewValidation reports every violated field at once, not just the first.
func NewValidation(violations ...FieldViolation) *Error {
	return &Error{Kind: KindValidationFailed, Msg: "invalid input", Violations: violations}
}

func NewNotFound(aggregate, id string) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %s not found", aggregate, id)}
}

func NewUnauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// NewIllegalTransition names both the attempted transition and the current
// state, so the refusal is explicit rather than silently ignored.
func NewIllegalTransition(current, requested string) *Error {
	return &Error{
		Kind: KindIllegalTransition,
		Msg:  fmt.Sprintf("cannot apply %s from status %s", requested, current),
	}
}

func NewConflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// KindOf extracts the kind of a domain error, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool { return KindOf(err) == k }
