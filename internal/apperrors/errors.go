// Package apperrors classifies pipeline failures so the orchestrator and the
// queue layer can tell an expected rejection from a job that should be retried.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindValidation marks a document that cannot be processed as uploaded.
	KindValidation Kind = "validation"
	// KindLanguage marks an unsupported language or a missing translation path.
	KindLanguage Kind = "language"
	// KindService marks a failed call into the translation service.
	KindService Kind = "service"
	// KindIntegrity marks translated output that no longer lines up with its input.
	KindIntegrity Kind = "integrity"
	// KindPersistence marks an object store read, write, copy or delete failure.
	KindPersistence Kind = "persistence"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New wraps err with a kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error  { return New(KindValidation, op, err) }
func Language(op string, err error) error    { return New(KindLanguage, op, err) }
func Service(op string, err error) error     { return New(KindService, op, err) }
func Integrity(op string, err error) error   { return New(KindIntegrity, op, err) }
func Persistence(op string, err error) error { return New(KindPersistence, op, err) }

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// IsRetryable reports whether re-running the whole job could succeed.
// Language and integrity failures are deterministic for a given document.
func IsRetryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	return kind == KindService || kind == KindPersistence
}
