package apperror

import "errors"

// Kind describes a stable error category that can be mapped to HTTP status codes.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindProviderTransient Kind = "provider_transient"
	KindProviderPermanent Kind = "provider_permanent"
	KindLedgerIntegrity   Kind = "ledger_integrity"
)

// Error is a typed error with a stable Kind and a human-readable message.
// Msg should be safe to return to clients for Validation/NotFound/Conflict.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string, err error) error   { return New(KindNotFound, msg, err) }
func Validation(msg string, err error) error { return New(KindValidation, msg, err) }
func Conflict(msg string, err error) error   { return New(KindConflict, msg, err) }

// ProviderTransient marks a retriable provider failure (timeout, 5xx).
func ProviderTransient(msg string, err error) error { return New(KindProviderTransient, msg, err) }

// ProviderPermanent marks a provider rejection that must not be retried.
func ProviderPermanent(msg string, err error) error { return New(KindProviderPermanent, msg, err) }

// LedgerIntegrity marks a violation of a financial invariant. Always fatal
// to the operation; the enclosing transaction must roll back.
func LedgerIntegrity(msg string, err error) error { return New(KindLedgerIntegrity, msg, err) }

func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Retriable reports whether the error may succeed on retry.
func Retriable(err error) bool {
	return Is(err, KindProviderTransient)
}
