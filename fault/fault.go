package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	InvalidInput
	ProviderUnavailable
	ProviderRejected
	ProviderContractViolation
	StoreUnavailable
	DuplicateKey
	PersistFailed
	NotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case ProviderUnavailable:
		return "provider_unavailable"
	case ProviderRejected:
		return "provider_rejected"
	case ProviderContractViolation:
		return "provider_contract_violation"
	case StoreUnavailable:
		return "store_unavailable"
	case DuplicateKey:
		return "duplicate_key"
	case PersistFailed:
		return "persist_failed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Retryable reports whether a caller may reasonably retry with backoff.
func (k Kind) Retryable() bool {
	return k == ProviderUnavailable || k == StoreUnavailable
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
