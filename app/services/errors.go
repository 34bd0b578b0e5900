package services

import "fmt"

// Kind classifies a service failure; controllers map it to a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindAuth
	KindNotFound
	KindInsufficientStock
	KindAggregation
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindAggregation:
		return "aggregation"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Error is the typed error every service returns. Message is safe to show
// to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrNotFound) holds
// for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrAggregation       = &Error{Kind: KindAggregation}
	ErrStore             = &Error{Kind: KindStore}
)

func validationError(msg string, details ...any) *Error {
	e := &Error{Kind: KindValidation, Message: msg}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func notFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func insufficientStockError(remaining int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("Not enough quantity available. Only %d kg left", remaining),
	}
}

// storeError reports a database fault. The cause goes to Details so the
// client sees what failed, matching the order endpoint's contract.
func storeError(msg string, err error) *Error {
	e := &Error{Kind: KindStore, Message: msg, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}
