package services

import (
	"errors"

	"StoreProAPI/internal/repository"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindBusinessRule
	KindForbidden
	KindUnauthorized
	KindUpstream
)

// AppError carries a client-facing message and the kind that decides the
// HTTP status. Err, when set, is the underlying cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Business rule causes, matchable with errors.Is through an AppError.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = repository.ErrInsufficientStock
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrCircularCategory  = errors.New("circular category reference")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
)

func validation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

func notFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func businessRule(cause error, msg string) *AppError {
	return &AppError{Kind: KindBusinessRule, Message: msg, Err: cause}
}

func forbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Message: msg}
}

func unauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

func upstream(msg string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// mapNotFound turns repository.ErrNotFound into a NotFound AppError with msg.
func mapNotFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(msg)
	}
	return err
}
