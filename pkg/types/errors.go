package types

import (
	"errors"
	"fmt"
	"strings"
)

// Operation errors. Every failure a service reports to an operator wraps one
// of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrOutOfStock          = errors.New("out of stock")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrHasOutstandingLoans = errors.New("has outstanding loans")
	ErrNoChange            = errors.New("no change")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidCredentials  = errors.New("invalid user name or password")
)

// Storage lifecycle errors.
var (
	ErrDetached        = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// Kind classifies an error for the presentation layer.
type Kind string

// Error kinds, one per operation error.
const (
	KindNone                Kind = ""
	KindInvalidInput        Kind = "InvalidInput"
	KindAlreadyExists       Kind = "AlreadyExists"
	KindNotFound            Kind = "NotFound"
	KindCategoryNotFound    Kind = "CategoryNotFound"
	KindOutOfStock          Kind = "OutOfStock"
	KindInsufficientStock   Kind = "InsufficientStock"
	KindHasOutstandingLoans Kind = "HasOutstandingLoans"
	KindNoChange            Kind = "NoChange"
	KindPermissionDenied    Kind = "PermissionDenied"
	KindInvalidCredentials  Kind = "InvalidCredentials"
	KindInternal            Kind = "Internal"
)

// kindOrder is checked in order; ErrCategoryNotFound must precede ErrNotFound
// because a missing category is reported separately from a missing row.
var kindOrder = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrCategoryNotFound, KindCategoryNotFound},
	{ErrNotFound, KindNotFound},
	{ErrOutOfStock, KindOutOfStock},
	{ErrInsufficientStock, KindInsufficientStock},
	{ErrHasOutstandingLoans, KindHasOutstandingLoans},
	{ErrNoChange, KindNoChange},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrInvalidCredentials, KindInvalidCredentials},
}

// KindOf returns the Kind of err. Errors that wrap none of the operation
// errors are KindInternal; a nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsOperational reports whether err is an operator-facing outcome rather
// than an infrastructure failure.
func IsOperational(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindInternal
}

// InvalidInputf returns an error wrapping ErrInvalidInput with a message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// StockError reports a lend that asked for more copies than are available.
// It unwraps to ErrOutOfStock when nothing is left and to
// ErrInsufficientStock otherwise; Available is the alternate quantity the
// operator may accept instead.
type StockError struct {
	Title     string
	Category  string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available == 0 {
		return fmt.Sprintf("out of %q in %q category", e.Title, e.Category)
	}
	return fmt.Sprintf("only %d of %q left in %q category, %d requested",
		e.Available, e.Title, e.Category, e.Requested)
}

func (e *StockError) Unwrap() error {
	if e.Available == 0 {
		return ErrOutOfStock
	}
	return ErrInsufficientStock
}

// NotInCategoryError reports a book title missing from the requested
// category. Categories lists where the title does exist, if anywhere.
type NotInCategoryError struct {
	Title      string
	Category   string
	Categories []string
}

func (e *NotInCategoryError) Error() string {
	if len(e.Categories) == 0 {
		return fmt.Sprintf("%q not found", e.Title)
	}
	return fmt.Sprintf("%q is not in %q category, try %s",
		e.Title, e.Category, strings.Join(e.Categories, ", "))
}

func (e *NotInCategoryError) Unwrap() error { return ErrNotFound }

// OutstandingLoansError reports a delete blocked by clients that still owe
// books. Subject names what was being deleted.
type OutstandingLoansError struct {
	Subject string
	Owing   []string
}

func (e *OutstandingLoansError) Error() string {
	return fmt.Sprintf("cannot delete %s: not returned by %s", e.Subject, e.Summary())
}

func (e *OutstandingLoansError) Unwrap() error { return ErrHasOutstandingLoans }

// Summary renders the owing clients, showing at most two names followed by
// the count of the rest.
func (e *OutstandingLoansError) Summary() string {
	switch n := len(e.Owing); {
	case n == 0:
		return ""
	case n == 1:
		return e.Owing[0]
	case n == 2:
		return e.Owing[0] + " and " + e.Owing[1]
	default:
		return fmt.Sprintf("%s, %s and %d more", e.Owing[0], e.Owing[1], n-2)
	}
}
