package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Failure kinds. Match them with errors.Is on any error returned by this
// package.
var (
	// ErrValidation: missing or malformed URL, or an unusable price. Nothing
	// was read or written; retrying the same input will fail again.
	ErrValidation = errors.New("validation error")
	// ErrFetchFailed: the listing page was unreachable or carried no price.
	// No state was changed, so the check can be retried.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrStore: the store was unreachable or a write failed. The
	// reconciliation was rolled back and can be retried once the store is up.
	ErrStore = errors.New("store error")
)

// CheckError carries the failure kind plus the URL and price being handled.
type CheckError struct {
	Kind  error
	URL   string
	Price *decimal.Decimal
	Err   error
}

func (e *CheckError) Error() string {
	msg := fmt.Sprintf("%v: url=%q", e.Kind, e.URL)
	if e.Price != nil {
		msg += " price=" + e.Price.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CheckError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func validationError(url string, price *decimal.Decimal, reason string) error {
	return &CheckError{Kind: ErrValidation, URL: url, Price: price, Err: errors.New(reason)}
}
