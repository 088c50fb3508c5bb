package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrIneligibleRequest   = errors.New("loan request is not eligible")
	ErrLoanNotActive       = errors.New("loan is not active")
	ErrLoanNotCompleted    = errors.New("loan is not completed")
	ErrGuarantorPair       = errors.New("exactly two guarantors are required")
	ErrConcurrentPosting   = errors.New("loan was modified by a concurrent posting")
	ErrDecisionNotApproved = errors.New("eligibility decision is not approved")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeIneligibleRequest  = "INELIGIBLE_REQUEST"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodeCacheError         = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapCustomerNotFound(customerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Customer with ID %s not found", customerID),
		ErrCustomerNotFound,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidArgument(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidArgument,
		message,
		ErrInvalidArgument,
	)
}

func WrapIneligibleRequest(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeIneligibleRequest,
		reason,
		ErrIneligibleRequest,
	)
}

func WrapLoanNotActive(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidState,
		fmt.Sprintf("Loan with ID %s is %s, postings require an active loan", loanID, status),
		ErrLoanNotActive,
	)
}

func WrapLoanNotCompleted(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidState,
		fmt.Sprintf("Loan with ID %s is %s, completion certificate requires a completed loan", loanID, status),
		ErrLoanNotCompleted,
	)
}

func WrapPersistenceFailure(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePersistenceFailure,
		"transactional write failed, no partial state was committed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}

// CodeOf extracts the business error code, or PERSISTENCE_FAILURE for
// unclassified errors.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodePersistenceFailure
}
