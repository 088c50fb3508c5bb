package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// CreateWithGuarantors persists a loan and its guarantor pair as a
	// single transaction, all-or-nothing
	CreateWithGuarantors(ctx context.Context, loan *domain.Loan, guarantors []*domain.Guarantor) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GuarantorsByLoanID retrieves the guarantor pair ordered by type
	GuarantorsByLoanID(ctx context.Context, loanID string) ([]*domain.Guarantor, error)

	// ApplyPosting writes the new balance and status together with the
	// posting row in one transaction. previousOutstanding guards against a
	// concurrent posting having moved the balance in between.
	ApplyPosting(ctx context.Context, loan *domain.Loan, previousOutstanding decimal.Decimal, posting *domain.EmiPosting) error

	// List retrieves all loans, most recent first
	List(ctx context.Context) ([]*domain.Loan, error)
}

// PostingRepository defines the interface for EMI posting reads. Postings
// are only ever written through LoanRepository.ApplyPosting.
type PostingRepository interface {
	// GetByLoanID retrieves all postings for a loan in payment order
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.EmiPosting, error)

	// TotalPrincipalPaid sums the principal portions posted against a loan
	TotalPrincipalPaid(ctx context.Context, loanID string) (decimal.Decimal, error)
}

// CustomerDirectory supplies the customer facts needed for underwriting.
type CustomerDirectory interface {
	// GetByCustomerID retrieves salary and birth date for a customer
	GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error)

	// SumActiveLoanOutstanding aggregates the customer's active exposure
	SumActiveLoanOutstanding(ctx context.Context, customerID string) (decimal.Decimal, error)
}
