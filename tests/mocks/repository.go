package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/finbranch/loan-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) CreateWithGuarantors(ctx context.Context, loan *domain.Loan, guarantors []*domain.Guarantor) error {
	args := m.Called(ctx, loan, guarantors)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GuarantorsByLoanID(ctx context.Context, loanID string) ([]*domain.Guarantor, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Guarantor), args.Error(1)
}

func (m *MockLoanRepository) ApplyPosting(ctx context.Context, loan *domain.Loan, previousOutstanding decimal.Decimal, posting *domain.EmiPosting) error {
	args := m.Called(ctx, loan, previousOutstanding, posting)
	return args.Error(0)
}

func (m *MockLoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

type MockPostingRepository struct {
	mock.Mock
}

func (m *MockPostingRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.EmiPosting, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmiPosting), args.Error(1)
}

func (m *MockPostingRepository) TotalPrincipalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCustomerDirectory) SumActiveLoanOutstanding(ctx context.Context, customerID string) (decimal.Decimal, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
