package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockSettingsProvider serves settings from a plain map.
type MockSettingsProvider struct {
	Values map[string]string
}

func (m *MockSettingsProvider) Get(_ context.Context, key string) (string, error) {
	return m.Values[key], nil
}

// MockNotifier records the audit events it was handed.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) LoanCreated(ctx context.Context, loanID, customerID string, amount decimal.Decimal, operatorID string) {
	m.Called(ctx, loanID, customerID, amount, operatorID)
}

func (m *MockNotifier) EmiPosted(ctx context.Context, loanID string, principalPortion, interestPortion decimal.Decimal, operatorID string) {
	m.Called(ctx, loanID, principalPortion, interestPortion, operatorID)
}
