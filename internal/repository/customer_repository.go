package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/domain"
)

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerDirectory(db *sqlx.DB) CustomerDirectory {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error) {
	query := `
		SELECT id, full_name, monthly_salary, date_of_birth, created_at
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	err := r.db.GetContext(ctx, &customer, query, customerID)
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepository) SumActiveLoanOutstanding(ctx context.Context, customerID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(outstanding_principal), 0)
		FROM loans
		WHERE customer_id = $1 AND status = 'active'
	`

	var exposure decimal.Decimal
	err := r.db.GetContext(ctx, &exposure, query, customerID)
	if err != nil {
		return decimal.Zero, err
	}

	return exposure, nil
}
