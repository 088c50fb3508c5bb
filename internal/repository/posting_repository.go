package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/domain"
)

type postingRepository struct {
	db *sqlx.DB
}

func NewPostingRepository(db *sqlx.DB) PostingRepository {
	return &postingRepository{db: db}
}

func (r *postingRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.EmiPosting, error) {
	query := `
		SELECT id, loan_id, payment_date, emi_amount, interest_portion, principal_portion,
			outstanding_after, collected_by, created_at
		FROM emi_postings
		WHERE loan_id = $1
		ORDER BY payment_date, created_at
	`

	var postings []*domain.EmiPosting
	err := r.db.SelectContext(ctx, &postings, query, loanID)
	if err != nil {
		return nil, err
	}

	return postings, nil
}

func (r *postingRepository) TotalPrincipalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(principal_portion), 0)
		FROM emi_postings
		WHERE loan_id = $1
	`

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, loanID)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
