package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/domain"
	customError "github.com/finbranch/loan-engine/pkg/errors"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) CreateWithGuarantors(ctx context.Context, loan *domain.Loan, guarantors []*domain.Guarantor) error {
	if len(guarantors) != 2 {
		return customError.ErrGuarantorPair
	}

	loanQuery := `
		INSERT INTO loans (id, loan_id, customer_id, principal, annual_rate_percent, tenure_months,
			emi_amount, outstanding_principal, status, disbursement_date, maturity_date,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	guarantorQuery := `
		INSERT INTO guarantors (id, loan_id, guarantor_type, full_name, document_number,
			address, phone, relationship, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, loanQuery,
		loan.ID,
		loan.LoanID,
		loan.CustomerID,
		loan.Principal,
		loan.AnnualRatePercent,
		loan.TenureMonths,
		loan.EMIAmount,
		loan.OutstandingPrincipal,
		loan.Status,
		loan.DisbursementDate,
		loan.MaturityDate,
		loan.CreatedBy,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, guarantor := range guarantors {
		_, err = tx.ExecContext(ctx, guarantorQuery,
			guarantor.ID,
			guarantor.LoanID,
			guarantor.Type,
			guarantor.FullName,
			guarantor.DocumentNumber,
			guarantor.Address,
			guarantor.Phone,
			guarantor.Relationship,
			guarantor.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, customer_id, principal, annual_rate_percent, tenure_months,
			emi_amount, outstanding_principal, status, disbursement_date, maturity_date,
			created_by, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GuarantorsByLoanID(ctx context.Context, loanID string) ([]*domain.Guarantor, error) {
	query := `
		SELECT id, loan_id, guarantor_type, full_name, document_number, address, phone, relationship, created_at
		FROM guarantors
		WHERE loan_id = $1
		ORDER BY guarantor_type
	`

	var guarantors []*domain.Guarantor
	err := r.db.SelectContext(ctx, &guarantors, query, loanID)
	if err != nil {
		return nil, err
	}

	return guarantors, nil
}

func (r *loanRepository) ApplyPosting(ctx context.Context, loan *domain.Loan, previousOutstanding decimal.Decimal, posting *domain.EmiPosting) error {
	updateQuery := `
		UPDATE loans
		SET outstanding_principal = $2, status = $3, updated_at = $4
		WHERE loan_id = $1 AND outstanding_principal = $5
	`
	postingQuery := `
		INSERT INTO emi_postings (id, loan_id, payment_date, emi_amount, interest_portion,
			principal_portion, outstanding_after, collected_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, updateQuery,
		loan.LoanID,
		loan.OutstandingPrincipal,
		loan.Status,
		time.Now(),
		previousOutstanding,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.ErrConcurrentPosting
	}

	_, err = tx.ExecContext(ctx, postingQuery,
		posting.ID,
		posting.LoanID,
		posting.PaymentDate,
		posting.EMIAmount,
		posting.InterestPortion,
		posting.PrincipalPortion,
		posting.OutstandingAfter,
		posting.CollectedBy,
		posting.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT id, loan_id, customer_id, principal, annual_rate_percent, tenure_months,
			emi_amount, outstanding_principal, status, disbursement_date, maturity_date,
			created_by, created_at, updated_at
		FROM loans
		ORDER BY created_at DESC
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query)
	if err != nil {
		return nil, err
	}

	return loans, nil
}
