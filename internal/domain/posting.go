package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EmiPosting is one applied installment. Rows are append-only: once written
// they are never mutated or deleted, they are the amortization audit trail.
// PrincipalPortion is the principal actually applied, so on the final
// installment it can be smaller than emi minus interest.
type EmiPosting struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	PaymentDate      time.Time       `json:"payment_date" db:"payment_date"`
	EMIAmount        decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	InterestPortion  decimal.Decimal `json:"interest_portion" db:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	OutstandingAfter decimal.Decimal `json:"outstanding_after" db:"outstanding_after"`
	CollectedBy      string          `json:"collected_by" db:"collected_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
