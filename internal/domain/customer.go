package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer carries the facts needed for underwriting. Owned by the customer
// directory, read-only for this engine.
type Customer struct {
	ID            string          `json:"id" db:"id"`
	FullName      string          `json:"full_name" db:"full_name"`
	MonthlySalary decimal.Decimal `json:"monthly_salary" db:"monthly_salary"`
	DateOfBirth   time.Time       `json:"date_of_birth" db:"date_of_birth"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
