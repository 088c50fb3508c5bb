package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
)

const (
	GuarantorTypePrimary   = 1
	GuarantorTypeSecondary = 2
)

// CompletionEpsilon is the rounding tolerance below which an outstanding
// balance counts as fully repaid.
var CompletionEpsilon = decimal.NewFromFloat(0.01)

// LoanApplication is the transient underwriting request. Nothing is
// persisted until the application is approved and turned into a Loan.
type LoanApplication struct {
	CustomerID        string          `json:"customer_id"`
	RequestedAmount   decimal.Decimal `json:"requested_amount"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	TenureMonths      int             `json:"tenure_months"`
	DisbursementDate  time.Time       `json:"disbursement_date"`
}

// Loan is the persisted ledger record. Principal, rate, tenure and EMI are
// fixed at creation; only OutstandingPrincipal and Status ever change, and
// only through EMI postings.
type Loan struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	LoanID               string          `json:"loan_id" db:"loan_id"`
	CustomerID           string          `json:"customer_id" db:"customer_id"`
	Principal            decimal.Decimal `json:"principal" db:"principal"`
	AnnualRatePercent    decimal.Decimal `json:"annual_rate_percent" db:"annual_rate_percent"`
	TenureMonths         int             `json:"tenure_months" db:"tenure_months"`
	EMIAmount            decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal" db:"outstanding_principal"`
	Status               string          `json:"status" db:"status"`
	DisbursementDate     time.Time       `json:"disbursement_date" db:"disbursement_date"`
	MaturityDate         time.Time       `json:"maturity_date" db:"maturity_date"`
	CreatedBy            string          `json:"created_by" db:"created_by"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// Guarantor is a co-obligor recorded against a loan. Exactly two per loan,
// tagged type 1 and 2, written in the same transaction as the loan itself.
type Guarantor struct {
	ID             uuid.UUID `json:"id" db:"id"`
	LoanID         string    `json:"loan_id" db:"loan_id"`
	Type           int       `json:"type" db:"guarantor_type"`
	FullName       string    `json:"full_name" db:"full_name"`
	DocumentNumber string    `json:"document_number" db:"document_number"`
	Address        string    `json:"address" db:"address"`
	Phone          string    `json:"phone" db:"phone"`
	Relationship   string    `json:"relationship" db:"relationship"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Decision is the outcome of an eligibility evaluation.
type Decision struct {
	Approved bool            `json:"approved"`
	Reason   string          `json:"reason"`
	EMI      decimal.Decimal `json:"emi,omitempty"`
}

// CertificateData is the snapshot handed to the certificate collaborator
// once a loan reaches completed status.
type CertificateData struct {
	LoanID           string          `json:"loan_id"`
	LoanAmount       decimal.Decimal `json:"loan_amount"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	TenureMonths     int             `json:"tenure_months"`
	DisbursementDate time.Time       `json:"disbursement_date"`
	CompletionDate   time.Time       `json:"completion_date"`
}

// DTOs for requests and responses

type GuarantorInput struct {
	FullName       string `json:"full_name" validate:"required"`
	DocumentNumber string `json:"document_number" validate:"required"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Relationship   string `json:"relationship"`
}

type CreateLoanRequest struct {
	CustomerID       string           `json:"customer_id" validate:"required"`
	RequestedAmount  string           `json:"requested_amount" validate:"required"`
	InterestRate     string           `json:"interest_rate"`
	TenureMonths     int              `json:"tenure_months" validate:"required,gt=0"`
	DisbursementDate string           `json:"disbursement_date"`
	Guarantors       []GuarantorInput `json:"guarantors" validate:"required,len=2,dive"`
}

type EvaluateRequest struct {
	CustomerID       string `json:"customer_id" validate:"required"`
	RequestedAmount  string `json:"requested_amount" validate:"required"`
	InterestRate     string `json:"interest_rate"`
	TenureMonths     int    `json:"tenure_months" validate:"required,gt=0"`
	DisbursementDate string `json:"disbursement_date"`
}

type CreateLoanResponse struct {
	Loan       *Loan        `json:"loan"`
	Guarantors []*Guarantor `json:"guarantors"`
}

type PostingsResponse struct {
	LoanID   string        `json:"loan_id"`
	Postings []*EmiPosting `json:"postings"`
}
