package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/domain"
	"github.com/finbranch/loan-engine/internal/eligibility"
	"github.com/finbranch/loan-engine/internal/ledger"
	"github.com/finbranch/loan-engine/internal/settings"
	customError "github.com/finbranch/loan-engine/pkg/errors"
	"github.com/finbranch/loan-engine/pkg/response"
)

const operatorHeader = "X-Operator-Id"

const dateLayout = "2006-01-02"

type LoanHandler struct {
	evaluator *eligibility.Evaluator
	ledger    *ledger.Service
	settings  settings.Provider
	validator *validator.Validate
}

func NewLoanHandler(evaluator *eligibility.Evaluator, ledgerService *ledger.Service, provider settings.Provider) *LoanHandler {
	return &LoanHandler{
		evaluator: evaluator,
		ledger:    ledgerService,
		settings:  provider,
		validator: validator.New(),
	}
}

func (h *LoanHandler) operatorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(operatorHeader))
}

// application parses the shared application fields of the create/evaluate
// requests. An omitted interest rate falls back to the loan_interest_rate
// setting; an explicit rate, including 0, is honored as-is.
func (h *LoanHandler) application(r *http.Request, customerID, amount, rate string, tenureMonths int, disbursement string) (domain.LoanApplication, error) {
	requested, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.LoanApplication{}, customError.WrapInvalidArgument("requested_amount must be a decimal")
	}
	if !requested.IsPositive() {
		return domain.LoanApplication{}, customError.WrapInvalidArgument("requested_amount must be greater than zero")
	}

	if rate == "" {
		rate, err = h.settings.Get(r.Context(), settings.KeyLoanInterestRate)
		if err != nil {
			return domain.LoanApplication{}, err
		}
	}
	annualRate, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return domain.LoanApplication{}, customError.WrapInvalidArgument("interest_rate must be a decimal")
	}

	var disbursementDate time.Time
	if disbursement != "" {
		disbursementDate, err = time.Parse(dateLayout, disbursement)
		if err != nil {
			return domain.LoanApplication{}, customError.WrapInvalidArgument("disbursement_date must be formatted YYYY-MM-DD")
		}
	}

	return domain.LoanApplication{
		CustomerID:        customerID,
		RequestedAmount:   requested,
		AnnualRatePercent: annualRate,
		TenureMonths:      tenureMonths,
		DisbursementDate:  disbursementDate,
	}, nil
}

// CreateLoan evaluates an application and, when approved, opens the loan
// with its guarantor pair.
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	operatorID := h.operatorID(r)
	if operatorID == "" {
		response.Unauthorized(w, "missing "+operatorHeader+" header")
		return
	}

	var req domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	app, err := h.application(r, req.CustomerID, req.RequestedAmount, req.InterestRate, req.TenureMonths, req.DisbursementDate)
	if err != nil {
		response.FromError(w, err)
		return
	}

	decision, err := h.evaluator.Evaluate(r.Context(), app)
	if err != nil {
		response.FromError(w, err)
		return
	}

	if !decision.Approved {
		response.FromError(w, customError.WrapIneligibleRequest(decision.Reason))
		return
	}

	loan, guarantors, err := h.ledger.Create(r.Context(), app, decision, req.Guarantors, operatorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, &domain.CreateLoanResponse{
		Loan:       loan,
		Guarantors: guarantors,
	})
}

// Evaluate runs the underwriting checks without opening a loan.
func (h *LoanHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req domain.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	app, err := h.application(r, req.CustomerID, req.RequestedAmount, req.InterestRate, req.TenureMonths, req.DisbursementDate)
	if err != nil {
		response.FromError(w, err)
		return
	}

	decision, err := h.evaluator.Evaluate(r.Context(), app)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, decision)
}

// PostPayment applies one EMI against the loan.
func (h *LoanHandler) PostPayment(w http.ResponseWriter, r *http.Request) {
	operatorID := h.operatorID(r)
	if operatorID == "" {
		response.Unauthorized(w, "missing "+operatorHeader+" header")
		return
	}

	loanID := mux.Vars(r)["loanId"]

	posting, err := h.ledger.PostPayment(r.Context(), loanID, operatorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, posting)
}

// GetLoan returns the loan record.
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.ledger.Get(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, loan)
}

// GetPostings returns the amortization audit trail.
func (h *LoanHandler) GetPostings(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	postings, err := h.ledger.Postings(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, &domain.PostingsResponse{
		LoanID:   loanID,
		Postings: postings,
	})
}

// GetGuarantors returns the guarantor pair in type order.
func (h *LoanHandler) GetGuarantors(w http.ResponseWriter, r *http.Request) {
	guarantors, err := h.ledger.Guarantors(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, guarantors)
}

// GetCertificate returns the completion-certificate snapshot for a
// completed loan.
func (h *LoanHandler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	data, err := h.ledger.CertificateData(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, data)
}
