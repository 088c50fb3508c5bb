package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/audit"
	"github.com/finbranch/loan-engine/internal/domain"
	"github.com/finbranch/loan-engine/internal/emi"
	"github.com/finbranch/loan-engine/internal/repository"
	customError "github.com/finbranch/loan-engine/pkg/errors"
	"github.com/finbranch/loan-engine/pkg/utils"
)

// Service owns loan records and their outstanding-balance state machine.
// All mutating operations take the acting operator id as an explicit
// parameter; nothing is read from ambient request state.
type Service struct {
	loanRepo    repository.LoanRepository
	postingRepo repository.PostingRepository
	notifier    audit.Notifier
	now         func() time.Time

	mu        sync.Mutex
	loanLocks map[string]*sync.Mutex
}

func NewService(loanRepo repository.LoanRepository, postingRepo repository.PostingRepository, notifier audit.Notifier) *Service {
	return &Service{
		loanRepo:    loanRepo,
		postingRepo: postingRepo,
		notifier:    notifier,
		now:         time.Now,
		loanLocks:   make(map[string]*sync.Mutex),
	}
}

// lockFor serializes postings per loan. Postings on different loans proceed
// independently.
func (s *Service) lockFor(loanID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.loanLocks[loanID]
	if !ok {
		lock = &sync.Mutex{}
		s.loanLocks[loanID] = lock
	}
	return lock
}

func newLoanReference(id uuid.UUID) string {
	return "LN-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}

// Create persists an approved application as an active loan together with
// its guarantor pair, all-or-nothing. The EMI is computed once here and
// never recomputed.
func (s *Service) Create(ctx context.Context, app domain.LoanApplication, decision *domain.Decision, guarantors []domain.GuarantorInput, operatorID string) (*domain.Loan, []*domain.Guarantor, error) {
	if operatorID == "" {
		return nil, nil, customError.WrapInvalidArgument("operator id is required")
	}
	if decision == nil || !decision.Approved {
		return nil, nil, customError.NewBusinessError(
			customError.ErrCodeIneligibleRequest,
			"loan creation requires an approved eligibility decision",
			customError.ErrDecisionNotApproved,
		)
	}
	if len(guarantors) != 2 {
		return nil, nil, customError.WrapInvalidArgument("exactly two guarantors are required")
	}

	installment, err := emi.Calculate(app.RequestedAmount, app.AnnualRatePercent, app.TenureMonths)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	disbursement := app.DisbursementDate
	if disbursement.IsZero() {
		disbursement = now
	}

	id := uuid.New()
	loan := &domain.Loan{
		ID:                   id,
		LoanID:               newLoanReference(id),
		CustomerID:           app.CustomerID,
		Principal:            app.RequestedAmount,
		AnnualRatePercent:    app.AnnualRatePercent,
		TenureMonths:         app.TenureMonths,
		EMIAmount:            installment,
		OutstandingPrincipal: app.RequestedAmount,
		Status:               domain.LoanStatusActive,
		DisbursementDate:     disbursement,
		MaturityDate:         utils.MaturityDate(disbursement, app.TenureMonths),
		CreatedBy:            operatorID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	rows := make([]*domain.Guarantor, 0, 2)
	for i, input := range guarantors {
		rows = append(rows, &domain.Guarantor{
			ID:             uuid.New(),
			LoanID:         loan.LoanID,
			Type:           i + 1,
			FullName:       input.FullName,
			DocumentNumber: input.DocumentNumber,
			Address:        input.Address,
			Phone:          input.Phone,
			Relationship:   input.Relationship,
			CreatedAt:      now,
		})
	}

	if err := s.loanRepo.CreateWithGuarantors(ctx, loan, rows); err != nil {
		return nil, nil, customError.WrapPersistenceFailure(err)
	}

	s.notifier.LoanCreated(ctx, loan.LoanID, loan.CustomerID, loan.Principal, operatorID)

	return loan, rows, nil
}

// PostPayment applies one EMI against an active loan: derives the
// interest/principal split for the current balance, appends the posting and
// moves the balance, as a single serialized read-modify-write. The final
// installment charges only the true remaining principal, the overshoot of
// the fixed EMI is not collected.
func (s *Service) PostPayment(ctx context.Context, loanID, operatorID string) (*domain.EmiPosting, error) {
	if operatorID == "" {
		return nil, customError.WrapInvalidArgument("operator id is required")
	}

	lock := s.lockFor(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapPersistenceFailure(err)
	}

	if loan.Status != domain.LoanStatusActive {
		return nil, customError.WrapLoanNotActive(loanID, loan.Status)
	}

	monthlyRate := utils.MonthlyRate(loan.AnnualRatePercent)
	interest := utils.RoundMoney(loan.OutstandingPrincipal.Mul(monthlyRate))
	principalPortion := utils.RoundMoney(loan.EMIAmount.Sub(interest))

	newOutstanding := loan.OutstandingPrincipal.Sub(principalPortion)
	if newOutstanding.IsNegative() {
		principalPortion = loan.OutstandingPrincipal
		newOutstanding = decimal.Zero
	}

	now := s.now()
	posting := &domain.EmiPosting{
		ID:               uuid.New(),
		LoanID:           loanID,
		PaymentDate:      now,
		EMIAmount:        loan.EMIAmount,
		InterestPortion:  interest,
		PrincipalPortion: principalPortion,
		OutstandingAfter: newOutstanding,
		CollectedBy:      operatorID,
		CreatedAt:        now,
	}

	previousOutstanding := loan.OutstandingPrincipal
	loan.OutstandingPrincipal = newOutstanding
	if newOutstanding.LessThanOrEqual(domain.CompletionEpsilon) {
		loan.Status = domain.LoanStatusCompleted
	}
	loan.UpdatedAt = now

	if err := s.loanRepo.ApplyPosting(ctx, loan, previousOutstanding, posting); err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}

	s.notifier.EmiPosted(ctx, loanID, posting.PrincipalPortion, posting.InterestPortion, operatorID)

	return posting, nil
}

// Get returns a loan by its reference.
func (s *Service) Get(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapPersistenceFailure(err)
	}
	return loan, nil
}

// Postings returns the amortization audit trail in payment order.
func (s *Service) Postings(ctx context.Context, loanID string) ([]*domain.EmiPosting, error) {
	if _, err := s.Get(ctx, loanID); err != nil {
		return nil, err
	}

	postings, err := s.postingRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}
	return postings, nil
}

// Guarantors returns the guarantor pair recorded at creation, type order.
func (s *Service) Guarantors(ctx context.Context, loanID string) ([]*domain.Guarantor, error) {
	if _, err := s.Get(ctx, loanID); err != nil {
		return nil, err
	}

	guarantors, err := s.loanRepo.GuarantorsByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}
	return guarantors, nil
}

// CertificateData snapshots the fields the certificate collaborator prints
// for a completed loan.
func (s *Service) CertificateData(ctx context.Context, loanID string) (*domain.CertificateData, error) {
	loan, err := s.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status != domain.LoanStatusCompleted {
		return nil, customError.WrapLoanNotCompleted(loanID, loan.Status)
	}

	return &domain.CertificateData{
		LoanID:           loan.LoanID,
		LoanAmount:       loan.Principal,
		InterestRate:     loan.AnnualRatePercent,
		TenureMonths:     loan.TenureMonths,
		DisbursementDate: loan.DisbursementDate,
		CompletionDate:   s.now(),
	}, nil
}
