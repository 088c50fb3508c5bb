package ledger

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finbranch/loan-engine/internal/domain"
	customError "github.com/finbranch/loan-engine/pkg/errors"
	"github.com/finbranch/loan-engine/tests/mocks"
)

var postingDay = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func newTestService(loanRepo *mocks.MockLoanRepository, postingRepo *mocks.MockPostingRepository, notifier *mocks.MockNotifier) *Service {
	s := NewService(loanRepo, postingRepo, notifier)
	s.now = func() time.Time { return postingDay }
	return s
}

func guarantorPair() []domain.GuarantorInput {
	return []domain.GuarantorInput{
		{FullName: "Asha Verma", DocumentNumber: "DOC-1", Relationship: "spouse"},
		{FullName: "Rohit Verma", DocumentNumber: "DOC-2", Relationship: "brother"},
	}
}

func activeLoan() *domain.Loan {
	return &domain.Loan{
		LoanID:               "LN-TEST000001",
		CustomerID:           "CUST1",
		Principal:            decimal.NewFromInt(120000),
		AnnualRatePercent:    decimal.NewFromInt(12),
		TenureMonths:         12,
		EMIAmount:            decimal.NewFromFloat(10661.85),
		OutstandingPrincipal: decimal.NewFromInt(120000),
		Status:               domain.LoanStatusActive,
		DisbursementDate:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate_Success(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	postingRepo := &mocks.MockPostingRepository{}
	notifier := &mocks.MockNotifier{}

	service := newTestService(loanRepo, postingRepo, notifier)

	var persistedGuarantors []*domain.Guarantor
	loanRepo.On("CreateWithGuarantors", mock.Anything, mock.MatchedBy(func(loan *domain.Loan) bool {
		return loan.CustomerID == "CUST1" && loan.Status == domain.LoanStatusActive
	}), mock.MatchedBy(func(gs []*domain.Guarantor) bool {
		persistedGuarantors = gs
		return len(gs) == 2
	})).Return(nil)
	notifier.On("LoanCreated", mock.Anything, mock.Anything, "CUST1", mock.Anything, "op-7").Return()

	app := domain.LoanApplication{
		CustomerID:        "CUST1",
		RequestedAmount:   decimal.NewFromInt(120000),
		AnnualRatePercent: decimal.NewFromInt(12),
		TenureMonths:      12,
		DisbursementDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	decision := &domain.Decision{Approved: true, Reason: "eligible"}

	loan, guarantors, err := service.Create(context.Background(), app, decision, guarantorPair(), "op-7")

	require.NoError(t, err)
	assert.NotEmpty(t, loan.LoanID)
	assert.Equal(t, "10661.85", loan.EMIAmount.StringFixed(2))
	assert.True(t, loan.OutstandingPrincipal.Equal(loan.Principal))
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, "op-7", loan.CreatedBy)
	// 12 tenure months at a flat 30 days each
	assert.Equal(t, app.DisbursementDate.AddDate(0, 0, 360), loan.MaturityDate)

	require.Len(t, guarantors, 2)
	assert.Equal(t, domain.GuarantorTypePrimary, guarantors[0].Type)
	assert.Equal(t, domain.GuarantorTypeSecondary, guarantors[1].Type)
	assert.Equal(t, "Asha Verma", guarantors[0].FullName)
	assert.Equal(t, persistedGuarantors, guarantors)

	loanRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name         string
		decision     *domain.Decision
		guarantors   []domain.GuarantorInput
		operatorID   string
		expectedCode string
	}{
		{
			name:         "decision not approved",
			decision:     &domain.Decision{Approved: false, Reason: "tenure too long"},
			guarantors:   guarantorPair(),
			operatorID:   "op-7",
			expectedCode: customError.ErrCodeIneligibleRequest,
		},
		{
			name:         "nil decision",
			decision:     nil,
			guarantors:   guarantorPair(),
			operatorID:   "op-7",
			expectedCode: customError.ErrCodeIneligibleRequest,
		},
		{
			name:         "single guarantor",
			decision:     &domain.Decision{Approved: true},
			guarantors:   guarantorPair()[:1],
			operatorID:   "op-7",
			expectedCode: customError.ErrCodeInvalidArgument,
		},
		{
			name:         "missing operator",
			decision:     &domain.Decision{Approved: true},
			guarantors:   guarantorPair(),
			operatorID:   "",
			expectedCode: customError.ErrCodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := &mocks.MockLoanRepository{}
			service := newTestService(loanRepo, &mocks.MockPostingRepository{}, &mocks.MockNotifier{})

			app := domain.LoanApplication{
				CustomerID:        "CUST1",
				RequestedAmount:   decimal.NewFromInt(120000),
				AnnualRatePercent: decimal.NewFromInt(12),
				TenureMonths:      12,
			}

			loan, guarantors, err := service.Create(context.Background(), app, tt.decision, tt.guarantors, tt.operatorID)

			require.Error(t, err)
			assert.Equal(t, tt.expectedCode, customError.CodeOf(err))
			assert.Nil(t, loan)
			assert.Nil(t, guarantors)
			loanRepo.AssertNotCalled(t, "CreateWithGuarantors", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreate_PersistenceFailure(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	notifier := &mocks.MockNotifier{}
	service := newTestService(loanRepo, &mocks.MockPostingRepository{}, notifier)

	loanRepo.On("CreateWithGuarantors", mock.Anything, mock.Anything, mock.Anything).
		Return(sql.ErrTxDone)

	app := domain.LoanApplication{
		CustomerID:        "CUST1",
		RequestedAmount:   decimal.NewFromInt(120000),
		AnnualRatePercent: decimal.NewFromInt(12),
		TenureMonths:      12,
	}

	_, _, err := service.Create(context.Background(), app, &domain.Decision{Approved: true}, guarantorPair(), "op-7")

	require.Error(t, err)
	assert.Equal(t, customError.ErrCodePersistenceFailure, customError.CodeOf(err))
	notifier.AssertNotCalled(t, "LoanCreated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostPayment_FirstInstallmentSplit(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	notifier := &mocks.MockNotifier{}
	service := newTestService(loanRepo, &mocks.MockPostingRepository{}, notifier)

	loan := activeLoan()
	loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

	var applied *domain.EmiPosting
	loanRepo.On("ApplyPosting", mock.Anything, loan, mock.MatchedBy(func(prev decimal.Decimal) bool {
		return prev.Equal(decimal.NewFromInt(120000))
	}), mock.MatchedBy(func(p *domain.EmiPosting) bool {
		applied = p
		return true
	})).Return(nil)
	notifier.On("EmiPosted", mock.Anything, loan.LoanID, mock.Anything, mock.Anything, "op-3").Return()

	posting, err := service.PostPayment(context.Background(), loan.LoanID, "op-3")

	require.NoError(t, err)
	assert.Equal(t, "1200.00", posting.InterestPortion.StringFixed(2))
	assert.Equal(t, "9461.85", posting.PrincipalPortion.StringFixed(2))
	assert.Equal(t, "110538.15", posting.OutstandingAfter.StringFixed(2))
	assert.Equal(t, "op-3", posting.CollectedBy)
	assert.Equal(t, postingDay, posting.PaymentDate)
	assert.Equal(t, applied, posting)

	// the loan row written alongside the posting carries the same state
	assert.Equal(t, "110538.15", loan.OutstandingPrincipal.StringFixed(2))
	assert.Equal(t, domain.LoanStatusActive, loan.Status)

	loanRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestPostPayment_FinalInstallmentClamped(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	notifier := &mocks.MockNotifier{}
	service := newTestService(loanRepo, &mocks.MockPostingRepository{}, notifier)

	loan := activeLoan()
	loan.OutstandingPrincipal = decimal.NewFromFloat(100.00)
	loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
	loanRepo.On("ApplyPosting", mock.Anything, loan, mock.Anything, mock.Anything).Return(nil)
	notifier.On("EmiPosted", mock.Anything, loan.LoanID, mock.Anything, mock.Anything, "op-3").Return()

	posting, err := service.PostPayment(context.Background(), loan.LoanID, "op-3")

	require.NoError(t, err)
	// only the true remaining balance is charged, the EMI overshoot is not
	assert.Equal(t, "100.00", posting.PrincipalPortion.StringFixed(2))
	assert.Equal(t, "1.00", posting.InterestPortion.StringFixed(2))
	assert.True(t, posting.OutstandingAfter.IsZero())
	assert.Equal(t, domain.LoanStatusCompleted, loan.Status)
}

func TestPostPayment_TerminalGuard(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestService(loanRepo, &mocks.MockPostingRepository{}, &mocks.MockNotifier{})

	loan := activeLoan()
	loan.Status = domain.LoanStatusCompleted
	loan.OutstandingPrincipal = decimal.Zero
	loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

	posting, err := service.PostPayment(context.Background(), loan.LoanID, "op-3")

	require.Error(t, err)
	assert.Equal(t, customError.ErrCodeInvalidState, customError.CodeOf(err))
	assert.ErrorIs(t, err, customError.ErrLoanNotActive)
	assert.Nil(t, posting)
	loanRepo.AssertNotCalled(t, "ApplyPosting", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostPayment_UnknownLoan(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestService(loanRepo, &mocks.MockPostingRepository{}, &mocks.MockNotifier{})

	loanRepo.On("GetByLoanID", mock.Anything, "LN-MISSING").Return(nil, sql.ErrNoRows)

	_, err := service.PostPayment(context.Background(), "LN-MISSING", "op-3")

	require.Error(t, err)
	assert.Equal(t, customError.ErrCodeNotFound, customError.CodeOf(err))
}

func TestPostPayment_MissingOperator(t *testing.T) {
	service := newTestService(&mocks.MockLoanRepository{}, &mocks.MockPostingRepository{}, &mocks.MockNotifier{})

	_, err := service.PostPayment(context.Background(), "LN-TEST000001", "")

	require.Error(t, err)
	assert.Equal(t, customError.ErrCodeInvalidArgument, customError.CodeOf(err))
}

func TestCertificateData(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	service := newTestService(loanRepo, &mocks.MockPostingRepository{}, &mocks.MockNotifier{})

	loan := activeLoan()
	loanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

	_, err := service.CertificateData(context.Background(), loan.LoanID)
	require.Error(t, err)
	assert.Equal(t, customError.ErrCodeInvalidState, customError.CodeOf(err))

	loan.Status = domain.LoanStatusCompleted
	data, err := service.CertificateData(context.Background(), loan.LoanID)
	require.NoError(t, err)
	assert.True(t, data.LoanAmount.Equal(loan.Principal))
	assert.Equal(t, loan.TenureMonths, data.TenureMonths)
	assert.Equal(t, loan.DisbursementDate, data.DisbursementDate)
	assert.Equal(t, postingDay, data.CompletionDate)
}

// fakeLoanStore is a stateful in-memory ledger used for the amortization
// and concurrency runs below. It enforces the same previous-balance guard
// as the SQL implementation.
type fakeLoanStore struct {
	mu       sync.Mutex
	loan     *domain.Loan
	postings []*domain.EmiPosting
}

func (f *fakeLoanStore) CreateWithGuarantors(_ context.Context, loan *domain.Loan, _ []*domain.Guarantor) error {
	f.loan = loan
	return nil
}

func (f *fakeLoanStore) GetByLoanID(_ context.Context, loanID string) (*domain.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loan == nil || f.loan.LoanID != loanID {
		return nil, sql.ErrNoRows
	}
	snapshot := *f.loan
	return &snapshot, nil
}

func (f *fakeLoanStore) GuarantorsByLoanID(context.Context, string) ([]*domain.Guarantor, error) {
	return nil, nil
}

func (f *fakeLoanStore) ApplyPosting(_ context.Context, loan *domain.Loan, previousOutstanding decimal.Decimal, posting *domain.EmiPosting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loan.OutstandingPrincipal.Equal(previousOutstanding) {
		return customError.ErrConcurrentPosting
	}
	snapshot := *loan
	f.loan = &snapshot
	f.postings = append(f.postings, posting)
	return nil
}

func (f *fakeLoanStore) List(context.Context) ([]*domain.Loan, error) {
	return []*domain.Loan{f.loan}, nil
}

func TestPostPayment_FullAmortizationRun(t *testing.T) {
	store := &fakeLoanStore{loan: activeLoan()}
	notifier := &mocks.MockNotifier{}
	notifier.On("EmiPosted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	service := newTestService(nil, &mocks.MockPostingRepository{}, notifier)
	service.loanRepo = store

	var postings []*domain.EmiPosting
	previous := decimal.NewFromInt(120000)

	for i := 0; i < 20; i++ {
		loan, err := store.GetByLoanID(context.Background(), "LN-TEST000001")
		require.NoError(t, err)
		if loan.Status == domain.LoanStatusCompleted {
			break
		}

		posting, err := service.PostPayment(context.Background(), "LN-TEST000001", "op-3")
		require.NoError(t, err)
		postings = append(postings, posting)

		// outstanding is monotonically non-increasing and never negative
		assert.True(t, posting.OutstandingAfter.LessThanOrEqual(previous))
		assert.False(t, posting.OutstandingAfter.IsNegative())
		previous = posting.OutstandingAfter
	}

	final, err := store.GetByLoanID(context.Background(), "LN-TEST000001")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, final.Status)
	assert.True(t, final.OutstandingPrincipal.IsZero())

	// twelve full installments plus the clamped residual
	require.Len(t, postings, 13)
	assert.Equal(t, "1200.00", postings[0].InterestPortion.StringFixed(2))
	assert.Equal(t, "9461.85", postings[0].PrincipalPortion.StringFixed(2))
	assert.Equal(t, "0.06", postings[11].OutstandingAfter.StringFixed(2))
	assert.Equal(t, "0.06", postings[12].PrincipalPortion.StringFixed(2))

	// conservation: posted principal sums exactly to the disbursed principal
	total := decimal.Zero
	for _, p := range postings {
		total = total.Add(p.PrincipalPortion)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(120000)))

	// terminal guard holds after completion
	_, err = service.PostPayment(context.Background(), "LN-TEST000001", "op-3")
	require.Error(t, err)
	assert.Equal(t, customError.ErrCodeInvalidState, customError.CodeOf(err))
}

func TestPostPayment_ConcurrentPostingsSerialized(t *testing.T) {
	store := &fakeLoanStore{loan: activeLoan()}
	notifier := &mocks.MockNotifier{}
	notifier.On("EmiPosted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	service := newTestService(nil, &mocks.MockPostingRepository{}, notifier)
	service.loanRepo = store

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.PostPayment(context.Background(), "LN-TEST000001", "op-3")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// four sequential applies, no double-spend of the same balance
	require.Len(t, store.postings, workers)
	seen := make(map[string]bool)
	for _, p := range store.postings {
		key := p.OutstandingAfter.StringFixed(2)
		assert.False(t, seen[key], "balance %s applied twice", key)
		seen[key] = true
	}

	loan, err := store.GetByLoanID(context.Background(), "LN-TEST000001")
	require.NoError(t, err)
	total := decimal.Zero
	for _, p := range store.postings {
		total = total.Add(p.PrincipalPortion)
	}
	assert.True(t, loan.Principal.Sub(total).Equal(loan.OutstandingPrincipal))
}
