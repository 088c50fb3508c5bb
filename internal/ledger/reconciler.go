package ledger

import (
	"context"
	"fmt"

	"github.com/finbranch/loan-engine/internal/domain"
	"github.com/finbranch/loan-engine/internal/repository"
	customError "github.com/finbranch/loan-engine/pkg/errors"
)

// Drift is one conservation violation found during reconciliation.
type Drift struct {
	LoanID  string
	Problem string
}

func (d Drift) String() string {
	return fmt.Sprintf("loan %s: %s", d.LoanID, d.Problem)
}

// Reconciler cross-checks every loan against its posting trail: the
// outstanding balance must equal principal minus the posted principal
// portions, never go negative, and the status must agree with the balance.
type Reconciler struct {
	loanRepo    repository.LoanRepository
	postingRepo repository.PostingRepository
}

func NewReconciler(loanRepo repository.LoanRepository, postingRepo repository.PostingRepository) *Reconciler {
	return &Reconciler{
		loanRepo:    loanRepo,
		postingRepo: postingRepo,
	}
}

func (r *Reconciler) Run(ctx context.Context) ([]Drift, error) {
	loans, err := r.loanRepo.List(ctx)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}

	var drifts []Drift
	for _, loan := range loans {
		paid, err := r.postingRepo.TotalPrincipalPaid(ctx, loan.LoanID)
		if err != nil {
			return nil, customError.WrapPersistenceFailure(err)
		}

		expected := loan.Principal.Sub(paid)
		if !loan.OutstandingPrincipal.Equal(expected) {
			drifts = append(drifts, Drift{
				LoanID:  loan.LoanID,
				Problem: fmt.Sprintf("outstanding %s, postings imply %s", loan.OutstandingPrincipal, expected),
			})
		}

		if loan.OutstandingPrincipal.IsNegative() {
			drifts = append(drifts, Drift{
				LoanID:  loan.LoanID,
				Problem: fmt.Sprintf("outstanding %s is negative", loan.OutstandingPrincipal),
			})
		}

		repaid := loan.OutstandingPrincipal.LessThanOrEqual(domain.CompletionEpsilon)
		if repaid && loan.Status != domain.LoanStatusCompleted {
			drifts = append(drifts, Drift{
				LoanID:  loan.LoanID,
				Problem: fmt.Sprintf("balance %s is repaid but status is %s", loan.OutstandingPrincipal, loan.Status),
			})
		}
		if !repaid && loan.Status == domain.LoanStatusCompleted {
			drifts = append(drifts, Drift{
				LoanID:  loan.LoanID,
				Problem: fmt.Sprintf("status is completed with %s still outstanding", loan.OutstandingPrincipal),
			})
		}
	}

	return drifts, nil
}
