package eligibility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbranch/loan-engine/internal/domain"
	"github.com/finbranch/loan-engine/internal/emi"
	"github.com/finbranch/loan-engine/internal/repository"
	"github.com/finbranch/loan-engine/internal/settings"
	customError "github.com/finbranch/loan-engine/pkg/errors"
	"github.com/finbranch/loan-engine/pkg/utils"
)

// emiSalaryCapRatio is the fixed underwriting cap on EMI relative to monthly
// salary. The max_emi_percentage setting is deliberately not consulted here,
// see DESIGN.md.
var emiSalaryCapRatio = decimal.NewFromFloat(0.5)

// Evaluator runs the ordered underwriting checks for a loan application.
// Callers rely on the specific rejection reason of the first failing check,
// so the order is part of the contract.
type Evaluator struct {
	directory repository.CustomerDirectory
	settings  settings.Provider
	now       func() time.Time
}

func NewEvaluator(directory repository.CustomerDirectory, provider settings.Provider) *Evaluator {
	return &Evaluator{
		directory: directory,
		settings:  provider,
		now:       time.Now,
	}
}

func reject(reason string) *domain.Decision {
	return &domain.Decision{Approved: false, Reason: reason}
}

// Evaluate returns an accept/reject decision with a human-readable reason.
// Rejections are decisions, not errors; errors mean the evaluation itself
// could not run (unknown customer, malformed settings).
func (e *Evaluator) Evaluate(ctx context.Context, app domain.LoanApplication) (*domain.Decision, error) {
	// 1. customer must exist
	customer, err := e.directory.GetByCustomerID(ctx, app.CustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapCustomerNotFound(app.CustomerID)
		}
		return nil, customError.WrapPersistenceFailure(err)
	}

	// 2. customer must not have reached retirement age
	retirementAge, err := e.intSetting(ctx, settings.KeyRetirementAge)
	if err != nil {
		return nil, err
	}

	age := utils.AgeAt(customer.DateOfBirth, e.now())
	if age >= retirementAge {
		return reject(fmt.Sprintf("customer has reached retirement age (%d)", retirementAge)), nil
	}

	// 3. requested amount must fit within remaining eligible exposure
	multiplier, err := e.decimalSetting(ctx, settings.KeyLoanEligibilityMultiplier)
	if err != nil {
		return nil, err
	}

	exposure, err := e.directory.SumActiveLoanOutstanding(ctx, app.CustomerID)
	if err != nil {
		return nil, customError.WrapPersistenceFailure(err)
	}

	maxEligible := customer.MonthlySalary.Mul(multiplier)
	available := maxEligible.Sub(exposure)
	if app.RequestedAmount.GreaterThan(available) {
		return reject(fmt.Sprintf("requested amount %s exceeds available eligibility %s",
			app.RequestedAmount.StringFixed(2), available.StringFixed(2))), nil
	}

	// 4. installment must stay within half of monthly salary
	installment, err := emi.Calculate(app.RequestedAmount, app.AnnualRatePercent, app.TenureMonths)
	if err != nil {
		return nil, err
	}

	emiCap := customer.MonthlySalary.Mul(emiSalaryCapRatio)
	if installment.GreaterThan(emiCap) {
		return reject(fmt.Sprintf("EMI %s exceeds 50%% of monthly salary (%s)",
			installment.StringFixed(2), emiCap.StringFixed(2))), nil
	}

	// 5. tenure must end before retirement and within the configured maximum
	configuredMaxTenure, err := e.intSetting(ctx, settings.KeyMaxLoanTenure)
	if err != nil {
		return nil, err
	}

	remainingWorkYears := retirementAge - age
	if remainingWorkYears < 0 {
		remainingWorkYears = 0
	}
	maxTenure := configuredMaxTenure
	if workCap := remainingWorkYears * 12; workCap < maxTenure {
		maxTenure = workCap
	}
	if app.TenureMonths > maxTenure {
		return reject(fmt.Sprintf("tenure %d months exceeds maximum allowed %d months",
			app.TenureMonths, maxTenure)), nil
	}

	return &domain.Decision{
		Approved: true,
		Reason:   "eligible",
		EMI:      installment,
	}, nil
}

func (e *Evaluator) intSetting(ctx context.Context, key string) (int, error) {
	raw, err := e.settings.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, customError.WrapInvalidArgument(fmt.Sprintf("setting %s is not an integer: %q", key, raw))
	}

	return value, nil
}

func (e *Evaluator) decimalSetting(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, err := e.settings.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}

	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, customError.WrapInvalidArgument(fmt.Sprintf("setting %s is not a decimal: %q", key, raw))
	}

	return value, nil
}
