package emi

import (
	"fmt"

	"github.com/shopspring/decimal"

	customError "github.com/finbranch/loan-engine/pkg/errors"
	"github.com/finbranch/loan-engine/pkg/utils"
)

// Calculate returns the fixed monthly installment for an amortizing loan:
//
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)   with r = annualRatePercent/1200
//
// A zero rate degenerates to principal/tenure. The result is rounded to the
// currency minor unit. Pure and deterministic.
func Calculate(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if tenureMonths < 1 {
		return decimal.Zero, customError.WrapInvalidArgument(fmt.Sprintf("tenure months must be at least 1, got %d", tenureMonths))
	}
	if !principal.IsPositive() {
		return decimal.Zero, customError.WrapInvalidArgument(fmt.Sprintf("principal must be greater than zero, got %s", principal))
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, customError.WrapInvalidArgument(fmt.Sprintf("annual rate must not be negative, got %s", annualRatePercent))
	}

	tenure := decimal.NewFromInt(int64(tenureMonths))

	monthlyRate := utils.MonthlyRate(annualRatePercent)
	if monthlyRate.IsZero() {
		return utils.RoundMoney(principal.Div(tenure)), nil
	}

	compound := decimal.NewFromInt(1).Add(monthlyRate).Pow(tenure)
	installment := principal.Mul(monthlyRate).Mul(compound).Div(compound.Sub(decimal.NewFromInt(1)))

	return utils.RoundMoney(installment), nil
}
