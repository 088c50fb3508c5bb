package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgeAt returns completed years between birth date and the reference date.
// The year count is decremented when the reference month/day precedes the
// birth month/day (exact-anniversary rule, not floor-of-days).
func AgeAt(dateOfBirth, on time.Time) int {
	years := on.Year() - dateOfBirth.Year()
	if on.Month() < dateOfBirth.Month() ||
		(on.Month() == dateOfBirth.Month() && on.Day() < dateOfBirth.Day()) {
		years--
	}
	return years
}

// MaturityDate calculates the loan maturity date using a flat 30-day month.
// Downstream certificate and report consumers assume this convention.
func MaturityDate(disbursementDate time.Time, tenureMonths int) time.Time {
	return disbursementDate.AddDate(0, 0, 30*tenureMonths)
}

// RoundMoney rounds to 2 decimal places (currency minor unit, half up).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(decimal.NewFromInt(1200))
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
