package settings

import "context"

// Setting keys as seeded in the system_config table.
const (
	KeyLoanInterestRate          = "loan_interest_rate"
	KeyRetirementAge             = "retirement_age"
	KeyMaxLoanTenure             = "max_loan_tenure"
	KeyLoanEligibilityMultiplier = "loan_eligibility_multiplier"
	// KeyMaxEmiPercentage is operator-editable but the underwriting cap is
	// currently fixed at half of salary, the key is read nowhere else.
	KeyMaxEmiPercentage = "max_emi_percentage"
)

// Provider exposes string-keyed, string-valued operational parameters.
// Consumers parse numerics themselves.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
}
