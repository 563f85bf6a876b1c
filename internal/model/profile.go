package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidProfile is wrapped by every profile validation failure.
var ErrInvalidProfile = errors.New("invalid profile")

// UserProfile holds the financial snapshot a user entered about themselves.
// Income and expenses are monthly figures; Wealth is the user's current savings.
type UserProfile struct {
	UpdatedAt           time.Time `json:"updated_at"`
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Age                 int       `json:"age"`
	PurchaseAge         int       `json:"purchase_age"`
	NetIncome           float64   `json:"net_income"`
	Expenses            float64   `json:"expenses"`
	Wealth              float64   `json:"wealth"`
	SavingRate          float64   `json:"saving_rate"`
	TargetPropertyPrice float64   `json:"target_property_price"`
}

// ExpectedMonthlySavings is the baseline the simulator fluctuates around.
func (p UserProfile) ExpectedMonthlySavings() float64 {
	return p.NetIncome - p.Expenses
}

// Validate checks that the profile can feed the calculators.
func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidProfile)
	}
	if p.Age < 0 || p.PurchaseAge < 0 {
		return fmt.Errorf("%w: ages must be non-negative", ErrInvalidProfile)
	}
	for name, v := range map[string]float64{
		"net income":            p.NetIncome,
		"expenses":              p.Expenses,
		"target property price": p.TargetPropertyPrice,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidProfile, name)
		}
	}
	if math.IsNaN(p.Wealth) || math.IsInf(p.Wealth, 0) {
		return fmt.Errorf("%w: wealth must be finite", ErrInvalidProfile)
	}
	if p.SavingRate < 0 || p.SavingRate > 1 {
		return fmt.Errorf("%w: saving rate must be between 0 and 1", ErrInvalidProfile)
	}
	return nil
}
