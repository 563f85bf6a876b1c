package affordability

import (
	"errors"
	"fmt"
	"math"

	"github.com/Veraticus/dreambuilder/internal/common"
)

func checkMoney(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", common.ErrInvalidInput, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", common.ErrInvalidInput, name)
	}
	return nil
}

// Validate rejects inputs a caller should never pass to the engine.
func (in Input) Validate() error {
	if in.Age < 0 || in.PurchaseAge < 0 {
		return fmt.Errorf("%w: ages must not be negative", common.ErrInvalidInput)
	}
	for name, v := range map[string]float64{
		"current savings":  in.CurrentSavings,
		"monthly income":   in.MonthlyIncome,
		"monthly expenses": in.MonthlyExpenses,
	} {
		if err := checkMoney(name, v); err != nil {
			return err
		}
	}
	if math.IsNaN(in.SavingRate) || in.SavingRate < 0 || in.SavingRate > 1 {
		return fmt.Errorf("%w: saving rate must be between 0 and 1", common.ErrInvalidInput)
	}
	return nil
}

// Validate rejects inputs a caller should never pass to the engine.
func (in PlanInput) Validate() error {
	for name, v := range map[string]float64{
		"target property price": in.TargetPropertyPrice,
		"current savings":       in.CurrentSavings,
		"monthly income":        in.MonthlyIncome,
		"monthly expenses":      in.MonthlyExpenses,
	} {
		if err := checkMoney(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects lending assumptions that make the formulas meaningless.
func (p Params) Validate() error {
	if p.DebtToIncome <= 0 || p.DebtToIncome > 1 {
		return fmt.Errorf("%w: debt-to-income must be in (0, 1]", common.ErrInvalidConfig)
	}
	if p.AnnualInterestRate < 0 || math.IsNaN(p.AnnualInterestRate) {
		return fmt.Errorf("%w: interest rate must not be negative", common.ErrInvalidConfig)
	}
	if p.LoanTermYears <= 0 {
		return fmt.Errorf("%w: loan term must be positive", common.ErrInvalidConfig)
	}
	if p.EquityRatio < 0 || p.EquityRatio > 1 {
		return fmt.Errorf("%w: equity ratio must be in [0, 1]", common.ErrInvalidConfig)
	}
	return nil
}

// ErrNonFinite reports a calculation that overflowed or produced NaN.
var ErrNonFinite = errors.New("result is not a finite number")

func finite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	return nil
}

// Check reports ErrNonFinite when any monetary figure is NaN or infinite.
func (r Result) Check() error {
	return finite(r.MaxPropertyPrice, r.FutureSavings, r.MaxLoanAmount, r.MonthlyPayment, r.RequiredEquity)
}

// Check reports ErrNonFinite when any monetary figure is NaN or infinite.
func (r PlanResult) Check() error {
	return finite(r.MaxLoanAmount, r.RequiredSavings, r.SavingsGap, r.MonthlySavings)
}
