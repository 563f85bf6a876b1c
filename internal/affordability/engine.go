// Package affordability computes how much property a user can afford and how
// long it takes to save for a target price. All calculations are pure.
package affordability

import (
	"math"

	"github.com/Veraticus/dreambuilder/internal/model"
)

// Unachievable marks a savings plan that can never be completed.
const Unachievable = math.MaxInt32

// Params holds the lending assumptions behind every calculation.
type Params struct {
	// DebtToIncome is the share of monthly income available for loan repayment.
	DebtToIncome       float64
	AnnualInterestRate float64
	LoanTermYears      int
	// EquityRatio is the down payment share of the purchase price.
	EquityRatio float64
}

// DefaultParams returns a 35% debt-to-income ceiling on a 30 year loan at 4%
// with a 20% down payment.
func DefaultParams() Params {
	return Params{
		DebtToIncome:       0.35,
		AnnualInterestRate: 0.04,
		LoanTermYears:      30,
		EquityRatio:        0.20,
	}
}

// MonthlyRate returns the periodic interest rate.
func (p Params) MonthlyRate() float64 {
	return p.AnnualInterestRate / 12
}

// TotalPayments returns the number of monthly loan payments.
func (p Params) TotalPayments() int {
	return p.LoanTermYears * 12
}

// Input is the snapshot of a user's finances for a forward calculation.
type Input struct {
	Age             int     `json:"age"`
	PurchaseAge     int     `json:"purchase_age"`
	CurrentSavings  float64 `json:"current_savings"`
	MonthlyIncome   float64 `json:"monthly_income"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
	SavingRate      float64 `json:"saving_rate"`
}

// Result is the outcome of a forward calculation.
type Result struct {
	MaxPropertyPrice float64 `json:"max_property_price"`
	FutureSavings    float64 `json:"future_savings"`
	MaxLoanAmount    float64 `json:"max_loan_amount"`
	MonthlyPayment   float64 `json:"monthly_payment"`
	RequiredEquity   float64 `json:"required_equity"`
}

// PlanInput describes a target price for a reverse calculation.
type PlanInput struct {
	TargetPropertyPrice float64 `json:"target_property_price"`
	CurrentSavings      float64 `json:"current_savings"`
	MonthlyIncome       float64 `json:"monthly_income"`
	MonthlyExpenses     float64 `json:"monthly_expenses"`
}

// PlanResult is the outcome of a reverse calculation. MonthsToSave and
// YearsToSave hold Unachievable when the plan cannot be completed.
type PlanResult struct {
	TargetPropertyPrice float64 `json:"target_property_price"`
	MaxLoanAmount       float64 `json:"max_loan_amount"`
	RequiredSavings     float64 `json:"required_savings"`
	SavingsGap          float64 `json:"savings_gap"`
	MonthlySavings      float64 `json:"monthly_savings"`
	MonthsToSave        int     `json:"months_to_save"`
	YearsToSave         int     `json:"years_to_save"`
	IsAchievable        bool    `json:"is_achievable"`
}

// Engine runs calculations with a fixed set of lending assumptions.
type Engine struct {
	params Params
}

// NewEngine creates an engine for the given params.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Params returns the engine's lending assumptions.
func (e *Engine) Params() Params {
	return e.params
}

var defaultEngine = NewEngine(DefaultParams())

// CalculateMaxAffordableProperty runs the forward calculation with DefaultParams.
func CalculateMaxAffordableProperty(in Input) Result {
	return defaultEngine.CalculateMaxAffordableProperty(in)
}

// CalculateSavingsPlan runs the reverse calculation with DefaultParams.
func CalculateSavingsPlan(in PlanInput) PlanResult {
	return defaultEngine.CalculateSavingsPlan(in)
}

// MaxLoanAmount returns the principal a monthly income can service.
func (e *Engine) MaxLoanAmount(monthlyIncome float64) (loan, monthlyPayment float64) {
	monthlyPayment = monthlyIncome * e.params.DebtToIncome
	loan = PresentValueAnnuity(monthlyPayment, e.params.MonthlyRate(), e.params.TotalPayments())
	return loan, monthlyPayment
}

// CalculateMaxAffordableProperty projects savings until the purchase age and
// adds the largest loan the income can carry. A purchase age below the current
// age is not rejected; it simply projects negative accumulation.
func (e *Engine) CalculateMaxAffordableProperty(in Input) Result {
	yearsUntilPurchase := float64(in.PurchaseAge - in.Age)
	monthlySavings := in.MonthlyIncome * in.SavingRate
	futureSavings := in.CurrentSavings + monthlySavings*12*yearsUntilPurchase

	maxLoanAmount, maxMonthlyPayment := e.MaxLoanAmount(in.MonthlyIncome)
	maxPropertyPrice := maxLoanAmount + futureSavings

	return Result{
		MaxPropertyPrice: maxPropertyPrice,
		FutureSavings:    futureSavings,
		MaxLoanAmount:    maxLoanAmount,
		MonthlyPayment:   maxMonthlyPayment,
		RequiredEquity:   maxPropertyPrice * e.params.EquityRatio,
	}
}

// CalculateSavingsPlan works backwards from a target price. The plan is
// achievable when the loan alone covers the price, when current savings already
// close the gap, or when the user saves a positive amount each month and can
// borrow anything at all.
func (e *Engine) CalculateSavingsPlan(in PlanInput) PlanResult {
	maxLoanAmount, _ := e.MaxLoanAmount(in.MonthlyIncome)

	requiredEquity := in.TargetPropertyPrice - maxLoanAmount
	savingsGap := requiredEquity - in.CurrentSavings
	monthlySavings := in.MonthlyIncome - in.MonthlyExpenses

	achievable := requiredEquity <= 0 ||
		savingsGap <= 0 ||
		(monthlySavings > 0 && maxLoanAmount > 0)

	monthsToSave := Unachievable
	if achievable && monthlySavings > 0 {
		monthsToSave = int(savingsGap / monthlySavings)
	}

	yearsToSave := Unachievable
	if monthsToSave != Unachievable {
		yearsToSave = monthsToSave / 12
	}

	return PlanResult{
		TargetPropertyPrice: in.TargetPropertyPrice,
		MaxLoanAmount:       maxLoanAmount,
		RequiredSavings:     requiredEquity,
		SavingsGap:          savingsGap,
		MonthlySavings:      monthlySavings,
		MonthsToSave:        monthsToSave,
		YearsToSave:         yearsToSave,
		IsAchievable:        achievable,
	}
}

// DownPaymentProgress returns the share of the down payment on targetPrice that
// currentSavings already covers, clamped to [0, 1].
func (e *Engine) DownPaymentProgress(currentSavings, targetPrice float64) float64 {
	downPayment := targetPrice * e.params.EquityRatio
	if downPayment <= 0 {
		return 1
	}
	progress := currentSavings / downPayment
	switch {
	case progress < 0 || math.IsNaN(progress):
		return 0
	case progress > 1:
		return 1
	default:
		return progress
	}
}

// PresentValueAnnuity converts a periodic payment into the principal it repays
// over n periods at rate r. A rate of exactly zero degrades to pmt × n.
func PresentValueAnnuity(pmt, r float64, n int) float64 {
	if r == 0 {
		return pmt * float64(n)
	}
	return pmt * (1 - math.Pow(1+r, -float64(n))) / r
}

// InputFromProfile maps a stored profile onto a forward calculation.
func InputFromProfile(p model.UserProfile) Input {
	return Input{
		Age:             p.Age,
		PurchaseAge:     p.PurchaseAge,
		CurrentSavings:  p.Wealth,
		MonthlyIncome:   p.NetIncome,
		MonthlyExpenses: p.Expenses,
		SavingRate:      p.SavingRate,
	}
}

// PlanInputFromProfile maps a stored profile onto a reverse calculation.
func PlanInputFromProfile(p model.UserProfile) PlanInput {
	return PlanInput{
		TargetPropertyPrice: p.TargetPropertyPrice,
		CurrentSavings:      p.Wealth,
		MonthlyIncome:       p.NetIncome,
		MonthlyExpenses:     p.Expenses,
	}
}
