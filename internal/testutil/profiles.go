package testutil

import (
	"time"

	"github.com/Veraticus/dreambuilder/internal/model"
)

// ProfileBuilder provides a fluent interface for constructing test profiles.
// It starts from the reference profile used throughout the tests: 30 years
// old, buying at 35, 5000 income, 3000 expenses, 20000 saved, 30% saving rate.
type ProfileBuilder struct {
	p model.UserProfile
}

// NewProfile starts a builder for userID.
func NewProfile(userID string) *ProfileBuilder {
	return &ProfileBuilder{p: model.UserProfile{
		ID:          userID,
		Name:        userID,
		Age:         30,
		PurchaseAge: 35,
		NetIncome:   5000,
		Expenses:    3000,
		Wealth:      20000,
		SavingRate:  0.3,
	}}
}

// WithAges sets the current and purchase age.
func (b *ProfileBuilder) WithAges(age, purchaseAge int) *ProfileBuilder {
	b.p.Age, b.p.PurchaseAge = age, purchaseAge
	return b
}

// WithBudget sets monthly income and expenses.
func (b *ProfileBuilder) WithBudget(income, expenses float64) *ProfileBuilder {
	b.p.NetIncome, b.p.Expenses = income, expenses
	return b
}

// WithWealth sets current savings.
func (b *ProfileBuilder) WithWealth(wealth float64) *ProfileBuilder {
	b.p.Wealth = wealth
	return b
}

// WithSavingRate sets the saving rate.
func (b *ProfileBuilder) WithSavingRate(rate float64) *ProfileBuilder {
	b.p.SavingRate = rate
	return b
}

// WithTarget sets the target property price.
func (b *ProfileBuilder) WithTarget(price float64) *ProfileBuilder {
	b.p.TargetPropertyPrice = price
	return b
}

// Build returns the profile.
func (b *ProfileBuilder) Build() model.UserProfile {
	return b.p
}

// Expense returns a valid expense transaction.
func Expense(userID, id string, category model.Category, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		UserID:      userID,
		Type:        model.TypeExpense,
		Category:    category,
		Amount:      amount,
		Date:        date,
		Description: category.Label(),
	}
}

// Income returns a valid salary transaction.
func Income(userID, id string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:          id,
		UserID:      userID,
		Type:        model.TypeIncome,
		Category:    model.CategorySalary,
		Amount:      amount,
		Date:        date,
		Description: "Salary",
	}
}

// Recurring marks txn as a monthly template on its date's day of month.
func Recurring(txn model.Transaction) model.Transaction {
	txn.IsRecurring = true
	txn.RecurringDay = txn.Date.Day()
	return txn
}
