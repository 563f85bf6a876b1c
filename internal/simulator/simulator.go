// Package simulator generates a plausible month of bank activity for a user
// and commits it to the ledger.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/random"
	"github.com/Veraticus/dreambuilder/internal/service"
	"github.com/google/uuid"
)

const (
	savingsFluctuation  = 0.10
	fixedCostVariation  = 0.05
	variableVariation   = 0.15
	minimumAmount       = 0.01
	adjustmentThreshold = 0.01
)

type share struct {
	category    model.Category
	description string
	ratio       float64
	day         int
}

// Fixed costs are a share of the user's expense baseline on fixed days.
var fixedCosts = []share{
	{category: model.CategoryHousing, description: "Rent payment", ratio: 0.35, day: 3},
	{category: model.CategoryUtilities, description: "Utilities", ratio: 0.10, day: 5},
}

// Variable costs split whatever budget remains after fixed costs. OTHER must
// stay last: it absorbs the final savings adjustment.
var variableCosts = []share{
	{category: model.CategoryFood, description: "Groceries and dining", ratio: 0.25},
	{category: model.CategoryTransportation, description: "Transportation", ratio: 0.20},
	{category: model.CategoryEntertainment, description: "Entertainment", ratio: 0.15},
	{category: model.CategoryShopping, description: "Shopping", ratio: 0.15},
	{category: model.CategoryHealthcare, description: "Healthcare", ratio: 0.10},
	{category: model.CategoryOther, description: "Miscellaneous", ratio: 0.15},
}

// MonthResult summarizes one simulated month.
type MonthResult struct {
	Month           time.Time           `json:"month"`
	UserID          string              `json:"user_id"`
	Transactions    []model.Transaction `json:"transactions"`
	TargetSavings   float64             `json:"target_savings"`
	RealizedSavings float64             `json:"realized_savings"`
	Balance         float64             `json:"balance"`
}

// Simulator advances a user's mocked bank account one month at a time.
type Simulator struct {
	profiles service.ProfileStore
	ledger   service.Ledger
	rng      random.Source
	clock    calendar.Clock
	newID    func() string
}

// New creates a simulator.
func New(profiles service.ProfileStore, ledger service.Ledger, rng random.Source, clock calendar.Clock) *Simulator {
	if rng == nil {
		rng = random.New()
	}
	if clock == nil {
		clock = calendar.NewSystemClock(nil)
	}
	return &Simulator{
		profiles: profiles,
		ledger:   ledger,
		rng:      rng,
		clock:    clock,
		newID:    uuid.NewString,
	}
}

// SimulateNextMonth generates the month after the user's latest transaction (or
// after now when the ledger is empty), appends it to the ledger and syncs the
// profile's wealth to the resulting balance. A user without a profile is
// logged and skipped: the result and the error are both nil.
func (s *Simulator) SimulateNextMonth(ctx context.Context, userID string) (*MonthResult, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, common.ErrProfileNotFound) {
		slog.Warn("Skipping month simulation for user without profile", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	base := s.clock.Now()
	if account, ok := s.ledger.Account(userID); ok {
		if latest, found := account.LatestTransaction(); found {
			base = latest.Date.In(s.clock.Location())
		}
	}
	month := calendar.NextMonthStart(base)

	result := s.generate(profile, month)

	if err := s.ledger.AddTransactions(userID, result.Transactions...); err != nil {
		return nil, fmt.Errorf("failed to record simulated month: %w", err)
	}

	account, _ := s.ledger.Account(userID)
	result.Balance = account.Balance
	if err := s.profiles.UpdateWealth(ctx, userID, account.Balance); err != nil {
		return nil, fmt.Errorf("failed to sync wealth: %w", err)
	}

	slog.Info("Simulated month",
		"user_id", userID,
		"month", month.Format("2006-01"),
		"transactions", len(result.Transactions),
		"target_savings", result.TargetSavings,
		"realized_savings", result.RealizedSavings,
		"balance", result.Balance)

	return result, nil
}

// generate builds the month's transactions without touching any store.
func (s *Simulator) generate(profile model.UserProfile, month time.Time) *MonthResult {
	expectedSavings := profile.ExpectedMonthlySavings()
	fluctuation := s.rng.Float64Range(-savingsFluctuation, savingsFluctuation)
	targetSavings := expectedSavings * (1 + fluctuation)
	targetExpenses := profile.NetIncome - targetSavings

	newTxn := func(typ model.TransactionType, category model.Category, description string, amount float64, day int) model.Transaction {
		return model.Transaction{
			ID:          s.newID(),
			UserID:      profile.ID,
			Type:        typ,
			Amount:      amount,
			Category:    category,
			Description: description,
			Date:        calendar.DateInMonth(month, day),
		}
	}

	income := newTxn(model.TypeIncome, model.CategorySalary, "Monthly salary", profile.NetIncome, s.rng.IntRange(1, 6))

	expenses := make([]model.Transaction, 0, len(fixedCosts)+len(variableCosts))
	var spent float64
	for _, c := range fixedCosts {
		amount := profile.Expenses * c.ratio * (1 + s.rng.Float64Range(-fixedCostVariation, fixedCostVariation))
		expenses = append(expenses, newTxn(model.TypeExpense, c.category, c.description, amount, c.day))
		spent += amount
	}

	remaining := targetExpenses - spent
	for _, c := range variableCosts {
		amount := remaining * c.ratio * (1 + s.rng.Float64Range(-variableVariation, variableVariation))
		if amount < 0 {
			amount = minimumAmount
		}
		expenses = append(expenses, newTxn(model.TypeExpense, c.category, c.description, amount, s.rng.IntRange(7, 28)))
	}

	realized := income.Amount - sumAmounts(expenses)
	adjustment := targetSavings - realized
	if math.Abs(adjustment) > adjustmentThreshold {
		last := &expenses[len(expenses)-1]
		last.Amount = math.Max(minimumAmount, last.Amount-adjustment)
		realized = income.Amount - sumAmounts(expenses)
	}

	txns := append([]model.Transaction{income}, expenses...)
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.Before(txns[j].Date)
	})

	return &MonthResult{
		Month:           month,
		UserID:          profile.ID,
		Transactions:    txns,
		TargetSavings:   targetSavings,
		RealizedSavings: realized,
	}
}

func sumAmounts(txns []model.Transaction) float64 {
	var sum float64
	for _, txn := range txns {
		sum += txn.Amount
	}
	return sum
}
