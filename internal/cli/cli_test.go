package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/simulator"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{999.999, "$1,000.00"},
		{1234.5, "$1,234.50"},
		{433245.7366, "$433,245.74"},
		{1000000, "$1,000,000.00"},
		{-2500.125, "-$2,500.13"},
		{-0.001, "$0.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(tt.in), "%v", tt.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "never", FormatDuration(affordability.Unachievable))
	assert.Equal(t, "now", FormatDuration(0))
	assert.Equal(t, "now", FormatDuration(-5))
	assert.Equal(t, "1 month", FormatDuration(1))
	assert.Equal(t, "1 year", FormatDuration(12))
	assert.Equal(t, "2 years 5 months", FormatDuration(29))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "35.0%", FormatPercent(0.35))
	assert.Equal(t, "12.5%", FormatPercent(0.125))
}

func TestRenderPlan_Verdicts(t *testing.T) {
	achievable := RenderPlan(affordability.PlanResult{IsAchievable: true, MonthsToSave: 30})
	assert.Contains(t, achievable, "2 years 6 months")

	never := RenderPlan(affordability.PlanResult{IsAchievable: false, MonthsToSave: affordability.Unachievable})
	assert.Contains(t, never, "Not achievable")

	loanOnly := RenderPlan(affordability.PlanResult{IsAchievable: true, MonthsToSave: affordability.Unachievable})
	assert.Contains(t, loanOnly, "only if monthly savings turn positive")
}

func TestAmountStyle(t *testing.T) {
	assert.Equal(t, savingsColor, AmountStyle(model.TypeIncome).GetForeground())
	assert.Equal(t, spendColor, AmountStyle(model.TypeExpense).GetForeground())
}

func TestPlanVerdict_Styles(t *testing.T) {
	tests := []struct {
		color lipgloss.TerminalColor
		name  string
		icon  string
		plan  affordability.PlanResult
		bold  bool
	}{
		{name: "reachable", plan: affordability.PlanResult{IsAchievable: true, MonthsToSave: 12}, color: savingsColor, icon: SuccessIcon, bold: true},
		{name: "stalled", plan: affordability.PlanResult{IsAchievable: true, MonthsToSave: affordability.Unachievable}, color: cautionColor, icon: WarningIcon},
		{name: "out of reach", plan: affordability.PlanResult{MonthsToSave: affordability.Unachievable}, color: spendColor, icon: ErrorIcon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style, icon, message := planVerdict(tt.plan)
			assert.Equal(t, tt.color, style.GetForeground())
			assert.Equal(t, tt.bold, style.GetBold())
			assert.Equal(t, tt.icon, icon)
			assert.NotEmpty(t, message)
		})
	}
}

func TestDriftStyle(t *testing.T) {
	assert.True(t, DriftStyle.GetItalic())
	assert.Equal(t, cautionColor, DriftStyle.GetForeground())
}

func TestRenderAffordability(t *testing.T) {
	out := RenderAffordability(affordability.Result{MaxPropertyPrice: 433245.7366, MaxLoanAmount: 293245.7366})
	assert.Contains(t, out, "$433,245.74")
	assert.Contains(t, out, "$293,245.74")
}

func TestRenderAccount_ShowsDrift(t *testing.T) {
	now := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
	account := model.BankAccount{
		ID: "acc", UserID: "u1", Balance: 100, LastUpdated: now,
		Transactions: []model.Transaction{
			{ID: "t1", UserID: "u1", Type: model.TypeIncome, Category: model.CategorySalary, Amount: 40, Date: now, Description: "Pay"},
			{ID: "t2", UserID: "u1", Type: model.TypeExpense, Category: model.CategoryHousing, Amount: 10, Date: now, IsRecurring: true, RecurringDay: 3, Description: "Rent"},
		},
	}
	out := RenderAccount(account)
	assert.Contains(t, out, "Balance differs from transactions by $70.00")
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "every 3.")

	account.Balance = 30
	assert.NotContains(t, RenderAccount(account), "differs")
}

func TestRenderMonth(t *testing.T) {
	out := RenderMonth(&simulator.MonthResult{
		Month:           time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		TargetSavings:   1500,
		RealizedSavings: 1500,
		Balance:         21500,
	})
	assert.Contains(t, out, "June 2024")
	assert.Contains(t, out, "No transactions")
	assert.Contains(t, out, "$21,500.00")
}

func TestRenderDownPaymentProgress(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDownPaymentProgress(&buf, 0.5))
	assert.Contains(t, buf.String(), "Down payment saved")
	assert.Contains(t, buf.String(), "=")
}

func TestProfilePrompter_PromptProfile(t *testing.T) {
	input := strings.Join([]string{
		"Ada",
		"30",
		"35",
		"$5,000",
		"3000",
		"abc", // rejected, asked again
		"20000",
		"", // keeps default
		"400000",
	}, "\n") + "\n"

	var out bytes.Buffer
	p := NewProfilePrompter(strings.NewReader(input), &out)

	profile, err := p.PromptProfile(context.Background(), model.UserProfile{ID: "u1", SavingRate: 0.4})
	require.NoError(t, err)

	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, 30, profile.Age)
	assert.Equal(t, 35, profile.PurchaseAge)
	assert.Equal(t, 5000.0, profile.NetIncome)
	assert.Equal(t, 3000.0, profile.Expenses)
	assert.Equal(t, 20000.0, profile.Wealth)
	assert.Equal(t, 0.4, profile.SavingRate)
	assert.Equal(t, 400000.0, profile.TargetPropertyPrice)
	assert.Contains(t, out.String(), "Please enter a number")
}

func TestProfilePrompter_GivesUpAfterRetries(t *testing.T) {
	input := "Ada\nx\ny\nz\n"
	p := NewProfilePrompter(strings.NewReader(input), &bytes.Buffer{})

	_, err := p.PromptProfile(context.Background(), model.UserProfile{ID: "u1"})
	require.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestProfilePrompter_InvalidProfile(t *testing.T) {
	input := "Ada\n30\n35\n5000\n3000\n100\n1.5\n0\n"
	p := NewProfilePrompter(strings.NewReader(input), &bytes.Buffer{})

	_, err := p.PromptProfile(context.Background(), model.UserProfile{ID: "u1"})
	require.ErrorIs(t, err, model.ErrInvalidProfile)
}
