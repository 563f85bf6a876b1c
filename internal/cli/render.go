package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/simulator"
	"github.com/charmbracelet/lipgloss"
)

// RenderAffordability renders the maximum affordable property breakdown.
func RenderAffordability(r affordability.Result) string {
	rows := [][2]string{
		{"Savings at purchase", FormatMoney(r.FutureSavings)},
		{"Maximum loan", FormatMoney(r.MaxLoanAmount)},
		{"Monthly payment", FormatMoney(r.MonthlyPayment)},
		{"Equity required", FormatMoney(r.RequiredEquity)},
	}
	content := renderPairs(rows) + "\n\n" +
		BoldStyle.Render("Maximum property price: ") +
		GoalStyle.Render(FormatMoney(r.MaxPropertyPrice))
	return RenderBox(MoneyIcon+" What you can afford", content)
}

// RenderPlan renders a savings plan for a target property.
func RenderPlan(r affordability.PlanResult) string {
	rows := [][2]string{
		{"Target price", FormatMoney(r.TargetPropertyPrice)},
		{"Maximum loan", FormatMoney(r.MaxLoanAmount)},
		{"Savings required", FormatMoney(r.RequiredSavings)},
		{"Still to save", FormatMoney(r.SavingsGap)},
		{"Monthly savings", FormatMoney(r.MonthlySavings)},
	}

	style, icon, message := planVerdict(r)
	return RenderBox(HouseIcon+" Savings plan", renderPairs(rows)+"\n\n"+withIcon(style, icon, message))
}

// planVerdict describes the outcome of a savings plan.
func planVerdict(r affordability.PlanResult) (lipgloss.Style, string, string) {
	switch {
	case !r.IsAchievable:
		return ErrorStyle, ErrorIcon, "Not achievable with current income and expenses"
	case r.MonthsToSave == affordability.Unachievable:
		return WarningStyle, WarningIcon, "Achievable only if monthly savings turn positive"
	default:
		return GoalStyle, SuccessIcon, "Achievable in " + FormatDuration(r.MonthsToSave)
	}
}

// RenderProfile renders a user profile.
func RenderProfile(p model.UserProfile) string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	rows := [][2]string{
		{"User", p.ID},
		{"Age", fmt.Sprintf("%d (buying at %d)", p.Age, p.PurchaseAge)},
		{"Net income", FormatMoney(p.NetIncome) + "/month"},
		{"Expenses", FormatMoney(p.Expenses) + "/month"},
		{"Wealth", FormatMoney(p.Wealth)},
		{"Saving rate", FormatPercent(p.SavingRate)},
	}
	if p.TargetPropertyPrice > 0 {
		rows = append(rows, [2]string{"Target property", FormatMoney(p.TargetPropertyPrice)})
	}
	return RenderBox(name, renderPairs(rows))
}

// RenderTransactions renders transactions as a table in the order given.
func RenderTransactions(txns []model.Transaction) string {
	if len(txns) == 0 {
		return SubtleStyle.Render("No transactions")
	}

	headers := []string{"Date", "Category", "Description", "Amount", "ID"}
	rows := make([][]string, 0, len(txns))
	for _, txn := range txns {
		amount := AmountStyle(txn.Type).Render(FormatMoney(txn.Signed()))
		desc := txn.Description
		if txn.IsTemplate() {
			desc += SubtleStyle.Render(fmt.Sprintf(" (every %d.)", txn.RecurringDay))
		}
		rows = append(rows, []string{
			txn.Date.Format("2006-01-02"),
			txn.Category.Label(),
			desc,
			amount,
			SubtleStyle.Render(txn.ID),
		})
	}
	return renderTable(headers, rows)
}

// RenderAccount renders the account summary followed by its transactions.
func RenderAccount(a model.BankAccount) string {
	summary := renderPairs([][2]string{
		{"Account", a.ID},
		{"Balance", FormatMoney(a.Balance)},
		{"Transactions", fmt.Sprintf("%d", len(a.Transactions))},
		{"Last updated", a.LastUpdated.Format("2006-01-02 15:04")},
	})
	if drift := a.Drift(); drift > 0.005 || drift < -0.005 {
		summary += "\n" + withIcon(DriftStyle, WarningIcon, "Balance differs from transactions by "+FormatMoney(drift))
	}
	return RenderBox(ChartIcon+" "+a.UserID, summary) + "\n" + RenderTransactions(a.Transactions)
}

// RenderMonth renders the outcome of one simulated month.
func RenderMonth(r *simulator.MonthResult) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(CalendarIcon + " " + FormatMonth(r.Month)))
	b.WriteString("\n")
	b.WriteString(RenderTransactions(r.Transactions))
	b.WriteString("\n\n")
	b.WriteString(renderPairs([][2]string{
		{"Target savings", FormatMoney(r.TargetSavings)},
		{"Realized savings", FormatMoney(r.RealizedSavings)},
		{"Balance", FormatMoney(r.Balance)},
	}))
	return b.String()
}

func renderPairs(rows [][2]string) string {
	width := 0
	for _, row := range rows {
		if w := lipgloss.Width(row[0]); w > width {
			width = w
		}
	}
	label := SubtleStyle.Width(width + 2)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label.Render(row[0]), row[1]))
	}
	return strings.Join(lines, "\n")
}

func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			s := style.Width(widths[i] + 2)
			if i == 3 {
				s = s.Align(lipgloss.Right).PaddingRight(2)
			}
			out[i] = s.Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{render(headers, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, render(row, TableCellStyle))
	}
	return strings.Join(lines, "\n")
}
