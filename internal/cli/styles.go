// Package cli renders DreamBuilder's terminal views with lipgloss.
package cli

import (
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	// PrimaryColor is the brick accent used for titles and prompts.
	PrimaryColor = lipgloss.Color("#E07A5F")

	savingsColor = lipgloss.Color("#81B29A") // sage
	spendColor   = lipgloss.Color("#D1495B")
	cautionColor = lipgloss.Color("#F2CC8F")
	noteColor    = lipgloss.Color("#7FB7BE")
	mutedColor   = lipgloss.Color("#8D99AE")
	frameColor   = lipgloss.Color("#3D405B")
)

var (
	// TitleStyle heads a view.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	// SubtitleStyle introduces a secondary section.
	SubtitleStyle = lipgloss.NewStyle().Foreground(mutedColor).MarginBottom(1)
	// SubtleStyle dims labels, ids and hints.
	SubtleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	// BoldStyle emphasizes a label.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// SuccessStyle marks money coming in and goals within reach.
	SuccessStyle = lipgloss.NewStyle().Foreground(savingsColor)
	// ErrorStyle marks money going out and goals out of reach.
	ErrorStyle = lipgloss.NewStyle().Foreground(spendColor)
	// WarningStyle marks figures that need attention.
	WarningStyle = lipgloss.NewStyle().Foreground(cautionColor)
	// InfoStyle marks neutral status lines.
	InfoStyle = lipgloss.NewStyle().Foreground(noteColor)

	// GoalStyle highlights the headline figure of a calculation.
	GoalStyle = SuccessStyle.Bold(true)
	// DriftStyle flags a balance that no longer matches its transactions.
	DriftStyle = WarningStyle.Italic(true)

	// TableHeaderStyle heads a transaction table.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(mutedColor)
	// TableCellStyle pads transaction table cells.
	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(1, 2)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	WarningIcon  = "⚠️"
	HouseIcon    = "🏠"
	MoneyIcon    = "💰"
	ChartIcon    = "📊"
	CalendarIcon = "📅"
	infoIcon     = "ℹ️"
)

// AmountStyle colors a transaction amount by its direction.
func AmountStyle(t model.TransactionType) lipgloss.Style {
	if t == model.TypeIncome {
		return SuccessStyle
	}
	return ErrorStyle
}

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess formats a confirmation line.
func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }

// FormatError formats a failure line.
func FormatError(message string) string { return withIcon(ErrorStyle, ErrorIcon, message) }

// FormatWarning formats a caution line.
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }

// FormatInfo formats a status line.
func FormatInfo(message string) string { return withIcon(InfoStyle, infoIcon, message) }

// FormatTitle formats a view title with the house icon.
func FormatTitle(title string) string { return withIcon(TitleStyle, HouseIcon, title) }

// FormatPrompt formats a question waiting for an answer.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox frames a titled summary.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
