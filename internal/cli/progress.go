package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

const progressWidth = 40

var barTheme = progressbar.Theme{
	Saucer:        "[green]=[reset]",
	SaucerHead:    "[green]>[reset]",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// RenderDownPaymentProgress draws a static bar showing how much of the down
// payment is saved. progress is a ratio in [0, 1].
func RenderDownPaymentProgress(w io.Writer, progress float64) error {
	pct := int64(progress*100 + 0.5)
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}

	bar := progressbar.NewOptions64(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(progressWidth),
		progressbar.OptionSetDescription("[cyan]Down payment saved[reset]"),
		progressbar.OptionSetTheme(barTheme),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(false),
	)
	if err := bar.Set64(pct); err != nil {
		return fmt.Errorf("failed to draw progress bar: %w", err)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// MonthProgress tracks a multi-month simulation run.
type MonthProgress struct {
	bar *progressbar.ProgressBar
}

// NewMonthProgress creates a bar counting simulated months.
func NewMonthProgress(w io.Writer, months int) *MonthProgress {
	bar := progressbar.NewOptions(months,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(progressWidth),
		progressbar.OptionSetDescription("[cyan][bold]Simulating months...[reset]"),
		progressbar.OptionSetTheme(barTheme),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &MonthProgress{bar: bar}
}

// Advance records one completed month.
func (p *MonthProgress) Advance() {
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}
