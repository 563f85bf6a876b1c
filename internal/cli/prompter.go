package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/dreambuilder/internal/model"
)

// ErrInvalidAnswer is returned when an answer cannot be parsed after all retries.
var ErrInvalidAnswer = errors.New("invalid answer")

const maxAttempts = 3

// ProfilePrompter asks for profile fields one at a time on a terminal.
type ProfilePrompter struct {
	writer io.Writer
	reader *answerReader
}

// NewProfilePrompter creates a prompter; nil arguments default to stdin/stdout.
func NewProfilePrompter(reader io.Reader, writer io.Writer) *ProfilePrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &ProfilePrompter{writer: writer, reader: newAnswerReader(reader)}
}

// PromptProfile walks through every profile field. Values from current are
// offered as defaults and kept when the answer is blank.
func (p *ProfilePrompter) PromptProfile(ctx context.Context, current model.UserProfile) (model.UserProfile, error) {
	out := current

	if _, err := fmt.Fprintln(p.writer, FormatTitle("Tell us about your finances")); err != nil {
		return out, fmt.Errorf("failed to write title: %w", err)
	}

	var err error
	if out.Name, err = p.askString(ctx, "Name", current.Name); err != nil {
		return out, err
	}
	if out.Age, err = p.askInt(ctx, "Current age", current.Age); err != nil {
		return out, err
	}
	if out.PurchaseAge, err = p.askInt(ctx, "Age when buying", current.PurchaseAge); err != nil {
		return out, err
	}
	if out.NetIncome, err = p.askFloat(ctx, "Monthly net income", current.NetIncome); err != nil {
		return out, err
	}
	if out.Expenses, err = p.askFloat(ctx, "Monthly expenses", current.Expenses); err != nil {
		return out, err
	}
	if out.Wealth, err = p.askFloat(ctx, "Current savings", current.Wealth); err != nil {
		return out, err
	}
	if out.SavingRate, err = p.askFloat(ctx, "Saving rate (0-1)", current.SavingRate); err != nil {
		return out, err
	}
	if out.TargetPropertyPrice, err = p.askFloat(ctx, "Target property price (0 to skip)", current.TargetPropertyPrice); err != nil {
		return out, err
	}

	return out, out.Validate()
}

func (p *ProfilePrompter) ask(ctx context.Context, label, def string) (string, error) {
	prompt := label
	if def != "" {
		prompt += SubtleStyle.Render(" [" + def + "]")
	}
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.reader.next(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p *ProfilePrompter) askString(ctx context.Context, label, def string) (string, error) {
	return p.ask(ctx, label, def)
}

func (p *ProfilePrompter) askInt(ctx context.Context, label string, def int) (int, error) {
	return retry(p, func() (int, error) {
		s, err := p.ask(ctx, label, defaultNumber(float64(def)))
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(strings.TrimSpace(s))
	})
}

func (p *ProfilePrompter) askFloat(ctx context.Context, label string, def float64) (float64, error) {
	return retry(p, func() (float64, error) {
		s, err := p.ask(ctx, label, defaultNumber(def))
		if err != nil {
			return 0, err
		}
		s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
		return strconv.ParseFloat(s, 64)
	})
}

// retry re-asks on parse errors and gives up on read errors immediately.
func retry[T any](p *ProfilePrompter, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) {
			return zero, err
		}
		if _, werr := fmt.Fprintln(p.writer, FormatError("Please enter a number")); werr != nil {
			return zero, werr
		}
	}
	return zero, ErrInvalidAnswer
}

func defaultNumber(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
