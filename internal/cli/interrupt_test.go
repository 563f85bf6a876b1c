package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// simulateMonths mimics the simulate command: one month per tick until ctx
// ends or every month is done.
func simulateMonths(ctx context.Context, h *InterruptHandler, months int, afterMonth func(done int)) int {
	done := 0
	for done < months {
		select {
		case <-ctx.Done():
			return done
		case <-time.After(2 * time.Millisecond):
		}
		done++
		h.MonthSaved()
		afterMonth(done)
	}
	return done
}

func TestInterruptHandler_StopsSimulationAfterCurrentMonth(t *testing.T) {
	var out bytes.Buffer
	handler := NewInterruptHandler(&out)

	parent, interrupt := context.WithCancel(context.Background())
	defer interrupt()
	ctx := handler.Watch(parent, 24)

	simulated := simulateMonths(ctx, handler, 24, func(done int) {
		if done == 3 {
			interrupt()
		}
	})
	assert.Equal(t, 3, simulated)
	assert.True(t, handler.WasInterrupted())

	handler.Stop()
	handler.Stop()
	assert.Equal(t, 1, strings.Count(out.String(), "Simulation interrupted after 3 of 24 month(s)"))
	assert.Contains(t, out.String(), "Run dreambuilder simulate again to continue.")
}

func TestInterruptHandler_FinishedSimulationIsQuiet(t *testing.T) {
	var out bytes.Buffer
	handler := NewInterruptHandler(&out)

	ctx := handler.Watch(context.Background(), 2)
	assert.Equal(t, 2, simulateMonths(ctx, handler, 2, func(int) {}))
	handler.Stop()

	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, out.String())
}

func TestInterruptHandler_Summary(t *testing.T) {
	tests := []struct {
		name     string
		want     []string
		dontWant []string
		saved    int
	}{
		{
			name:  "some months saved",
			saved: 2,
			want:  []string{"after 2 of 6 month(s)", "Simulated months are saved", "See you later!"},
		},
		{
			name:     "interrupted during the first month",
			want:     []string{"after 0 of 6 month(s)", "See you later!"},
			dontWant: []string{"are saved"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &InterruptHandler{requested: 6, saved: tt.saved}
			summary := handler.summary()

			for _, s := range tt.want {
				assert.Contains(t, summary, s)
			}
			for _, s := range tt.dontWant {
				assert.NotContains(t, summary, s)
			}
		})
	}
}

func TestNewInterruptHandler_DefaultsToStdout(t *testing.T) {
	assert.Equal(t, os.Stdout, NewInterruptHandler(nil).out)
}
