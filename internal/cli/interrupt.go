package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
)

// InterruptHandler lets a multi-month simulation stop on Ctrl-C. The month in
// progress is still committed; the caller checks the watched context before
// starting the next one.
type InterruptHandler struct {
	out         io.Writer
	parent      context.Context
	cancel      context.CancelFunc
	requested   int
	saved       int
	interrupted bool
	reported    bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler that reports to out (stdout when nil).
func NewInterruptHandler(out io.Writer) *InterruptHandler {
	if out == nil {
		out = os.Stdout
	}
	return &InterruptHandler{out: out}
}

// Watch returns a context canceled on SIGINT or SIGTERM. A canceled parent
// counts as an interrupt too, since the root command already turns signals
// into cancellation. requested is the number of months asked for.
func (h *InterruptHandler) Watch(ctx context.Context, requested int) context.Context {
	watched, cancel := context.WithCancel(ctx)
	h.parent = ctx
	h.cancel = cancel
	h.requested = requested

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
		case <-watched.Done():
			if ctx.Err() == nil {
				return
			}
		}
		h.mu.Lock()
		h.interrupted = true
		h.mu.Unlock()
		cancel()
	}()

	return watched
}

// MonthSaved counts a month whose results reached the database.
func (h *InterruptHandler) MonthSaved() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved++
}

// WasInterrupted reports whether the run was cut short.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.wasInterrupted()
}

func (h *InterruptHandler) wasInterrupted() bool {
	return h.interrupted || (h.parent != nil && h.parent.Err() != nil)
}

// Stop releases the signal handler. After an interrupt it tells the user, once,
// how many months were kept.
func (h *InterruptHandler) Stop() {
	if h.cancel != nil {
		h.cancel()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.wasInterrupted() || h.reported {
		return
	}
	h.reported = true
	if _, err := fmt.Fprint(h.out, h.summary()); err != nil {
		slog.Error("Failed to write interrupt summary", "error", err)
	}
}

func (h *InterruptHandler) summary() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(FormatWarning(fmt.Sprintf("Simulation interrupted after %d of %d month(s)", h.saved, h.requested)))
	b.WriteString("\n")
	if h.saved > 0 {
		b.WriteString(FormatInfo("Simulated months are saved. Run dreambuilder simulate again to continue."))
		b.WriteString("\n")
	}
	b.WriteString(FormatInfo("See you later!"))
	b.WriteString("\n")
	return b.String()
}
