// Package scheduler runs recurring-transaction processing on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/dreambuilder/internal/service"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// maxParallelUsers bounds how many users are processed concurrently.
const maxParallelUsers = 8

// RunSummary reports one pass over every user.
type RunSummary struct {
	Started  time.Time
	Duration time.Duration
	Users    int
	Emitted  int
	Failed   int
}

// Scheduler triggers ProcessMonthlyRecurringTransactions for every user.
type Scheduler struct {
	ledger   service.Ledger
	cron     *cron.Cron
	afterRun func(context.Context, RunSummary)
	loc      *time.Location
	mu       sync.Mutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates the schedule in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

// WithAfterRun registers a hook called after every scheduled pass.
func WithAfterRun(fn func(context.Context, RunSummary)) Option {
	return func(s *Scheduler) { s.afterRun = fn }
}

// New creates a stopped scheduler.
func New(ledger service.Ledger, opts ...Option) *Scheduler {
	s := &Scheduler{ledger: ledger, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce processes every user's recurring templates. Users run in parallel;
// one user's failure is logged and counted without stopping the others.
func (s *Scheduler) RunOnce(ctx context.Context) RunSummary {
	summary := RunSummary{Started: time.Now()}
	users := s.ledger.Users()
	summary.Users = len(users)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUsers)

	for _, userID := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			emitted, err := s.ledger.ProcessMonthlyRecurringTransactions(userID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				slog.Error("Failed to process recurring transactions", "user_id", userID, "error", err)
				return nil
			}
			summary.Emitted += len(emitted)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(summary.Started)
	slog.Info("Recurring transaction run finished",
		"users", summary.Users,
		"emitted", summary.Emitted,
		"failed", summary.Failed,
		"duration", summary.Duration)
	return summary
}

// Start schedules RunOnce on spec (standard 5-field cron or a descriptor such
// as "@daily"). Runs never overlap.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		summary := s.RunOnce(ctx)
		if s.afterRun != nil {
			s.afterRun(ctx, summary)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	slog.Info("Recurring transaction scheduler started", "schedule", spec)
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Run starts the scheduler and blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	if err := s.Start(ctx, spec); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
