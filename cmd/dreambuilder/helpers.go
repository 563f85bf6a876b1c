package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/config"
	"github.com/Veraticus/dreambuilder/internal/ledger"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/profile"
	"github.com/Veraticus/dreambuilder/internal/random"
	"github.com/Veraticus/dreambuilder/internal/simulator"
	"github.com/Veraticus/dreambuilder/internal/storage"
	"github.com/spf13/viper"
)

var saveRetry = common.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
}

// state is everything a command needs: the loaded configuration, the SQLite
// checkpoint and the in-memory stores restored from it.
type state struct {
	cfg      *config.Config
	store    *storage.SQLiteStorage
	clock    calendar.Clock
	loc      *time.Location
	profiles *profile.MemoryStore
	ledger   *ledger.Store
	engine   *affordability.Engine
}

// openState loads the configuration, opens and migrates the database and
// restores the last saved snapshot into fresh in-memory stores.
func openState(ctx context.Context) (*state, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	clock := calendar.NewSystemClock(loc)
	st := &state{
		cfg:      cfg,
		store:    store,
		clock:    clock,
		loc:      loc,
		profiles: profile.NewMemoryStore(),
		ledger:   ledger.NewStore(clock),
		engine:   affordability.NewEngine(cfg.Affordability),
	}

	if err := st.restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return st, nil
}

// initStorage opens and migrates the database at dbPath.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (st *state) restore(ctx context.Context) error {
	snap, err := st.store.LoadSnapshot(ctx, st.loc)
	if err != nil {
		return fmt.Errorf("failed to load saved state: %w", err)
	}
	for _, p := range snap.Profiles {
		if err := st.profiles.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to restore profile %s: %w", p.ID, err)
		}
	}
	for _, account := range snap.Accounts {
		st.ledger.Restore(account)
	}
	slog.Debug("Restored state",
		"profiles", len(snap.Profiles),
		"accounts", len(snap.Accounts))
	return nil
}

// save checkpoints the in-memory stores, retrying while the database is busy.
func (st *state) save(ctx context.Context, note string) error {
	profiles, err := st.profiles.List(ctx)
	if err != nil {
		return err
	}
	snap := &storage.Snapshot{Profiles: profiles, Accounts: st.ledger.Accounts()}

	var info *storage.SnapshotInfo
	err = common.WithRetry(ctx, func() error {
		var saveErr error
		info, saveErr = st.store.SaveSnapshot(ctx, snap, note)
		return saveErr
	}, saveRetry)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	slog.Debug("Saved state",
		"note", note,
		"profiles", info.Profiles,
		"accounts", info.Accounts,
		"transactions", info.Transactions)
	return nil
}

func (st *state) Close() error {
	return st.store.Close()
}

func (st *state) user() string {
	return st.cfg.User
}

// requireProfile returns the active user's profile with a hint when none exists.
func (st *state) requireProfile(ctx context.Context) (model.UserProfile, error) {
	p, err := st.profiles.Get(ctx, st.user())
	if errors.Is(err, common.ErrProfileNotFound) {
		return p, common.NewUserError(
			fmt.Sprintf("no profile for %q; run `dreambuilder profile setup` first", st.user()), err)
	}
	return p, err
}

func (st *state) newSimulator() *simulator.Simulator {
	var rng random.Source
	if st.cfg.Simulation.Seed != 0 {
		rng = random.NewSeeded(st.cfg.Simulation.Seed)
	}
	return simulator.New(st.profiles, st.ledger, rng, st.clock)
}

// cliMessage prefers the user-facing message of a common.UserError.
func cliMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}
