package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/ledger"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/profile"
)

// Now is the fixed instant every Env starts at.
var Now = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

// Env wires the in-memory stores behind a fixed clock.
type Env struct {
	Clock    *calendar.FixedClock
	Profiles *profile.MemoryStore
	Ledger   *ledger.Store
	Engine   *affordability.Engine
	t        *testing.T
}

// NewEnv returns an empty environment at Now.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	clock := calendar.NewFixedClock(Now)
	return &Env{
		Clock:    clock,
		Profiles: profile.NewMemoryStore(),
		Ledger:   ledger.NewStore(clock),
		Engine:   affordability.NewEngine(affordability.DefaultParams()),
		t:        t,
	}
}

// SaveProfiles stores every profile or fails the test.
func (e *Env) SaveProfiles(profiles ...model.UserProfile) *Env {
	e.t.Helper()
	for _, p := range profiles {
		if err := e.Profiles.Save(context.Background(), p); err != nil {
			e.t.Fatalf("failed to save profile %s: %v", p.ID, err)
		}
	}
	return e
}

// AddTransactions appends txns to their owners' ledgers or fails the test.
func (e *Env) AddTransactions(txns ...model.Transaction) *Env {
	e.t.Helper()
	for _, txn := range txns {
		if err := e.Ledger.AddTransaction(txn.UserID, txn); err != nil {
			e.t.Fatalf("failed to add transaction %s: %v", txn.ID, err)
		}
	}
	return e
}
