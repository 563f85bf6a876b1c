package ledger

import (
	"fmt"

	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/service"
)

// ProcessMonthlyRecurringTransactions re-emits the user's recurring templates
// scheduled for today's day of month. Nothing is emitted when the latest
// recurring transaction for today's day already falls in the current month, so
// running it repeatedly on the same day is safe.
func (s *Store) ProcessMonthlyRecurringTransactions(userID string) ([]model.Transaction, error) {
	e := s.lookup(userID)
	if e == nil {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.account == nil {
		return nil, nil
	}

	now := s.clock.Now()
	day := calendar.DayOfMonth(now)

	var templates []model.Transaction
	var latest *model.Transaction
	for i, txn := range e.account.Transactions {
		if !txn.IsRecurring || txn.RecurringDay != day {
			continue
		}
		if txn.IsTemplate() {
			templates = append(templates, txn)
		}
		if latest == nil || txn.Date.After(latest.Date) {
			latest = &e.account.Transactions[i]
		}
	}

	if len(templates) == 0 {
		return nil, nil
	}
	if calendar.SameMonth(latest.Date, now) {
		s.logger().Debug("Recurring transactions already processed this month",
			"user_id", userID,
			"day", day)
		return nil, nil
	}

	emitted := make([]model.Transaction, 0, len(templates))
	for _, tpl := range templates {
		txn := tpl
		txn.ID = fmt.Sprintf("%s-%d", tpl.ID, now.UnixMilli())
		txn.SourceID = tpl.ID
		txn.Date = now
		s.apply(e, userID, txn)
		emitted = append(emitted, txn)
	}
	s.publish(service.EventTransactionAdded, e.account)

	s.logger().Info("Processed recurring transactions",
		"user_id", userID,
		"count", len(emitted))
	return emitted, nil
}
