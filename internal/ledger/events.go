package ledger

import (
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/Veraticus/dreambuilder/internal/service"
)

type subscriber struct {
	ch     chan service.LedgerEvent
	userID string
}

// Subscribe registers for change notifications. An empty userID receives
// events for every user. Events are dropped for subscribers whose buffer is
// full. The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe(userID string, buffer int) (<-chan service.LedgerEvent, func()) {
	if buffer < 1 {
		buffer = 16
	}

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := &subscriber{ch: make(chan service.LedgerEvent, buffer), userID: userID}
	s.subs[id] = sub
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

// publish fans out a snapshot of account. Callers hold the user's entry lock,
// which keeps events for one user in mutation order.
func (s *Store) publish(kind service.EventKind, account *model.BankAccount) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	if len(s.subs) == 0 {
		return
	}

	event := service.LedgerEvent{
		At:      s.clock.Now(),
		Kind:    kind,
		UserID:  account.UserID,
		Account: account.Clone(),
	}
	for _, sub := range s.subs {
		if sub.userID != "" && sub.userID != account.UserID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			s.logger().Warn("Dropping ledger event for slow subscriber",
				"user_id", account.UserID,
				"kind", kind)
		}
	}
}
