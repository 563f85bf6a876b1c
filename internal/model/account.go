package model

import "time"

// BankAccount is the mocked bank account backing a user's ledger.
//
// Balance is expected to equal TransactionSum, but the two can drift apart
// after a direct balance overwrite. Nothing reconciles them.
type BankAccount struct {
	LastUpdated  time.Time     `json:"last_updated"`
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Transactions []Transaction `json:"transactions"`
	Balance      float64       `json:"balance"`
}

// TransactionSum returns the sum of the signed amounts of all transactions.
func (a BankAccount) TransactionSum() float64 {
	var sum float64
	for _, txn := range a.Transactions {
		sum += txn.Signed()
	}
	return sum
}

// Drift returns how far the stored balance is from the transaction-derived one.
func (a BankAccount) Drift() float64 {
	return a.Balance - a.TransactionSum()
}

// LatestTransaction returns the transaction with the latest date.
func (a BankAccount) LatestTransaction() (Transaction, bool) {
	if len(a.Transactions) == 0 {
		return Transaction{}, false
	}
	latest := a.Transactions[0]
	for _, txn := range a.Transactions[1:] {
		if txn.Date.After(latest.Date) {
			latest = txn
		}
	}
	return latest, true
}

// Clone returns a deep copy safe to hand to other goroutines.
func (a BankAccount) Clone() BankAccount {
	out := a
	if a.Transactions != nil {
		out.Transactions = make([]Transaction, len(a.Transactions))
		copy(out.Transactions, a.Transactions)
	}
	return out
}
