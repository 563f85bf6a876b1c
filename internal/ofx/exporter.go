package ofx

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// maxNameLength is the OFX limit for the NAME element.
const maxNameLength = 32

// Exporter writes a ledger account as an OFX bank statement.
type Exporter struct {
	// BankID is written to BANKACCTFROM. OFX requires a value.
	BankID string
	// Currency is the ISO-4217 code of the statement.
	Currency string
}

// NewExporter returns an exporter for USD statements.
func NewExporter() *Exporter {
	return &Exporter{BankID: "DREAMBUILDER", Currency: "USD"}
}

// Export writes the transactions of account dated within [from, to] as an
// OFX 1.02 statement. A zero from or to leaves that side unbounded.
func (e *Exporter) Export(w io.Writer, account model.BankAccount, from, to time.Time, now time.Time) error {
	txns := make([]model.Transaction, 0, len(account.Transactions))
	for _, txn := range account.Transactions {
		if !from.IsZero() && txn.Date.Before(from) {
			continue
		}
		if !to.IsZero() && txn.Date.After(to) {
			continue
		}
		txns = append(txns, txn)
	}
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.Before(txns[j].Date)
	})

	start, end := from, to
	if start.IsZero() {
		start = account.LastUpdated
		if len(txns) > 0 {
			start = txns[0].Date
		}
	}
	if end.IsZero() {
		end = now
	}

	curDef, err := ofxgo.NewCurrSymbol(e.Currency)
	if err != nil {
		return fmt.Errorf("invalid currency %q: %w", e.Currency, err)
	}

	list := &ofxgo.TransactionList{
		DtStart:      ofxgo.Date{Time: start},
		DtEnd:        ofxgo.Date{Time: end},
		Transactions: make([]ofxgo.Transaction, 0, len(txns)),
	}
	for _, txn := range txns {
		list.Transactions = append(list.Transactions, convertToOFX(txn))
	}

	accountID := account.ID
	if accountID == "" {
		accountID = account.UserID
	}

	stmt := ofxgo.StatementResponse{
		TrnUID: ofxgo.UID("0"),
		Status: ofxgo.Status{Code: 0, Severity: "INFO"},
		CurDef: *curDef,
		BankAcctFrom: ofxgo.BankAcct{
			BankID:   ofxgo.String(e.BankID),
			AcctID:   ofxgo.String(accountID),
			AcctType: ofxgo.AcctTypeChecking,
		},
		BankTranList: list,
		BalAmt:       toAmount(account.Balance),
		DtAsOf:       ofxgo.Date{Time: now},
	}

	resp := ofxgo.Response{
		Version: ofxgo.OfxVersion102,
		Signon: ofxgo.SignonResponse{
			Status:   ofxgo.Status{Code: 0, Severity: "INFO"},
			DtServer: ofxgo.Date{Time: now},
			Language: "ENG",
		},
		Bank: []ofxgo.Message{&stmt},
	}

	buf, err := resp.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal OFX: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write OFX: %w", err)
	}
	return nil
}

func convertToOFX(txn model.Transaction) ofxgo.Transaction {
	trnType := ofxgo.TrnTypeDebit
	if txn.Type == model.TypeIncome {
		trnType = ofxgo.TrnTypeCredit
		if txn.Category == model.CategorySalary {
			trnType = ofxgo.TrnTypeDirectDep
		}
	}

	name := txn.Description
	if name == "" {
		name = txn.Category.Label()
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	return ofxgo.Transaction{
		TrnType:  trnType,
		DtPosted: ofxgo.Date{Time: txn.Date},
		TrnAmt:   toAmount(txn.Signed()),
		FiTID:    ofxgo.String(txn.ID),
		Name:     ofxgo.String(name),
		Memo:     ofxgo.String(txn.Category),
	}
}

// toAmount rounds to cents before converting so binary float noise never
// reaches the statement.
func toAmount(v float64) ofxgo.Amount {
	var amt ofxgo.Amount
	amt.SetString(decimal.NewFromFloat(v).StringFixed(2))
	return amt
}
