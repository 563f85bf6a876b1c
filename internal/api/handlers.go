package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/gorilla/mux"
)

type balanceRequest struct {
	Balance float64 `json:"balance"`
}

type transactionRequest struct {
	Date         *time.Time            `json:"date"`
	ID           string                `json:"id"`
	Type         model.TransactionType `json:"type"`
	Category     string                `json:"category"`
	Description  string                `json:"description"`
	Amount       float64               `json:"amount"`
	RecurringDay int                   `json:"recurring_day"`
	IsRecurring  bool                  `json:"is_recurring"`
}

type progressResponse struct {
	Plan                *affordability.PlanResult `json:"plan,omitempty"`
	Affordability       affordability.Result      `json:"affordability"`
	DownPaymentProgress float64                   `json:"down_payment_progress"`
}

type recurringResponse struct {
	Emitted []model.Transaction `json:"emitted"`
}

func userID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAffordability(w http.ResponseWriter, r *http.Request) {
	var in affordability.Input
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, err)
		return
	}

	res := s.deps.Engine.CalculateMaxAffordableProperty(in)
	if err := res.Check(); err != nil {
		writeError(w, common.CalculationError(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSavingsPlan(w http.ResponseWriter, r *http.Request) {
	var in affordability.PlanInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, err)
		return
	}

	res := s.deps.Engine.CalculateSavingsPlan(in)
	if err := res.Check(); err != nil {
		writeError(w, common.CalculationError(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p model.UserProfile
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	p.ID = userID(r)

	if err := s.deps.Profiles.Save(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	saved, err := s.deps.Profiles.Get(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := progressResponse{
		Affordability: s.deps.Engine.CalculateMaxAffordableProperty(affordability.InputFromProfile(p)),
	}
	if err := resp.Affordability.Check(); err != nil {
		writeError(w, common.CalculationError(err))
		return
	}
	if p.TargetPropertyPrice > 0 {
		plan := s.deps.Engine.CalculateSavingsPlan(affordability.PlanInputFromProfile(p))
		if err := plan.Check(); err != nil {
			writeError(w, common.CalculationError(err))
			return
		}
		resp.Plan = &plan
		resp.DownPaymentProgress = s.deps.Engine.DownPaymentProgress(p.Wealth, p.TargetPropertyPrice)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := s.deps.Ledger.Account(userID(r))
	if !ok {
		writeError(w, fmt.Errorf("%w: no account for user %s", common.ErrNotFound, userID(r)))
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleInitAccount(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.deps.Ledger.InitializeAccount(userID(r), req.Balance))
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if math.IsNaN(req.Balance) || math.IsInf(req.Balance, 0) {
		writeError(w, fmt.Errorf("%w: balance must be finite", common.ErrInvalidInput))
		return
	}

	id := userID(r)
	s.deps.Ledger.UpdateBalance(id, req.Balance)
	account, _ := s.deps.Ledger.Account(id)
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	txn := model.Transaction{
		ID:           req.ID,
		UserID:       userID(r),
		Type:         req.Type,
		Category:     model.Category(req.Category),
		Amount:       req.Amount,
		Description:  req.Description,
		IsRecurring:  req.IsRecurring,
		RecurringDay: req.RecurringDay,
	}
	if c, ok := model.ParseCategory(req.Category); ok {
		txn.Category = c
	}
	if txn.ID == "" {
		txn.ID = s.newID()
	}
	if req.Date != nil {
		txn.Date = *req.Date
	} else {
		txn.Date = s.deps.Clock.Now()
	}
	if txn.IsRecurring && txn.RecurringDay == 0 {
		txn.RecurringDay = txn.Date.In(s.deps.Clock.Location()).Day()
	}

	if err := s.deps.Ledger.AddTransaction(txn.UserID, txn); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	txID := mux.Vars(r)["txID"]
	if !s.deps.Ledger.RemoveTransaction(userID(r), txID) {
		writeError(w, fmt.Errorf("%w: transaction %s", common.ErrNotFound, txID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearUser(w http.ResponseWriter, r *http.Request) {
	id := userID(r)
	s.deps.Ledger.ClearUser(id)
	if err := s.deps.Profiles.Delete(r.Context(), id); err != nil && !errors.Is(err, common.ErrProfileNotFound) {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Simulator == nil {
		writeError(w, errors.New("simulator not configured"))
		return
	}

	id := userID(r)
	res, err := s.deps.Simulator.SimulateNextMonth(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if res == nil {
		writeError(w, fmt.Errorf("%w: %s", common.ErrProfileNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	emitted, err := s.deps.Ledger.ProcessMonthlyRecurringTransactions(userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if emitted == nil {
		emitted = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, recurringResponse{Emitted: emitted})
}
