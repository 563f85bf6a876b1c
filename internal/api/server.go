// Package api exposes the calculators, ledger and simulator over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/calendar"
	"github.com/Veraticus/dreambuilder/internal/service"
	"github.com/Veraticus/dreambuilder/internal/simulator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// MonthSimulator advances a user's ledger by one month.
type MonthSimulator interface {
	SimulateNextMonth(ctx context.Context, userID string) (*simulator.MonthResult, error)
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Engine    *affordability.Engine
	Profiles  service.ProfileStore
	Ledger    service.Ledger
	Events    service.EventSource
	Simulator MonthSimulator
	Clock     calendar.Clock
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	router *mux.Router
	newID  func() string
}

// NewServer wires every route.
func NewServer(deps Deps) *Server {
	if deps.Engine == nil {
		deps.Engine = affordability.NewEngine(affordability.DefaultParams())
	}
	if deps.Clock == nil {
		deps.Clock = calendar.NewSystemClock(nil)
	}

	s := &Server{deps: deps, router: mux.NewRouter(), newID: uuid.NewString}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(recoverMiddleware, logMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/affordability", s.handleAffordability).Methods(http.MethodPost)
	v1.HandleFunc("/savings-plan", s.handleSavingsPlan).Methods(http.MethodPost)

	users := v1.PathPrefix("/users/{id}").Subrouter()
	users.HandleFunc("", s.handleClearUser).Methods(http.MethodDelete)
	users.HandleFunc("/profile", s.handleGetProfile).Methods(http.MethodGet)
	users.HandleFunc("/profile", s.handlePutProfile).Methods(http.MethodPut)
	users.HandleFunc("/progress", s.handleProgress).Methods(http.MethodGet)
	users.HandleFunc("/account", s.handleGetAccount).Methods(http.MethodGet)
	users.HandleFunc("/account", s.handleInitAccount).Methods(http.MethodPost)
	users.HandleFunc("/balance", s.handleUpdateBalance).Methods(http.MethodPut)
	users.HandleFunc("/transactions", s.handleAddTransaction).Methods(http.MethodPost)
	users.HandleFunc("/transactions/{txID}", s.handleRemoveTransaction).Methods(http.MethodDelete)
	users.HandleFunc("/simulate", s.handleSimulate).Methods(http.MethodPost)
	users.HandleFunc("/recurring", s.handleRecurring).Methods(http.MethodPost)
	users.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	return s.serve(ctx, addr, nil)
}

// ListenAndServeTLS is ListenAndServe over HTTPS with the certificates in cfg.
func (s *Server) ListenAndServeTLS(ctx context.Context, addr string, cfg *tls.Config) error {
	if cfg == nil {
		return errors.New("missing TLS configuration")
	}
	return s.serve(ctx, addr, cfg)
}

func (s *Server) serve(ctx context.Context, addr string, tlsCfg *tls.Config) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsCfg,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", addr, "tls", tlsCfg != nil)
		if tlsCfg != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
