package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/dreambuilder/internal/api"
	"github.com/Veraticus/dreambuilder/internal/certs"
	"github.com/Veraticus/dreambuilder/internal/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring transaction scheduler",
		Long: `Serve the calculators, profiles and ledgers over HTTP and book recurring
transactions on the configured schedule (server.recurring_schedule, default
daily). Ledger changes are saved periodically and on shutdown.`,
		Example: `  dreambuilder serve --addr :9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := api.NewServer(api.Deps{
				Engine:    st.engine,
				Profiles:  st.profiles,
				Ledger:    st.ledger,
				Events:    st.ledger,
				Simulator: st.newSimulator(),
				Clock:     st.clock,
			})

			sched := scheduler.New(st.ledger,
				scheduler.WithLocation(st.loc),
				scheduler.WithAfterRun(func(ctx context.Context, summary scheduler.RunSummary) {
					if summary.Emitted == 0 {
						return
					}
					if err := st.save(ctx, "recurring"); err != nil {
						slog.Error("Failed to save after recurring run", "error", err)
					}
				}),
			)

			g, gctx := errgroup.WithContext(ctx)
			if st.cfg.Server.TLS {
				tlsCfg, err := certs.NewStore(filepath.Join(filepath.Dir(st.cfg.Database.Path), "certs")).TLSConfig()
				if err != nil {
					return fmt.Errorf("failed to prepare TLS certificate: %w", err)
				}
				g.Go(func() error {
					return srv.ListenAndServeTLS(gctx, st.cfg.Server.Addr, tlsCfg)
				})
			} else {
				g.Go(func() error {
					return srv.ListenAndServe(gctx, st.cfg.Server.Addr)
				})
			}
			if spec := st.cfg.Server.RecurringSchedule; spec != "" {
				g.Go(func() error {
					return sched.Run(gctx, spec)
				})
			}
			g.Go(func() error {
				return checkpointLoop(gctx, st, interval)
			})

			err = g.Wait()

			// Final checkpoint even when the context is already canceled.
			if saveErr := st.save(context.WithoutCancel(ctx), "shutdown"); saveErr != nil {
				slog.Error("Failed to save state on shutdown", "error", saveErr)
				if err == nil {
					err = saveErr
				}
			}
			if err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			slog.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&interval, "checkpoint-interval", 30*time.Second, "how often changed ledgers are saved")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	return cmd
}

// checkpointLoop saves the state every interval if any ledger changed since
// the last save. It returns when ctx is canceled.
func checkpointLoop(ctx context.Context, st *state, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	events, unsubscribe := st.ledger.Subscribe("", 64)
	defer unsubscribe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			if err := st.save(ctx, "checkpoint"); err != nil {
				slog.Warn("Periodic checkpoint failed", "error", err)
				continue
			}
			dirty = false
		}
	}
}
