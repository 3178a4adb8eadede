package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eportal/backend/admin"
	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/citizen"
	"github.com/eportal/backend/depthead"
	"github.com/eportal/backend/notifications"
	"github.com/eportal/backend/officer"
	"github.com/eportal/backend/payment"
	"github.com/eportal/backend/profile"
	"github.com/eportal/backend/repository"
	"github.com/eportal/backend/server"
	"github.com/eportal/backend/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal HTTP server",
	Long:  `Ensures the database schema, then serves the portal until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := repository.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}

		store, closeStore, err := openSessionStore(ctx, pool)
		if err != nil {
			return fmt.Errorf("failed to configure session store: %w", err)
		}
		defer closeStore()

		sessions, err := newSessionManager(store)
		if err != nil {
			return fmt.Errorf("failed to configure sessions: %w", err)
		}

		files, err := storage.NewLocal(cfg.UploadDir, cfg.MaxUploadBytes)
		if err != nil {
			return fmt.Errorf("failed to prepare upload directory: %w", err)
		}

		users := repository.NewUsers(pool)
		requests := repository.NewRequests(pool)
		catalog := repository.NewCatalog(pool)
		inbox := repository.NewNotifications(pool)
		reports := repository.NewReports(pool)

		authService, err := auth.NewService(users, cfg.BcryptCost, logger)
		if err != nil {
			return fmt.Errorf("failed to configure authentication: %w", err)
		}

		router := server.NewRouter(server.Options{
			Sessions: sessions,
			Feed:     notifications.NewFeed(inbox, logger),
			Auth:     auth.NewHandler(authService, sessions, logger),
			Citizen: citizen.NewHandler(citizen.Dependencies{
				Requests:       requests,
				Services:       catalog,
				Inbox:          inbox,
				Files:          files,
				Payments:       payment.NewSimulated(),
				MaxUploadBytes: cfg.MaxUploadBytes,
				Logger:         logger,
			}),
			Officer:  officer.NewHandler(requests, catalog, files, logger),
			DeptHead: depthead.NewHandler(requests, reports, catalog, logger),
			Admin: admin.NewHandler(admin.Dependencies{
				Reports:  reports,
				Requests: requests,
				Catalog:  catalog,
				Users:    users,
				Hasher:   authService,
				Logger:   logger,
			}),
			Profile: profile.NewHandler(repository.NewProfiles(pool), sessions, logger),
			Ready:   pool.Ping,
			Logger:  logger,
		})

		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go sweepSessions(sweepCtx, sessions, cfg.Session.SweepInterval)

		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("listening", slog.String("addr", srv.Addr), slog.String("session_store", cfg.Session.Store))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			logger.Info("shutting down gracefully", slog.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		}
	},
}

func sweepSessions(ctx context.Context, sessions *auth.SessionManager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := sessions.Sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "session sweep failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				slog.DebugContext(ctx, "expired sessions removed", slog.Int64("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
