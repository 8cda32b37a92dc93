package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lecture-notes/pkg/api"
	"lecture-notes/pkg/notes"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			logger := deps.Logger
			if addr != "" {
				cfg.Server.Address = addr
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			handlers := api.NewHandlers(a.sessions, notes.NewService(a.store), a.boards, a.prefs, logger)
			srv := &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      handlers.Router(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("Server starting", "addr", cfg.Server.Address)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			var runErr error
			select {
			case <-quit:
			case runErr = <-serveErr:
				logger.Error("Server failed", "err", runErr)
			}

			logger.Info("Shutting down server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "err", err)
			}
			a.Close(shutdownCtx)
			logger.Info("Server exited")
			return runErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.address)")
	return cmd
}
