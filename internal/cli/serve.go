package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/youruser/canvasapp/internal/api"
	"github.com/youruser/canvasapp/internal/shell"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the canvas editor web server",
		Example: `  # Start on $PORT (default 8080)
  canvas serve

  # Start on a custom port
  canvas serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Port
			}
			factory, err := a.shellFactory()
			if err != nil {
				return err
			}
			reg := shell.NewRegistry(factory, a.cfg.SessionTTL)
			if a.cfg.SessionTTL > 0 {
				go reg.Run(cmd.Context(), sweepInterval(a.cfg.SessionTTL))
			}

			r := gin.Default()
			api.RegisterRoutes(r, api.NewHandler(reg, api.Limits{
				MaxUploadBytes: a.cfg.MaxUploadBytes,
				MaxPixels:      a.cfg.MaxPixels,
				FetchTimeout:   a.cfg.FetchTimeout,
			}, a.logger))

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: r,
			}

			serverErr := make(chan error, 1)
			go func() {
				a.logger.Info("canvas editor available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				a.logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("server shutdown failed", "err", err)
					return err
				}
				a.logger.Info("server stopped", "sessions", reg.Len())
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to $PORT)")

	return cmd
}

func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}
