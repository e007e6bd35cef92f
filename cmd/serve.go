package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/lookup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ledger lookups over HTTP",
	Long:  "Starts the read-only lookup API scrapers use to skip organizers and listings already in the ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port, _ := cmd.Flags().GetInt("port")
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}

		l, err := openLedger("serve")
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           lookup.NewServer(l, cfg.Server.AllowedOrigins).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting lookup server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP port")
	rootCmd.AddCommand(serveCmd)
}
