package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/internal/presentation/tui"
	httpAdapter "github.com/aretw0/conduit/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the host and exposes sessions, node execution, NLU, chunking and knowledge connectors as a JSON API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		stack, cfg, logger, err := buildStack(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}

		handler := httpAdapter.NewHandler(stack.Host,
			httpAdapter.WithMaxInputSize(cfg.MaxInputSize),
			httpAdapter.WithMetrics(stack.Metrics.Handler()),
			httpAdapter.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cli.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, conduit.Version)
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting conduit server", "address", srv.Addr, "extensions", len(stack.Host.Catalogue()),
				"store", cfg.Store, "knowledge_sink", cfg.KnowledgeSink)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			logger.Info("shutdown started", "signal", fmt.Sprint(sigCtx.Signal()))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("conduit server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides CONDUIT_PORT)")
}
