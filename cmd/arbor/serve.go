package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/arbor"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts a router over the state tree and exposes it as a JSON API over
HTTP, with server-sent events for location changes. With --redis the location
is persisted in Redis and writes are serialized with a distributed lock, so
several instances can share one session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		persist, _ := cmd.Flags().GetBool("persist")
		key, _ := cmd.Flags().GetString("session")
		start, _ := cmd.Flags().GetString("start")
		withMetrics, _ := cmd.Flags().GetBool("metrics")

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		hooks := observability.LogHooks(logger)
		if withMetrics {
			hooks = domain.CombineHooks(hooks, observability.NewMetrics(reg).Hooks())
		}
		opts := []arbor.Option{arbor.WithLifecycleHooks(hooks), arbor.WithSessionKey(key)}

		if redisAddr, _ := cmd.Flags().GetString("redis"); persist || redisAddr != "" {
			h, err := resolveStore(cmd)
			if err != nil {
				return err
			}
			defer h.close()
			opts = append(opts, arbor.WithStore(h.store), arbor.WithLocker(h.locker))
		}

		eng, err := loadEngine(cmd, opts...)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if start != "" {
			if _, err := eng.Resume(ctx, start, nil); err != nil {
				return fmt.Errorf("initial transition: %w", err)
			}
		}

		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithVersion(arbor.Version),
		}
		if withMetrics {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(reg))
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpAdapter.NewHandler(eng.Router(), handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return serve(srv, logger.Info)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("persist", false, "Persist the location in --store-dir (implied by --redis)")
	addStoreFlags(serveCmd)
	serveCmd.Flags().String("session", "server", "Session key of the served router")
	serveCmd.Flags().String("start", "", "State to go to on startup when no location is persisted")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
}

// serve runs srv until it fails or the process is interrupted, then shuts it down gracefully.
func serve(srv *http.Server, logf func(msg string, args ...any)) error {
	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logf("Starting arbor server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logf("Shutting down", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			if cerr := srv.Close(); cerr != nil {
				return errors.Join(err, cerr)
			}
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		logf("Server stopped gracefully")
		return nil
	}
}
