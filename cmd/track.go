package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	incidentrender "github.com/bnema/incident-cli/internal/adapters/render/incident"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 2 * time.Second

func newTrackCmd(app *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "track [incident-id]",
		Short: "Follow an incident through analysis, risk, dispatch and summary",
		Long:  "track follows the given incident from the analysis step. Without an argument it resumes the active session at its saved step.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id domain.IncidentID
			if len(args) == 1 {
				id = domain.IncidentID(args[0])
			}
			return runTrack(cmd, app, id, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while tracking (e.g. 127.0.0.1:9464)")

	return cmd
}

func runTrack(cmd *cobra.Command, app *app, id domain.IncidentID, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		shutdown, err := serveMetrics(app, metricsAddr)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	view := incidentrender.NewTerminalView(cmd.OutOrStdout(), app.now)

	if id != "" {
		return app.workflow.Run(ctx, id, view)
	}

	if _, err := app.workflow.Resume(ctx, view); err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return fmt.Errorf("%w: submit an indicator or pass an incident id", err)
		}
		return err
	}
	return nil
}

func serveMetrics(app *app, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	app.logger.Info().Str("addr", listener.Addr().String()).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
