package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"sqlq/config"
	"sqlq/provider"
	"sqlq/shared/logger"
	"sqlq/telemetry"
)

const version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with health, stats and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Configure(logger.Options{
		Backend:     cfg.Log.Backend,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
	})

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return err
	}

	p, err := provider.Open(cfg, provider.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	go p.Run(ctx)

	router := newRouter(p, func(r *gin.Engine) {
		instrument(r, cfg.Telemetry.ServiceName)
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Status server listening", logger.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Log.Warn("Failed to stop status server", logger.Err(serr))
	}
	p.Close(shutdownCtx)
	// results completed during shutdown still reach their callbacks
	p.Drain()
	if terr := tel.Shutdown(shutdownCtx); terr != nil {
		logger.Log.Warn("Failed to flush telemetry", logger.Err(terr))
	}
	logger.Log.Info("Stopped")
	return err
}

// instrument adds request tracing and the /metrics endpoint.
func instrument(r *gin.Engine, service string) {
	r.Use(otelgin.Middleware(service))
	ginprometheus.NewPrometheus("sqlq").Use(r)
}
