// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/api"
	"github.com/LeeDigitalWorks/zapgate/pkg/config"
	"github.com/LeeDigitalWorks/zapgate/pkg/logger"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/multipart"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// sweepInterval is how often stale multipart uploads are checked for expiry.
const sweepInterval = time.Minute

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the S3 gateway server",
	Long: `Start a ZapGate gateway that serves:
- S3-compatible bucket and object operations
- Multipart uploads with background expiry
- Prometheus metrics on a separate port`,
	Run: runGatewayServer,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)

	f := gatewayCmd.Flags()
	f.String("config", "zapgate.yaml", "Path to the gateway configuration file")
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")
	f.Int("metrics_port", 9090, "HTTP port for Prometheus metrics and health checks")
}

func runGatewayServer(cmd *cobra.Command, args []string) {
	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log_level")
	metricsPort, _ := cmd.Flags().GetInt("metrics_port")

	if level, err := zerolog.ParseLevel(logLevel); err == nil && level != zerolog.NoLevel {
		logger.SetLevel(level)
	}

	provider, err := config.NewProvider(configFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configFile).Msg("failed to load configuration")
	}
	snap := provider.Snapshot()

	store, err := fsstore.New(snap.Config.Storage.Location)
	if err != nil {
		logger.Fatal().Err(err).Str("location", snap.Config.Storage.Location).Msg("failed to open object store")
	}

	uploads, err := multipart.New(store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize multipart coordinator")
	}

	gateway := api.NewGatewayServer(provider, store, uploads)

	registry := prometheus.NewRegistry()
	registry.MustRegister(gateway.Collectors()...)

	sweptUploads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "multipart_expired_uploads_counter",
		Help: "Number of multipart uploads reclaimed by the expiry sweeper",
	})
	registry.MustRegister(sweptUploads)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(snap.Config.Server.HTTP.Port),
		Handler: gateway,
	}
	metricsServer := &http.Server{
		Addr:    ":" + strconv.Itoa(metricsPort),
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("http_addr", httpServer.Addr).
		Str("metrics_addr", metricsServer.Addr).
		Str("storage", snap.Config.Storage.Location).
		Str("region", snap.Config.Region.Default).
		Int("credentials", snap.IAM.Len()).
		Str("max_object_size", humanize.IBytes(uint64(s3consts.MaxObjectSize))).
		Msg("Starting gateway server")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := provider.Watch(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				// The expiry is read per tick so a config reload takes effect.
				maxAge := time.Duration(provider.Snapshot().Config.Multipart.ExpirySeconds) * time.Second
				sweptUploads.Add(float64(uploads.Sweep(gctx, maxAge)))
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("gateway server failed")
	}
	logger.Info().Msg("gateway server stopped")
}
