// main is the entry point of the mcping application.
// It either queries a single server and prints the result, runs a database
// maintenance task, or serves the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/mcping/internal/config"
	"github.com/woozymasta/mcping/internal/fake"
	"github.com/woozymasta/mcping/internal/geoip"
	"github.com/woozymasta/mcping/internal/logger"
	"github.com/woozymasta/mcping/internal/metrics"
	"github.com/woozymasta/mcping/internal/monitor"
	"github.com/woozymasta/mcping/internal/query"
	"github.com/woozymasta/mcping/internal/server"
	"github.com/woozymasta/mcping/internal/storage"
)

func main() {
	cfg := config.Parse()

	closeLog := logger.Setup(cfg.Logger)
	code := run(cfg)
	closeLog()

	os.Exit(code)
}

func run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deny := server.NewDenyList(cfg.Server.DenyHosts)
	client := query.New(query.Options{
		Timeout:         cfg.Query.Timeout,
		Tries:           cfg.Query.Tries,
		ProtocolVersion: cfg.Query.ProtocolVersion,
		Reconnect:       cfg.Query.Reconnect,
		DisableSRV:      cfg.Query.NoSRV,
		Guard:           deny.Guard,
	})

	if cfg.OneShot() {
		return queryOnce(ctx, cfg, client)
	}

	log.Info().Msg("Starting mcping service...")

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// data generation
	if cfg.Storage.GenerateCount > 0 {
		fake.GenerateData(store, cfg.Storage.GenerateCount)
		return 0
	}

	geoProvider := openGeoIP(ctx, cfg.GeoIP)
	defer func() {
		if err := geoProvider.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing GeoIP provider")
		}
	}()

	mt := metrics.New()
	mon := monitor.New(store, client, geoProvider, cfg.Monitor).WithMetrics(mt)
	if monitor.Run(ctx, cfg, mon) {
		return 0
	}

	// Init server
	srvHandler := server.New(client, mon, store, deny, mt, cfg)

	// Background queue
	srvHandler.StartWorkers()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srvHandler.Run(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout + cfg.Query.Timeout*time.Duration(cfg.Query.Tries+1),
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.Monitor.Interval > 0 {
		go mon.Loop(ctx, cfg.Monitor.Interval)
	}

	// Graceful Shutdown
	code := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		log.Error().Err(err).Msg("Server failed")
		code = 1
	}

	log.Info().Msg("Shutting down server...")

	// Shut down HTTP
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop workers (wait queue done)
	srvHandler.StopWorkers()

	log.Info().Msg("Server exited")
	return code
}

// openGeoIP refreshes and opens the country database. It returns nil when
// country lookups are disabled or unavailable.
func openGeoIP(ctx context.Context, cfg config.GeoIP) *geoip.Provider {
	if cfg.Disable {
		return nil
	}

	log.Info().Msg("Checking GeoIP database...")
	if err := geoip.EnsureDB(ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Error().Err(err).Msg("Failed to download GeoIP database")
	}

	provider, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return nil
	}

	return provider
}

// queryOnce queries ADDRESS, prints the result as indented JSON and returns
// the exit code. An offline server prints its offline document and exits 1.
func queryOnce(ctx context.Context, cfg *config.Config, client *query.Client) int {
	var (
		result any
		err    error
	)

	switch {
	case cfg.Bedrock:
		result, err = client.Bedrock(ctx, cfg.Args.Address)
	case cfg.PingOnly:
		result, err = client.Ping(ctx, cfg.Args.Address)
	default:
		result, err = client.Java(ctx, cfg.Args.Address)
	}

	code := 0
	if err != nil {
		var off *query.OfflineError
		if !errors.As(err, &off) {
			log.Error().Err(err).Str("address", cfg.Args.Address).Msg("Query failed")
			return 2
		}
		result, code = off.Offline, 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Error().Err(err).Msg("Failed to write result")
		return 2
	}

	return code
}
