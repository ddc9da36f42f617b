// Package monitor keeps tracked servers up to date: it records query results,
// re-checks stored servers with a throttled worker pool and runs the
// maintenance tasks selected on the command line.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/woozymasta/mcping/internal/config"
	"github.com/woozymasta/mcping/internal/metrics"
	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/query"
)

// Querier runs live status queries.
type Querier interface {
	Java(ctx context.Context, address string) (*models.JavaStatus, error)
	Bedrock(ctx context.Context, address string) (*models.BedrockStatus, error)
}

// Store persists tracked servers.
type Store interface {
	UpsertServer(s models.Server) error
	GetServer(edition, address string) (*models.Server, error)
	GetServersSubset(edition string, onlyOffline bool) ([]models.Server, error)
	DeleteOfflineServers(edition string) (int64, error)
	AddHistory(edition, address string, e models.HistoryEntry) error
}

// Countries maps an IP address to an ISO country code.
type Countries interface {
	CountryCode(ip string) string
}

// Stats summarizes one re-check pass.
type Stats struct {
	Online  int64
	Offline int64
	Failed  int64
}

// Monitor records and re-checks tracked servers. It is safe for concurrent use.
type Monitor struct {
	store   Store
	querier Querier
	geo     Countries
	limiter *rate.Limiter
	metrics *metrics.Metrics
	now     func() time.Time
	workers int

	// records stripes Record by edition/address so the read-compare-write
	// against the store never interleaves for one server.
	records [recordStripes]sync.Mutex
}

const recordStripes = 64

// New returns a Monitor. geo may be nil.
func New(store Store, querier Querier, geo Countries, cfg config.Monitor) *Monitor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	return &Monitor{
		store:   store,
		querier: querier,
		geo:     geo,
		limiter: rate.NewLimiter(limit, workers),
		now:     time.Now,
		workers: workers,
	}
}

// WithMetrics counts re-check results in mt.
func (m *Monitor) WithMetrics(mt *metrics.Metrics) *Monitor {
	m.metrics = mt
	return m
}

// Run checks if any maintenance flags are set and executes the corresponding task.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, m *Monitor) bool {
	// Prune Offline
	if cfg.Storage.PruneOffline != "" {
		edition, _ := config.ParseEdition(cfg.Storage.PruneOffline)
		log.Info().Str("edition_filter", edition).Msg("Pruning offline servers...")

		count, err := m.store.DeleteOfflineServers(edition)
		if err != nil {
			log.Error().Err(err).Msg("Failed to prune servers")
		} else {
			log.Info().Int64("deleted", count).Msg("Prune finished")
		}

		return true
	}

	var (
		onlyOffline bool
		taskName    string
		filter      string
	)

	switch {
	case cfg.Storage.CheckOffline != "":
		taskName, filter, onlyOffline = "Check Offline", cfg.Storage.CheckOffline, true
	case cfg.Storage.CheckAll != "":
		taskName, filter = "Check All", cfg.Storage.CheckAll
	default:
		return false
	}

	edition, _ := config.ParseEdition(filter)
	log.Info().Str("edition_filter", edition).Msgf("Starting '%s' task...", taskName)

	if _, err := m.CheckSubset(ctx, edition, onlyOffline); err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		return true
	}
	log.Info().Msg("Maintenance task completed")

	return true
}

// Loop re-checks all tracked servers every interval until ctx is done.
func (m *Monitor) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.CheckSubset(ctx, "", false); err != nil {
				log.Error().Err(err).Msg("Periodic re-check failed")
			}
		}
	}
}

// CheckSubset re-checks stored servers of edition ("" for all), optionally only
// the offline ones.
func (m *Monitor) CheckSubset(ctx context.Context, edition string, onlyOffline bool) (Stats, error) {
	servers, err := m.store.GetServersSubset(edition, onlyOffline)
	if err != nil {
		return Stats{}, err
	}

	if len(servers) == 0 {
		log.Info().Msg("No servers found for re-check")
		return Stats{}, nil
	}

	log.Info().Int("count", len(servers)).Int("workers", m.workers).Msg("Re-checking servers...")
	stats := m.Check(ctx, servers)
	log.Info().
		Int64("online", stats.Online).
		Int64("offline", stats.Offline).
		Int64("failed", stats.Failed).
		Msg("Re-check finished")

	return stats, nil
}

// Check queries servers with a fixed pool of workers and records every result.
func (m *Monitor) Check(ctx context.Context, servers []models.Server) Stats {
	jobs := make(chan models.Server, len(servers))
	var (
		wg    sync.WaitGroup
		stats struct{ online, offline, failed atomic.Int64 }
	)

	// Start workers
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for srv := range jobs {
				switch m.checkServer(ctx, srv) {
				case resultOnline:
					stats.online.Add(1)
					m.metrics.Recheck(metrics.ResultOnline)
				case resultOffline:
					stats.offline.Add(1)
					m.metrics.Recheck(metrics.ResultOffline)
				default:
					stats.failed.Add(1)
					m.metrics.Recheck(metrics.ResultError)
				}
			}
		}()
	}

	// Send jobs
	for _, s := range servers {
		jobs <- s
	}
	close(jobs)

	wg.Wait()

	return Stats{
		Online:  stats.online.Load(),
		Offline: stats.offline.Load(),
		Failed:  stats.failed.Load(),
	}
}

type result int

const (
	resultFailed result = iota
	resultOnline
	resultOffline
)

func (m *Monitor) checkServer(ctx context.Context, srv models.Server) result {
	logCtx := log.With().
		Str("edition", srv.Edition).
		Str("address", srv.Address).
		Logger()

	if err := m.limiter.Wait(ctx); err != nil {
		return resultFailed
	}

	rec, err := m.Query(ctx, srv.Edition, srv.Address)
	if err != nil {
		logCtx.Debug().Err(err).Msg("Re-check aborted")
		return resultFailed
	}

	if err := m.Record(rec); err != nil {
		logCtx.Error().Err(err).Msg("Failed to update server")
		return resultFailed
	}

	if rec.Online {
		logCtx.Trace().Msg("Server updated successfully")
		return resultOnline
	}
	return resultOffline
}

// Query runs a live query and converts the outcome into a server record.
// Any failure other than cancellation yields an offline record.
func (m *Monitor) Query(ctx context.Context, edition, address string) (models.Server, error) {
	var err error
	switch edition {
	case models.EditionJava:
		var st *models.JavaStatus
		if st, err = m.querier.Java(ctx, address); err == nil {
			return FromJava(address, st, m.now()), nil
		}
	case models.EditionBedrock:
		var st *models.BedrockStatus
		if st, err = m.querier.Bedrock(ctx, address); err == nil {
			return FromBedrock(address, st, m.now()), nil
		}
	default:
		return models.Server{}, errors.New("unknown edition " + edition)
	}

	if ctx.Err() != nil {
		return models.Server{}, err
	}

	offline := models.OfflineStatus{Error: err.Error()}
	var off *query.OfflineError
	if errors.As(err, &off) {
		offline = off.Offline
	}

	return FromOffline(edition, address, offline, m.now()), nil
}

func (m *Monitor) recordLock(edition, address string) *sync.Mutex {
	return &m.records[xxhash.Sum64String(edition+"/"+address)%recordStripes]
}

// Record stores s, resolving its country, and appends a history entry when
// its online state or fingerprint changed.
func (m *Monitor) Record(s models.Server) error {
	if s.CountryCode == "" && m.geo != nil {
		s.CountryCode = m.geo.CountryCode(s.IP)
	}

	mu := m.recordLock(s.Edition, s.Address)
	mu.Lock()
	defer mu.Unlock()

	prev, err := m.store.GetServer(s.Edition, s.Address)
	if err != nil {
		return err
	}

	if err := m.store.UpsertServer(s); err != nil {
		return err
	}

	if !changed(prev, s) {
		return nil
	}

	log.Info().
		Str("edition", s.Edition).
		Str("address", s.Address).
		Bool("online", s.Online).
		Int("players", s.Players).
		Str("error", s.LastError).
		Msg("Server status changed")

	return m.store.AddHistory(s.Edition, s.Address, models.HistoryEntry{
		ChangedAt:   s.LastSeen,
		Online:      s.Online,
		Players:     s.Players,
		Fingerprint: s.Fingerprint,
		Error:       s.LastError,
	})
}

func changed(prev *models.Server, s models.Server) bool {
	if prev == nil || prev.Online != s.Online {
		return true
	}
	return s.Online && prev.Fingerprint != s.Fingerprint
}
