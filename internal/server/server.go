// Package server implements the HTTP API: live status queries, tracking of
// answered servers and administration of the tracked server list.
package server

import (
	"net/http"
	"time"

	"github.com/woozymasta/mcping/internal/config"
	"github.com/woozymasta/mcping/internal/metrics"
)

// trackWorkers is the number of goroutines storing tracked servers.
const trackWorkers = 4

// New creates a new Server instance with the provided dependencies and configuration.
// mt may be nil.
func New(q Querier, rec Recorder, store Store, deny *DenyList, mt *metrics.Metrics, cfg *config.Config) *Server {
	queueSize := cfg.Server.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	return &Server{
		querier:        q,
		recorder:       rec,
		storage:        store,
		deny:           deny,
		metrics:        mt,
		authToken:      cfg.Server.AuthToken,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		softLimitDur:   cfg.RateLimit.SoftLimitDur,

		queue:    make(chan trackJob, queueSize),
		shutdown: make(chan struct{}),
	}
}

// StartWorkers initializes the background worker pool for storing tracked servers
// and the cache cleanup routine.
func (s *Server) StartWorkers() {
	for i := 0; i < trackWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	// Clean soft-limit cache
	go s.gcSoftLimitCache()
}

// StopWorkers gracefully stops the background workers and closes the job queue.
// Jobs already queued are still stored.
func (s *Server) StopWorkers() {
	s.queueMu.Lock()
	if s.stopped {
		s.queueMu.Unlock()
		return
	}
	s.stopped = true
	close(s.shutdown)
	close(s.queue)
	s.queueMu.Unlock()

	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/java", s.RateLimitMiddleware(http.HandlerFunc(s.handleJava)))
	mux.Handle("GET /api/bedrock", s.RateLimitMiddleware(http.HandlerFunc(s.handleBedrock)))
	mux.Handle("GET /api/ping", s.RateLimitMiddleware(http.HandlerFunc(s.handlePing)))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleServers)))
	mux.Handle("GET /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleGetServer)))
	mux.Handle("DELETE /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteServer)))
	mux.Handle("GET /metrics", AdminAuthMiddleware(s.authToken, s.metrics.Handler()))

	return s.LoggingMiddleware(mux)
}

// gcSoftLimitCache periodically cleans up expired entries from the soft rate-limit cache.
func (s *Server) gcSoftLimitCache() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.expireSeen(time.Now())
		}
	}
}

// expireSeen drops soft-limit entries older than the soft limit duration.
func (s *Server) expireSeen(now time.Time) {
	s.seenCache.Range(func(key, value any) bool {
		if t, ok := value.(time.Time); !ok || now.Sub(t) > s.softLimitDur {
			s.seenCache.Delete(key)
		}
		return true
	})
}
