package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/mcping/internal/metrics"
	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/monitor"
	"github.com/woozymasta/mcping/internal/query"
	"github.com/woozymasta/mcping/internal/resolve"
)

// handleJava queries a Java Edition server.
// Query params: ?address=play.example.com[:25565]
func (s *Server) handleJava(w http.ResponseWriter, r *http.Request) {
	address, ok := s.targetAddress(w, r)
	if !ok {
		return
	}

	st, err := s.querier.Java(r.Context(), address)
	if err != nil {
		s.respondQueryError(w, r, models.EditionJava, address, err)
		return
	}
	s.metrics.Query(models.EditionJava, metrics.ResultOnline, st.Latency)

	s.track(monitor.FromJava(address, st, time.Now()))
	respondJSON(w, http.StatusOK, st)
}

// handleBedrock queries a Bedrock Edition server.
// Query params: ?address=play.example.com[:19132]
func (s *Server) handleBedrock(w http.ResponseWriter, r *http.Request) {
	address, ok := s.targetAddress(w, r)
	if !ok {
		return
	}

	st, err := s.querier.Bedrock(r.Context(), address)
	if err != nil {
		s.respondQueryError(w, r, models.EditionBedrock, address, err)
		return
	}
	s.metrics.Query(models.EditionBedrock, metrics.ResultOnline, st.Latency)

	s.track(monitor.FromBedrock(address, st, time.Now()))
	respondJSON(w, http.StatusOK, st)
}

// handlePing measures the latency of a Java Edition server. Pings are not tracked.
// Query params: ?address=play.example.com[:25565]
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	address, ok := s.targetAddress(w, r)
	if !ok {
		return
	}

	res, err := s.querier.Ping(r.Context(), address)
	if err != nil {
		s.respondQueryError(w, r, models.EditionJava, address, err)
		return
	}
	s.metrics.Query(models.EditionJava, metrics.ResultOnline, res.Latency)

	respondJSON(w, http.StatusOK, res)
}

// targetAddress validates the address parameter and the deny list.
func (s *Server) targetAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := r.URL.Query().Get("address")
	if address == "" {
		respondError(w, http.StatusBadRequest, "missing address")
		return "", false
	}

	host, _, err := resolve.SplitAddress(address)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}

	if s.deny.Denied(host) {
		log.Debug().
			Str("ip", GetRealIP(r, s.trustProxy)).
			Str("address", address).
			Msg("Denied host requested")

		respondError(w, http.StatusForbidden, ErrDenied.Error())
		return "", false
	}

	return address, true
}

// respondQueryError maps a failed query to a response. An offline server is a
// regular answer, not an error.
func (s *Server) respondQueryError(w http.ResponseWriter, r *http.Request, edition, address string, err error) {
	var (
		off    *query.OfflineError
		dnsErr *net.DNSError
	)

	if errors.As(err, &off) {
		s.metrics.Query(edition, metrics.ResultOffline, 0)
		respondJSON(w, http.StatusOK, off.Offline)
		return
	}
	s.metrics.Query(edition, metrics.ResultError, 0)

	switch {
	case errors.Is(err, ErrDenied):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, resolve.ErrInvalidAddress):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &dnsErr):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		log.Trace().Str("address", address).Msg("Client went away")
	default:
		log.Warn().Err(err).Str("address", address).Msg("Query failed")
		respondError(w, http.StatusBadGateway, err.Error())
	}
}

// track queues an online result for storage unless it was stored recently.
func (s *Server) track(srv models.Server) {
	softKey := srv.Edition + "/" + srv.Address
	if val, ok := s.seenCache.Load(softKey); ok {
		if lastSeen, ok := val.(time.Time); ok && time.Since(lastSeen) < s.softLimitDur {
			log.Trace().
				Str("edition", srv.Edition).
				Str("address", srv.Address).
				Msg("Dropped by soft limit hit")
			return
		}
	}
	s.seenCache.Store(softKey, time.Now())

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if s.stopped {
		log.Debug().
			Str("edition", srv.Edition).
			Str("address", srv.Address).
			Msg("Workers stopped, result dropped")
		return
	}

	// Send to queue
	select {
	case s.queue <- trackJob{Server: srv}:
		log.Trace().
			Str("edition", srv.Edition).
			Str("address", srv.Address).
			Msg("Queued for tracking")
	default:
		s.metrics.Dropped()
		log.Warn().
			Str("edition", srv.Edition).
			Str("address", srv.Address).
			Msg("Queue full, result dropped")
	}
}

// worker is a background goroutine that stores jobs from the tracking queue.
func (s *Server) worker() {
	defer s.wg.Done()

	for job := range s.queue {
		if err := s.recorder.Record(job.Server); err != nil {
			log.Error().
				Err(err).
				Str("edition", job.Server.Edition).
				Str("address", job.Server.Address).
				Msg("Failed to save server to DB")
			continue
		}

		log.Debug().
			Str("edition", job.Server.Edition).
			Str("address", job.Server.Address).
			Msg("Server tracked")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
