package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/monitor"
	"github.com/woozymasta/mcping/internal/vars"
)

// historyLimit bounds the history returned with a single server.
const historyLimit = 50

// serverDetails is the admin view of one tracked server.
type serverDetails struct {
	Server  *models.Server        `json:"server"`
	History []models.HistoryEntry `json:"history"`
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, vars.Info())
}

// handleServers returns a JSON list of all tracked servers.
// This endpoint is protected by AdminAuthMiddleware.
func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	servers, err := s.storage.GetServers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch servers")
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if servers == nil {
		servers = []models.Server{}
	}

	respondJSON(w, http.StatusOK, servers)
}

// handleGetServer returns details and recent history for a specific server.
// Query params: ?edition=java&address=play.example.com
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	edition, address, ok := serverKey(w, r)
	if !ok {
		return
	}

	srv, err := s.storage.GetServer(edition, address)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch server")
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if srv == nil {
		respondError(w, http.StatusNotFound, "server not tracked")
		return
	}

	history, err := s.storage.GetHistory(edition, address, historyLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch server history")
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}

	respondJSON(w, http.StatusOK, serverDetails{Server: srv, History: history})
}

// handleDeleteServer removes a specific server from the database.
// Query params: ?edition=java&address=play.example.com
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	edition, address, ok := serverKey(w, r)
	if !ok {
		return
	}

	if err := s.storage.DeleteServer(edition, address); err != nil {
		log.Error().Err(err).
			Str("edition", edition).
			Str("address", address).
			Msg("Failed to delete server")

		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.seenCache.Delete(edition + "/" + address)

	log.Info().
		Str("edition", edition).
		Str("address", address).
		Msg("Server deleted manually")

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server deleted"})
}

// serverKey reads and validates the edition and address parameters.
func serverKey(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	edition := r.URL.Query().Get("edition")
	address := monitor.NormalizeAddress(r.URL.Query().Get("address"))

	if address == "" || (edition != models.EditionJava && edition != models.EditionBedrock) {
		respondError(w, http.StatusBadRequest, "missing or invalid params (edition, address)")
		return "", "", false
	}

	return edition, address, true
}
