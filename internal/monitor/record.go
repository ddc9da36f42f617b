package monitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/woozymasta/mcping/internal/models"
)

// NormalizeAddress returns the storage key for a user supplied address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Fingerprint hashes the fields of a status that identify a visible change:
// version, protocol, MOTD and player counts.
func Fingerprint(s models.Server) uint64 {
	d := xxhash.New()
	for _, part := range []string{
		s.Edition,
		s.Version,
		strconv.Itoa(s.Protocol),
		s.Motd,
		strconv.Itoa(s.Players),
		strconv.Itoa(s.MaxPlayers),
	} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// FromJava converts an online Java status into a tracked server record.
func FromJava(address string, st *models.JavaStatus, now time.Time) models.Server {
	s := models.Server{
		Edition:    models.EditionJava,
		Address:    NormalizeAddress(address),
		Hostname:   st.Hostname,
		IP:         st.IP,
		Port:       st.Port,
		Online:     true,
		Motd:       strings.Join(st.Motd.Clean, "\n"),
		Version:    st.Version,
		Protocol:   st.Protocol,
		Players:    st.Players.Online,
		MaxPlayers: st.Players.Max,
		LatencyMS:  st.Latency,
		LastSeen:   now,
	}
	s.Fingerprint = Fingerprint(s)
	return s
}

// FromBedrock converts an online Bedrock status into a tracked server record.
func FromBedrock(address string, st *models.BedrockStatus, now time.Time) models.Server {
	s := models.Server{
		Edition:    models.EditionBedrock,
		Address:    NormalizeAddress(address),
		Hostname:   st.Hostname,
		IP:         st.IP,
		Port:       st.Port,
		Online:     true,
		Motd:       strings.Join(st.Motd.Clean, "\n"),
		Version:    st.ProtocolName,
		Protocol:   st.ProtocolVersion,
		Players:    st.PlayerCount,
		MaxPlayers: st.PlayerMax,
		LatencyMS:  st.Latency,
		LastSeen:   now,
	}
	s.Fingerprint = Fingerprint(s)
	return s
}

// FromOffline converts a failed query into a tracked server record.
func FromOffline(edition, address string, st models.OfflineStatus, now time.Time) models.Server {
	return models.Server{
		Edition:   edition,
		Address:   NormalizeAddress(address),
		Hostname:  st.Hostname,
		IP:        st.IP,
		Port:      st.Port,
		LastError: st.Error,
		LastSeen:  now,
	}
}
