// Package models defines the status documents returned by queries and the
// records persisted for tracked servers.
package models

import "time"

// Edition names used in API paths and storage keys.
const (
	EditionJava    = "java"
	EditionBedrock = "bedrock"
)

// Debug records which discovery mechanisms a query used.
type Debug struct {
	Ping  bool `json:"ping"`
	Query bool `json:"query"`
	SRV   bool `json:"srv"`
}

// Motd holds the server message in three renderings, one entry per line.
type Motd struct {
	Raw   []string `json:"raw"`
	Clean []string `json:"clean"`
	HTML  []string `json:"html"`
}

// Player is one entry of the status player sample.
type Player struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// Players holds player counts and the optional sample list.
type Players struct {
	List   []Player `json:"list,omitempty"`
	Online int      `json:"online"`
	Max    int      `json:"max"`
}

// Mods lists mod or plugin names with their versions.
type Mods struct {
	Raw   map[string]string `json:"raw"`
	Names []string          `json:"names"`
}

// Add records name with its version, keeping Names free of duplicates.
func (m *Mods) Add(name, version string) {
	if m.Raw == nil {
		m.Raw = map[string]string{}
	}
	if _, ok := m.Raw[name]; !ok {
		m.Names = append(m.Names, name)
	}
	m.Raw[name] = version
}

// JavaStatus is the online status of a Java Edition server.
type JavaStatus struct {
	Plugins  *Mods   `json:"plugins,omitempty"`
	Mods     *Mods   `json:"mods,omitempty"`
	Info     *Motd   `json:"info,omitempty"`
	Motd     Motd    `json:"motd"`
	IP       string  `json:"ip"`
	Hostname string  `json:"hostname,omitempty"`
	Version  string  `json:"version"`
	Map      string  `json:"map"`
	Icon     string  `json:"icon,omitempty"`
	Software string  `json:"software,omitempty"`
	Players  Players `json:"players"`
	Latency  float64 `json:"latency"`
	Protocol int     `json:"protocol"`
	Port     int     `json:"port"`
	Debug    Debug   `json:"debug"`
	Online   bool    `json:"online"`
}

// BedrockStatus is the online status of a Bedrock Edition server, taken from the
// unconnected pong field list.
type BedrockStatus struct {
	Motd            Motd    `json:"motd"`
	IP              string  `json:"ip"`
	Hostname        string  `json:"hostname,omitempty"`
	Edition         string  `json:"edition"`
	ProtocolName    string  `json:"protocol_name"`
	ServerID        string  `json:"server_id"`
	Gamemode        string  `json:"gamemode"`
	Latency         float64 `json:"latency"`
	ProtocolVersion int     `json:"protocol_version"`
	PlayerCount     int     `json:"player_count"`
	PlayerMax       int     `json:"player_max"`
	GamemodeID      int     `json:"gamemode_id"`
	PortIPv4        int     `json:"port_ipv4"`
	PortIPv6        int     `json:"port_ipv6"`
	Port            int     `json:"port"`
	Debug           Debug   `json:"debug"`
	Online          bool    `json:"online"`
}

// OfflineStatus is returned when every attempt failed.
type OfflineStatus struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname,omitempty"`
	Error    string `json:"error"`
	Port     int    `json:"port"`
	Attempts int    `json:"attempts"`
	Debug    Debug  `json:"debug"`
	Online   bool   `json:"online"`
}

// PingResult is the latency-only answer of a Java ping.
type PingResult struct {
	IP       string  `json:"ip"`
	Hostname string  `json:"hostname,omitempty"`
	Latency  float64 `json:"latency"`
	Port     int     `json:"port"`
	Online   bool    `json:"online"`
}

// Server represents a tracked server stored in the database.
type Server struct {
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Edition     string    `json:"edition"`
	Address     string    `json:"address"`
	Hostname    string    `json:"hostname"`
	IP          string    `json:"ip"`
	CountryCode string    `json:"country_code"`
	Motd        string    `json:"motd"`
	Version     string    `json:"version"`
	LastError   string    `json:"last_error"`
	Port        int       `json:"port"`
	Protocol    int       `json:"protocol"`
	Players     int       `json:"players"`
	MaxPlayers  int       `json:"max_players"`
	LatencyMS   float64   `json:"latency_ms"`
	Count       int64     `json:"count"`
	Fingerprint uint64    `json:"fingerprint"`
	Online      bool      `json:"online"`
}

// HistoryEntry records a change of a tracked server's status.
type HistoryEntry struct {
	ChangedAt   time.Time `json:"changed_at"`
	Error       string    `json:"error,omitempty"`
	Players     int       `json:"players"`
	Fingerprint uint64    `json:"fingerprint"`
	Online      bool      `json:"online"`
}
