// Package status maps raw protocol answers onto the documents in models.
package status

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/woozymasta/mcping/internal/java"
	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/motd"
	"github.com/woozymasta/mcping/internal/wire"
)

// DefaultMap is reported when the server does not name its world.
const DefaultMap = "world"

// Meta carries the connection facts that are not part of the status document.
type Meta struct {
	IP       string
	Hostname string
	Port     int
	Latency  float64
	SRV      bool
}

// BuildJava converts a decoded status document into a JavaStatus.
func BuildJava(raw java.RawStatus, meta Meta) (*models.JavaStatus, error) {
	version, ok := raw["version"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: status has no version object", wire.ErrMalformedPayload)
	}
	players, ok := raw["players"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: status has no players object", wire.ErrMalformedPayload)
	}

	st := &models.JavaStatus{
		Online:   true,
		IP:       meta.IP,
		Hostname: meta.Hostname,
		Port:     meta.Port,
		Latency:  meta.Latency,
		Debug:    models.Debug{Ping: true, SRV: meta.SRV},
		Map:      DefaultMap,
	}

	st.Version, _ = version["name"].(string)
	st.Protocol, _ = toInt(version["protocol"])

	st.Players.Online, _ = toInt(players["online"])
	st.Players.Max, _ = toInt(players["max"])

	var info []string
	if sample, ok := players["sample"].([]any); ok {
		st.Players.List, info = samplePlayers(sample)
	}
	if len(info) > 0 {
		st.Info = lines(strings.Join(info, "\n"))
	}

	st.Motd = *lines(Description(raw["description"]))

	if s, ok := raw["favicon"].(string); ok {
		st.Icon = s
	}
	if s, ok := raw["software"].(string); ok {
		st.Software = s
	}
	if s, ok := raw["map"].(string); ok && s != "" {
		st.Map = s
	}
	if s, ok := raw["plugins"].(string); ok && s != "" {
		software, plugins := parsePlugins(s)
		if st.Software == "" {
			st.Software = software
		}
		st.Plugins = plugins
	}
	st.Mods = parseMods(raw)

	return st, nil
}

// Description flattens a description value (plain string or chat component)
// into a string with legacy formatting codes.
func Description(v any) string {
	var b strings.Builder
	writeComponent(&b, v)
	return b.String()
}

var componentStyles = []struct {
	key  string
	code byte
}{
	{"obfuscated", 'k'},
	{"bold", 'l'},
	{"strikethrough", 'm'},
	{"underlined", 'n'},
	{"italic", 'o'},
}

func writeComponent(b *strings.Builder, v any) {
	switch c := v.(type) {
	case string:
		b.WriteString(c)
	case []any:
		for _, e := range c {
			writeComponent(b, e)
		}
	case map[string]any:
		if name, ok := c["color"].(string); ok {
			if code, ok := motd.ColorCode(name); ok {
				b.WriteRune(motd.Section)
				b.WriteByte(code)
			}
		}
		for _, s := range componentStyles {
			if on, _ := c[s.key].(bool); on {
				b.WriteRune(motd.Section)
				b.WriteByte(s.code)
			}
		}
		if text, ok := c["text"].(string); ok {
			b.WriteString(text)
		} else if key, ok := c["translate"].(string); ok {
			b.WriteString(key)
		}
		if extra, ok := c["extra"].([]any); ok {
			for _, e := range extra {
				writeComponent(b, e)
			}
		}
	}
}

// samplePlayers splits the player sample into real players and info lines.
// Servers put free text in the sample under the nil UUID.
func samplePlayers(sample []any) ([]models.Player, []string) {
	var (
		list []models.Player
		info []string
	)

	for _, e := range sample {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		id, _ := entry["id"].(string)

		parsed, err := uuid.Parse(id)
		if err != nil || parsed == uuid.Nil {
			info = append(info, name)
			continue
		}
		list = append(list, models.Player{Name: name, UUID: parsed.String()})
	}

	return list, info
}

// parsePlugins splits the "Software: a; b" form used by query-capable servers.
func parsePlugins(s string) (string, *models.Mods) {
	software, rest, found := strings.Cut(s, ":")
	if !found {
		return strings.TrimSpace(s), nil
	}

	mods := &models.Mods{Raw: map[string]string{}}
	for _, p := range strings.Split(rest, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, ver, _ := strings.Cut(p, " ")
		mods.Add(name, strings.TrimSpace(ver))
	}
	if len(mods.Names) == 0 {
		return strings.TrimSpace(software), nil
	}

	return strings.TrimSpace(software), mods
}

// parseMods reads the Forge mod lists: modinfo.modList (up to 1.12) and
// forgeData.mods (1.13 onwards).
func parseMods(raw java.RawStatus) *models.Mods {
	var list []any
	idKey, verKey := "modid", "version"

	if mi, ok := raw["modinfo"].(map[string]any); ok {
		list, _ = mi["modList"].([]any)
	} else if fd, ok := raw["forgeData"].(map[string]any); ok {
		list, _ = fd["mods"].([]any)
		idKey, verKey = "modId", "modmarker"
	}
	if len(list) == 0 {
		return nil
	}

	mods := &models.Mods{Raw: map[string]string{}}
	for _, e := range list {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		id, _ := entry[idKey].(string)
		ver, _ := entry[verKey].(string)
		if id == "" {
			continue
		}
		mods.Add(id, ver)
	}
	sort.Strings(mods.Names)

	return mods
}

func lines(s string) *models.Motd {
	raw := motd.Lines(s)
	m := &models.Motd{
		Raw:   raw,
		Clean: make([]string, len(raw)),
		HTML:  make([]string, len(raw)),
	}
	for i, l := range raw {
		m.Clean[i] = strings.TrimSpace(motd.Clean(l))
		m.HTML[i] = motd.HTML(l)
	}
	return m
}

// toInt accepts json.Number and float64 number values.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		return int(f), err == nil
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
