// Package fake generates random tracked servers for testing and development.
package fake

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/monitor"
)

// Store is the storage the generator writes to.
type Store interface {
	UpsertServer(s models.Server) error
	AddHistory(edition, address string, e models.HistoryEntry) error
}

// GenerateData populates the storage with count randomized servers of both
// editions, each with a short status history.
func GenerateData(store Store, count int) int {
	javaVersions := []string{"1.8.9", "1.12.2", "1.16.5", "1.20.1", "Paper 1.20.4", "Velocity 3.3.0"}
	bedrockVersions := []string{"1.20.10", "1.20.51", "1.21.2"}
	motds := []string{"A Minecraft Server", "Survival SMP", "Skyblock | Minigames", "Creative Build World", "Hardcore Anarchy"}
	words := []string{"play", "mc", "smp", "craft", "block", "pe"}

	// Countries list
	countriesHigh := []string{"US", "DE", "RU", "BR", "FR", "GB", "PL"}
	countriesMid := []string{"CA", "AU", "NL", "SE", "JP", "KR", "TR"}
	countriesLow := []string{"ZA", "AR", "MX", "IN", "VN", "NO", "FI"}

	written := 0
	for i := 0; i < count; i++ {
		// Random date-time in 30 days range
		daysAgo := rand.Intn(30)
		seenTime := time.Now().UTC().Add(-time.Duration(daysAgo) * 24 * time.Hour).
			Add(-time.Duration(rand.Intn(1440)) * time.Minute)

		var country string
		roll := rand.Float32()
		switch {
		case roll < 0.70:
			country = countriesHigh[rand.Intn(len(countriesHigh))]
		case roll < 0.90:
			country = countriesMid[rand.Intn(len(countriesMid))]
		default:
			country = countriesLow[rand.Intn(len(countriesLow))]
		}

		srv := models.Server{
			Edition:     models.EditionJava,
			Address:     fmt.Sprintf("%s%d.example.net", words[rand.Intn(len(words))], i),
			IP:          fmt.Sprintf("%d.%d.%d.%d", rand.Intn(220)+1, rand.Intn(255), rand.Intn(255), rand.Intn(255)),
			Port:        25565,
			CountryCode: country,
			Online:      rand.Float32() < 0.8,
			Motd:        motds[rand.Intn(len(motds))],
			Version:     javaVersions[rand.Intn(len(javaVersions))],
			Protocol:    47 + rand.Intn(720),
			MaxPlayers:  []int{20, 50, 100, 500}[rand.Intn(4)],
			LatencyMS:   5 + rand.Float64()*200,
			FirstSeen:   seenTime.Add(-time.Hour * 24 * 7),
			LastSeen:    seenTime,
		}
		if rand.Float32() < 0.3 {
			srv.Edition = models.EditionBedrock
			srv.Port = 19132
			srv.Version = bedrockVersions[rand.Intn(len(bedrockVersions))]
			srv.Protocol = 594 + rand.Intn(90)
		}
		srv.Hostname = srv.Address
		srv.Players = rand.Intn(srv.MaxPlayers + 1)
		if !srv.Online {
			srv.LastError = "read timeout"
		}
		srv.Fingerprint = monitor.Fingerprint(srv)

		if err := store.UpsertServer(srv); err != nil {
			log.Warn().Err(err).Str("address", srv.Address).Msg("Failed to generate fake server")
			continue
		}
		written++

		// A few status changes leading up to the last one
		for h := 3; h >= 0; h-- {
			e := models.HistoryEntry{
				ChangedAt:   seenTime.Add(-time.Duration(h) * 6 * time.Hour),
				Online:      h == 0 && srv.Online || h > 0 && rand.Float32() < 0.7,
				Players:     rand.Intn(srv.MaxPlayers + 1),
				Fingerprint: rand.Uint64(),
			}
			if h == 0 {
				e.Players = srv.Players
				e.Fingerprint = srv.Fingerprint
			}
			if !e.Online {
				e.Players = 0
				e.Error = "read timeout"
			}
			if err := store.AddHistory(srv.Edition, srv.Address, e); err != nil {
				log.Warn().Err(err).Str("address", srv.Address).Msg("Failed to generate fake history")
			}
		}
	}

	log.Info().Int("servers", written).Msg("Fake data generated")
	return written
}
