// Package vars holds build-time variables populated via the linker (ldflags):
//
//	-X github.com/woozymasta/mcping/internal/vars.Version=v1.2.3
//	-X github.com/woozymasta/mcping/internal/vars.Commit=$(git rev-parse HEAD)
//	-X github.com/woozymasta/mcping/internal/vars._buildTime=$(date -u +%FT%TZ)
package vars

import (
	"fmt"
	"io"
	"time"
)

const (
	// Name of the project
	Name = "mcping"

	// URL to repository (https)
	URL = "https://github.com/woozymasta/mcping"

	// License of the project
	License = "AGPL-3.0"
)

var (
	// Version of application (git tag) semver/tag, e.g. v1.2.3
	Version = "dev"

	// Commit is the current git commit, full or short git SHA
	Commit = "unknown"

	// BuildTime is the time of start build app, RFC3339 UTC
	BuildTime = time.Unix(0, 0).UTC()

	_buildTime string
)

// BuildInfo is the build metadata served by the version endpoint.
type BuildInfo struct {
	BuildTime   time.Time `json:"build_time" example:"1970-01-01T00:00:00Z"`
	Name        string    `json:"name" example:"mcping"`
	Version     string    `json:"version" example:"v1.2.3"`
	Commit      string    `json:"commit" example:"da15c174cd2ada1ad247906536c101e8f6799def"`
	CommitShort string    `json:"commit_short" example:"da15c17"`
	URL         string    `json:"url" example:"https://github.com/woozymasta/mcping"`
	License     string    `json:"license" example:"AGPL-3.0"`
}

func init() {
	if _buildTime != "" {
		if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
			BuildTime = t.UTC()
		}
	}
}

// Info returns the build metadata.
func Info() BuildInfo {
	return BuildInfo{
		Name:        Name,
		Version:     Version,
		Commit:      Commit,
		CommitShort: CommitShort(),
		BuildTime:   BuildTime,
		URL:         URL,
		License:     License,
	}
}

// Print writes the build metadata in a human readable form.
func Print(w io.Writer) {
	info := Info()
	fmt.Fprintf(w, "%s %s (%s) built %s\n%s, %s\n",
		info.Name, info.Version, info.CommitShort, info.BuildTime.Format(time.RFC3339), info.URL, info.License)
}

// UserAgent identifies the application in outgoing HTTP requests.
func UserAgent() string {
	return Name + "/" + Version + " (+" + URL + ")"
}

// CommitShort returns the first 7 characters of the git commit hash.
func CommitShort() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}

	return Commit
}
