// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/mcping/internal/logger"
	"github.com/woozymasta/mcping/internal/models"
	"github.com/woozymasta/mcping/internal/vars"
)

// AnyEdition marks maintenance of servers of any (all) editions.
const AnyEdition = "any"

// ErrNoAuthToken is returned when the API is served without an admin token.
var ErrNoAuthToken = errors.New("required flag `-t, --auth-token' or environment variable `MCPING_AUTH_TOKEN` was not specified")

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"MCPING"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"MCPING_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"MCPING_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"MCPING_RATE_LIMIT"`
	Query     Query         `group:"Query Options" namespace:"query" env-namespace:"MCPING_QUERY"`
	Monitor   Monitor       `group:"Monitor Options" namespace:"monitor" env-namespace:"MCPING_MONITOR"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"MCPING_LOG"`

	Args struct {
		Address string `positional-arg-name:"ADDRESS" description:"Query this server once, print the result as JSON and exit"`
	} `positional-args:"yes"`

	Bedrock  bool `short:"b" long:"bedrock" description:"Query ADDRESS as a Bedrock Edition server"`
	PingOnly bool `short:"p" long:"ping-only" description:"Only measure the Java ping latency of ADDRESS"`
	Version  bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address     string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken   string        `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	DenyHosts   []string      `long:"deny-host" env:"DENY_HOSTS" description:"Hosts and IPs the API refuses to query" env-delim:","`
	TrustProxy  bool          `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
	QueueSize   int           `long:"track-queue" env:"TRACK_QUEUE" description:"Size of the queue of servers waiting to be stored" default:"1000"`
	ReadTimeout time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"10s"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path          string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"mcping.db"`
	PruneOffline  string `long:"prune-offline" description:"Delete servers whose last check failed. Optional arg: edition." optional:"true" optional-value:"any"`
	CheckOffline  string `long:"check-offline" description:"Re-check offline servers. Optional arg: edition." optional:"true" optional-value:"any"`
	CheckAll      string `long:"check-all" description:"Re-check ALL servers. Optional arg: edition." optional:"true" optional-value:"any"`
	GenerateCount int    `long:"gen-fake-data" hidden:"true"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file" default:"mcping.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
	Disable  bool          `long:"disable" env:"DISABLE" description:"Do not resolve server countries"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
	SoftLimitDur   time.Duration `long:"soft" env:"SOFT" description:"Soft limit: do not store a server again if seen within duration" default:"5m"`
}

// Query holds status query configuration.
type Query struct {
	// betteralign:ignore

	Timeout         time.Duration `long:"timeout" env:"TIMEOUT" description:"Connect and read timeout" default:"3s"`
	Tries           int           `long:"tries" env:"TRIES" description:"Attempts per query" default:"3"`
	ProtocolVersion int           `long:"protocol-version" env:"PROTOCOL_VERSION" description:"Protocol version announced in the Java handshake" default:"47"`
	Reconnect       bool          `long:"reconnect" env:"RECONNECT" description:"Open a new connection for each retry after a transport failure"`
	NoSRV           bool          `long:"no-srv" env:"NO_SRV" description:"Do not look up _minecraft._tcp SRV records"`
}

// Monitor holds tracked server re-check configuration.
type Monitor struct {
	// betteralign:ignore

	Workers  int           `long:"workers" env:"WORKERS" description:"Concurrent re-check workers" default:"10"`
	Rate     float64       `long:"rate" env:"RATE" description:"Maximum queries per second" default:"20"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Re-check all servers on this interval while serving (0 disables)" default:"0"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print(os.Stdout)
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args and the environment into a validated Config.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if cfg.Version {
		return &cfg, nil
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// OneShot reports whether a single ADDRESS query was requested.
func (c *Config) OneShot() bool {
	return c.Args.Address != ""
}

// Maintenance reports whether a maintenance task was requested.
func (c *Config) Maintenance() bool {
	return c.Storage.PruneOffline != "" || c.Storage.CheckOffline != "" || c.Storage.CheckAll != "" || c.Storage.GenerateCount > 0
}

func (c *Config) validate() error {
	if c.Bedrock && c.PingOnly {
		return errors.New("--bedrock and --ping-only can not be combined")
	}

	for _, e := range []string{c.Storage.PruneOffline, c.Storage.CheckOffline, c.Storage.CheckAll} {
		if _, err := ParseEdition(e); err != nil {
			return err
		}
	}

	if c.Query.Tries < 1 {
		return fmt.Errorf("query tries must be at least 1, got %d", c.Query.Tries)
	}
	if c.Monitor.Workers < 1 {
		return fmt.Errorf("monitor workers must be at least 1, got %d", c.Monitor.Workers)
	}

	if !c.OneShot() && !c.Maintenance() && c.Server.AuthToken == "" {
		return ErrNoAuthToken
	}

	return nil
}

// ParseEdition converts an optional edition flag value into a storage filter.
// The "any" value and the empty string mean no filter.
func ParseEdition(input string) (string, error) {
	switch strings.ToLower(input) {
	case "", AnyEdition:
		return "", nil
	case models.EditionJava:
		return models.EditionJava, nil
	case models.EditionBedrock:
		return models.EditionBedrock, nil
	}

	return "", fmt.Errorf("unknown edition %q (want java, bedrock or any)", input)
}
