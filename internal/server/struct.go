package server

import (
	"context"
	"sync"
	"time"

	"github.com/woozymasta/mcping/internal/metrics"
	"github.com/woozymasta/mcping/internal/models"
)

// Querier runs live status queries.
type Querier interface {
	Java(ctx context.Context, address string) (*models.JavaStatus, error)
	Bedrock(ctx context.Context, address string) (*models.BedrockStatus, error)
	Ping(ctx context.Context, address string) (*models.PingResult, error)
}

// Recorder stores a query result for a tracked server.
type Recorder interface {
	Record(s models.Server) error
}

// Store is the read and delete side of the tracked server storage.
type Store interface {
	GetServers() ([]models.Server, error)
	GetServer(edition, address string) (*models.Server, error)
	GetHistory(edition, address string, limit int) ([]models.HistoryEntry, error)
	DeleteServer(edition, address string) error
}

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests and background tracking of queried servers.
type Server struct {
	// querier performs the live Java and Bedrock queries behind the public endpoints.
	querier Querier

	// recorder persists online results picked from the tracking queue.
	recorder Recorder

	// storage provides read access to tracked servers for the admin endpoints.
	storage Store

	// deny refuses queries to listed hosts and IPs.
	deny *DenyList

	// metrics counts queries, requests and dropped tracking jobs. May be nil.
	metrics *metrics.Metrics

	// queue is a buffered channel used to pass online results from HTTP handlers
	// to background workers for asynchronous storage.
	queue chan trackJob

	// queueMu guards sends on queue against its close in StopWorkers.
	queueMu sync.RWMutex

	// stopped is set once StopWorkers closed the queue. Late results are dropped.
	stopped bool

	// shutdown is a signal channel used to broadcast a stop signal to all background workers
	// during a graceful shutdown.
	shutdown chan struct{}

	// seenCache is a thread-safe map used to track recently stored servers.
	// It supports the "soft rate limit" logic to reduce unnecessary database writes.
	seenCache sync.Map

	// authToken is the secret token required to access administrative API endpoints.
	authToken string

	// wg is used to wait for all background workers to finish processing
	// before the server shuts down completely.
	wg sync.WaitGroup

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// softLimitDur is the duration for which storing a server is skipped
	// if it was recently stored.
	softLimitDur time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// trackJob is an online query result waiting to be stored.
type trackJob struct {
	Server models.Server
}
