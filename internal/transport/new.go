package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jasonwill2004/ScribeAI/internal/logger"
	"github.com/Jasonwill2004/ScribeAI/internal/metrics"
	"github.com/Jasonwill2004/ScribeAI/internal/pipeline"
)

// Config holds listener and liveness settings.
type Config struct {
	Address          string
	ReadLimitBytes   int64
	SweepInterval    time.Duration
	HeartbeatTimeout time.Duration
	TempDir          string
}

type implServer struct {
	cfg      Config
	pipeline pipeline.Pipeline
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   logger.Logger
	upgrader websocket.Upgrader
	handler  http.Handler
	server   *http.Server

	sweepCtx  context.Context
	stopSweep context.CancelFunc
	sweepOnce sync.Once

	mu       sync.Mutex
	conns    map[*conn]struct{}
	bindings map[string]map[*conn]struct{}
}

// New creates a Server. gatherer backs the /metrics endpoint.
func New(cfg Config, p pipeline.Pipeline, m *metrics.Metrics, gatherer prometheus.Gatherer, log logger.Logger) Server {
	if cfg.ReadLimitBytes <= 0 {
		cfg.ReadLimitBytes = 16 << 20
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 90 * time.Second
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	s := &implServer{
		cfg:      cfg,
		pipeline: p,
		metrics:  m,
		gatherer: gatherer,
		logger:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 64 << 10,
			// Authentication and origin policy live in front of this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sweepCtx:  sweepCtx,
		stopSweep: stopSweep,
		conns:     make(map[*conn]struct{}),
		bindings:  make(map[string]map[*conn]struct{}),
	}
	s.handler = s.routes()
	return s
}
