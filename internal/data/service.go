package data

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amgator/databucket-app/internal/cache"
	"github.com/amgator/databucket-app/internal/logger"
	"github.com/amgator/databucket-app/internal/metrics"
	"github.com/amgator/databucket-app/internal/store"
)

// Caller identifies who is performing an operation. Username stamps audit
// fields and reservations; Admin gates the reserve target-owner override.
type Caller struct {
	Username string
	Admin    bool
}

// Service executes record operations against a store.
type Service struct {
	store   *store.Store
	cache   cache.Cache
	log     *logger.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// Options configures optional service collaborators. Zero fields fall back
// to no-op implementations.
type Options struct {
	Cache   cache.Cache
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// New creates a service over a store.
func New(st *store.Store, opts Options) *Service {
	s := &Service{
		store:   st,
		cache:   opts.Cache,
		log:     opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
	}
	if s.cache == nil {
		s.cache = &cache.NoOpCache{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// timestamp renders the current time the way the store persists it.
func (s *Service) timestamp() string {
	return s.clock().UTC().Format(time.RFC3339)
}

// observe records the outcome of one operation in logs and metrics.
func (s *Service) observe(operation string, start time.Time, rows int64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start)
	s.metrics.RecordOperation(operation, status, duration)
	s.log.LogOperation(operation, duration, rows, err)
}
