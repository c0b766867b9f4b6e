// Package service wires the seminar's storage, object store, session
// handling and export pipeline behind one service used by the HTTP
// layer.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	exportqueue "github.com/ksicht/ksicht/internal/adapters/mq/queue"
	workerpool "github.com/ksicht/ksicht/internal/adapters/mq/worker"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	"github.com/ksicht/ksicht/internal/adapters/storage"
	"github.com/ksicht/ksicht/internal/auth"
	"github.com/ksicht/ksicht/internal/domain/dedupe"
	"github.com/ksicht/ksicht/pkg/logger"
	"github.com/ksicht/ksicht/pkg/metrics"
)

// Service implements the seminar operations behind the HTTP layer.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	objects  storage.ObjectStore
	sessions *auth.SessionStore
	deduper  dedupe.Deduper

	exportQueue *exportqueue.InMemoryQueue
	pool        *workerpool.Pool
	preparer    workerpool.Preparer

	workerCount int
	queueSize   int
	dedupeSize  int
	sessionTTL  time.Duration

	now func() time.Time

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithObjectStore sets the file backend.
func WithObjectStore(objects storage.ObjectStore) Option {
	return func(s *Service) {
		if objects != nil {
			s.objects = objects
		}
	}
}

// WithWorkerCount sets the number of export workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the export queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the export dedupe cache size.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSessionTTL sets how long login sessions last.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithPreparer replaces the PDF preparation step, used in tests.
func WithPreparer(prepare workerpool.Preparer) Option {
	return func(s *Service) {
		if prepare != nil {
			s.preparer = prepare
		}
	}
}

// WithClock replaces the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  10_000,
		sessionTTL:  12 * time.Hour,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the remaining components and launches the export
// pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory repository")
	}
	if s.objects == nil {
		s.objects = storage.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory object store")
	}
	s.sessions = auth.NewSessionStore(auth.WithTTL(s.sessionTTL))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.exportQueue = exportqueue.NewInMemoryQueue(exportqueue.WithCapacity(s.queueSize))

	var poolOpts []workerpool.Option
	if s.preparer != nil {
		poolOpts = append(poolOpts, workerpool.WithPreparer(s.preparer))
	}
	s.pool = workerpool.NewPool(s.workerCount, s.exportQueue, s.objects, s.store, s.deduper, poolOpts...)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "seminar service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
	)
	return nil
}

// Stop drains the export pipeline and shuts the service down.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	s.started = false
	s.logger.Info(ctx, "seminar service stopped")
}

// Stats reports stored volume and pipeline state for monitoring.
type Stats struct {
	repository.Stats
	QueueLength int   `json:"queue_length"`
	DedupeSize  int64 `json:"dedupe_size"`
	Workers     int   `json:"workers"`
}

// GetStats returns service statistics and refreshes the related
// gauges.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Stats:       counts,
		QueueLength: s.exportQueue.Len(ctx),
		DedupeSize:  s.deduper.Size(),
		Workers:     s.workerCount,
	}
	metrics.UpdateTotalParticipants(int(counts.Participants))
	metrics.UpdateTotalSubmissions(int(counts.Submissions))
	return stats, nil
}
