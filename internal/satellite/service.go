package satellite

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-climate-risk/internal/models"
	"github.com/mr1hm/go-climate-risk/internal/observability"
	"github.com/mr1hm/go-climate-risk/internal/repository"
	"github.com/mr1hm/go-climate-risk/internal/worker"
)

const completedMessage = "Satellite data ingestion completed"

// Ingestor runs an ingestion request, locally or on another instance.
type Ingestor interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

type Publisher interface {
	Broadcast(e models.IngestEvent)
}

type FailedLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Error     string  `json:"error"`
}

type IngestResult struct {
	Success            bool             `json:"success"`
	Message            string           `json:"message"`
	Trigger            string           `json:"trigger"`
	Source             string           `json:"source"`
	LocationsProcessed int              `json:"locationsProcessed"`
	DataPointsInserted int              `json:"dataPointsInserted"`
	Timestamp          time.Time        `json:"timestamp"`
	FailedLocations    []FailedLocation `json:"failedLocations,omitempty"`
}

type Service struct {
	repo      repository.SatelliteRepository
	clock     clockwork.Clock
	metrics   *observability.Metrics
	publisher Publisher
	workers   int
	newRand   RandFactory
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithWorkers sets how many locations are generated and stored in parallel.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithSeed makes every run reproducible. Zero keeps per-run random seeds.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		if seed != 0 {
			s.newRand = SeededRand(seed)
		}
	}
}

func WithRand(f RandFactory) Option {
	return func(s *Service) { s.newRand = f }
}

func NewService(repo repository.SatelliteRepository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		clock:   clockwork.NewRealClock(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

type locationJob struct {
	index int
	loc   Location
}

// Ingest generates and stores a grid for every resolved location. A failed
// insert is logged and reported in the result; the remaining locations still run.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := s.clock.Now()
	acquired := start.UTC().Truncate(time.Microsecond)
	locations := req.ResolveLocations()

	newRand := s.newRand
	if newRand == nil {
		newRand = RandomRand()
	}

	var (
		inserted atomic.Int64
		mu       sync.Mutex
		failed   = make(map[int]FailedLocation)
	)

	processor := func(ctx context.Context, job locationJob) error {
		points := GeneratePoints(job.loc, newRand(job.index), acquired, req.Source)
		for i := range points {
			points[i].ID = uuid.NewString()
			points[i].CreatedAt = acquired
			points[i].UpdatedAt = acquired
		}

		if err := s.repo.InsertBatch(ctx, points); err != nil {
			return err
		}

		inserted.Add(int64(len(points)))
		if s.metrics != nil {
			s.metrics.PointsInserted.Add(float64(len(points)))
		}
		if s.publisher != nil {
			s.publisher.Broadcast(models.IngestEvent{
				Trigger:    req.Trigger,
				Source:     req.Source,
				Latitude:   job.loc.Latitude,
				Longitude:  job.loc.Longitude,
				Points:     len(points),
				AcquiredAt: acquired,
			})
		}
		slog.Debug("inserted satellite data", "latitude", job.loc.Latitude, "longitude", job.loc.Longitude, "count", len(points))
		return nil
	}

	pool := worker.NewWorkerPool(s.workers, len(locations), processor)
	pool.OnError(func(job locationJob, err error) {
		slog.Error("error inserting satellite data",
			"latitude", job.loc.Latitude, "longitude", job.loc.Longitude, "error", err)
		if s.metrics != nil {
			s.metrics.LocationFailures.Inc()
		}
		mu.Lock()
		failed[job.index] = FailedLocation{
			Latitude:  job.loc.Latitude,
			Longitude: job.loc.Longitude,
			Error:     err.Error(),
		}
		mu.Unlock()
	})

	if len(locations) > 0 {
		pool.Start(ctx)
		for i, loc := range locations {
			pool.Submit(locationJob{index: i, loc: loc})
		}
		pool.Stop()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion interrupted: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IngestRuns.WithLabelValues(req.Trigger).Inc()
		s.metrics.IngestDuration.Observe(s.clock.Since(start).Seconds())
	}

	result := &IngestResult{
		Success:            true,
		Message:            completedMessage,
		Trigger:            req.Trigger,
		Source:             req.Source,
		LocationsProcessed: len(locations),
		DataPointsInserted: int(inserted.Load()),
		Timestamp:          s.clock.Now().UTC(),
		FailedLocations:    sortedFailures(failed),
	}

	slog.Info("satellite ingestion complete",
		"trigger", result.Trigger,
		"source", result.Source,
		"locations", result.LocationsProcessed,
		"inserted", result.DataPointsInserted,
		"failed", len(result.FailedLocations),
	)

	return result, nil
}

func sortedFailures(failed map[int]FailedLocation) []FailedLocation {
	if len(failed) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(failed))
	for i := range failed {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]FailedLocation, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, failed[i])
	}
	return out
}
