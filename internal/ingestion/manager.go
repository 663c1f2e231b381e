package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-climate-risk/internal/config"
	"github.com/mr1hm/go-climate-risk/internal/observability"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

const (
	TriggerScheduled = satellite.DefaultTrigger
	TriggerKafka     = "kafka"
)

// Manager runs the in-process ingestion triggers: a fixed-interval scheduler
// and a Kafka consumer of satellite events.
type Manager struct {
	cfg      *config.Config
	ingestor satellite.Ingestor
	clock    clockwork.Clock
	metrics  *observability.Metrics
	reader   MessageReader
	wg       sync.WaitGroup
}

type Option func(*Manager)

func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithReader replaces the Kafka reader built from config.
func WithReader(r MessageReader) Option {
	return func(m *Manager) { m.reader = r }
}

func NewManager(cfg *config.Config, ingestor satellite.Ingestor, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		ingestor: ingestor,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Start(ctx context.Context) {
	if m.cfg.Schedule.Enabled {
		m.wg.Add(1)
		go m.runScheduler(ctx)
	}

	if m.cfg.Kafka.Enabled {
		if m.reader == nil {
			m.reader = NewKafkaReader(m.cfg.Kafka)
		}
		m.wg.Add(1)
		go m.runConsumer(ctx)
	}
}

// Stop waits for the triggers to exit. Cancel the Start context first.
func (m *Manager) Stop() {
	m.wg.Wait()
	if m.reader != nil {
		if err := m.reader.Close(); err != nil {
			slog.Error("error closing kafka reader", "error", err)
		}
	}
	slog.Info("ingestion manager stopped")
}
