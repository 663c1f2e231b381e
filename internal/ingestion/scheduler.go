package ingestion

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

func (m *Manager) runScheduler(ctx context.Context) {
	defer m.wg.Done()
	interval := m.cfg.Schedule.Interval
	slog.Info("starting scheduler", "interval", interval)

	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	// Initial run
	m.runScheduled(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return
		case <-ticker.Chan():
			m.runScheduled(ctx)
		}
	}
}

func (m *Manager) runScheduled(ctx context.Context) {
	req := satellite.IngestRequest{
		Trigger: TriggerScheduled,
		Source:  satellite.DefaultSource,
	}

	result, err := m.ingestor.Ingest(ctx, req)
	if err != nil {
		slog.Error("scheduled ingestion failed", "error", err)
		return
	}
	slog.Debug("scheduled ingestion complete", "inserted", result.DataPointsInserted)
}
