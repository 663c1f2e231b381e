package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mr1hm/go-climate-risk/internal/config"
	"github.com/mr1hm/go-climate-risk/internal/pubsub"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

const fetchRetryDelay = time.Second

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

func NewKafkaReader(cfg config.KafkaConfig) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func (m *Manager) runConsumer(ctx context.Context) {
	defer m.wg.Done()
	slog.Info("starting kafka consumer", "topic", m.cfg.Kafka.Topic, "group", m.cfg.Kafka.GroupID)

	for {
		msg, err := m.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("kafka consumer shutting down")
				return
			}
			slog.Error("error fetching kafka message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-m.clock.After(fetchRetryDelay):
			}
			continue
		}

		m.handleMessage(ctx, msg)

		if err := m.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("error committing kafka message", "offset", msg.Offset, "error", err)
		}
	}
}

// handleMessage ingests one record. Malformed and failed records are logged
// and still committed; nothing is retried.
func (m *Manager) handleMessage(ctx context.Context, msg kafkago.Message) {
	req, err := mapMessage(msg)
	if err != nil {
		slog.Warn("skipping malformed kafka message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		m.observe("malformed")
		return
	}

	result, err := m.ingestor.Ingest(ctx, req)
	if err != nil {
		slog.Error("kafka-triggered ingestion failed", "offset", msg.Offset, "error", err)
		m.observe("error")
		return
	}

	slog.Debug("kafka-triggered ingestion complete", "offset", msg.Offset, "inserted", result.DataPointsInserted)
	m.observe("processed")
}

// mapMessage converts a satellite event record into an ingestion request.
func mapMessage(msg kafkago.Message) (satellite.IngestRequest, error) {
	event, err := pubsub.ParseEvent(msg.Value)
	if err != nil {
		return satellite.IngestRequest{}, err
	}
	return event.IngestRequest(TriggerKafka), nil
}

func (m *Manager) observe(outcome string) {
	if m.metrics != nil {
		m.metrics.KafkaMessages.WithLabelValues(outcome).Inc()
	}
}
