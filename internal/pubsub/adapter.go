package pubsub

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-climate-risk/internal/observability"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

const (
	TriggerWebhook   = "webhook"
	processedMessage = "Satellite event processed"
)

// Response is the acknowledgement body. Delivery is always acknowledged;
// Success carries the logical outcome.
type Response struct {
	Success             bool   `json:"success"`
	Message             string `json:"message,omitempty"`
	Error               string `json:"error,omitempty"`
	MessageID           string `json:"messageId,omitempty"`
	EventType           string `json:"eventType,omitempty"`
	DataPointsProcessed *int   `json:"dataPointsProcessed,omitempty"`
}

type Adapter struct {
	ingestor satellite.Ingestor
	metrics  *observability.Metrics
}

func NewAdapter(ingestor satellite.Ingestor, metrics *observability.Metrics) *Adapter {
	return &Adapter{
		ingestor: ingestor,
		metrics:  metrics,
	}
}

// Handle decodes a push delivery and runs the ingestion it describes.
func (a *Adapter) Handle(ctx context.Context, body []byte) Response {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return a.fail(Response{}, err)
	}

	resp := Response{MessageID: env.Message.MessageID}

	event, err := env.Message.Event()
	if err != nil {
		return a.fail(resp, err)
	}
	resp.EventType = event.EventType

	slog.Info("received satellite event",
		"messageId", env.Message.MessageID,
		"eventType", event.EventType,
		"satellite", event.Satellite,
		"severity", event.Severity,
	)

	result, err := a.ingestor.Ingest(ctx, event.IngestRequest(TriggerWebhook))
	if err != nil {
		return a.fail(resp, err)
	}

	points := result.DataPointsInserted
	resp.Success = true
	resp.Message = processedMessage
	resp.DataPointsProcessed = &points
	a.observe("success")
	return resp
}

func (a *Adapter) fail(resp Response, err error) Response {
	slog.Error("webhook processing failed", "messageId", resp.MessageID, "error", err)
	resp.Success = false
	resp.Error = err.Error()
	a.observe("error")
	return resp
}

func (a *Adapter) observe(outcome string) {
	if a.metrics != nil {
		a.metrics.WebhookMessages.WithLabelValues(outcome).Inc()
	}
}
