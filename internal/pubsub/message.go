// Package pubsub decodes Pub/Sub push deliveries of satellite events and turns
// them into ingestion runs.
package pubsub

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

// DefaultSource is used when an event does not name its satellite.
const DefaultSource = "pubsub"

var ErrMalformedMessage = errors.New("malformed pub/sub message")

type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMalformedMessage, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedMessage, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedMessage}
	}
	return []error{ErrMalformedMessage, e.Err}
}

type PushEnvelope struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription"`
}

type Message struct {
	Data        string            `json:"data" validate:"required"`
	MessageID   string            `json:"messageId"`
	PublishTime string            `json:"publishTime"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type EventLocation struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// SatelliteEvent is the JSON carried in a push message's data field.
type SatelliteEvent struct {
	EventType       string         `json:"eventType" validate:"required"`
	Satellite       string         `json:"satellite"`
	Location        *EventLocation `json:"location"`
	AcquisitionTime string         `json:"acquisitionTime"`
	Severity        string         `json:"severity"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func DecodeEnvelope(body []byte) (PushEnvelope, error) {
	var env PushEnvelope
	if len(bytes.TrimSpace(body)) == 0 {
		return env, &ParseError{Reason: "empty body"}
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, &ParseError{Reason: "invalid envelope JSON", Err: err}
	}
	if err := validate.Struct(env); err != nil {
		return env, &ParseError{Reason: "invalid envelope", Err: err}
	}
	return env, nil
}

// Event decodes and validates the base64 payload.
func (m Message) Event() (SatelliteEvent, error) {
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return SatelliteEvent{}, &ParseError{Reason: "message data is not base64", Err: err}
	}
	return ParseEvent(data)
}

// ParseEvent decodes a raw satellite event, as carried by push messages and Kafka records.
func ParseEvent(data []byte) (SatelliteEvent, error) {
	var ev SatelliteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return SatelliteEvent{}, &ParseError{Reason: "invalid event JSON", Err: err}
	}
	if err := validate.Struct(ev); err != nil {
		return SatelliteEvent{}, &ParseError{Reason: "invalid event", Err: err}
	}
	return ev, nil
}

// IngestRequest maps the event onto an ingestion run. Events without a
// location fall back to the default cities.
func (e SatelliteEvent) IngestRequest(trigger string) satellite.IngestRequest {
	req := satellite.IngestRequest{
		Trigger: trigger,
		Source:  e.Satellite,
	}
	if req.Source == "" {
		req.Source = DefaultSource
	}
	if e.Location != nil {
		req.Latitude = e.Location.Latitude
		req.Longitude = e.Location.Longitude
	}
	return req
}
