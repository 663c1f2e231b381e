package satellite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTrigger = "scheduled"
	DefaultSource  = "cron"
)

var ErrMalformedRequest = errors.New("malformed ingestion request")

// ParseError reports a request body that could not be decoded or validated.
// It matches ErrMalformedRequest under errors.Is.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMalformedRequest, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedRequest, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRequest}
	}
	return []error{ErrMalformedRequest, e.Err}
}

type Location struct {
	Name      string  `json:"name,omitempty"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// UnmarshalJSON accepts both {lat,lng} and {latitude,longitude}.
func (l *Location) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string   `json:"name"`
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	lat, lng := raw.Latitude, raw.Longitude
	if lat == nil {
		lat = raw.Lat
	}
	if lng == nil {
		lng = raw.Lng
	}
	if lat == nil || lng == nil {
		return errors.New("location requires latitude and longitude")
	}

	*l = Location{Name: raw.Name, Latitude: *lat, Longitude: *lng}
	return nil
}

// DefaultLocations are ingested when a request names no coordinates.
var DefaultLocations = []Location{
	{Name: "New York", Latitude: 40.7128, Longitude: -74.0060},
	{Name: "Los Angeles", Latitude: 34.0522, Longitude: -118.2437},
	{Name: "Chicago", Latitude: 41.8781, Longitude: -87.6298},
	{Name: "Houston", Latitude: 29.7604, Longitude: -95.3698},
	{Name: "Miami", Latitude: 25.7617, Longitude: -80.1918},
}

type IngestRequest struct {
	Trigger   string   `json:"trigger" validate:"max=64"`
	Source    string   `json:"source" validate:"max=128"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	// Locations is nil when the field is absent. An explicit empty list
	// resolves to no locations.
	Locations []Location `json:"locations" validate:"omitempty,max=100,dive"`
}

// ResolveLocations returns the coordinates to ingest: the explicit list, else the
// single latitude/longitude pair, else the default cities.
func (r IngestRequest) ResolveLocations() []Location {
	if r.Locations != nil {
		return r.Locations
	}
	if r.Latitude != nil && r.Longitude != nil {
		return []Location{{Latitude: *r.Latitude, Longitude: *r.Longitude}}
	}
	return DefaultLocations
}

func (r *IngestRequest) applyDefaults() {
	if r.Trigger == "" {
		r.Trigger = DefaultTrigger
	}
	if r.Source == "" {
		r.Source = DefaultSource
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate applies defaults and checks field ranges.
func (r *IngestRequest) Validate() error {
	r.applyDefaults()
	if err := validate.Struct(r); err != nil {
		return &ParseError{Reason: "invalid field", Err: err}
	}
	return nil
}

// ParseIngestRequest decodes an ingestion body. An empty body is a scheduled run.
func ParseIngestRequest(body []byte) (IngestRequest, error) {
	var req IngestRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return IngestRequest{}, &ParseError{Reason: "invalid JSON body", Err: err}
		}
	}

	if err := req.Validate(); err != nil {
		return IngestRequest{}, err
	}
	return req, nil
}
