package models

import "time"

// IngestEvent is published once per location whose readings were stored.
type IngestEvent struct {
	Trigger    string    `json:"trigger"`
	Source     string    `json:"source"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Points     int       `json:"points"`
	AcquiredAt time.Time `json:"acquiredAt"`
}
