package models

import "time"

const ProcessingStatusProcessed = "processed"

type RiskIndicators struct {
	FloodRisk    int `json:"flood_risk"`
	DroughtRisk  int `json:"drought_risk"`
	WildfireRisk int `json:"wildfire_risk"`
	StormRisk    int `json:"storm_risk"`
}

type SatelliteDataPoint struct {
	ID               string         `json:"id"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	AcquisitionTime  time.Time      `json:"acquisition_time"`
	CloudCoverage    float64        `json:"cloud_coverage"`   // percent
	VegetationIndex  float64        `json:"vegetation_index"` // NDVI, -1..1
	WaterIndex       float64        `json:"water_index"`      // NDWI, -1..1
	Temperature      float64        `json:"temperature"`      // °C
	RiskIndicators   RiskIndicators `json:"risk_indicators"`
	Source           string         `json:"source"`
	ProcessingStatus string         `json:"processing_status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (p *SatelliteDataPoint) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

// BoundingBox limits a query to a lat/lng rectangle. Nil bounds are open.
type BoundingBox struct {
	MinLat *float64
	MaxLat *float64
	MinLng *float64
	MaxLng *float64
}

// Contains reports whether the coordinate lies inside the box, bounds inclusive.
func (b BoundingBox) Contains(lat, lng float64) bool {
	switch {
	case b.MinLat != nil && lat < *b.MinLat:
		return false
	case b.MaxLat != nil && lat > *b.MaxLat:
		return false
	case b.MinLng != nil && lng < *b.MinLng:
		return false
	case b.MaxLng != nil && lng > *b.MaxLng:
		return false
	}
	return true
}
