package api

import (
	"github.com/mr1hm/go-climate-risk/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(points []models.SatelliteDataPoint) FeatureCollection {
	features := make([]Feature, 0, len(points))

	for _, p := range points {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]any{
				"id":                p.ID,
				"acquisition_time":  p.AcquisitionTime,
				"cloud_coverage":    p.CloudCoverage,
				"vegetation_index":  p.VegetationIndex,
				"water_index":       p.WaterIndex,
				"temperature":       p.Temperature,
				"risk_indicators":   p.RiskIndicators,
				"source":            p.Source,
				"processing_status": p.ProcessingStatus,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
