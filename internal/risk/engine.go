// Package risk turns environmental indicators into flood, wildfire, storm and
// drought sub-scores and a weighted overall score, all on a 0-100 scale.
//
// Each sub-score is a fixed linear combination of normalized sub-indicators.
// The weights follow the published methodology text; they have not been
// checked against a reference implementation.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mr1hm/go-climate-risk/internal/models"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Overall weights per hazard. They sum to 1.
const (
	overallFloodWeight    = 0.30
	overallWildfireWeight = 0.25
	overallStormWeight    = 0.25
	overallDroughtWeight  = 0.20
)

type FloodInputs struct {
	AnnualPrecipitationMM float64
	ElevationM            float64
	DrainageCapacity      float64 // 0..1, 1 is fully drained
	HistoricalLoss        float64 // 0..1
	ClimateAdjustment     float64 // multiplier, values below 1 are treated as 1
}

type WildfireInputs struct {
	FireWeatherIndex float64 // 0..100
	TemperatureC     float64
	RelativeHumidity float64 // percent
	WindSpeedKmh     float64
	FuelMoisture     float64 // percent
	DefensibleSpace  float64 // 0..1
}

type StormInputs struct {
	WindGustKmh        float64
	CAPE               float64 // J/kg
	LapseRate          float64 // °C/km
	PrecipIntensityMMh float64
	FrequencySeverity  float64 // 0..1
}

type DroughtInputs struct {
	PrecipDeficitPct        float64
	EvapotranspirationMMDay float64
	VaporPressureDeficitKPa float64
	GDDAnomaly              float64 // growing degree days above normal
	SoilMoisture            float64 // volumetric, m³/m³
}

type Inputs struct {
	Flood    FloodInputs
	Wildfire WildfireInputs
	Storm    StormInputs
	Drought  DroughtInputs
}

// IndicatorSource supplies the raw indicators for a coordinate.
type IndicatorSource interface {
	Indicators(ctx context.Context, lat, lng float64) (Inputs, error)
}

type Engine struct {
	source IndicatorSource
}

func NewEngine(source IndicatorSource) *Engine {
	return &Engine{source: source}
}

// Analyze scores the location and returns an immutable profile.
func (e *Engine) Analyze(ctx context.Context, lat, lng float64) (models.RiskProfile, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return models.RiskProfile{}, err
	}

	in, err := e.source.Indicators(ctx, lat, lng)
	if err != nil {
		return models.RiskProfile{}, fmt.Errorf("error loading indicators: %w", err)
	}

	factors := Score(in)
	return models.RiskProfile{
		Latitude:     lat,
		Longitude:    lng,
		OverallScore: Overall(factors),
		Factors:      factors,
	}, nil
}

func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidCoordinates, lat, lng)
	}
	return nil
}

func Score(in Inputs) models.RiskFactors {
	return models.RiskFactors{
		Flood:    toScore(floodRaw(in.Flood)),
		Wildfire: toScore(wildfireRaw(in.Wildfire)),
		Storm:    toScore(stormRaw(in.Storm)),
		Drought:  toScore(droughtRaw(in.Drought)),
	}
}

// Weighted returns the unrounded overall score for a set of factors.
func Weighted(f models.RiskFactors) float64 {
	return overallFloodWeight*float64(f.Flood) +
		overallWildfireWeight*float64(f.Wildfire) +
		overallStormWeight*float64(f.Storm) +
		overallDroughtWeight*float64(f.Drought)
}

func Overall(f models.RiskFactors) int {
	return int(math.Round(Clamp(Weighted(f), 0, 100)))
}

func floodRaw(in FloodInputs) float64 {
	raw := 0.30*normalize(in.AnnualPrecipitationMM, 0, 3000) +
		0.25*inverse(in.ElevationM, 0, 1000) +
		0.20*inverse(in.DrainageCapacity, 0, 1) +
		0.25*normalize(in.HistoricalLoss, 0, 1)
	return raw * math.Max(in.ClimateAdjustment, 1)
}

func wildfireRaw(in WildfireInputs) float64 {
	return 0.30*normalize(in.FireWeatherIndex, 0, 100) +
		0.20*normalize(in.TemperatureC, 0, 45) +
		0.15*inverse(in.RelativeHumidity, 0, 100) +
		0.15*normalize(in.WindSpeedKmh, 0, 80) +
		0.10*inverse(in.FuelMoisture, 0, 35) +
		0.10*inverse(in.DefensibleSpace, 0, 1)
}

func stormRaw(in StormInputs) float64 {
	return 0.30*normalize(in.WindGustKmh, 0, 200) +
		0.25*normalize(in.CAPE, 0, 4000) +
		0.15*normalize(in.LapseRate, 4, 10) +
		0.15*normalize(in.PrecipIntensityMMh, 0, 100) +
		0.15*normalize(in.FrequencySeverity, 0, 1)
}

func droughtRaw(in DroughtInputs) float64 {
	return 0.30*normalize(in.PrecipDeficitPct, 0, 100) +
		0.20*normalize(in.EvapotranspirationMMDay, 0, 10) +
		0.20*normalize(in.VaporPressureDeficitKPa, 0, 4) +
		0.10*normalize(in.GDDAnomaly, -500, 500) +
		0.20*inverse(in.SoilMoisture, 0, 0.5)
}

func toScore(raw float64) int {
	return int(math.Round(Clamp(raw*100, 0, 100)))
}

// normalize maps v from [lo,hi] onto [0,1], clamping outside values.
func normalize(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return Clamp((v-lo)/(hi-lo), 0, 1)
}

func inverse(v, lo, hi float64) float64 {
	return 1 - normalize(v, lo, hi)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
