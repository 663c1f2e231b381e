// Package grid expands a single risk profile into a lattice of nearby points
// with distance-decayed risk, synthetic demographics and payout estimates.
package grid

import (
	"math"
	"math/rand/v2"

	"github.com/mr1hm/go-climate-risk/internal/models"
	"github.com/mr1hm/go-climate-risk/internal/risk"
)

const (
	earthRadiusKm  = 6371.0
	kmPerDegree    = 111.32
	decayKm        = 3.0
	jitterFraction = 0.15
	riskNoise      = 5.0
	annualLossRate = 0.02
)

// Payout multipliers applied to the expected loss. Non-decreasing.
const (
	p75Multiplier   = 1.5
	p90Multiplier   = 2.5
	worstMultiplier = 5.0
)

// MaxSize bounds the points per side; a grid holds Size² points.
const MaxSize = 25

type Options struct {
	Size                  int
	Spacing               float64 // degrees between lattice rows/columns
	Seed                  uint64
	InsuredValuePerPerson float64
}

func DefaultOptions() Options {
	return Options{
		Size:                  7,
		Spacing:               0.01,
		Seed:                  1,
		InsuredValuePerPerson: 50000,
	}
}

type Synthesizer struct {
	opts Options
}

func NewSynthesizer(opts Options) *Synthesizer {
	def := DefaultOptions()
	if opts.Size < 1 {
		opts.Size = def.Size
	}
	if opts.Size > MaxSize {
		opts.Size = MaxSize
	}
	if opts.Spacing <= 0 {
		opts.Spacing = def.Spacing
	}
	if opts.InsuredValuePerPerson <= 0 {
		opts.InsuredValuePerPerson = def.InsuredValuePerPerson
	}
	return &Synthesizer{opts: opts}
}

// Synthesize returns Size×Size points, row-major from the south-west corner.
// Equal inputs always produce equal output.
func (s *Synthesizer) Synthesize(lat, lng float64, factors models.RiskFactors) []models.GridPoint {
	n := s.opts.Size
	rng := rand.New(rand.NewPCG(risk.CoordinateSeed(lat, lng), s.opts.Seed))
	base := risk.Weighted(factors)
	half := float64(n-1) / 2
	cellAreaKm2 := s.cellAreaKm2(lat)

	points := make([]models.GridPoint, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pLat := lat + (float64(i)-half)*s.opts.Spacing + s.jitter(rng)
			pLng := lng + (float64(j)-half)*s.opts.Spacing + s.jitter(rng)
			if i == int(half) && j == int(half) && n%2 == 1 {
				pLat, pLng = lat, lng
			}
			pLat, pLng = normalize(pLat, pLng)

			dist := Haversine(lat, lng, pLat, pLng)
			decay := math.Exp(-dist / decayKm)

			pointRisk := risk.Clamp(base*(0.5+0.5*decay)+(rng.Float64()*2-1)*riskNoise, 0, 100)
			pointRisk = math.Round(pointRisk*10) / 10

			demo := demographics(rng, decay, cellAreaKm2)
			points = append(points, models.GridPoint{
				Lat:            pLat,
				Lng:            pLng,
				Risk:           pointRisk,
				RiskLevel:      models.RiskLevelFor(pointRisk),
				Demographics:   demo,
				PayoutEstimate: s.payout(demo.Population, pointRisk),
				Distance:       math.Round(dist*100) / 100,
			})
		}
	}

	return points
}

func (s *Synthesizer) jitter(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * jitterFraction * s.opts.Spacing
}

func (s *Synthesizer) cellAreaKm2(lat float64) float64 {
	side := s.opts.Spacing * kmPerDegree
	return side * side * math.Max(math.Cos(lat*math.Pi/180), 0.01)
}

// payout scales a notional total insured value by risk.
func (s *Synthesizer) payout(population int, pointRisk float64) models.PayoutEstimate {
	tiv := float64(population) * s.opts.InsuredValuePerPerson
	expected := tiv * (pointRisk / 100) * annualLossRate

	return models.PayoutEstimate{
		Expected:     math.Round(expected),
		Percentile75: math.Round(expected * p75Multiplier),
		Percentile90: math.Round(expected * p90Multiplier),
		WorstCase:    math.Round(expected * worstMultiplier),
	}
}

func demographics(rng *rand.Rand, decay, cellAreaKm2 float64) models.Demographics {
	urban := risk.Clamp(0.85*decay+rng.Float64()*0.15, 0, 1)
	density := 50 + urban*9950

	return models.Demographics{
		Population:        int(math.Round(density * cellAreaKm2)),
		PopulationDensity: math.Round(density),
		MedianAge:         math.Round((25+rng.Float64()*25)*10) / 10,
		HouseholdIncome:   math.Round(35000 + urban*65000 + rng.Float64()*15000),
		Urbanization:      urbanization(urban),
	}
}

func urbanization(u float64) string {
	switch {
	case u >= 0.66:
		return "urban"
	case u >= 0.33:
		return "suburban"
	default:
		return "rural"
	}
}

// normalize clamps latitude to the poles and wraps longitude into [-180, 180].
func normalize(lat, lng float64) (float64, float64) {
	lat = risk.Clamp(lat, -90, 90)
	if lng > 180 || lng < -180 {
		lng = math.Mod(lng+180, 360)
		if lng < 0 {
			lng += 360
		}
		lng -= 180
	}
	return lat, lng
}

// Haversine returns the great-circle distance in km.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLng := (lng2 - lng1) * toRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
