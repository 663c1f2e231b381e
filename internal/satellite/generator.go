// Package satellite generates pseudo-satellite indicator grids and stores
// them for map overlays.
package satellite

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/mr1hm/go-climate-risk/internal/models"
)

const (
	GridSize   = 7
	GridRadius = 0.045 // degrees, roughly 5 km
)

// RandFactory returns the random stream for the location at index.
type RandFactory func(index int) *rand.Rand

// SeededRand gives every location its own PCG stream derived from seed.
func SeededRand(seed uint64) RandFactory {
	return func(index int) *rand.Rand {
		return rand.New(rand.NewPCG(seed, uint64(index)))
	}
}

// RandomRand draws a fresh seed for each run.
func RandomRand() RandFactory {
	return SeededRand(rand.Uint64())
}

// Offset returns the lattice offset of row or column i from the center.
func Offset(i int) float64 {
	return GridRadius * (2*float64(i)/float64(GridSize-1) - 1)
}

// GeneratePoints builds the GridSize×GridSize readings around loc in row-major order.
func GeneratePoints(loc Location, rng *rand.Rand, acquired time.Time, source string) []models.SatelliteDataPoint {
	points := make([]models.SatelliteDataPoint, 0, GridSize*GridSize)

	for i := 0; i < GridSize; i++ {
		for j := 0; j < GridSize; j++ {
			cloud := uniform(rng, 0, 30)
			ndvi := uniform(rng, 0.2, 0.8)
			ndwi := uniform(rng, -0.3, 0.2)
			temp := uniform(rng, 15, 30)

			points = append(points, models.SatelliteDataPoint{
				Latitude:         loc.Latitude + Offset(i),
				Longitude:        loc.Longitude + Offset(j),
				AcquisitionTime:  acquired,
				CloudCoverage:    cloud,
				VegetationIndex:  ndvi,
				WaterIndex:       ndwi,
				Temperature:      temp,
				RiskIndicators:   Indicators(cloud, ndvi, ndwi, temp, uniform(rng, 0, 30)),
				Source:           source,
				ProcessingStatus: models.ProcessingStatusProcessed,
			})
		}
	}

	return points
}

// Indicators derives the four risk indicators from one reading. stormNoise is
// the extra storm draw in [0,30).
func Indicators(cloud, ndvi, ndwi, temp, stormNoise float64) models.RiskIndicators {
	return models.RiskIndicators{
		FloodRisk:    indicator((ndwi+0.3)*100 + (100-cloud)*0.3),
		DroughtRisk:  indicator((1 - ndvi) * 100),
		WildfireRisk: indicator(temp*2 + (1-ndvi)*50),
		StormRisk:    indicator(cloud*2 + stormNoise),
	}
}

func indicator(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
