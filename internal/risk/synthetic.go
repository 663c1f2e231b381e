package risk

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// SyntheticSource derives plausible indicators from the coordinate alone:
// a latitude climatology plus noise seeded by the coordinate, so repeated
// calls for the same place agree.
type SyntheticSource struct {
	salt uint64
}

func NewSyntheticSource(salt uint64) *SyntheticSource {
	return &SyntheticSource{salt: salt}
}

func (s *SyntheticSource) Indicators(_ context.Context, lat, lng float64) (Inputs, error) {
	rng := rand.New(rand.NewPCG(CoordinateSeed(lat, lng), s.salt))

	// 1 at the equator, 0 poleward of 60°.
	tropical := inverse(abs(lat), 0, 60)

	return Inputs{
		Flood: FloodInputs{
			AnnualPrecipitationMM: 400 + 2000*tropical + rng.Float64()*600,
			ElevationM:            rng.Float64() * 800,
			DrainageCapacity:      0.3 + rng.Float64()*0.6,
			HistoricalLoss:        rng.Float64() * 0.6,
			ClimateAdjustment:     1 + 0.15*tropical + rng.Float64()*0.05,
		},
		Wildfire: WildfireInputs{
			FireWeatherIndex: 10 + rng.Float64()*60,
			TemperatureC:     5 + 25*tropical + rng.Float64()*8,
			RelativeHumidity: 30 + rng.Float64()*60,
			WindSpeedKmh:     5 + rng.Float64()*40,
			FuelMoisture:     5 + rng.Float64()*25,
			DefensibleSpace:  rng.Float64(),
		},
		Storm: StormInputs{
			WindGustKmh:        40 + rng.Float64()*100,
			CAPE:               rng.Float64() * (500 + 2500*tropical),
			LapseRate:          5 + rng.Float64()*4,
			PrecipIntensityMMh: 5 + rng.Float64()*60,
			FrequencySeverity:  rng.Float64() * 0.8,
		},
		Drought: DroughtInputs{
			PrecipDeficitPct:        rng.Float64() * 70,
			EvapotranspirationMMDay: 1 + 4*tropical + rng.Float64()*3,
			VaporPressureDeficitKPa: 0.3 + rng.Float64()*2.5,
			GDDAnomaly:              -200 + rng.Float64()*500,
			SoilMoisture:            0.05 + rng.Float64()*0.35,
		},
	}, nil
}

// CoordinateSeed hashes a coordinate rounded to ~11 m.
func CoordinateSeed(lat, lng float64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.4f,%.4f", lat, lng)
	return h.Sum64()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
