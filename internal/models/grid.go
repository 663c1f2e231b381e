package models

type Demographics struct {
	Population        int     `json:"population"`
	PopulationDensity float64 `json:"populationDensity"` // people per km²
	MedianAge         float64 `json:"medianAge"`
	HouseholdIncome   float64 `json:"householdIncome"`
	Urbanization      string  `json:"urbanization"` // urban, suburban or rural
}

// PayoutEstimate values satisfy Expected <= Percentile75 <= Percentile90 <= WorstCase.
type PayoutEstimate struct {
	Expected     float64 `json:"expected"`
	Percentile75 float64 `json:"percentile75"`
	Percentile90 float64 `json:"percentile90"`
	WorstCase    float64 `json:"worstCase"`
}

type GridPoint struct {
	Lat            float64        `json:"lat"`
	Lng            float64        `json:"lng"`
	Risk           float64        `json:"risk"`
	RiskLevel      RiskLevel      `json:"riskLevel"`
	Demographics   Demographics   `json:"demographics"`
	PayoutEstimate PayoutEstimate `json:"payoutEstimate"`
	Distance       float64        `json:"distance"` // km from the grid center
}
