package models

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskLevelFor buckets a 0-100 score into the legend bands.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score < 25:
		return RiskLevelLow
	case score < 50:
		return RiskLevelMedium
	case score < 75:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// RiskFactors are the four hazard sub-scores, each in [0,100].
type RiskFactors struct {
	Flood    int `json:"flood" binding:"min=0,max=100"`
	Wildfire int `json:"wildfire" binding:"min=0,max=100"`
	Storm    int `json:"storm" binding:"min=0,max=100"`
	Drought  int `json:"drought" binding:"min=0,max=100"`
}

type RiskProfile struct {
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
	OverallScore int         `json:"overallScore"`
	Factors      RiskFactors `json:"factors"`
}
