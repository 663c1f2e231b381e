package repository

import (
	"context"

	"github.com/mr1hm/go-climate-risk/internal/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type Filter struct {
	models.BoundingBox
	Limit int
}

type SatelliteRepository interface {
	// InsertBatch writes all points in one statement; either every row lands or none do.
	InsertBatch(ctx context.Context, points []models.SatelliteDataPoint) error
	ListInBoundingBox(ctx context.Context, opts Filter) ([]models.SatelliteDataPoint, error)
}
