package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr1hm/go-climate-risk/internal/models"
)

const insertColumns = `id, latitude, longitude, acquisition_time, cloud_coverage,
	vegetation_index, water_index, temperature, risk_indicators, source,
	processing_status, created_at, updated_at`

const rowPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

func (d *DB) InsertBatch(ctx context.Context, points []models.SatelliteDataPoint) error {
	if len(points) == 0 {
		return nil
	}

	rows := make([]string, len(points))
	args := make([]any, 0, len(points)*13)
	for i, p := range points {
		indicators, err := json.Marshal(p.RiskIndicators)
		if err != nil {
			return fmt.Errorf("error encoding risk indicators: %w", err)
		}
		status := p.ProcessingStatus
		if status == "" {
			status = models.ProcessingStatusProcessed
		}

		rows[i] = rowPlaceholders
		args = append(args,
			p.ID, p.Latitude, p.Longitude, p.AcquisitionTime, p.CloudCoverage,
			p.VegetationIndex, p.WaterIndex, p.Temperature, string(indicators), p.Source,
			status, p.CreatedAt, p.UpdatedAt,
		)
	}

	query := "INSERT INTO satellite_data (" + insertColumns + ") VALUES " + strings.Join(rows, ", ")
	if _, err := d.db.ExecContext(ctx, d.rebind(query), args...); err != nil {
		return fmt.Errorf("error inserting %d satellite points: %w", len(points), err)
	}
	return nil
}

func (d *DB) ListInBoundingBox(ctx context.Context, opts Filter) ([]models.SatelliteDataPoint, error) {
	query := "SELECT " + insertColumns + " FROM satellite_data WHERE 1=1"
	var args []any

	if opts.MinLat != nil {
		query += " AND latitude >= ?"
		args = append(args, *opts.MinLat)
	}
	if opts.MaxLat != nil {
		query += " AND latitude <= ?"
		args = append(args, *opts.MaxLat)
	}
	if opts.MinLng != nil {
		query += " AND longitude >= ?"
		args = append(args, *opts.MinLng)
	}
	if opts.MaxLng != nil {
		query += " AND longitude <= ?"
		args = append(args, *opts.MaxLng)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	query += " ORDER BY acquisition_time DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error querying satellite data: %w", err)
	}
	defer rows.Close()

	var points []models.SatelliteDataPoint
	for rows.Next() {
		var (
			p          models.SatelliteDataPoint
			indicators string
		)
		if err := rows.Scan(
			&p.ID, &p.Latitude, &p.Longitude, &p.AcquisitionTime, &p.CloudCoverage,
			&p.VegetationIndex, &p.WaterIndex, &p.Temperature, &indicators, &p.Source,
			&p.ProcessingStatus, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning satellite data: %w", err)
		}
		if err := json.Unmarshal([]byte(indicators), &p.RiskIndicators); err != nil {
			return nil, fmt.Errorf("error decoding risk indicators for %s: %w", p.ID, err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
