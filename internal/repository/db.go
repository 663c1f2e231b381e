package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-climate-risk/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DB struct {
	db     *sql.DB
	driver string
}

// Open connects using the configured driver and runs migrations.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return NewSQLiteDB(cfg.Path)
	case DriverPostgres:
		return NewPostgresDB(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func NewSQLiteDB(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	return setup(db, DriverSQLite)
}

func NewPostgresDB(url string) (*DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	return setup(db, DriverPostgres)
}

func setup(db *sql.DB, driver string) (*DB, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	d := &DB{
		db:     db,
		driver: driver,
	}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return d, nil
}

func (d *DB) migrate() error {
	statements := sqliteSchema
	if d.driver == DriverPostgres {
		statements = postgresSchema
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS satellite_data (
		id TEXT PRIMARY KEY,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		acquisition_time DATETIME NOT NULL,
		cloud_coverage REAL,
		vegetation_index REAL CHECK (vegetation_index BETWEEN -1 AND 1),
		water_index REAL CHECK (water_index BETWEEN -1 AND 1),
		temperature REAL,
		risk_indicators TEXT NOT NULL DEFAULT '{}',
		source TEXT NOT NULL,
		processing_status TEXT NOT NULL DEFAULT 'processed',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_satellite_data_location ON satellite_data(latitude, longitude)`,
	`CREATE INDEX IF NOT EXISTS idx_satellite_data_acquisition_time ON satellite_data(acquisition_time)`,
	`CREATE TRIGGER IF NOT EXISTS trg_satellite_data_updated_at
		AFTER UPDATE ON satellite_data FOR EACH ROW
		BEGIN
			UPDATE satellite_data SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END`,
	`CREATE TABLE IF NOT EXISTS geospatial_analysis (
		id TEXT PRIMARY KEY,
		analysis_type TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		before_image_url TEXT,
		after_image_url TEXT,
		result_url TEXT,
		change_score REAL,
		status TEXT NOT NULL DEFAULT 'processing' CHECK (status IN ('processing', 'processed', 'failed')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS satellite_data (
		id UUID PRIMARY KEY,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		acquisition_time TIMESTAMPTZ NOT NULL,
		cloud_coverage DOUBLE PRECISION,
		vegetation_index DOUBLE PRECISION CHECK (vegetation_index BETWEEN -1 AND 1),
		water_index DOUBLE PRECISION CHECK (water_index BETWEEN -1 AND 1),
		temperature DOUBLE PRECISION,
		risk_indicators JSONB NOT NULL DEFAULT '{}',
		source TEXT NOT NULL,
		processing_status TEXT NOT NULL DEFAULT 'processed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_satellite_data_location ON satellite_data(latitude, longitude)`,
	`CREATE INDEX IF NOT EXISTS idx_satellite_data_acquisition_time ON satellite_data(acquisition_time DESC)`,
	`CREATE OR REPLACE FUNCTION set_updated_at() RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = now();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_satellite_data_updated_at ON satellite_data`,
	`CREATE TRIGGER trg_satellite_data_updated_at
		BEFORE UPDATE ON satellite_data
		FOR EACH ROW EXECUTE FUNCTION set_updated_at()`,
	`CREATE TABLE IF NOT EXISTS geospatial_analysis (
		id UUID PRIMARY KEY,
		analysis_type TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		before_image_url TEXT,
		after_image_url TEXT,
		result_url TEXT,
		change_score DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'processing' CHECK (status IN ('processing', 'processed', 'failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}
