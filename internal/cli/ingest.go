package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-climate-risk/internal/config"
	"github.com/mr1hm/go-climate-risk/internal/repository"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

func newIngestCommand() *cobra.Command {
	var (
		lat, lng float64
		seed     uint64
		dbPath   string
		workers  int
		source   string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Generate satellite readings and store them in the configured database",
		Long: "Generates a 7x7 grid of pseudo-satellite readings per location and stores it.\n" +
			"Without --lat/--lng the default cities are ingested.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
			if dbPath != "" {
				cfg.DB.Driver = repository.DriverSQLite
				cfg.DB.Path = dbPath
			}
			if seed == 0 {
				seed = cfg.Ingest.Seed
			}
			if workers == 0 {
				workers = cfg.Ingest.Workers
			}

			db, err := repository.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			req := satellite.IngestRequest{Trigger: "manual", Source: source}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
					return fmt.Errorf("--lat and --lng must be given together")
				}
				req.Latitude = &lat
				req.Longitude = &lng
			}

			svc := satellite.NewService(db, satellite.WithSeed(seed), satellite.WithWorkers(workers))
			result, err := svc.Ingest(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of a single location")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude of a single location")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed; 0 uses INGEST_SEED or a fresh seed")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path, overrides DB_DRIVER/DB_PATH")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel locations; 0 uses INGEST_WORKERS")
	cmd.Flags().StringVar(&source, "source", "cli", "source recorded on each reading")
	return cmd
}
