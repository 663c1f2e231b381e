package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-climate-risk/internal/grid"
	"github.com/mr1hm/go-climate-risk/internal/risk"
)

type locationFlags struct {
	lat, lng float64
	seed     uint64
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude in degrees")
	cmd.Flags().Uint64Var(&f.seed, "seed", grid.DefaultOptions().Seed, "seed for synthetic indicators")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
}

func newAnalyzeCommand() *cobra.Command {
	var f locationFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score flood, wildfire, storm and drought risk for a coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := risk.NewEngine(risk.NewSyntheticSource(f.seed))
			profile, err := engine.Analyze(cmd.Context(), f.lat, f.lng)
			if err != nil {
				return err
			}
			return printJSON(cmd, profile)
		},
	}
	f.register(cmd)
	return cmd
}

func newGridCommand() *cobra.Command {
	var (
		f    locationFlags
		size int
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Expand a coordinate's risk profile into a grid of nearby points",
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 1 || size > grid.MaxSize {
				return fmt.Errorf("--size must be between 1 and %d, got %d", grid.MaxSize, size)
			}
			engine := risk.NewEngine(risk.NewSyntheticSource(f.seed))
			profile, err := engine.Analyze(cmd.Context(), f.lat, f.lng)
			if err != nil {
				return err
			}

			opts := grid.DefaultOptions()
			opts.Size = size
			opts.Seed = f.seed
			points := grid.NewSynthesizer(opts).Synthesize(f.lat, f.lng, profile.Factors)

			return printJSON(cmd, map[string]any{"gridData": points})
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&size, "size", grid.DefaultOptions().Size, "points per grid side")
	return cmd
}
