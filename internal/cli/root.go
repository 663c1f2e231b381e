// Package cli implements climatectl, which runs risk analysis, grid
// synthesis and satellite ingestion locally without the HTTP server.
package cli

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-climate-risk/internal/logging"
)

var Version = "dev"

type rootOptions struct {
	logLevel string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "climatectl",
		Short:         "Climate risk scoring and satellite ingestion tools",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// logs go to stderr so stdout stays valid JSON
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newAnalyzeCommand(),
		newGridCommand(),
		newIngestCommand(),
	)
	return cmd
}

func Execute() error {
	return NewRootCommand().Execute()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
