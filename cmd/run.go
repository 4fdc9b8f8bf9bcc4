package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runInput      inputFlags
	runArchiveOut string
	runQuiet      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the media pipeline for a single brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in, err := runInput.build(cmd.Flags())
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, cfg, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("media collection complete",
			zap.String("brand", result.BrandName),
			zap.String("run_id", result.RunID),
			zap.Int("media_downloaded", result.TotalMediaDownloaded),
			zap.String("archive", result.ArchiveKey),
		)

		if runArchiveOut != "" {
			if err := exportArchive(ctx, env.Store, env.Pipeline.Namespace(result.RunID), result.ArchiveKey, runArchiveOut); err != nil {
				return err
			}
		}

		if !runQuiet {
			printSummary(os.Stderr, result)
		}

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runInput.register(runCmd.Flags())
	runCmd.Flags().StringVar(&runArchiveOut, "archive-out", "", "also write the merged zip to this path")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "skip the summary on stderr")
	rootCmd.AddCommand(runCmd)
}
