package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/pipeline"
	"github.com/sells-group/brand-media/internal/store"
)

var (
	resultArchiveOut string
	resultSummary    bool
)

var resultCmd = &cobra.Command{
	Use:   "result <run-id>",
	Short: "Print the stored result of a previous run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runID := args[0]

		if err := cfg.Validate("result"); err != nil {
			return err
		}
		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ns := pipeline.NamespaceFor(cfg.Store, runID)
		result, err := pipeline.LoadResult(ctx, st, ns)
		if err != nil {
			return err
		}
		if result == nil {
			return eris.Errorf("no result stored for run %s", runID)
		}

		if resultArchiveOut != "" {
			if err := exportArchive(ctx, st, ns, result.ArchiveKey, resultArchiveOut); err != nil {
				return err
			}
		}
		if resultSummary {
			printSummary(os.Stdout, result)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// exportArchive copies the stored archive record to a local file.
func exportArchive(ctx context.Context, st store.Store, namespace, key, path string) error {
	rec, err := st.GetRecord(ctx, namespace, key)
	if err != nil {
		return eris.Wrapf(err, "read archive %s", key)
	}
	if rec == nil {
		return eris.Errorf("archive %s not found in %s", key, namespace)
	}
	if err := os.WriteFile(path, rec.Data, 0o644); err != nil {
		return eris.Wrapf(err, "write archive %s", path)
	}
	zap.L().Info("archive exported", zap.String("path", path), zap.Int("bytes", len(rec.Data)))
	return nil
}

func init() {
	resultCmd.Flags().StringVar(&resultArchiveOut, "archive-out", "", "write the stored zip to this path")
	resultCmd.Flags().BoolVar(&resultSummary, "summary", false, "print a readable summary instead of JSON")
	rootCmd.AddCommand(resultCmd)
}
