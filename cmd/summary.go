package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sells-group/brand-media/internal/model"
	"github.com/sells-group/brand-media/internal/pipeline"
)

var (
	headingColor = color.New(color.Bold)
	okColor      = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgWhite, color.Faint)
)

// printSummary writes a human-readable per-source overview of result to w.
func printSummary(w io.Writer, result *model.FinalResult) {
	headingColor.Fprintf(w, "%s", result.BrandName)
	dimColor.Fprintf(w, "  run %s\n", result.RunID)
	for _, src := range pipeline.Order {
		run, ok := result.Scrapers[string(src)]
		if !ok {
			dimColor.Fprintf(w, "  %-13s skipped\n", src)
			continue
		}
		if run.Error != "" {
			errColor.Fprintf(w, "  %-13s failed: %s\n", src, run.Error)
			continue
		}
		c := okColor
		if len(run.Media.Failed) > 0 || len(run.Media.ArchiveFailures) > 0 {
			c = warnColor
		}
		c.Fprintf(w, "  %-13s %d records, %d items, %d/%d downloaded, %d archives merged\n",
			src, run.ItemCount, len(run.Items), run.Media.Count, len(run.Media.URLs), run.Media.MergedArchives)
		for _, f := range run.Media.Failed {
			warnColor.Fprintf(w, "    ! %s (%s)\n", f.URL, f.Reason)
		}
		for _, f := range run.Media.ArchiveFailures {
			warnColor.Fprintf(w, "    ! %s (%s)\n", f.Key, f.Reason)
		}
	}
	fmt.Fprintf(w, "total downloaded: %d, archive: %s\n", result.TotalMediaDownloaded, result.ArchiveKey)
}
