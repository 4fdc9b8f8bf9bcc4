package pipeline

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/brand-media/internal/model"
)

var (
	itemHeader    = []string{"source", "type", "mediaUrl", "postUrl", "caption", "takenAt"}
	failureHeader = []string{"source", "kind", "target", "reason"}
	sourceHeader  = []string{"source", "jobId", "records", "items", "downloaded", "failed", "mergedArchives", "archiveFailures", "error"}
)

// BuildManifest renders the result as a workbook with one sheet of media
// items, one of failures and one per-source summary.
func BuildManifest(result *model.FinalResult) ([]byte, error) {
	f := xlsx.NewFile()

	items, err := f.AddSheet("items")
	if err != nil {
		return nil, eris.Wrap(err, "manifest: add items sheet")
	}
	failures, err := f.AddSheet("failures")
	if err != nil {
		return nil, eris.Wrap(err, "manifest: add failures sheet")
	}
	sources, err := f.AddSheet("sources")
	if err != nil {
		return nil, eris.Wrap(err, "manifest: add sources sheet")
	}
	addRow(items, itemHeader...)
	addRow(failures, failureHeader...)
	addRow(sources, sourceHeader...)

	for _, name := range sortedSources(result) {
		run := result.Scrapers[name]
		for _, it := range run.Items {
			addRow(items, string(it.Source), string(it.Type), it.MediaURL, deref(it.PostURL), deref(it.Caption), deref(it.TakenAt))
		}
		for _, fl := range run.Media.Failed {
			addRow(failures, name, "download", fl.URL, fl.Reason)
		}
		for _, fl := range run.Media.ArchiveFailures {
			addRow(failures, name, "archive", fl.Key, fl.Reason)
		}
		addRow(sources, name, run.JobID,
			strconv.Itoa(run.ItemCount),
			strconv.Itoa(len(run.Items)),
			strconv.Itoa(run.Media.Count),
			strconv.Itoa(len(run.Media.Failed)),
			strconv.Itoa(run.Media.MergedArchives),
			strconv.Itoa(len(run.Media.ArchiveFailures)),
			run.Error,
		)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "manifest: write workbook")
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func sortedSources(result *model.FinalResult) []string {
	names := make([]string, 0, len(result.Scrapers))
	for name := range result.Scrapers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
