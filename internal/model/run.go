package model

import "time"

// DownloadFailure records a media URL that could not be fetched.
type DownloadFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// ArchiveFailure records a blob store key that could not be merged.
type ArchiveFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// MediaStats summarizes the download and archive-merge work for one scraper run.
type MediaStats struct {
	URLs            []string          `json:"urls"`
	Count           int               `json:"count"`
	Failed          []DownloadFailure `json:"failed"`
	MergedArchives  int               `json:"mergedArchives"`
	ArchiveFailures []ArchiveFailure  `json:"archiveFailures"`
}

// ScraperRunResult is the outcome of one named scraper run.
type ScraperRunResult struct {
	Name          string      `json:"name"`
	JobID         string      `json:"jobId"`
	RecordsHandle string      `json:"recordsHandle"`
	BlobsHandle   string      `json:"blobsHandle"`
	ItemCount     int         `json:"itemCount"`
	Items         []MediaItem `json:"items"`
	Media         MediaStats  `json:"media"`
	Error         string      `json:"error,omitempty"`
}

// FinalResult is the terminal document persisted for a pipeline run. Only
// sources that had input appear in Scrapers.
type FinalResult struct {
	RunID                string                       `json:"runId"`
	BrandName            string                       `json:"brandName"`
	StartedAt            time.Time                    `json:"startedAt"`
	CompletedAt          time.Time                    `json:"completedAt"`
	Scrapers             map[string]*ScraperRunResult `json:"scrapers"`
	TotalMediaDownloaded int                          `json:"totalMediaDownloaded"`
	ArchiveKey           string                       `json:"archiveKey"`
}

// NewFinalResult returns an empty result for the given brand.
func NewFinalResult(runID, brandName string, startedAt time.Time) *FinalResult {
	return &FinalResult{
		RunID:     runID,
		BrandName: brandName,
		StartedAt: startedAt,
		Scrapers:  make(map[string]*ScraperRunResult),
	}
}

// Add folds a scraper run into the result.
func (r *FinalResult) Add(run *ScraperRunResult) {
	r.Scrapers[run.Name] = run
	r.TotalMediaDownloaded += run.Media.Count
}
