// Package pipeline runs the per-source scrape, download and merge steps for
// a brand and persists the combined result and archive.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/archive"
	"github.com/sells-group/brand-media/internal/config"
	"github.com/sells-group/brand-media/internal/download"
	"github.com/sells-group/brand-media/internal/extract"
	"github.com/sells-group/brand-media/internal/merge"
	"github.com/sells-group/brand-media/internal/metrics"
	"github.com/sells-group/brand-media/internal/model"
	"github.com/sells-group/brand-media/internal/normalize"
	"github.com/sells-group/brand-media/internal/store"
	"github.com/sells-group/brand-media/pkg/apify"
)

// Record keys written for every run.
const (
	OutputKey  = "OUTPUT"
	SummaryKey = "RESULT"
)

// JobRunner starts an actor and waits for it to succeed.
type JobRunner interface {
	RunActor(ctx context.Context, actorID string, input any) (*apify.Run, error)
}

// Downloader fetches URLs into an archive folder.
type Downloader interface {
	Download(ctx context.Context, urls []string, folder string, dst *archive.Archive) download.Result
}

// ArchiveMerger copies archive blobs from a job's blob store.
type ArchiveMerger interface {
	Merge(ctx context.Context, src merge.BlobSource, storeID, folder string, dst *archive.Archive) merge.Result
}

// Summary is the short run overview stored under SummaryKey.
type Summary struct {
	RunID                string          `json:"runId"`
	BrandName            string          `json:"brandName"`
	TotalMediaCount      int             `json:"totalMediaCount"`
	TotalMediaDownloaded int             `json:"totalMediaDownloaded"`
	SourcesUsed          map[string]bool `json:"sourcesUsed"`
	ArchiveKey           string          `json:"archiveKey"`
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMetrics records per-source run outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline orchestrates one brand run across every enabled source.
type Pipeline struct {
	cfg        *config.Config
	runner     JobRunner
	datasets   DatasetReader
	blobs      merge.BlobSource
	downloader Downloader
	merger     ArchiveMerger
	store      store.Store
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	runner JobRunner,
	datasets DatasetReader,
	blobs merge.BlobSource,
	downloader Downloader,
	merger ArchiveMerger,
	st store.Store,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		runner:     runner,
		datasets:   datasets,
		blobs:      blobs,
		downloader: downloader,
		merger:     merger,
		store:      st,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Namespace returns the store namespace that holds runID's records.
func (p *Pipeline) Namespace(runID string) string {
	return NamespaceFor(p.cfg.Store, runID)
}

// NamespaceFor returns the configured namespace, or runID when none is set.
func NamespaceFor(c config.StoreConfig, runID string) string {
	if c.Namespace != "" {
		return c.Namespace
	}
	return runID
}

// Run executes the pipeline for in under a new run id.
func (p *Pipeline) Run(ctx context.Context, in model.BrandInput) (*model.FinalResult, error) {
	return p.RunWithID(ctx, NewRunID(), in)
}

// RunWithID executes every enabled source in order, merges their archives
// and persists the result. A job failure fails the run unless
// pipeline.isolate_job_failures is set, in which case the source's summary
// carries the error and the run continues.
func (p *Pipeline) RunWithID(ctx context.Context, runID string, in model.BrandInput) (*model.FinalResult, error) {
	brand := in.Brand()
	log := zap.L().With(zap.String("run_id", runID), zap.String("brand", brand))
	log.Info("pipeline: starting run")

	result := model.NewFinalResult(runID, brand, p.now().UTC())
	final := archive.New()
	limit := p.mediaLimit(in)

	for _, job := range Jobs(in, p.cfg.Apify) {
		start := p.now()
		run, arc, err := p.runSource(ctx, job, brand, limit)
		elapsed := p.now().Sub(start)
		if err != nil {
			p.metrics.SourceRun(string(job.Source), metrics.OutcomeFailure, elapsed)
			if !p.cfg.Pipeline.IsolateJobFailures {
				log.Error("pipeline: source failed", zap.String("source", string(job.Source)), zap.Error(err))
				return nil, eris.Wrapf(err, "pipeline: source %s", job.Source)
			}
			log.Warn("pipeline: source failed, continuing", zap.String("source", string(job.Source)), zap.Error(err))
			result.Add(failedRun(job.Source, err))
			continue
		}
		p.metrics.SourceRun(string(job.Source), metrics.OutcomeSuccess, elapsed)
		log.Info("pipeline: source complete",
			zap.String("source", string(job.Source)),
			zap.Int("records", run.ItemCount),
			zap.Int("items", len(run.Items)),
			zap.Int("downloaded", run.Media.Count),
			zap.Int("failed", len(run.Media.Failed)),
			zap.Int("merged_archives", run.Media.MergedArchives),
			zap.Duration("duration", elapsed),
		)
		result.Add(run)
		final.Merge(arc)
	}

	result.CompletedAt = p.now().UTC()
	result.ArchiveKey = ArchiveKey(brand)

	if err := p.persist(ctx, result, final); err != nil {
		return nil, err
	}

	log.Info("pipeline: run complete",
		zap.Int("sources", len(result.Scrapers)),
		zap.Int("media_downloaded", result.TotalMediaDownloaded),
		zap.Int("archive_entries", final.Len()),
	)
	return result, nil
}

func (p *Pipeline) mediaLimit(in model.BrandInput) int {
	if in.MaxMediaPerSource > 0 {
		return in.MaxMediaPerSource
	}
	return p.cfg.Pipeline.MaxMediaPerSource
}

// runSource invokes one job and collects its media into a fresh archive.
func (p *Pipeline) runSource(ctx context.Context, job Job, brand string, limit int) (*model.ScraperRunResult, *archive.Archive, error) {
	run, err := p.runner.RunActor(ctx, job.ActorID, job.Input)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "pipeline: run actor %s", job.ActorID)
	}

	raw, err := FetchAllRecords(ctx, p.datasets, run.DefaultDatasetID, p.cfg.Apify.PageSize)
	if err != nil {
		return nil, nil, err
	}
	records, err := extract.ParseRecords(raw)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: parse records")
	}

	items := normalize.Normalize(job.Source, brand, records)
	if items == nil {
		items = []model.MediaItem{}
	}
	urls := extract.MediaURLsIn(records)
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	if urls == nil {
		urls = []string{}
	}

	folder := string(job.Source)
	arc := archive.New()
	dl := p.downloader.Download(ctx, urls, folder, arc)
	mg := p.merger.Merge(ctx, p.blobs, run.DefaultKeyValueStoreID, folder+"/archives", arc)

	return &model.ScraperRunResult{
		Name:          folder,
		JobID:         run.ID,
		RecordsHandle: run.DefaultDatasetID,
		BlobsHandle:   run.DefaultKeyValueStoreID,
		ItemCount:     len(raw),
		Items:         items,
		Media: model.MediaStats{
			URLs:            urls,
			Count:           dl.Count,
			Failed:          nonNilDownloads(dl.Failed),
			MergedArchives:  mg.Count,
			ArchiveFailures: nonNilArchives(mg.Failed),
		},
	}, arc, nil
}

func failedRun(src model.Source, err error) *model.ScraperRunResult {
	return &model.ScraperRunResult{
		Name:  string(src),
		Items: []model.MediaItem{},
		Media: model.MediaStats{
			URLs:            []string{},
			Failed:          []model.DownloadFailure{},
			ArchiveFailures: []model.ArchiveFailure{},
		},
		Error: err.Error(),
	}
}

// persist writes the result document, summary, archive and manifest.
func (p *Pipeline) persist(ctx context.Context, result *model.FinalResult, final *archive.Archive) error {
	ns := p.Namespace(result.RunID)

	doc, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal result")
	}
	summary, err := json.Marshal(summarize(result))
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal summary")
	}
	zipData, err := final.Bytes()
	if err != nil {
		return eris.Wrap(err, "pipeline: build archive")
	}
	manifest, err := BuildManifest(result)
	if err != nil {
		return err
	}

	records := []struct {
		key         string
		data        []byte
		contentType string
	}{
		{OutputKey, doc, "application/json"},
		{SummaryKey, summary, "application/json"},
		{result.ArchiveKey, zipData, "application/zip"},
		{ManifestKey(result.BrandName), manifest, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, r := range records {
		if err := p.store.PutRecord(ctx, ns, r.key, r.data, r.contentType); err != nil {
			return eris.Wrapf(err, "pipeline: persist %s", r.key)
		}
	}
	return nil
}

func summarize(result *model.FinalResult) Summary {
	s := Summary{
		RunID:                result.RunID,
		BrandName:            result.BrandName,
		TotalMediaDownloaded: result.TotalMediaDownloaded,
		SourcesUsed:          make(map[string]bool, len(Order)),
		ArchiveKey:           result.ArchiveKey,
	}
	for _, src := range Order {
		run, ok := result.Scrapers[string(src)]
		s.SourcesUsed[string(src)] = ok
		if ok {
			s.TotalMediaCount += len(run.Items)
		}
	}
	return s
}

func nonNilDownloads(f []model.DownloadFailure) []model.DownloadFailure {
	if f == nil {
		return []model.DownloadFailure{}
	}
	return f
}

func nonNilArchives(f []model.ArchiveFailure) []model.ArchiveFailure {
	if f == nil {
		return []model.ArchiveFailure{}
	}
	return f
}

// LoadResult reads the result document persisted under namespace. It
// returns nil when nothing has been stored yet.
func LoadResult(ctx context.Context, st store.Store, namespace string) (*model.FinalResult, error) {
	rec, err := st.GetRecord(ctx, namespace, OutputKey)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load result %s", namespace)
	}
	if rec == nil {
		return nil, nil
	}
	var result model.FinalResult
	if err := json.Unmarshal(rec.Data, &result); err != nil {
		return nil, eris.Wrapf(err, "pipeline: decode result %s", namespace)
	}
	return &result, nil
}
