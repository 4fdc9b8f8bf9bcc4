package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/config"
	"github.com/sells-group/brand-media/internal/download"
	"github.com/sells-group/brand-media/internal/merge"
	"github.com/sells-group/brand-media/internal/metrics"
	"github.com/sells-group/brand-media/internal/pipeline"
	"github.com/sells-group/brand-media/internal/store"
	"github.com/sells-group/brand-media/pkg/apify"
)

// pipelineEnv holds the store, clients and pipeline needed by the run and
// serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Registry *prometheus.Registry
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates c for mode, opens and migrates the store, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config, mode string) (*pipelineEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := newApifyClient(c)
	var pollOpts []apify.PollOption
	if c.Apify.PollIntervalSecs > 0 {
		pollOpts = append(pollOpts, apify.WithPollInterval(time.Duration(c.Apify.PollIntervalSecs)*time.Second))
	}
	if c.Apify.PollTimeoutSecs > 0 {
		pollOpts = append(pollOpts, apify.WithPollTimeout(time.Duration(c.Apify.PollTimeoutSecs)*time.Second))
	}
	runner := apify.NewRunner(client, pollOpts...)
	dl := download.New(download.Options{
		Concurrency:   c.Download.Concurrency,
		Timeout:       time.Duration(c.Download.TimeoutSecs) * time.Second,
		RatePerSecond: c.Download.RatePerSecond,
		MaxBytes:      c.Download.MaxBytes,
		UserAgent:     c.Download.UserAgent,
	}, download.WithMetrics(m))
	merger := merge.New(c.Merge.MaxPages, merge.WithMetrics(m))

	p := pipeline.New(c, runner, runner, store.NewApify(client), dl, merger, st, pipeline.WithMetrics(m))

	zap.L().Info("pipeline ready",
		zap.String("store", c.Store.Driver),
		zap.Int("download_concurrency", c.Download.Concurrency),
		zap.Bool("isolate_job_failures", c.Pipeline.IsolateJobFailures),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Registry: reg,
	}, nil
}
