// Package download fetches media URLs into an archive, recording a failure
// per URL instead of aborting the batch.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/brand-media/internal/archive"
	"github.com/sells-group/brand-media/internal/metrics"
	"github.com/sells-group/brand-media/internal/model"
)

// Options configures the Downloader.
type Options struct {
	Concurrency   int
	Timeout       time.Duration
	RatePerSecond float64 // per host; 0 disables limiting
	MaxBytes      int64
	UserAgent     string
}

// Option customizes a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Downloader) {
		d.client = hc
	}
}

// WithMetrics records download outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Downloader) {
		d.metrics = m
	}
}

// Result summarizes one Download call.
type Result struct {
	Entries []string
	Count   int
	Failed  []model.DownloadFailure
}

// Downloader fetches media over HTTP.
type Downloader struct {
	client  *http.Client
	opts    Options
	metrics *metrics.Metrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Downloader, filling unset options with defaults.
func New(opts Options, optFns ...Option) *Downloader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 200 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "brand-media/1.0"
	}
	d := &Downloader{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, fn := range optFns {
		fn(d)
	}
	return d
}

type outcome struct {
	data   []byte
	ext    string
	reason string
}

// Download fetches every URL and writes successes into dst as
// {folder}/{index}{ext}, where index is the 1-based, zero-padded position in
// urls. Failed URLs leave a gap in the numbering. Every URL yields exactly
// one entry or one failure.
func (d *Downloader) Download(ctx context.Context, urls []string, folder string, dst *archive.Archive) Result {
	log := zap.L().With(zap.String("folder", folder))
	outcomes := make([]outcome, len(urls))

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			outcomes[i] = d.fetch(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	label := metricLabel(folder)
	var res Result
	for i, o := range outcomes {
		if o.reason != "" {
			log.Warn("download: media fetch failed",
				zap.String("url", urls[i]),
				zap.String("reason", o.reason),
			)
			res.Failed = append(res.Failed, model.DownloadFailure{URL: urls[i], Reason: o.reason})
			d.metrics.Download(label, metrics.OutcomeFailure, 0)
			continue
		}
		name := EntryName(folder, i, o.ext)
		dst.Add(name, o.data)
		res.Entries = append(res.Entries, name)
		res.Count++
		d.metrics.Download(label, metrics.OutcomeSuccess, len(o.data))
	}

	log.Info("download: batch complete",
		zap.Int("requested", len(urls)),
		zap.Int("downloaded", res.Count),
		zap.Int("failed", len(res.Failed)),
	)
	return res
}

// EntryName returns the archive path for the URL at zero-based index i.
func EntryName(folder string, i int, ext string) string {
	return fmt.Sprintf("%s/%05d%s", strings.TrimSuffix(folder, "/"), i+1, ext)
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) outcome {
	if err := d.wait(ctx, rawURL); err != nil {
		return outcome{reason: "rate limiter wait: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return outcome{reason: "create request: " + err.Error()}
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return outcome{reason: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return outcome{reason: fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.opts.MaxBytes+1))
	if err != nil {
		return outcome{reason: "read body: " + err.Error()}
	}
	if int64(len(data)) > d.opts.MaxBytes {
		return outcome{reason: fmt.Sprintf("response exceeds %d bytes", d.opts.MaxBytes)}
	}

	return outcome{data: data, ext: ExtensionFor(rawURL, resp.Header.Get("Content-Type"))}
}

func (d *Downloader) wait(ctx context.Context, rawURL string) error {
	if d.opts.RatePerSecond <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	d.mu.Lock()
	lim, ok := d.limiters[u.Host]
	if !ok {
		burst := int(d.opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(d.opts.RatePerSecond), burst)
		d.limiters[u.Host] = lim
	}
	d.mu.Unlock()

	return lim.Wait(ctx)
}

func metricLabel(folder string) string {
	folder = strings.Trim(folder, "/")
	if i := strings.IndexByte(folder, '/'); i >= 0 {
		return folder[:i]
	}
	return folder
}
