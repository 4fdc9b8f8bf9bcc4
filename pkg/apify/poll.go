package apify

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 30 * time.Minute
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// PollRun polls GetRun until the run reaches a terminal status or the
// context expires. Uses exponential backoff: 2s -> 4s -> 8s -> 15s (capped).
// Only SUCCEEDED returns without error.
func PollRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("apify: poll run %s", runID))
		}

		if run.Terminal() {
			if run.Status != StatusSucceeded {
				return run, eris.Errorf("apify: run %s finished with status %s", runID, run.Status)
			}
			return run, nil
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("apify: poll run %s timed out", runID))
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

// Runner starts actors and waits for them to finish.
type Runner struct {
	client Client
	opts   []PollOption
}

// NewRunner creates a Runner that polls with opts.
func NewRunner(client Client, opts ...PollOption) *Runner {
	return &Runner{client: client, opts: opts}
}

// RunActor starts actorID with input and blocks until the run succeeds.
func (r *Runner) RunActor(ctx context.Context, actorID string, input any) (*Run, error) {
	run, err := r.client.StartRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	zap.L().Info("apify: actor run started",
		zap.String("actor", actorID),
		zap.String("run_id", run.ID),
	)
	if run.Status == StatusSucceeded {
		return run, nil
	}
	return PollRun(ctx, r.client, run.ID, r.opts...)
}

// ListItems fetches one page of dataset items.
func (r *Runner) ListItems(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
	return r.client.ListItems(ctx, datasetID, offset, limit)
}
