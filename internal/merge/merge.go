// Package merge copies archive blobs that a job left in its blob store into
// the run's output archive.
package merge

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/archive"
	"github.com/sells-group/brand-media/internal/metrics"
	"github.com/sells-group/brand-media/internal/model"
)

// DefaultMaxPages bounds key listing when a store keeps returning tokens.
const DefaultMaxPages = 1000

const archiveSuffix = ".zip"

// BlobSource is a paginated key/value blob store.
type BlobSource interface {
	ListKeys(ctx context.Context, storeID, exclusiveStartKey string) (*model.KeyPage, error)
	// GetRecord returns nil and no error when the key does not exist.
	GetRecord(ctx context.Context, storeID, key string) (*model.BlobRecord, error)
}

// Result summarizes one Merge call.
type Result struct {
	Count  int
	Failed []model.ArchiveFailure
}

// Option customizes a Merger.
type Option func(*Merger)

// WithMetrics records merge outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mg *Merger) {
		mg.metrics = m
	}
}

// Merger merges archive blobs into an archive.
type Merger struct {
	maxPages int
	metrics  *metrics.Metrics
}

// New creates a Merger. maxPages <= 0 uses DefaultMaxPages.
func New(maxPages int, opts ...Option) *Merger {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	m := &Merger{maxPages: maxPages}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsArchiveKey reports whether key names an archive blob.
func IsArchiveKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), archiveSuffix)
}

// Merge adds every archive blob in storeID to dst under {folder}/{key}.
// A failure to list the store yields an empty result; a failure on one key
// is recorded and the rest are still merged.
func (m *Merger) Merge(ctx context.Context, src BlobSource, storeID, folder string, dst *archive.Archive) Result {
	res := Result{Failed: []model.ArchiveFailure{}}
	if src == nil || storeID == "" {
		return res
	}
	label := sourceLabel(folder)

	keys, err := m.listKeys(ctx, src, storeID)
	if err != nil {
		zap.L().Warn("merge: list blob store failed",
			zap.String("store_id", storeID),
			zap.Error(err),
		)
		return res
	}

	for _, key := range keys {
		if !IsArchiveKey(key) {
			continue
		}
		var data []byte
		reason := "key is not a plain file name"
		if safeKey(key) {
			data, reason = m.fetch(ctx, src, storeID, key)
		}
		if reason != "" {
			res.Failed = append(res.Failed, model.ArchiveFailure{Key: key, Reason: reason})
			m.metrics.Merge(label, metrics.OutcomeFailure)
			zap.L().Debug("merge: archive blob skipped",
				zap.String("store_id", storeID),
				zap.String("key", key),
				zap.String("reason", reason),
			)
			continue
		}
		dst.Add(path.Join(folder, key), data)
		res.Count++
		m.metrics.Merge(label, metrics.OutcomeSuccess)
	}

	zap.L().Info("merge: archives merged",
		zap.String("store_id", storeID),
		zap.String("folder", folder),
		zap.Int("count", res.Count),
		zap.Int("failed", len(res.Failed)),
	)
	return res
}

// listKeys pages through the store until no continuation token is returned.
// A repeated token or the page cap also stops the loop.
func (m *Merger) listKeys(ctx context.Context, src BlobSource, storeID string) ([]string, error) {
	var keys []string
	seen := make(map[string]bool)
	token := ""
	for page := 0; ; page++ {
		if page >= m.maxPages {
			zap.L().Warn("merge: page limit reached",
				zap.String("store_id", storeID),
				zap.Int("max_pages", m.maxPages),
			)
			break
		}
		kp, err := src.ListKeys(ctx, storeID, token)
		if err != nil {
			return nil, err
		}
		if kp == nil {
			break
		}
		keys = append(keys, kp.Keys...)

		if kp.NextKey == "" || seen[kp.NextKey] {
			break
		}
		seen[kp.NextKey] = true
		token = kp.NextKey
	}
	return keys, nil
}

func (m *Merger) fetch(ctx context.Context, src BlobSource, storeID, key string) ([]byte, string) {
	rec, err := src.GetRecord(ctx, storeID, key)
	if err != nil {
		return nil, err.Error()
	}
	if rec == nil {
		return nil, "record not found"
	}
	data, err := decodeBlob(rec.Data)
	if err != nil {
		return nil, err.Error()
	}
	return data, ""
}

// safeKey reports whether key can be joined under an archive folder without
// leaving it.
func safeKey(key string) bool {
	return key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}

func sourceLabel(folder string) string {
	folder = strings.Trim(folder, "/")
	if i := strings.IndexByte(folder, '/'); i >= 0 {
		return folder[:i]
	}
	return folder
}
