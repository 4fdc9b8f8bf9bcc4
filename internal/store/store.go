// Package store persists run outputs as namespaced key/value records.
package store

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-media/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFTP      = "ftp"
	DriverApify    = "apify"
)

// DefaultPageSize is the number of keys returned per ListKeys call.
const DefaultPageSize = 1000

// Store defines the persistence interface for run outputs. Namespaces group
// the records of one run; keys are unique within a namespace.
type Store interface {
	PutRecord(ctx context.Context, namespace, key string, data []byte, contentType string) error
	// GetRecord returns nil and no error when the key does not exist.
	GetRecord(ctx context.Context, namespace, key string) (*model.BlobRecord, error)
	// ListKeys returns keys in ascending order strictly after exclusiveStartKey.
	ListKeys(ctx context.Context, namespace, exclusiveStartKey string) (*model.KeyPage, error)

	Migrate(ctx context.Context) error
	Close() error
}

func validateKey(namespace, key string) error {
	if namespace == "" {
		return eris.New("store: empty namespace")
	}
	if key == "" {
		return eris.New("store: empty key")
	}
	return nil
}

// pageOf builds a KeyPage from keys sorted ascending, where one key past
// limit signals truncation.
func pageOf(keys []string, limit int) *model.KeyPage {
	page := &model.KeyPage{Keys: keys}
	if len(keys) > limit {
		page.Keys = keys[:limit]
		page.IsTruncated = true
		page.NextKey = page.Keys[limit-1]
	}
	if page.Keys == nil {
		page.Keys = []string{}
	}
	return page
}

// pageAfter pages an unsorted in-memory key set.
func pageAfter(keys []string, exclusiveStartKey string, limit int) *model.KeyPage {
	sort.Strings(keys)
	start := sort.SearchStrings(keys, exclusiveStartKey)
	for start < len(keys) && keys[start] == exclusiveStartKey {
		start++
	}
	end := start + limit + 1
	if end > len(keys) {
		end = len(keys)
	}
	return pageOf(append([]string(nil), keys[start:end]...), limit)
}
