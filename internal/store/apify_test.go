package store

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-media/pkg/apify"
)

// memApify is an in-memory apify.Client key-value store.
type memApify struct {
	apify.Client
	mu      sync.Mutex
	records map[string]map[string]apify.Record
	limit   int
}

func newMemApify() *memApify {
	return &memApify{records: map[string]map[string]apify.Record{}}
}

func (m *memApify) PutRecord(_ context.Context, storeID, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[storeID] == nil {
		m.records[storeID] = map[string]apify.Record{}
	}
	m.records[storeID][key] = apify.Record{Key: key, ContentType: contentType, Data: data}
	return nil
}

func (m *memApify) GetRecord(_ context.Context, storeID, key string) (*apify.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[storeID][key]
	if !ok {
		return nil, &apify.APIError{StatusCode: http.StatusNotFound, Body: "record-not-found"}
	}
	return &rec, nil
}

func (m *memApify) ListKeys(_ context.Context, storeID, start string, limit int) (*apify.KeyList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 {
		limit = m.limit
	}
	var keys []string
	for k := range m.records[storeID] {
		if k > start {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	list := &apify.KeyList{Limit: limit, ExclusiveStartKey: start}
	for i, k := range keys {
		if i == limit {
			list.IsTruncated = true
			break
		}
		list.Items = append(list.Items, apify.KeyItem{Key: k})
		list.NextExclusiveStartKey = k
	}
	list.Count = len(list.Items)
	return list, nil
}

func TestApify_Store(t *testing.T) {
	exerciseStore(t, NewApify(newMemApify()))
}

func TestApify_ListKeys_Truncated(t *testing.T) {
	mem := newMemApify()
	mem.limit = 1
	st := NewApify(mem)
	ctx := context.Background()

	require.NoError(t, st.PutRecord(ctx, "kv", "a.zip", []byte("1"), ""))
	require.NoError(t, st.PutRecord(ctx, "kv", "b.zip", []byte("2"), ""))

	page, err := st.ListKeys(ctx, "kv", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.zip"}, page.Keys)
	assert.True(t, page.IsTruncated)
	assert.Equal(t, "a.zip", page.NextKey)

	page, err = st.ListKeys(ctx, "kv", page.NextKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.zip"}, page.Keys)
	assert.False(t, page.IsTruncated)
	assert.Empty(t, page.NextKey)
}

func TestApify_MigrateAndClose(t *testing.T) {
	st := NewApify(newMemApify())
	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, st.Close())
}
