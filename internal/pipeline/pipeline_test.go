package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-media/internal/archive"
	"github.com/sells-group/brand-media/internal/config"
	"github.com/sells-group/brand-media/internal/download"
	"github.com/sells-group/brand-media/internal/merge"
	"github.com/sells-group/brand-media/internal/metrics"
	"github.com/sells-group/brand-media/internal/model"
	"github.com/sells-group/brand-media/internal/store"
	"github.com/sells-group/brand-media/pkg/apify"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	p        *Pipeline
	cfg      *config.Config
	runner   *mockRunner
	datasets *mockDatasets
	blobs    *mockBlobs
	store    *store.SQLiteStore
	media    *httptest.Server
	reg      *prometheus.Registry
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Apify.PageSize = 100
	cfg.Apify.Actors = config.ActorsConfig{
		Instagram:    "apify/instagram-scraper",
		Facebook:     "apify/facebook-posts-scraper",
		TikTok:       "clockworks/tiktok-scraper",
		GoogleMaps:   "compass/crawler-google-places",
		Website:      "apify/website-content-crawler",
		GoogleSearch: "apify/google-search-scraper",
	}
	cfg.Apify.Limits = config.LimitsConfig{
		InstagramPosts:      100,
		FacebookPosts:       100,
		TikTokVideos:        100,
		GoogleMapsPlaces:    1,
		WebsiteMaxDepth:     2,
		WebsitePages:        50,
		GoogleSearchResults: 20,
	}
	return cfg
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("image:" + r.URL.Path)) //nolint:errcheck
	})
	mux.HandleFunc("/video/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("video:" + r.URL.Path)) //nolint:errcheck
	})
	mux.HandleFunc("/missing/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	media := httptest.NewServer(mux)
	t.Cleanup(media.Close)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := &harness{
		cfg:      cfg,
		runner:   &mockRunner{},
		datasets: &mockDatasets{},
		blobs:    &mockBlobs{},
		store:    st,
		media:    media,
		reg:      reg,
	}
	h.p = New(cfg, h.runner, h.datasets, h.blobs,
		download.New(download.Options{Concurrency: 2}, download.WithMetrics(m)),
		merge.New(0, merge.WithMetrics(m)),
		st,
		WithMetrics(m),
		WithClock(func() time.Time { return testTime }),
	)
	return h
}

func raw(t *testing.T, docs ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		require.True(t, json.Valid([]byte(d)), d)
		out[i] = json.RawMessage(d)
	}
	return out
}

// expectJob wires a successful actor run returning records and an empty blob store.
func (h *harness) expectJob(t *testing.T, actor, runID string, records []json.RawMessage) {
	t.Helper()
	ds, kv := "ds-"+runID, "kv-"+runID
	h.runner.On("RunActor", mock.Anything, actor, mock.Anything).
		Return(&apify.Run{ID: runID, Status: apify.StatusSucceeded, DefaultDatasetID: ds, DefaultKeyValueStoreID: kv}, nil).Once()
	h.datasets.On("ListItems", mock.Anything, ds, 0, 100).
		Return(&apify.ItemPage{Items: records, Total: len(records), Count: len(records), Limit: 100}, nil).Once()
	h.blobs.On("ListKeys", mock.Anything, kv, "").
		Return(&model.KeyPage{Keys: []string{}}, nil).Maybe()
}

func TestRun_WebsiteOnly(t *testing.T) {
	h := newHarness(t, nil)
	site := `{"url":"https://acme.example/","title":"Acme","images":["` + h.media.URL + `/img/hero.jpg"],"ogImage":"` + h.media.URL + `/img/og.png"}`
	h.expectJob(t, "apify/website-content-crawler", "w1", raw(t, site))

	result, err := h.p.RunWithID(context.Background(), "run-1", model.BrandInput{
		BrandName: "Acme Cafe",
		Website:   "https://acme.example/",
	})
	require.NoError(t, err)

	require.Len(t, result.Scrapers, 1)
	web := result.Scrapers["website"]
	require.NotNil(t, web)
	assert.Equal(t, "w1", web.JobID)
	assert.Equal(t, "ds-w1", web.RecordsHandle)
	assert.Equal(t, "kv-w1", web.BlobsHandle)
	assert.Equal(t, 1, web.ItemCount)
	require.Len(t, web.Items, 2)
	assert.Equal(t, "og:image", web.Items[1].Extra["kind"])
	assert.Equal(t, 2, web.Media.Count)
	assert.Empty(t, web.Media.Failed)
	assert.Equal(t, 2, result.TotalMediaDownloaded)
	assert.Equal(t, "acme-cafe_full_media.zip", result.ArchiveKey)

	// Absent sources are missing from the document, not null.
	doc, err := json.Marshal(result)
	require.NoError(t, err)
	var decoded struct {
		Scrapers map[string]json.RawMessage `json:"scrapers"`
	}
	require.NoError(t, json.Unmarshal(doc, &decoded))
	assert.Contains(t, decoded.Scrapers, "website")
	assert.NotContains(t, decoded.Scrapers, "instagram")

	h.runner.AssertExpectations(t)
	h.datasets.AssertExpectations(t)
}

func TestRun_PersistsOutputs(t *testing.T) {
	h := newHarness(t, nil)
	site := `{"url":"https://acme.example/","images":["` + h.media.URL + `/img/a.jpg"]}`
	h.expectJob(t, "apify/website-content-crawler", "w1", raw(t, site))

	_, err := h.p.RunWithID(context.Background(), "run-7", model.BrandInput{BrandName: "Acme Café!!", Website: "https://acme.example/"})
	require.NoError(t, err)

	ctx := context.Background()
	page, err := h.store.ListKeys(ctx, "run-7", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"OUTPUT", "RESULT", "acme-cafe_full_media.zip", "acme-cafe_media_items.xlsx"}, page.Keys)

	loaded, err := LoadResult(ctx, h.store, "run-7")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Acme Café!!", loaded.BrandName)
	assert.Equal(t, 1, loaded.TotalMediaDownloaded)

	zipRec, err := h.store.GetRecord(ctx, "run-7", "acme-cafe_full_media.zip")
	require.NoError(t, err)
	require.NotNil(t, zipRec)
	assert.Equal(t, "application/zip", zipRec.ContentType)
	arc, err := archive.ReadZip(zipRec.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{"website/00001.jpg"}, arc.Paths())

	sumRec, err := h.store.GetRecord(ctx, "run-7", SummaryKey)
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, json.Unmarshal(sumRec.Data, &summary))
	assert.True(t, summary.SourcesUsed["website"])
	assert.False(t, summary.SourcesUsed["instagram"])
	assert.Equal(t, 1, summary.TotalMediaCount)
}

func TestRun_InstagramItemsAndFailures(t *testing.T) {
	h := newHarness(t, nil)
	post := `{
		"url": "https://www.instagram.com/p/abc/",
		"caption": "New menu",
		"takenAt": "2026-02-01T10:00:00Z",
		"shortcode": "abc",
		"displayResources": [{"src": "` + h.media.URL + `/img/1.jpg"}, {"src": "` + h.media.URL + `/missing/2.jpg"}],
		"videoUrl": "` + h.media.URL + `/video/3.mp4"
	}`
	h.expectJob(t, "apify/instagram-scraper", "i1", raw(t, post))

	result, err := h.p.RunWithID(context.Background(), "run-2", model.BrandInput{
		BrandName: "Acme",
		Instagram: "https://www.instagram.com/acme/",
	})
	require.NoError(t, err)

	ig := result.Scrapers["instagram"]
	require.NotNil(t, ig)
	require.Len(t, ig.Items, 3)
	for _, it := range ig.Items {
		assert.Equal(t, "https://www.instagram.com/p/abc/", *it.PostURL)
		assert.Equal(t, "New menu", *it.Caption)
	}
	assert.Equal(t, 2, ig.Media.Count)
	require.Len(t, ig.Media.Failed, 1)
	assert.Equal(t, h.media.URL+"/missing/2.jpg", ig.Media.Failed[0].URL)
	assert.Contains(t, ig.Media.Failed[0].Reason, "404")

	rec, err := h.store.GetRecord(context.Background(), "run-2", "acme_full_media.zip")
	require.NoError(t, err)
	arc, err := archive.ReadZip(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{"instagram/00001.jpg", "instagram/00003.mp4"}, arc.Paths())
}

func TestRun_SourceOrderAndMergedArchives(t *testing.T) {
	h := newHarness(t, nil)

	var calls []string
	record := func(args mock.Arguments) { calls = append(calls, args.String(1)) }

	for _, tc := range []struct{ actor, id, doc string }{
		{"apify/instagram-scraper", "i", `{"displayResources":[{"src":"` + h.media.URL + `/img/i.jpg"}]}`},
		{"clockworks/tiktok-scraper", "t", `{"coverImageUrl":"` + h.media.URL + `/img/t.jpg"}`},
		{"apify/website-content-crawler", "w", `{"images":["` + h.media.URL + `/img/w.jpg"]}`},
	} {
		ds, kv := "ds-"+tc.id, "kv-"+tc.id
		h.runner.On("RunActor", mock.Anything, tc.actor, mock.Anything).Run(record).
			Return(&apify.Run{ID: tc.id, DefaultDatasetID: ds, DefaultKeyValueStoreID: kv}, nil).Once()
		h.datasets.On("ListItems", mock.Anything, ds, 0, 100).
			Return(&apify.ItemPage{Items: raw(t, tc.doc), Total: 1}, nil).Once()
	}

	blob := archive.New()
	blob.Add("prior/1.jpg", []byte("prior"))
	blobBytes, err := blob.Bytes()
	require.NoError(t, err)

	h.blobs.On("ListKeys", mock.Anything, "kv-i", "").Return(&model.KeyPage{Keys: []string{}}, nil)
	h.blobs.On("ListKeys", mock.Anything, "kv-t", "").Return(&model.KeyPage{Keys: []string{"old.zip", "INPUT"}}, nil)
	h.blobs.On("GetRecord", mock.Anything, "kv-t", "old.zip").Return(&model.BlobRecord{Key: "old.zip", Data: blobBytes}, nil)
	h.blobs.On("ListKeys", mock.Anything, "kv-w", "").Return(nil, errors.New("forbidden"))

	result, err := h.p.RunWithID(context.Background(), "run-3", model.BrandInput{
		BrandName: "Acme",
		Website:   "https://acme.example/",
		TikTok:    "https://www.tiktok.com/@acme",
		Instagram: "https://www.instagram.com/acme/",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"apify/instagram-scraper", "clockworks/tiktok-scraper", "apify/website-content-crawler"}, calls)
	assert.Equal(t, 1, result.Scrapers["tiktok"].Media.MergedArchives)
	assert.Equal(t, 0, result.Scrapers["website"].Media.MergedArchives)
	assert.NotNil(t, result.Scrapers["website"].Media.ArchiveFailures)
	assert.Equal(t, 3, result.TotalMediaDownloaded)

	rec, err := h.store.GetRecord(context.Background(), "run-3", "acme_full_media.zip")
	require.NoError(t, err)
	arc, err := archive.ReadZip(rec.Data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"instagram/00001.jpg",
		"tiktok/00001.jpg",
		"tiktok/archives/old.zip",
		"website/00001.jpg",
	}, arc.Paths())
}

func TestRun_JobFailurePropagates(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.On("RunActor", mock.Anything, "apify/instagram-scraper", mock.Anything).
		Return(nil, errors.New("apify: run finished with status FAILED"))

	_, err := h.p.RunWithID(context.Background(), "run-4", model.BrandInput{
		Instagram: "https://www.instagram.com/acme/",
		Website:   "https://acme.example/",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source instagram")

	// Nothing persisted and no later source started.
	page, err := h.store.ListKeys(context.Background(), "run-4", "")
	require.NoError(t, err)
	assert.Empty(t, page.Keys)
	h.runner.AssertNumberOfCalls(t, "RunActor", 1)

	n, err := testutil.GatherAndCount(h.reg, "brand_media_source_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_IsolatedJobFailure(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Pipeline.IsolateJobFailures = true })
	h.runner.On("RunActor", mock.Anything, "apify/instagram-scraper", mock.Anything).
		Return(nil, errors.New("quota exceeded"))
	h.expectJob(t, "apify/website-content-crawler", "w1", raw(t, `{"images":["`+h.media.URL+`/img/a.jpg"]}`))

	result, err := h.p.RunWithID(context.Background(), "run-5", model.BrandInput{
		Instagram: "https://www.instagram.com/acme/",
		Website:   "https://acme.example/",
	})
	require.NoError(t, err)

	ig := result.Scrapers["instagram"]
	require.NotNil(t, ig)
	assert.Contains(t, ig.Error, "quota exceeded")
	assert.Empty(t, ig.Items)
	assert.Equal(t, 0, ig.Media.Count)
	assert.Equal(t, 1, result.Scrapers["website"].Media.Count)
	assert.Equal(t, 1, result.TotalMediaDownloaded)
	assert.Equal(t, model.DefaultBrandName, result.BrandName)
}

func TestRun_MaxMediaPerSource(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Pipeline.MaxMediaPerSource = 5 })
	doc := `{"images":["` + h.media.URL + `/img/1.jpg","` + h.media.URL + `/img/2.jpg","` + h.media.URL + `/img/3.jpg"]}`
	h.expectJob(t, "apify/website-content-crawler", "w1", raw(t, doc))

	result, err := h.p.RunWithID(context.Background(), "run-6", model.BrandInput{
		Website:           "https://acme.example/",
		MaxMediaPerSource: 2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Scrapers["website"].Media.URLs, 2)
	assert.Equal(t, 2, result.Scrapers["website"].Media.Count)
}

func TestRun_NoInput(t *testing.T) {
	h := newHarness(t, nil)

	result, err := h.p.RunWithID(context.Background(), "run-8", model.BrandInput{BrandName: "Empty"})
	require.NoError(t, err)
	assert.Empty(t, result.Scrapers)
	assert.Equal(t, 0, result.TotalMediaDownloaded)
	h.runner.AssertNotCalled(t, "RunActor", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_GeneratesRunID(t *testing.T) {
	h := newHarness(t, nil)
	result, err := h.p.Run(context.Background(), model.BrandInput{})
	require.NoError(t, err)
	assert.Len(t, result.RunID, 36)
}

func TestNamespace(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, "run-1", h.p.Namespace("run-1"))

	h = newHarness(t, func(c *config.Config) { c.Store.Namespace = "default" })
	assert.Equal(t, "default", h.p.Namespace("run-1"))
}

func TestLoadResult_Missing(t *testing.T) {
	h := newHarness(t, nil)
	res, err := LoadResult(context.Background(), h.store, "nope")
	require.NoError(t, err)
	assert.Nil(t, res)
}
