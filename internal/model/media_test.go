package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaItem_NullableFieldsMarshalAsNull(t *testing.T) {
	t.Parallel()

	item := MediaItem{
		Source:   SourceWebsite,
		Type:     MediaTypeImage,
		MediaURL: "https://example.com/a.jpg",
		Extra:    map[string]any{"brandName": "Acme"},
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "website", got["source"])
	assert.Equal(t, "image", got["type"])
	assert.Contains(t, got, "postUrl")
	assert.Nil(t, got["postUrl"])
	assert.Nil(t, got["caption"])
	assert.Nil(t, got["takenAt"])
}

func TestFinalResult_Add(t *testing.T) {
	t.Parallel()

	r := NewFinalResult("run-1", "Acme", time.Now())
	r.Add(&ScraperRunResult{Name: "website", Media: MediaStats{Count: 3}})
	r.Add(&ScraperRunResult{Name: "instagram", Media: MediaStats{Count: 2}})

	assert.Equal(t, 5, r.TotalMediaDownloaded)
	assert.Len(t, r.Scrapers, 2)
	assert.Contains(t, r.Scrapers, "website")
}

func TestFinalResult_MarshalOmitsAbsentScrapers(t *testing.T) {
	t.Parallel()

	r := NewFinalResult("run-1", "Acme Cafe", time.Now())
	r.Add(&ScraperRunResult{Name: "website"})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got struct {
		Scrapers map[string]json.RawMessage `json:"scrapers"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got.Scrapers, "website")
	assert.NotContains(t, got.Scrapers, "instagram")
}

func TestBrandInput_Brand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultBrandName, BrandInput{}.Brand())
	assert.Equal(t, DefaultBrandName, BrandInput{BrandName: "   "}.Brand())
	assert.Equal(t, "Acme", BrandInput{BrandName: " Acme "}.Brand())
}

func TestBrandInput_LocationSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          BrandInput
		wantEnabled bool
		wantQuery   string
	}{
		{
			name:      "no location input",
			in:        BrandInput{BrandName: "Acme Cafe"},
			wantQuery: "Acme Cafe",
		},
		{
			name:        "location falls back to brand name",
			in:          BrandInput{BrandName: "Acme Cafe", Location: "Austin, TX"},
			wantEnabled: true,
			wantQuery:   "Acme Cafe",
		},
		{
			name:        "explicit query wins",
			in:          BrandInput{BrandName: "Acme Cafe", LocationQuery: "acme coffee downtown"},
			wantEnabled: true,
			wantQuery:   "acme coffee downtown",
		},
		{
			name:        "maps url",
			in:          BrandInput{GoogleMaps: "https://maps.google.com/?cid=1"},
			wantEnabled: true,
			wantQuery:   DefaultBrandName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantEnabled, tt.in.LocationSearchEnabled())
			assert.Equal(t, tt.wantQuery, tt.in.LocationSearchString())
		})
	}
}
