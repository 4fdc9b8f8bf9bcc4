package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMediaURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://cdn.example.com/a.jpg", true},
		{"http://cdn.example.com/clip.MP4?sig=1", true},
		{"HTTPS://CDN.EXAMPLE.COM/A.PNG", true},
		{"https://cdn.example.com/track.mp3", true},
		{"https://cdn.example.com/stream.m3u8", true},
		{"https://cdn.example.com/raw.h264", true},
		{"https://example.com/about", false},
		{"ftp://example.com/a.jpg", false},
		{"/relative/a.jpg", false},
		{"a.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMediaURL(tt.in))
		})
	}
}

func TestExtensionIn_LongestMatchFirst(t *testing.T) {
	assert.Equal(t, ".avif", ExtensionIn("https://x.com/a.avif"))
	assert.Equal(t, ".avi", ExtensionIn("https://x.com/a.avi"))
	assert.Equal(t, ".tiff", ExtensionIn("https://x.com/a.TIFF"))
	assert.Equal(t, ".jpeg", ExtensionIn("https://x.com/a.jpeg"))
	assert.Equal(t, "", ExtensionIn("https://x.com/page"))
}

func TestExtensions_ReturnsCopy(t *testing.T) {
	exts := Extensions()
	require.NotEmpty(t, exts)
	exts[0] = "mutated"
	assert.NotEqual(t, "mutated", Extensions()[0])
	for _, e := range Extensions() {
		assert.True(t, strings.HasPrefix(e, "."), e)
		assert.Equal(t, strings.ToLower(e), e)
	}
}

func TestMediaURLs_WalksNestedValues(t *testing.T) {
	v, err := Parse([]byte(`{
		"url": "https://www.instagram.com/p/abc/",
		"displayUrl": "https://cdn.example.com/1.jpg",
		"likes": 12,
		"verified": true,
		"owner": null,
		"children": [
			{"src": "https://cdn.example.com/2.webp", "w": 1080},
			{"src": "https://cdn.example.com/1.jpg"},
			["https://cdn.example.com/v.mp4", "not a url.jpg"]
		],
		"nested": {"deeper": {"deepest": "http://cdn.example.com/s.mp3"}}
	}`))
	require.NoError(t, err)

	got := MediaURLs(v)
	assert.Equal(t, []string{
		"https://cdn.example.com/1.jpg",
		"https://cdn.example.com/2.webp",
		"https://cdn.example.com/v.mp4",
		"http://cdn.example.com/s.mp3",
	}, got)
}

func TestMediaURLs_OnlyMatchingStrings(t *testing.T) {
	v := Array{
		Number("42"),
		Bool(true),
		Null{},
		String("https://example.com/index.html"),
		String("https://example.com/photo.gif"),
	}
	assert.Equal(t, []string{"https://example.com/photo.gif"}, MediaURLs(v))
	assert.Empty(t, MediaURLs(String("plain")))
}

func TestMediaURLs_DepthBounded(t *testing.T) {
	var v Value = String("https://example.com/deep.jpg")
	for i := 0; i < MaxDepth+5; i++ {
		v = Array{v}
	}
	assert.Empty(t, MediaURLs(v))

	var shallow Value = String("https://example.com/shallow.jpg")
	for i := 0; i < 3; i++ {
		shallow = Object{Fields: []Field{{Key: "k", Value: shallow}}}
	}
	assert.Equal(t, []string{"https://example.com/shallow.jpg"}, MediaURLs(shallow))
}

func TestMediaURLsIn_DedupesAcrossRecords(t *testing.T) {
	records := []Value{
		Object{Fields: []Field{{Key: "a", Value: String("https://x.com/1.png")}}},
		Object{Fields: []Field{{Key: "b", Value: String("https://x.com/1.png")}}},
		Object{Fields: []Field{{Key: "c", Value: String("https://x.com/2.png")}}},
	}
	assert.Equal(t, []string{"https://x.com/1.png", "https://x.com/2.png"}, MediaURLsIn(records))
	assert.Nil(t, MediaURLsIn(nil))
}
