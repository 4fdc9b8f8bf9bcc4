package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"extension in url wins", "https://x.com/a.png?w=1", "image/jpeg", ".png"},
		{"uppercase url extension", "https://x.com/A.JPEG", "", ".jpeg"},
		{"content type", "https://x.com/media/123", "image/webp", ".webp"},
		{"content type with params", "https://x.com/media/123", "video/mp4; codecs=\"avc1\"", ".mp4"},
		{"content type case", "https://x.com/media/123", "Image/PNG", ".png"},
		{"hls playlist", "https://x.com/live", "application/vnd.apple.mpegurl", ".m3u8"},
		{"unknown content type", "https://x.com/media/123", "application/octet-stream", ".bin"},
		{"malformed content type", "https://x.com/media/123", "image/gif;;", ".gif"},
		{"nothing", "https://x.com/media/123", "", ".bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionFor(tt.url, tt.contentType))
		})
	}
}

func TestMetricLabel(t *testing.T) {
	assert.Equal(t, "website", metricLabel("website"))
	assert.Equal(t, "website", metricLabel("/website/archives/"))
}
