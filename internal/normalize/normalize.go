// Package normalize maps raw per-platform scraper records onto the common
// MediaItem shape.
package normalize

import (
	"github.com/sells-group/brand-media/internal/extract"
	"github.com/sells-group/brand-media/internal/model"
)

// Adapter converts one raw record into zero or more media items.
type Adapter func(brandName string, record extract.Value) []model.MediaItem

var adapters = map[model.Source]Adapter{
	model.SourceInstagram:  Instagram,
	model.SourceFacebook:   Facebook,
	model.SourceTikTok:     TikTok,
	model.SourceGoogleMaps: GoogleMaps,
	model.SourceWebsite:    Website,
}

// For returns the adapter registered for source.
func For(source model.Source) (Adapter, bool) {
	a, ok := adapters[source]
	return a, ok
}

// Normalize runs the source's adapter over every record. Sources without an
// adapter produce no items.
func Normalize(source model.Source, brandName string, records []extract.Value) []model.MediaItem {
	adapter, ok := For(source)
	if !ok {
		return nil
	}
	var items []model.MediaItem
	for _, r := range records {
		items = append(items, adapter(brandName, r)...)
	}
	return items
}

// Instagram emits one image per display resource and one video for videoUrl.
func Instagram(brandName string, record extract.Value) []model.MediaItem {
	post := decodeInstagram(record)
	extra := func() map[string]any {
		return withOptional(map[string]any{"brandName": brandName}, "shortcode", post.ShortCode)
	}

	var items []model.MediaItem
	for _, src := range post.DisplayResources {
		items = appendItem(items, model.SourceInstagram, model.MediaTypeImage, src, post.URL, post.Caption, post.TakenAt, extra())
	}
	items = appendItem(items, model.SourceInstagram, model.MediaTypeVideo, post.VideoURL, post.URL, post.Caption, post.TakenAt, extra())
	return items
}

// Facebook emits one image per imageUrls entry and one video for videoUrl.
func Facebook(brandName string, record extract.Value) []model.MediaItem {
	post := decodeFacebook(record)
	extra := func() map[string]any {
		return withOptional(map[string]any{"brandName": brandName}, "id", post.ID)
	}

	var items []model.MediaItem
	for _, u := range post.ImageURLs {
		items = appendItem(items, model.SourceFacebook, model.MediaTypeImage, u, post.PostURL, post.Message, post.CreatedTime, extra())
	}
	items = appendItem(items, model.SourceFacebook, model.MediaTypeVideo, post.VideoURL, post.PostURL, post.Message, post.CreatedTime, extra())
	return items
}

// TikTok emits the cover image and the web video. The post URL prefers
// shareUrl over webVideoUrl.
func TikTok(brandName string, record extract.Value) []model.MediaItem {
	post := decodeTikTok(record)
	postURL := post.ShareURL
	if postURL == nil {
		postURL = post.WebVideoURL
	}
	extra := func() map[string]any {
		return withOptional(map[string]any{"brandName": brandName}, "id", post.ID)
	}

	var items []model.MediaItem
	items = appendItem(items, model.SourceTikTok, model.MediaTypeImage, post.CoverImageURL, postURL, post.Text, post.CreateTime, extra())
	items = appendItem(items, model.SourceTikTok, model.MediaTypeVideo, post.WebVideoURL, postURL, post.Text, post.CreateTime, extra())
	return items
}

// GoogleMaps emits one image per photo with a url. Place photos are undated.
func GoogleMaps(brandName string, record extract.Value) []model.MediaItem {
	place := decodeGoogleMaps(record)

	var items []model.MediaItem
	for _, u := range place.Photos {
		extra := withOptional(map[string]any{"brandName": brandName}, "placeId", place.PlaceID)
		items = appendItem(items, model.SourceGoogleMaps, model.MediaTypeImage, u, place.PlaceURL, place.Title, nil, extra)
	}
	return items
}

// Website emits one image per images entry plus the og:image, tagged with
// kind=og:image.
func Website(brandName string, record extract.Value) []model.MediaItem {
	page := decodeWebsite(record)

	var items []model.MediaItem
	for _, u := range page.Images {
		items = appendItem(items, model.SourceWebsite, model.MediaTypeImage, u, page.URL, page.Title, nil,
			map[string]any{"brandName": brandName})
	}
	items = appendItem(items, model.SourceWebsite, model.MediaTypeImage, page.OGImage, page.URL, page.Title, nil,
		map[string]any{"brandName": brandName, "kind": "og:image"})
	return items
}

// appendItem adds an item unless mediaURL is missing.
func appendItem(items []model.MediaItem, source model.Source, typ model.MediaType, mediaURL, postURL, caption, takenAt *string, extra map[string]any) []model.MediaItem {
	if mediaURL == nil || *mediaURL == "" {
		return items
	}
	return append(items, model.MediaItem{
		Source:   source,
		Type:     typ,
		MediaURL: *mediaURL,
		PostURL:  postURL,
		Caption:  caption,
		TakenAt:  takenAt,
		Extra:    extra,
	})
}

func withOptional(m map[string]any, key string, val *string) map[string]any {
	if val != nil {
		m[key] = *val
	}
	return m
}
