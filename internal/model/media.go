package model

// Source identifies the platform a MediaItem was discovered on.
type Source string

const (
	SourceInstagram  Source = "instagram"
	SourceFacebook   Source = "facebook"
	SourceTikTok     Source = "tiktok"
	SourceGoogleMaps Source = "googleMaps"
	SourceWebsite    Source = "website"

	// SourceGoogleSearch runs a keyword search. It has no normalizer, so it
	// contributes downloaded media but no items.
	SourceGoogleSearch Source = "googleSearch"
)

// MediaType classifies a MediaItem.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaItem is the source-agnostic description of one discovered media asset.
// MediaURL is always non-empty; the other descriptive fields are nullable.
type MediaItem struct {
	Source   Source         `json:"source"`
	Type     MediaType      `json:"type"`
	MediaURL string         `json:"mediaUrl"`
	PostURL  *string        `json:"postUrl"`
	Caption  *string        `json:"caption"`
	TakenAt  *string        `json:"takenAt"`
	Extra    map[string]any `json:"extra"`
}
