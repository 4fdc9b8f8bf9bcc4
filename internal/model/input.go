package model

import "strings"

// DefaultBrandName is used when a run is started without a brand name.
const DefaultBrandName = "Unknown brand"

// BrandInput describes which platforms to collect media from for a brand.
// Empty fields disable the corresponding scraper.
type BrandInput struct {
	BrandName     string   `json:"brandName" yaml:"brand_name" validate:"max=200"`
	Instagram     string   `json:"instagram,omitempty" yaml:"instagram" validate:"omitempty,url"`
	Facebook      string   `json:"facebook,omitempty" yaml:"facebook" validate:"omitempty,url"`
	TikTok        string   `json:"tiktok,omitempty" yaml:"tiktok" validate:"omitempty,url"`
	GoogleMaps    string   `json:"googleMaps,omitempty" yaml:"google_maps" validate:"omitempty,url"`
	Location      string   `json:"location,omitempty" yaml:"location"`
	LocationQuery string   `json:"locationQuery,omitempty" yaml:"location_query"`
	Website       string   `json:"website,omitempty" yaml:"website" validate:"omitempty,url"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords" validate:"dive,required"`

	// MaxMediaPerSource overrides the configured per-source download cap when > 0.
	MaxMediaPerSource int `json:"maxMediaPerSource,omitempty" yaml:"max_media_per_source" validate:"gte=0"`
}

// Brand returns the trimmed brand name, or DefaultBrandName when unset.
func (b BrandInput) Brand() string {
	if name := strings.TrimSpace(b.BrandName); name != "" {
		return name
	}
	return DefaultBrandName
}

// LocationSearchEnabled reports whether the location search scraper has input.
func (b BrandInput) LocationSearchEnabled() bool {
	return b.GoogleMaps != "" || b.Location != "" || b.LocationQuery != ""
}

// LocationSearchString returns the search string for the location scraper,
// falling back to the brand name when no explicit query was given.
func (b BrandInput) LocationSearchString() string {
	if q := strings.TrimSpace(b.LocationQuery); q != "" {
		return q
	}
	return b.Brand()
}
