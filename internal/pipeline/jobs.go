package pipeline

import (
	"strings"

	"github.com/sells-group/brand-media/internal/config"
	"github.com/sells-group/brand-media/internal/model"
)

// Order is the fixed order in which sources run.
var Order = []model.Source{
	model.SourceInstagram,
	model.SourceFacebook,
	model.SourceTikTok,
	model.SourceGoogleMaps,
	model.SourceWebsite,
	model.SourceGoogleSearch,
}

// Job is one actor invocation for a source.
type Job struct {
	Source  model.Source
	ActorID string
	Input   map[string]any
}

// Jobs returns the jobs for every source that has input, in Order.
func Jobs(in model.BrandInput, cfg config.ApifyConfig) []Job {
	var jobs []Job
	for _, src := range Order {
		if job, ok := jobFor(src, in, cfg); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// jobFor builds the actor input for src, or reports false when the brand
// has no input for it.
func jobFor(src model.Source, in model.BrandInput, cfg config.ApifyConfig) (Job, bool) {
	lim := cfg.Limits
	switch src {
	case model.SourceInstagram:
		if in.Instagram == "" {
			return Job{}, false
		}
		return Job{Source: src, ActorID: cfg.Actors.Instagram, Input: map[string]any{
			"directUrls":     []string{in.Instagram},
			"resultsType":    "posts",
			"resultsLimit":   lim.InstagramPosts,
			"mediaTypes":     []string{"IMAGE", "VIDEO", "CAROUSEL_ALBUM"},
			"downloadImages": false,
			"downloadVideos": false,
		}}, true

	case model.SourceFacebook:
		if in.Facebook == "" {
			return Job{}, false
		}
		return Job{Source: src, ActorID: cfg.Actors.Facebook, Input: map[string]any{
			"startUrls":         []map[string]string{{"url": in.Facebook}},
			"maxPosts":          lim.FacebookPosts,
			"includePostImages": true,
			"includePostVideos": true,
		}}, true

	case model.SourceTikTok:
		if in.TikTok == "" {
			return Job{}, false
		}
		return Job{Source: src, ActorID: cfg.Actors.TikTok, Input: map[string]any{
			"startUrls":      []string{in.TikTok},
			"maxItems":       lim.TikTokVideos,
			"downloadVideos": false,
		}}, true

	case model.SourceGoogleMaps:
		if !in.LocationSearchEnabled() {
			return Job{}, false
		}
		input := map[string]any{
			"maxCrawledPlaces": lim.GoogleMapsPlaces,
			"includeReviews":   false,
			"includeImages":    true,
		}
		if in.GoogleMaps != "" {
			input["startUrls"] = []map[string]string{{"url": in.GoogleMaps}}
		} else {
			input["searchStringsArray"] = []string{in.LocationSearchString()}
			if loc := strings.TrimSpace(in.Location); loc != "" {
				input["locationQuery"] = loc
			}
		}
		return Job{Source: src, ActorID: cfg.Actors.GoogleMaps, Input: input}, true

	case model.SourceWebsite:
		if in.Website == "" {
			return Job{}, false
		}
		return Job{Source: src, ActorID: cfg.Actors.Website, Input: map[string]any{
			"startUrls":       []map[string]string{{"url": in.Website}},
			"maxCrawlDepth":   lim.WebsiteMaxDepth,
			"maxCrawlPages":   lim.WebsitePages,
			"saveScreenshots": false,
			"downloadMedia":   false,
		}}, true

	case model.SourceGoogleSearch:
		queries := keywordQueries(in)
		if len(queries) == 0 {
			return Job{}, false
		}
		return Job{Source: src, ActorID: cfg.Actors.GoogleSearch, Input: map[string]any{
			"queries":          strings.Join(queries, "\n"),
			"resultsPerPage":   lim.GoogleSearchResults,
			"maxPagesPerQuery": 1,
		}}, true
	}
	return Job{}, false
}

// keywordQueries prefixes each keyword with the brand name so results stay
// about the brand.
func keywordQueries(in model.BrandInput) []string {
	var out []string
	for _, kw := range in.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if in.BrandName != "" {
			kw = in.Brand() + " " + kw
		}
		out = append(out, kw)
	}
	return out
}
