package normalize

import "github.com/sells-group/brand-media/internal/extract"

// Each record type lists the fields an adapter reads from one platform's
// scraper output. Every field is optional: nil means absent or empty.

type instagramPost struct {
	URL              *string
	Caption          *string
	TakenAt          *string
	ShortCode        *string
	VideoURL         *string
	DisplayResources []*string
}

type facebookPost struct {
	ID          *string
	PostURL     *string
	Message     *string
	CreatedTime *string
	VideoURL    *string
	ImageURLs   []*string
}

type tiktokPost struct {
	ID            *string
	Text          *string
	CreateTime    *string
	ShareURL      *string
	WebVideoURL   *string
	CoverImageURL *string
}

type googleMapsPlace struct {
	PlaceID  *string
	Title    *string
	PlaceURL *string
	Photos   []*string
}

type websitePage struct {
	URL     *string
	Title   *string
	OGImage *string
	Images  []*string
}

func decodeInstagram(v extract.Value) instagramPost {
	f := fieldsOf(v)
	post := instagramPost{
		URL:       f.str("url"),
		Caption:   f.str("caption"),
		TakenAt:   f.str("takenAt"),
		ShortCode: f.str("shortcode"),
		VideoURL:  f.str("videoUrl"),
	}
	for _, res := range f.list("displayResources") {
		post.DisplayResources = append(post.DisplayResources, fieldsOf(res).str("src"))
	}
	return post
}

func decodeFacebook(v extract.Value) facebookPost {
	f := fieldsOf(v)
	return facebookPost{
		ID:          f.str("id"),
		PostURL:     f.str("postUrl"),
		Message:     f.str("message"),
		CreatedTime: f.str("createdTime"),
		VideoURL:    f.str("videoUrl"),
		ImageURLs:   f.strs("imageUrls"),
	}
}

func decodeTikTok(v extract.Value) tiktokPost {
	f := fieldsOf(v)
	return tiktokPost{
		ID:            f.str("id"),
		Text:          f.str("text"),
		CreateTime:    f.str("createTime"),
		ShareURL:      f.str("shareUrl"),
		WebVideoURL:   f.str("webVideoUrl"),
		CoverImageURL: f.str("coverImageUrl"),
	}
}

func decodeGoogleMaps(v extract.Value) googleMapsPlace {
	f := fieldsOf(v)
	place := googleMapsPlace{
		PlaceID:  f.str("placeId"),
		Title:    f.first("title", "name"),
		PlaceURL: f.first("gmapsUrl", "url"),
	}
	for _, p := range f.list("photos") {
		place.Photos = append(place.Photos, fieldsOf(p).str("url"))
	}
	return place
}

func decodeWebsite(v extract.Value) websitePage {
	f := fieldsOf(v)
	return websitePage{
		URL:     f.str("url"),
		Title:   f.str("title"),
		OGImage: f.str("ogImage"),
		Images:  f.strs("images"),
	}
}
