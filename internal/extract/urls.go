package extract

import (
	"sort"
	"strings"
)

// MaxDepth bounds container nesting. Parse rejects deeper documents, so
// MediaURLs walks every value Parse can return.
const MaxDepth = 512

var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg", ".tif", ".tiff",
	".heic", ".heif", ".avif",
}

var videoExtensions = []string{
	".mp4", ".m4v", ".mov", ".avi", ".mkv", ".webm", ".flv", ".wmv", ".3gp",
	".mpg", ".mpeg", ".m3u8", ".mpd",
}

var audioExtensions = []string{
	".mp3", ".m4a", ".aac", ".wav", ".ogg", ".oga", ".opus", ".flac", ".wma",
}

var codecExtensions = []string{
	".h264", ".h265", ".hevc", ".vp9", ".av1",
}

// mediaExtensions is the allow-list, longest first so that ".avif" wins over
// ".avi" and ".tiff" over ".tif".
var mediaExtensions = func() []string {
	var all []string
	for _, group := range [][]string{imageExtensions, videoExtensions, audioExtensions, codecExtensions} {
		all = append(all, group...)
	}
	sort.SliceStable(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })
	return all
}()

// Extensions returns a copy of the media extension allow-list.
func Extensions() []string {
	out := make([]string, len(mediaExtensions))
	copy(out, mediaExtensions)
	return out
}

// ExtensionIn returns the first allow-listed extension contained in s
// (case-insensitive), or "" when there is none.
func ExtensionIn(s string) string {
	lower := strings.ToLower(s)
	for _, ext := range mediaExtensions {
		if strings.Contains(lower, ext) {
			return ext
		}
	}
	return ""
}

// IsMediaURL reports whether s is an http(s) URL that mentions a media
// file extension.
func IsMediaURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	return ExtensionIn(lower) != ""
}

// MediaURLs returns every distinct media URL found anywhere in v, in the
// order first encountered. Non-string leaves are ignored.
func MediaURLs(v Value) []string {
	w := &urlWalker{seen: make(map[string]struct{})}
	w.walk(v, 0)
	return w.urls
}

// MediaURLsIn runs MediaURLs over a list of records, de-duplicating across
// all of them.
func MediaURLsIn(records []Value) []string {
	w := &urlWalker{seen: make(map[string]struct{})}
	for _, r := range records {
		w.walk(r, 0)
	}
	return w.urls
}

type urlWalker struct {
	seen map[string]struct{}
	urls []string
}

func (w *urlWalker) walk(v Value, depth int) {
	if depth > MaxDepth {
		return
	}
	switch t := v.(type) {
	case String:
		s := string(t)
		if !IsMediaURL(s) {
			return
		}
		if _, ok := w.seen[s]; ok {
			return
		}
		w.seen[s] = struct{}{}
		w.urls = append(w.urls, s)
	case Array:
		for _, e := range t {
			w.walk(e, depth+1)
		}
	case Object:
		for _, f := range t.Fields {
			w.walk(f.Value, depth+1)
		}
	}
}
