package download

import (
	"mime"
	"strings"

	"github.com/sells-group/brand-media/internal/extract"
)

// fallbackExtension is used when neither the URL nor the content type
// identify the media format.
const fallbackExtension = ".bin"

var contentTypeExtensions = map[string]string{
	"image/jpeg":                    ".jpg",
	"image/jpg":                     ".jpg",
	"image/pjpeg":                   ".jpg",
	"image/png":                     ".png",
	"image/gif":                     ".gif",
	"image/webp":                    ".webp",
	"image/bmp":                     ".bmp",
	"image/svg+xml":                 ".svg",
	"image/tiff":                    ".tiff",
	"image/heic":                    ".heic",
	"image/heif":                    ".heif",
	"image/avif":                    ".avif",
	"video/mp4":                     ".mp4",
	"video/quicktime":               ".mov",
	"video/webm":                    ".webm",
	"video/x-matroska":              ".mkv",
	"video/x-msvideo":               ".avi",
	"video/x-flv":                   ".flv",
	"video/3gpp":                    ".3gp",
	"video/mpeg":                    ".mpeg",
	"application/vnd.apple.mpegurl": ".m3u8",
	"application/x-mpegurl":         ".m3u8",
	"application/dash+xml":          ".mpd",
	"audio/mpeg":                    ".mp3",
	"audio/mp4":                     ".m4a",
	"audio/aac":                     ".aac",
	"audio/wav":                     ".wav",
	"audio/x-wav":                   ".wav",
	"audio/ogg":                     ".ogg",
	"audio/opus":                    ".opus",
	"audio/flac":                    ".flac",
}

// ExtensionFor picks the archive file extension for a downloaded URL: a
// media extension mentioned in the URL, else the content type's mapping,
// else ".bin".
func ExtensionFor(rawURL, contentType string) string {
	if ext := extract.ExtensionIn(rawURL); ext != "" {
		return ext
	}
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
		}
		if ext, ok := contentTypeExtensions[strings.ToLower(mt)]; ok {
			return ext
		}
	}
	return fallbackExtension
}
