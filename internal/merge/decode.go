package merge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"
)

// nodeBuffer is the JSON form of a serialized Node.js Buffer.
type nodeBuffer struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBlob turns a stored value into archive bytes. It accepts raw zip
// bytes, a JSON Buffer object, a JSON string holding base64, or bare base64
// text. Anything else is kept as raw binary.
func decodeBlob(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, eris.New("empty value")
	}
	if isZip(data) {
		return data, nil
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		return decodeBuffer(trimmed)
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, eris.Wrap(err, "decode quoted value")
		}
		out, ok := decodeBase64(s)
		if !ok {
			return nil, eris.New("quoted value is not base64")
		}
		return out, nil
	}

	if out, ok := decodeBase64(string(trimmed)); ok {
		return out, nil
	}
	return data, nil
}

func decodeBuffer(data []byte) ([]byte, error) {
	var buf nodeBuffer
	if err := json.Unmarshal(data, &buf); err != nil {
		return nil, eris.Wrap(err, "decode buffer object")
	}
	if buf.Type != "Buffer" {
		return nil, eris.Errorf("unsupported object value of type %q", buf.Type)
	}
	out := make([]byte, len(buf.Data))
	for i, b := range buf.Data {
		if b < 0 || b > 255 {
			return nil, eris.Errorf("buffer byte %d out of range: %d", i, b)
		}
		out[i] = byte(b)
	}
	if len(out) == 0 {
		return nil, eris.New("empty buffer")
	}
	return out, nil
}

func decodeBase64(s string) ([]byte, bool) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, false
	}
	for _, enc := range base64Encodings {
		if out, err := enc.DecodeString(s); err == nil && len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

// isZip also matches zip based formats such as jar or docx.
func isZip(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
