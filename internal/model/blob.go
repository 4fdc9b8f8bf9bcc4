package model

// BlobRecord is a single value read from a key/value blob store.
type BlobRecord struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// KeyPage is one page of a blob store key listing. NextKey is the
// continuation token; it is empty when the listing is exhausted.
type KeyPage struct {
	Keys        []string `json:"keys"`
	NextKey     string   `json:"nextExclusiveStartKey,omitempty"`
	IsTruncated bool     `json:"isTruncated"`
}
