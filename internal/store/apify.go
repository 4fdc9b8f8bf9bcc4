package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-media/internal/model"
	"github.com/sells-group/brand-media/pkg/apify"
)

// ApifyStore implements Store on Apify key-value stores. The namespace is
// the key-value store id.
type ApifyStore struct {
	client apify.Client
}

// NewApify wraps an Apify client as a Store.
func NewApify(client apify.Client) *ApifyStore {
	return &ApifyStore{client: client}
}

// Migrate is a no-op; key-value stores are created by the platform.
func (s *ApifyStore) Migrate(context.Context) error { return nil }

func (s *ApifyStore) Close() error { return nil }

func (s *ApifyStore) PutRecord(ctx context.Context, namespace, key string, data []byte, contentType string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	return s.client.PutRecord(ctx, namespace, key, data, contentType)
}

func (s *ApifyStore) GetRecord(ctx context.Context, namespace, key string) (*model.BlobRecord, error) {
	rec, err := s.client.GetRecord(ctx, namespace, key)
	if apify.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.BlobRecord{Key: rec.Key, ContentType: rec.ContentType, Data: rec.Data}, nil
}

func (s *ApifyStore) ListKeys(ctx context.Context, namespace, exclusiveStartKey string) (*model.KeyPage, error) {
	list, err := s.client.ListKeys(ctx, namespace, exclusiveStartKey, DefaultPageSize)
	if err != nil {
		return nil, eris.Wrapf(err, "store: list apify keys %s", namespace)
	}
	page := &model.KeyPage{
		Keys:        make([]string, 0, len(list.Items)),
		IsTruncated: list.IsTruncated,
	}
	for _, it := range list.Items {
		page.Keys = append(page.Keys, it.Key)
	}
	if list.IsTruncated {
		page.NextKey = list.NextExclusiveStartKey
	}
	return page, nil
}
