package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/brand-media/internal/model"
	"github.com/sells-group/brand-media/pkg/apify"
)

// --- JobRunner Mock ---

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunActor(ctx context.Context, actorID string, input any) (*apify.Run, error) {
	args := m.Called(ctx, actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apify.Run), args.Error(1)
}

// --- DatasetReader Mock ---

type mockDatasets struct {
	mock.Mock
}

func (m *mockDatasets) ListItems(ctx context.Context, datasetID string, offset, limit int) (*apify.ItemPage, error) {
	args := m.Called(ctx, datasetID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apify.ItemPage), args.Error(1)
}

// --- BlobSource Mock ---

type mockBlobs struct {
	mock.Mock
}

func (m *mockBlobs) ListKeys(ctx context.Context, storeID, exclusiveStartKey string) (*model.KeyPage, error) {
	args := m.Called(ctx, storeID, exclusiveStartKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.KeyPage), args.Error(1)
}

func (m *mockBlobs) GetRecord(ctx context.Context, storeID, key string) (*model.BlobRecord, error) {
	args := m.Called(ctx, storeID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlobRecord), args.Error(1)
}
