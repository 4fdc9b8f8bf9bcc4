package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-media/pkg/apify"
)

// DefaultPageSize is the dataset page size used when none is configured.
const DefaultPageSize = 1000

// DatasetReader reads pages of job records.
type DatasetReader interface {
	ListItems(ctx context.Context, datasetID string, offset, limit int) (*apify.ItemPage, error)
}

// FetchAllRecords pages through a dataset until the reported total is
// reached or a page comes back empty. Without a reported total only an empty
// page ends the loop.
func FetchAllRecords(ctx context.Context, r DatasetReader, datasetID string, pageSize int) ([]json.RawMessage, error) {
	if datasetID == "" {
		return nil, nil
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var out []json.RawMessage
	offset := 0
	for {
		page, err := r.ListItems(ctx, datasetID, offset, pageSize)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: fetch records at offset %d", offset)
		}
		if page == nil || len(page.Items) == 0 {
			break
		}
		out = append(out, page.Items...)
		offset += len(page.Items)
		if page.Total != apify.TotalUnknown && offset >= page.Total {
			break
		}
	}
	return out, nil
}
