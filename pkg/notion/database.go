package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// maxPageSize is the largest page size the Notion query API accepts.
const maxPageSize = 100

// QueryPageIDs returns the ids of pages in dbID matching filter (nil for all
// pages), in database order. A limit of zero or less returns every page;
// otherwise at most limit ids are returned and pagination stops as soon as
// enough have been collected.
func QueryPageIDs(ctx context.Context, c Client, dbID string, filter notionapi.Filter, limit int) ([]string, error) {
	req := &notionapi.DatabaseQueryRequest{Filter: filter, PageSize: maxPageSize}
	if limit > 0 && limit < maxPageSize {
		req.PageSize = limit
	}

	var ids []string
	err := paginate(ctx, c, dbID, req, func(pages []notionapi.Page) bool {
		for _, p := range pages {
			ids = append(ids, string(p.ID))
			if limit > 0 && len(ids) >= limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: query page ids")
	}
	return ids, nil
}

// paginate walks the query results, calling visit with each batch until
// visit returns false or the results are exhausted.
func paginate(ctx context.Context, c Client, dbID string, base *notionapi.DatabaseQueryRequest, visit func([]notionapi.Page) bool) error {
	var cursor notionapi.Cursor
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "notion: paginate")
		}

		req := &notionapi.DatabaseQueryRequest{
			Filter:      base.Filter,
			Sorts:       base.Sorts,
			PageSize:    base.PageSize,
			StartCursor: cursor,
		}
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return eris.Wrap(err, "notion: query page")
		}
		if !visit(resp.Results) || !resp.HasMore {
			return nil
		}
		cursor = resp.NextCursor
	}
}
