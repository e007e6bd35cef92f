package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, handling pagination.
// Rate limiting is enforced by the Client (3 req/s by default).
// The next page is prefetched in a goroutine while the current one is
// appended.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page

	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	type prefetchResult struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}
	var prefetchCh <-chan prefetchResult

	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "notion: query all")
		}

		var resp *notionapi.DatabaseQueryResponse
		var err error

		if prefetchCh != nil {
			result := <-prefetchCh
			resp, err = result.resp, result.err
		} else {
			resp, err = c.QueryDatabase(ctx, dbID, req)
		}

		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}

		nextReq := &notionapi.DatabaseQueryRequest{
			StartCursor: resp.NextCursor,
		}
		if filter != nil {
			nextReq.Filter = filter.Filter
			nextReq.Sorts = filter.Sorts
			nextReq.PageSize = filter.PageSize
		}

		ch := make(chan prefetchResult, 1)
		prefetchCh = ch
		go func() {
			r, e := c.QueryDatabase(ctx, dbID, nextReq)
			ch <- prefetchResult{resp: r, err: e}
		}()
	}

	return all, nil
}

// ExistingLeads maps organizer keys already present in the lead database to
// their page IDs. Pages without a key are ignored.
func ExistingLeads(ctx context.Context, c Client, dbID string) (map[string]string, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notion: existing leads")
	}
	out := make(map[string]string, len(pages))
	for _, p := range pages {
		if key := organizerKey(p); key != "" {
			out[key] = string(p.ID)
		}
	}
	return out, nil
}

func organizerKey(p notionapi.Page) string {
	prop, ok := p.Properties[PropOrganizerKey]
	if !ok {
		return ""
	}
	if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
		return plainText(rtp.RichText)
	}
	return ""
}

func plainText(rt []notionapi.RichText) string {
	var s string
	for _, r := range rt {
		if r.PlainText != "" {
			s += r.PlainText
		} else if r.Text != nil {
			s += r.Text.Content
		}
	}
	return s
}
