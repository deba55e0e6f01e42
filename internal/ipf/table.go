// table.go reads rows from IP Fabric technology and inventory tables.
//
// Tables are paginated server-side. The first page reports the total row
// count, after which the remaining pages are requested concurrently and
// stitched back together in order. A limit caps the total rows returned.

package ipf

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// PageSize is the number of rows requested per page.
const PageSize = 1000

// maxParallelPages bounds concurrent page requests against one instance.
const maxParallelPages = 4

// Record is one table row. Values are whatever the API returned: strings,
// float64 numbers, booleans, nil, nested maps and lists.
type Record = map[string]any

// Filters is the IP Fabric filter object, e.g. {"vendor": ["eq", "cisco"]}.
type Filters = map[string]any

// Query describes a table read.
type Query struct {
	Columns  []string // required by the API; catalog supplies defaults
	Filters  Filters
	Snapshot string // concrete id or alias
	Limit    int    // 0 means all rows
}

// ParseFilters decodes a filter object written as JSON text, as typed on a
// command line. Empty text yields nil.
func ParseFilters(text string) (Filters, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var f Filters
	if err := json.Unmarshal([]byte(text), &f); err != nil {
		return nil, fmt.Errorf("filters must be a JSON object: %w", err)
	}
	return f, nil
}

type tableRequest struct {
	Columns    []string   `json:"columns"`
	Filters    Filters    `json:"filters"`
	Snapshot   string     `json:"snapshot"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	Limit int `json:"limit"`
	Start int `json:"start"`
}

type tableResponse struct {
	Data []Record `json:"data"`
	Meta struct {
		Count int `json:"count"`
		Size  int `json:"size"`
	} `json:"_meta"`
}

// Fetch returns all rows of the table at endpoint matching q. Endpoint is
// the path below /tables, e.g. "inventory/devices".
func (c *Client) Fetch(ctx context.Context, endpoint string, q Query) ([]Record, error) {
	if len(q.Columns) == 0 {
		return nil, fmt.Errorf("fetch %s: at least one column is required", endpoint)
	}
	if q.Snapshot == "" {
		return nil, fmt.Errorf("fetch %s: snapshot is required", endpoint)
	}
	if q.Filters == nil {
		q.Filters = Filters{}
	}
	path := "/tables/" + strings.Trim(endpoint, "/")

	first := pageSize(q.Limit, 0)
	page, err := c.page(ctx, path, q, 0, first)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	total := page.Meta.Count
	if q.Limit > 0 && q.Limit < total {
		total = q.Limit
	}
	if len(page.Data) >= total || len(page.Data) < first {
		return trim(page.Data, q.Limit), nil
	}

	// Remaining pages, fetched concurrently into fixed slots to keep order.
	var starts []int
	for start := len(page.Data); start < total; start += PageSize {
		starts = append(starts, start)
	}
	pages := make([][]Record, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPages)
	for i, start := range starts {
		size := PageSize
		if start+size > total {
			size = total - start
		}
		g.Go(func() error {
			p, err := c.page(gctx, path, q, start, size)
			if err != nil {
				return err
			}
			pages[i] = p.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	rows := page.Data
	for _, p := range pages {
		rows = append(rows, p...)
	}
	return trim(rows, q.Limit), nil
}

func (c *Client) page(ctx context.Context, path string, q Query, start, limit int) (tableResponse, error) {
	var resp tableResponse
	err := c.do(ctx, "POST", path, tableRequest{
		Columns:    q.Columns,
		Filters:    q.Filters,
		Snapshot:   q.Snapshot,
		Pagination: pagination{Limit: limit, Start: start},
	}, &resp)
	return resp, err
}

func pageSize(limit, start int) int {
	if limit > 0 && limit-start < PageSize {
		return limit - start
	}
	return PageSize
}

func trim(rows []Record, limit int) []Record {
	if rows == nil {
		rows = []Record{}
	}
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
