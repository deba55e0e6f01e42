// report.go wraps a table diff with the snapshots and counts it came from,
// and fetches both sides of a comparison.

package compare

import (
	"context"
	"fmt"

	"github.com/jpl-au/ipfa/internal/ipf"
	"golang.org/x/sync/errgroup"
)

// Counts summarises a table diff.
type Counts struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Changed  int `json:"changed"`
	RecordsA int `json:"records_a"`
	RecordsB int `json:"records_b"`
}

// TableReport is the diff of one table from snapshot A (the baseline) to
// snapshot B (the target).
type TableReport struct {
	Table     string `json:"table"`
	SnapshotA string `json:"snapshot_a_id"`
	SnapshotB string `json:"snapshot_b_id"`
	Result
	Counts  Counts `json:"summary_counts"`
	Message string `json:"message"`
}

// Report builds the report for res, computed over a and b.
func Report(table string, p Pair, a, b []Record, res Result) TableReport {
	r := TableReport{
		Table:     table,
		SnapshotA: p.Baseline.ID,
		SnapshotB: p.Target.ID,
		Result:    res,
		Counts: Counts{
			Added:    len(res.Added),
			Removed:  len(res.Removed),
			Changed:  len(res.Changed),
			RecordsA: len(a),
			RecordsB: len(b),
		},
	}
	r.Message = fmt.Sprintf("Compared %d %s records in %s with %d in %s: %d added, %d removed, %d changed",
		len(a), table, r.SnapshotA, len(b), r.SnapshotB, r.Counts.Added, r.Counts.Removed, r.Counts.Changed)
	return r
}

// Fetcher reads table rows. *ipf.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, q ipf.Query) ([]ipf.Record, error)
}

// FetchPair reads endpoint from the baseline and target snapshots of p
// concurrently. q.Snapshot is ignored. The first failure cancels the other
// request.
func FetchPair(ctx context.Context, f Fetcher, endpoint string, q ipf.Query, p Pair) (baseline, target []Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bq := q
		bq.Snapshot = p.Baseline.ID
		rows, err := f.Fetch(gctx, endpoint, bq)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", p.Baseline.ID, err)
		}
		baseline = rows
		return nil
	})
	g.Go(func() error {
		tq := q
		tq.Snapshot = p.Target.ID
		rows, err := f.Fetch(gctx, endpoint, tq)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", p.Target.ID, err)
		}
		target = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return baseline, target, nil
}

// Columns returns the columns a comparison must request: requested (or
// defaults when empty) plus any key and include fields not already listed.
func Columns(requested, defaults []string, opts Options) []string {
	base := requested
	if len(base) == 0 {
		base = defaults
	}
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(opts.KeyFields)+len(opts.IncludeFields))
	for _, group := range [][]string{base, opts.KeyFields, opts.IncludeFields} {
		for _, c := range group {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
