// pair.go picks the two snapshots a comparison runs between.

package compare

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpl-au/ipfa/internal/ipf"
)

// ErrSameSnapshot is returned when both identifiers resolve to one capture.
var ErrSameSnapshot = errors.New("cannot compare a snapshot with itself")

// SnapshotLister lists snapshots. *ipf.Client implements it.
type SnapshotLister interface {
	Snapshots(ctx context.Context) ([]ipf.Snapshot, error)
}

// Pair is a resolved comparison: Target is the snapshot being inspected and
// Baseline the one it is compared against.
type Pair struct {
	Target   ipf.Snapshot
	Baseline ipf.Snapshot
}

// ResolvePair resolves target and baseline identifiers. When baseline is
// empty, $prev is used, or $last when $prev is the target itself.
func ResolvePair(ctx context.Context, l SnapshotLister, target, baseline string) (Pair, error) {
	snaps, err := l.Snapshots(ctx)
	if err != nil {
		return Pair{}, err
	}

	t, err := ipf.Resolve(snaps, target)
	if err != nil {
		return Pair{}, fmt.Errorf("snapshot_id: %w", err)
	}

	if baseline == "" {
		b, err := ipf.Resolve(snaps, ipf.AliasPrev)
		if err != nil || b.ID == t.ID {
			b, err = ipf.Resolve(snaps, ipf.AliasLast)
			if err != nil {
				return Pair{}, fmt.Errorf("compare_to: %w", err)
			}
		}
		if b.ID == t.ID {
			return Pair{}, fmt.Errorf("%w: %s is the only loaded snapshot", ErrSameSnapshot, t.ID)
		}
		return Pair{Target: t, Baseline: b}, nil
	}

	b, err := ipf.Resolve(snaps, baseline)
	if err != nil {
		return Pair{}, fmt.Errorf("compare_to: %w", err)
	}
	if b.ID == t.ID {
		return Pair{}, fmt.Errorf("%w: %q and %q both resolve to %s", ErrSameSnapshot, target, baseline, t.ID)
	}
	return Pair{Target: t, Baseline: b}, nil
}
