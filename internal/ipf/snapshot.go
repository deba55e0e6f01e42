// snapshot.go lists snapshots and resolves snapshot identifiers.
//
// Aliases follow IP Fabric's own conventions: $last is the newest loaded
// snapshot, $prev the one before it, $lastLocked the newest locked one.
// Only loaded snapshots can be queried, so unloaded ones never satisfy an
// alias.

package ipf

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Snapshot aliases understood by ResolveSnapshot.
const (
	AliasLast       = "$last"
	AliasPrev       = "$prev"
	AliasLastLocked = "$lastLocked"
)

// ErrUnknownSnapshot is returned when an identifier does not match any snapshot.
var ErrUnknownSnapshot = errors.New("unknown snapshot")

// Snapshot describes one point-in-time capture of the network.
type Snapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Note    string `json:"note,omitempty"`
	State   string `json:"state"`
	Status  string `json:"status,omitempty"`
	Locked  bool   `json:"locked"`
	Start   int64  `json:"tsStart"`
	End     int64  `json:"tsEnd"`
	Devices int    `json:"totalDevCount"`
	Sites   int    `json:"siteCount,omitempty"`
}

// Loaded reports whether the snapshot's data can be queried.
func (s Snapshot) Loaded() bool { return s.State == "loaded" }

// IsAlias reports whether id is one of the relative snapshot aliases.
func IsAlias(id string) bool {
	switch id {
	case AliasLast, AliasPrev, AliasLastLocked:
		return true
	}
	return false
}

// Snapshots returns all snapshots, newest first.
func (c *Client) Snapshots(ctx context.Context) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := c.do(ctx, "GET", "/snapshots", nil, &snaps); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sortSnapshots(snaps)
	return snaps, nil
}

// ResolveSnapshot maps an identifier or alias to a concrete snapshot.
func (c *Client) ResolveSnapshot(ctx context.Context, id string) (Snapshot, error) {
	snaps, err := c.Snapshots(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Resolve(snaps, id)
}

// DefaultSnapshot returns the snapshot new sessions start on ($last).
func (c *Client) DefaultSnapshot(ctx context.Context) (Snapshot, error) {
	return c.ResolveSnapshot(ctx, AliasLast)
}

// Resolve finds id in snaps. Exposed separately from ResolveSnapshot so a
// caller resolving several ids can list snapshots once.
func Resolve(snaps []Snapshot, id string) (Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Snapshot{}, fmt.Errorf("%w: empty identifier", ErrUnknownSnapshot)
	}

	sorted := make([]Snapshot, len(snaps))
	copy(sorted, snaps)
	sortSnapshots(sorted)

	var loaded []Snapshot
	for _, s := range sorted {
		if s.Loaded() {
			loaded = append(loaded, s)
		}
	}

	switch id {
	case AliasLast:
		if len(loaded) < 1 {
			return Snapshot{}, fmt.Errorf("%w: %s (no loaded snapshots)", ErrUnknownSnapshot, id)
		}
		return loaded[0], nil
	case AliasPrev:
		if len(loaded) < 2 {
			return Snapshot{}, fmt.Errorf("%w: %s (fewer than two loaded snapshots)", ErrUnknownSnapshot, id)
		}
		return loaded[1], nil
	case AliasLastLocked:
		for _, s := range loaded {
			if s.Locked {
				return s, nil
			}
		}
		return Snapshot{}, fmt.Errorf("%w: %s (no locked snapshots)", ErrUnknownSnapshot, id)
	}

	for _, s := range sorted {
		if s.ID == id {
			return s, nil
		}
	}
	return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSnapshot, id)
}

// sortSnapshots orders newest first by end time, falling back to start time
// for snapshots still being discovered.
func sortSnapshots(s []Snapshot) {
	sort.SliceStable(s, func(i, j int) bool {
		ti, tj := s[i].End, s[j].End
		if ti == 0 {
			ti = s[i].Start
		}
		if tj == 0 {
			tj = s[j].Start
		}
		return ti > tj
	})
}
