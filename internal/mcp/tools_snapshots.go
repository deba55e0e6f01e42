// tools_snapshots.go implements the snapshot tools: listing snapshots and
// switching the session's active snapshot.

package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// getSnapshots handles ipf_get_snapshots tool calls.
func (h *handlers) getSnapshots(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snaps, err := h.client.Snapshots(ctx)

	log.Event(h.source+":ipf_get_snapshots", "list").Author(h.source).Rows(len(snaps)).Write(err)

	if err != nil {
		return h.failure(err, "Failed to list snapshots")
	}

	loaded := 0
	for _, s := range snaps {
		if s.Loaded() {
			loaded++
		}
	}
	return h.success(snaps, fmt.Sprintf("%d snapshots (%d loaded)", len(snaps), loaded))
}

// setSnapshotResult is the data returned by ipf_set_snapshot.
type setSnapshotResult struct {
	OldSnapshot string       `json:"old_snapshot"`
	NewSnapshot string       `json:"new_snapshot"`
	Snapshot    ipf.Snapshot `json:"snapshot"`
}

// setSnapshot handles ipf_set_snapshot tool calls. The identifier is
// resolved first, so aliases are pinned to the concrete snapshot they
// named at the time of the call and unknown ids leave the session as is.
func (h *handlers) setSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := getString(req, "snapshot_id", "")
	if id == "" {
		err := fmt.Errorf("%w: snapshot_id is required", ErrInvalidArgument)
		log.Event(h.source+":ipf_set_snapshot", "set").Author(h.source).Write(err)
		return h.failure(err, "Failed to set snapshot")
	}

	snap, err := h.client.ResolveSnapshot(ctx, id)
	if err == nil && !snap.Loaded() {
		err = fmt.Errorf("%w: %s is %s, only loaded snapshots can be queried", ipf.ErrUnknownSnapshot, snap.ID, snap.State)
	}

	l := log.Event(h.source+":ipf_set_snapshot", "set").Author(h.source).Snapshot(id).Resolved(snap.ID)
	if err != nil {
		l.Write(err)
		msg := fmt.Sprintf("Failed to set snapshot to %s", id)
		if errors.Is(err, ipf.ErrUnknownSnapshot) {
			msg += "; call ipf_get_snapshots for valid ids"
		}
		return h.failure(err, msg)
	}

	old := h.sess.Set(snap.ID)
	l.Detail("old", old).Write(nil)
	h.log.Info("active snapshot changed", zap.String("old", old), zap.String("new", snap.ID))

	return h.success(setSnapshotResult{
		OldSnapshot: old,
		NewSnapshot: snap.ID,
		Snapshot:    snap,
	}, fmt.Sprintf("Successfully changed snapshot from %s to %s", old, snap.ID))
}
