// routes.go is a fixed-shape comparison of routing tables: routes are
// identified by device, VRF and prefix, and only protocol, first next hop
// and lowest metric are compared.

package compare

import "fmt"

// RouteKeyFields identify a route across snapshots.
var RouteKeyFields = []string{"hostname", "vrf", "network"}

// Route projection field names.
const (
	RouteProtocol      = "protocol"
	RouteNextHopIP     = "next_hop_ip"
	RouteNextHopIntf   = "next_hop_interface"
	RouteMetric        = "metric"
	routeSourceMetric  = "nhLowestMetric"
	routeSourceNextHop = "nexthop"
)

// RouteColumns are the table columns RouteDiff needs.
var RouteColumns = []string{"hostname", "vrf", "network", "protocol", "nexthop", "nhLowestMetric"}

// RouteChange is one route whose compared fields differ.
type RouteChange struct {
	Route   string                 `json:"route"`
	Changes map[string]FieldChange `json:"changes"`
}

// RouteCounts summarises a route diff.
type RouteCounts struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
	RoutesA int `json:"routes_a"`
	RoutesB int `json:"routes_b"`
}

// RouteResult is the route diff from snapshot A to snapshot B. Added and
// Removed hold route keys ("hostname|vrf|network").
type RouteResult struct {
	SnapshotA string        `json:"snapshot_a_id"`
	SnapshotB string        `json:"snapshot_b_id"`
	Added     []string      `json:"added"`
	Removed   []string      `json:"removed"`
	Changed   []RouteChange `json:"changed"`
	Counts    RouteCounts   `json:"summary_counts"`
	Message   string        `json:"message"`
}

// RouteDiff compares two routing tables. snapA and snapB only label the result.
func RouteDiff(a, b []Record, snapA, snapB string) (RouteResult, error) {
	res, err := Diff(routeProjections(a), routeProjections(b), Options{
		KeyFields:     RouteKeyFields,
		ExcludeFields: []string{},
	})
	if err != nil {
		return RouteResult{}, fmt.Errorf("route diff: %w", err)
	}

	out := RouteResult{
		SnapshotA: snapA,
		SnapshotB: snapB,
		Added:     make([]string, 0, len(res.Added)),
		Removed:   make([]string, 0, len(res.Removed)),
		Changed:   make([]RouteChange, 0, len(res.Changed)),
	}
	for _, r := range res.Added {
		out.Added = append(out.Added, routeKey(r))
	}
	for _, r := range res.Removed {
		out.Removed = append(out.Removed, routeKey(r))
	}
	for _, c := range res.Changed {
		out.Changed = append(out.Changed, RouteChange{Route: c.Key, Changes: c.Changes})
	}
	out.Counts = RouteCounts{
		Added:   len(out.Added),
		Removed: len(out.Removed),
		Changed: len(out.Changed),
		RoutesA: len(a),
		RoutesB: len(b),
	}
	out.Message = fmt.Sprintf("Compared %d routes in %s with %d routes in %s: %d added, %d removed, %d changed",
		len(a), snapA, len(b), snapB, out.Counts.Added, out.Counts.Removed, out.Counts.Changed)
	return out, nil
}

// RouteProjection maps a routes table row to the compared fields.
func RouteProjection(r Record) Record {
	return Record{
		"hostname":       r["hostname"],
		"vrf":            r["vrf"],
		"network":        r["network"],
		RouteProtocol:    r["protocol"],
		RouteNextHopIP:   firstNextHop(r, "ip"),
		RouteNextHopIntf: firstNextHop(r, "intName"),
		RouteMetric:      r[routeSourceMetric],
	}
}

func routeProjections(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = RouteProjection(r)
	}
	return out
}

// firstNextHop returns field of the first entry in the nexthop list, or nil.
func firstNextHop(r Record, field string) any {
	hops, ok := r[routeSourceNextHop].([]any)
	if !ok || len(hops) == 0 {
		return nil
	}
	hop, ok := hops[0].(map[string]any)
	if !ok {
		return nil
	}
	return hop[field]
}

func routeKey(r Record) string {
	return displayValue(r["hostname"]) + "|" + displayValue(r["vrf"]) + "|" + displayValue(r["network"])
}
