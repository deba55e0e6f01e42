// Package compare computes the difference between two captures of the same
// table. Records are matched by a composite key; records present on one
// side only are added or removed, and matched records whose comparable
// fields differ are reported with a per-field from/to pair.
//
// Values are compared by their canonical JSON form, so map field order never
// matters and 10 (int) equals 10.0 (float64). List order does matter, except
// for lists of objects that had nested fields stripped: those are sorted
// before comparison since the stripped field usually was the ordering.
package compare

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Record is one table row.
type Record = map[string]any

// DefaultExclude is excluded from comparison when Options.ExcludeFields is
// nil. IP Fabric assigns a fresh id to every row in every snapshot.
var DefaultExclude = []string{"id"}

// ErrDuplicateKey is returned when two records in one collection share a key
// but differ in their comparable fields.
var ErrDuplicateKey = errors.New("duplicate key")

// Options selects how records are identified and which fields are compared.
type Options struct {
	// KeyFields identify a record across captures. Empty means the whole
	// comparable projection is the key.
	KeyFields []string
	// IncludeFields restricts comparison to these fields. Takes precedence
	// over ExcludeFields.
	IncludeFields []string
	// ExcludeFields are dropped before comparison. nil means DefaultExclude;
	// an empty non-nil slice excludes nothing.
	ExcludeFields []string
	// NestedExcludeFields are stripped inside nested objects and lists of
	// objects. "age" strips age at any depth below any field; "nexthop.age"
	// strips it only below the nexthop field; "nexthop.meta.age" strips the
	// exact path, passing through lists on the way.
	NestedExcludeFields []string
}

// FieldChange is the old and new value of one field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Change describes one record present in both captures whose comparable
// fields differ. Changes holds only the differing fields.
type Change struct {
	Key       string                 `json:"key"`
	KeyFields Record                 `json:"key_fields,omitempty"`
	Changes   map[string]FieldChange `json:"changes"`
}

// Result is the delta from collection A to collection B.
type Result struct {
	Added   []Record `json:"added"`
	Removed []Record `json:"removed"`
	Changed []Change `json:"changed"`
}

// Empty reports whether the two collections were equivalent.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// entry is a record prepared for comparison.
type entry struct {
	id      string // canonical key, unique per record identity
	display string // human-readable key
	keys    Record // key field values (nil when keyed by full record)
	proj    Record // comparable projection
	canon   string // canonical form of proj
}

// Diff computes the delta from a to b. Output slices are sorted by key and
// are never nil.
func Diff(a, b []Record, opts Options) (Result, error) {
	p, err := newProjector(opts)
	if err != nil {
		return Result{}, err
	}

	left, leftOrder, err := index(a, p, opts.KeyFields)
	if err != nil {
		return Result{}, fmt.Errorf("first collection: %w", err)
	}
	right, rightOrder, err := index(b, p, opts.KeyFields)
	if err != nil {
		return Result{}, fmt.Errorf("second collection: %w", err)
	}

	res := Result{
		Added:   []Record{},
		Removed: []Record{},
		Changed: []Change{},
	}

	for _, id := range leftOrder {
		l := left[id]
		r, ok := right[id]
		if !ok {
			res.Removed = append(res.Removed, reported(l))
			continue
		}
		if l.canon == r.canon {
			continue
		}
		changes, err := fieldChanges(l.proj, r.proj)
		if err != nil {
			return Result{}, err
		}
		if len(changes) > 0 {
			res.Changed = append(res.Changed, Change{Key: l.display, KeyFields: l.keys, Changes: changes})
		}
	}
	for _, id := range rightOrder {
		if _, ok := left[id]; !ok {
			res.Added = append(res.Added, reported(right[id]))
		}
	}
	return res, nil
}

// index builds the key -> entry mapping for one collection. The returned
// order lists keys sorted by display key, then canonical key.
func index(records []Record, p projector, keyFields []string) (map[string]entry, []string, error) {
	m := make(map[string]entry, len(records))
	for _, rec := range records {
		e, err := prepare(rec, p, keyFields)
		if err != nil {
			return nil, nil, err
		}
		if prev, ok := m[e.id]; ok {
			if prev.canon != e.canon {
				return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateKey, e.display)
			}
			continue
		}
		m[e.id] = e
	}

	order := make([]string, 0, len(m))
	for id := range m {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		di, dj := m[order[i]].display, m[order[j]].display
		if di != dj {
			return di < dj
		}
		return order[i] < order[j]
	})
	return m, order, nil
}

func prepare(rec Record, p projector, keyFields []string) (entry, error) {
	proj, err := p.project(rec)
	if err != nil {
		return entry{}, err
	}
	canon, err := canonical(proj)
	if err != nil {
		return entry{}, err
	}

	if len(keyFields) == 0 {
		return entry{id: canon, display: canon, proj: proj, canon: canon}, nil
	}

	tuple := make([]any, len(keyFields))
	keys := make(Record, len(keyFields))
	parts := make([]string, len(keyFields))
	for i, f := range keyFields {
		v := rec[f] // missing field is nil
		tuple[i] = v
		keys[f] = v
		parts[i] = displayValue(v)
	}
	id, err := canonical(tuple)
	if err != nil {
		return entry{}, err
	}
	return entry{
		id:      id,
		display: strings.Join(parts, "|"),
		keys:    keys,
		proj:    proj,
		canon:   canon,
	}, nil
}

// reported is the record shown in added/removed: the projection plus the key
// fields, which the projection may have excluded.
func reported(e entry) Record {
	out := make(Record, len(e.proj)+len(e.keys))
	for k, v := range e.proj {
		out[k] = v
	}
	for k, v := range e.keys {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// fieldChanges returns the fields whose canonical values differ. A field
// missing on one side compares as null.
func fieldChanges(from, to Record) (map[string]FieldChange, error) {
	changes := make(map[string]FieldChange)
	seen := make(map[string]bool, len(from)+len(to))
	for _, side := range []Record{from, to} {
		for f := range side {
			if seen[f] {
				continue
			}
			seen[f] = true
			eq, err := Equal(from[f], to[f])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f, err)
			}
			if !eq {
				changes[f] = FieldChange{From: from[f], To: to[f]}
			}
		}
	}
	return changes, nil
}

// Equal reports whether a and b have the same canonical representation.
func Equal(a, b any) (bool, error) {
	ca, err := canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := canonical(b)
	if err != nil {
		return false, err
	}
	return ca == cb, nil
}

// canonical returns a deterministic JSON form of v. encoding/json sorts map
// keys, which is what makes the form independent of field order.
func canonical(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("canonicalise value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// displayValue renders one key component. Strings are shown bare so keys
// read like "r1|default|10.0.0.0/24"; null renders as an empty component.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		s, err := canonical(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return s
	}
}
