// project.go builds the comparable projection of a record: field selection
// followed by recursive removal of volatile nested fields.

package compare

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidOption is returned for a malformed field name in Options.
var ErrInvalidOption = errors.New("invalid compare option")

type projector struct {
	include map[string]bool // nil when not restricting
	exclude map[string]bool

	nestedAny    map[string]bool            // stripped below every field
	nestedScoped map[string]map[string]bool // field -> names stripped below it
	nestedPaths  map[string][][]string      // field -> exact paths stripped below it
}

func newProjector(opts Options) (projector, error) {
	p := projector{exclude: make(map[string]bool)}

	if len(opts.IncludeFields) > 0 {
		p.include = make(map[string]bool, len(opts.IncludeFields))
		for _, f := range opts.IncludeFields {
			p.include[f] = true
		}
	}

	exclude := opts.ExcludeFields
	if exclude == nil {
		exclude = DefaultExclude
	}
	for _, f := range exclude {
		p.exclude[f] = true
	}

	for _, n := range opts.NestedExcludeFields {
		segs := strings.Split(n, ".")
		for _, s := range segs {
			if s == "" {
				return projector{}, fmt.Errorf("%w: nested exclude %q has an empty segment", ErrInvalidOption, n)
			}
		}
		switch len(segs) {
		case 1:
			if p.nestedAny == nil {
				p.nestedAny = make(map[string]bool)
			}
			p.nestedAny[n] = true
		case 2:
			if p.nestedScoped == nil {
				p.nestedScoped = make(map[string]map[string]bool)
			}
			if p.nestedScoped[segs[0]] == nil {
				p.nestedScoped[segs[0]] = make(map[string]bool)
			}
			p.nestedScoped[segs[0]][segs[1]] = true
		default:
			if p.nestedPaths == nil {
				p.nestedPaths = make(map[string][][]string)
			}
			p.nestedPaths[segs[0]] = append(p.nestedPaths[segs[0]], segs[1:])
		}
	}
	return p, nil
}

// project returns a new record; rec is never modified.
func (p projector) project(rec Record) (Record, error) {
	out := make(Record, len(rec))
	for f, v := range rec {
		if p.include != nil {
			if !p.include[f] {
				continue
			}
		} else if p.exclude[f] {
			continue
		}

		if names := p.namesFor(f); len(names) > 0 {
			s, _, err := strip(v, names)
			if err != nil {
				return nil, err
			}
			v = s
		}
		for _, path := range p.nestedPaths[f] {
			s, _, err := stripPath(v, path)
			if err != nil {
				return nil, err
			}
			v = s
		}
		out[f] = v
	}
	return out, nil
}

// namesFor returns the nested field names to strip below top-level field f.
func (p projector) namesFor(f string) map[string]bool {
	scoped := p.nestedScoped[f]
	switch {
	case len(scoped) == 0:
		return p.nestedAny
	case len(p.nestedAny) == 0:
		return scoped
	}
	merged := make(map[string]bool, len(scoped)+len(p.nestedAny))
	for n := range p.nestedAny {
		merged[n] = true
	}
	for n := range scoped {
		merged[n] = true
	}
	return merged
}

// strip removes names from every nested object in v and reports whether
// anything was removed. A list of objects is sorted by canonical form only
// when something was removed from it.
func strip(v any, names map[string]bool) (any, bool, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		removed := false
		for k, child := range x {
			if names[k] {
				removed = true
				continue
			}
			s, r, err := strip(child, names)
			if err != nil {
				return nil, false, err
			}
			out[k] = s
			removed = removed || r
		}
		return out, removed, nil

	case []any:
		out := make([]any, len(x))
		removed := false
		for i, child := range x {
			s, r, err := strip(child, names)
			if err != nil {
				return nil, false, err
			}
			out[i] = s
			removed = removed || r
		}
		return sortStripped(out, removed)

	default:
		return v, false, nil
	}
}

// stripPath removes the key at path, where list elements along the way are
// traversed transparently. v is returned unchanged when the path is absent.
func stripPath(v any, path []string) (any, bool, error) {
	switch x := v.(type) {
	case map[string]any:
		child, ok := x[path[0]]
		if !ok {
			return v, false, nil
		}
		var s any
		if len(path) > 1 {
			var removed bool
			var err error
			s, removed, err = stripPath(child, path[1:])
			if err != nil || !removed {
				return v, false, err
			}
		}
		out := make(map[string]any, len(x))
		for k, c := range x {
			out[k] = c
		}
		if len(path) == 1 {
			delete(out, path[0])
		} else {
			out[path[0]] = s
		}
		return out, true, nil

	case []any:
		out := make([]any, len(x))
		removed := false
		for i, child := range x {
			s, r, err := stripPath(child, path)
			if err != nil {
				return nil, false, err
			}
			out[i] = s
			removed = removed || r
		}
		return sortStripped(out, removed)

	default:
		return v, false, nil
	}
}

// sortStripped sorts a list that holds objects and had fields removed.
func sortStripped(items []any, removed bool) (any, bool, error) {
	if !removed {
		return items, false, nil
	}
	for _, it := range items {
		if _, ok := it.(map[string]any); ok {
			sorted, err := sortCanonical(items)
			return sorted, true, err
		}
	}
	return items, true, nil
}

func sortCanonical(items []any) ([]any, error) {
	keys := make([]string, len(items))
	for i, it := range items {
		c, err := canonical(it)
		if err != nil {
			return nil, err
		}
		keys[i] = c
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	out := make([]any, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, nil
}
