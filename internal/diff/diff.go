// Package diff renders snapshot comparison results for the terminal.
//
// A table diff prints one line per added (+) or removed (-) record and one
// block per changed (~) record listing only the fields that differ. Changed
// string values are diffed character by character so a version bump from
// 17.3 to 17.6 highlights the digit, and multi-line values (configs,
// descriptions) get a line diff with context.
package diff

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jpl-au/ipfa/internal/compare"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines shown before/after changes.
// When equal sections exceed 2*contextLines, they're collapsed with "...".
const contextLines = 3

const (
	red   = "\033[31m"
	green = "\033[32m"
	cyan  = "\033[36m"
	reset = "\033[0m"
)

// Table writes a table comparison to w.
func Table(w io.Writer, r compare.TableReport, colour bool) error {
	var b strings.Builder
	b.WriteString(header(r.Table+" @ "+r.SnapshotA, r.Table+" @ "+r.SnapshotB, colour))

	for _, rec := range r.Removed {
		b.WriteString(paint("- "+Record(rec), red, colour) + "\n")
	}
	for _, rec := range r.Added {
		b.WriteString(paint("+ "+Record(rec), green, colour) + "\n")
	}
	for _, c := range r.Changed {
		b.WriteString(paint("~ "+c.Key, cyan, colour) + "\n")
		writeChanges(&b, c.Changes, colour)
	}
	if r.Empty() {
		b.WriteString("  (no differences)\n")
	}
	fmt.Fprintf(&b, "\n%s\n", r.Message)

	_, err := io.WriteString(w, b.String())
	return err
}

// Routes writes a route comparison to w.
func Routes(w io.Writer, r compare.RouteResult, colour bool) error {
	var b strings.Builder
	b.WriteString(header("routes @ "+r.SnapshotA, "routes @ "+r.SnapshotB, colour))

	for _, k := range r.Removed {
		b.WriteString(paint("- "+k, red, colour) + "\n")
	}
	for _, k := range r.Added {
		b.WriteString(paint("+ "+k, green, colour) + "\n")
	}
	for _, c := range r.Changed {
		b.WriteString(paint("~ "+c.Route, cyan, colour) + "\n")
		writeChanges(&b, c.Changes, colour)
	}
	if len(r.Added)+len(r.Removed)+len(r.Changed) == 0 {
		b.WriteString("  (no differences)\n")
	}
	fmt.Fprintf(&b, "\n%s\n", r.Message)

	_, err := io.WriteString(w, b.String())
	return err
}

func header(a, b string, colour bool) string {
	return paint("--- "+a, red, colour) + "\n" + paint("+++ "+b, green, colour) + "\n"
}

// writeChanges writes one indented line per changed field, sorted by name.
func writeChanges(b *strings.Builder, changes map[string]compare.FieldChange, colour bool) {
	fields := make([]string, 0, len(changes))
	for f := range changes {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		fc := changes[f]
		from, fromStr := fc.From.(string)
		to, toStr := fc.To.(string)
		switch {
		case fromStr && toStr && (strings.Contains(from, "\n") || strings.Contains(to, "\n")):
			fmt.Fprintf(b, "    %s:\n", f)
			d := Lines(from, to)
			if colour {
				d = Colourise(d)
			}
			for _, l := range strings.Split(strings.TrimSuffix(d, "\n"), "\n") {
				b.WriteString("      " + l + "\n")
			}
		case fromStr && toStr && colour:
			fmt.Fprintf(b, "    %s: %s\n", f, Inline(from, to))
		default:
			fmt.Fprintf(b, "    %s: %s -> %s\n", f, Value(fc.From), Value(fc.To))
		}
	}
}

// Inline returns to with deletions from from shown in red and insertions
// in green.
func Inline(from, to string) string {
	dmp := diffmatchpatch.New()
	d := dmp.DiffMain(from, to, false)
	d = dmp.DiffCleanupSemantic(d)

	var b strings.Builder
	for _, part := range d {
		switch part.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(red + "[-" + part.Text + "-]" + reset)
		case diffmatchpatch.DiffInsert:
			b.WriteString(green + "{+" + part.Text + "+}" + reset)
		case diffmatchpatch.DiffEqual:
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// Lines returns a line diff of two multi-line values.
func Lines(from, to string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	d := dmp.DiffMain(a, b, false)
	d = dmp.DiffCharsToLines(d, lines)
	return format(d)
}

// format converts diffs to unified-style text.
func format(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		// Trim trailing newline to avoid artefact empty string from Split
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		lines := strings.Split(text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				b.WriteString("- " + l + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				b.WriteString("+ " + l + "\n")
			}
		case diffmatchpatch.DiffEqual:
			if len(lines) > 2*contextLines {
				for i := range contextLines {
					b.WriteString("  " + lines[i] + "\n")
				}
				b.WriteString("  ...\n")
				for i := len(lines) - contextLines; i < len(lines); i++ {
					b.WriteString("  " + lines[i] + "\n")
				}
			} else {
				for _, l := range lines {
					b.WriteString("  " + l + "\n")
				}
			}
		}
	}
	return b.String()
}

// Colourise adds ANSI colours to unified-style diff output.
func Colourise(d string) string {
	var b strings.Builder
	for _, line := range strings.Split(d, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "- "):
			b.WriteString(red + line + reset + "\n")
		case strings.HasPrefix(line, "+ "):
			b.WriteString(green + line + reset + "\n")
		default:
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// Record renders a record on one line as key=value pairs sorted by key.
func Record(r compare.Record) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + Value(r[k])
	}
	return strings.Join(parts, " ")
}

// Value renders a field value: strings bare, null as "null", anything else
// as compact JSON.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func paint(s, c string, colour bool) string {
	if !colour {
		return s
	}
	return c + s + reset
}
