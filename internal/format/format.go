// Package format provides output formatting utilities for CLI display.
//
// Centralises formatting logic so that command implementations focus on
// business logic while this package handles presentation concerns like
// column alignment and table rendering.
package format

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/diff"
	"github.com/jpl-au/ipfa/internal/history"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/pterm/pterm"
)

// maxCell truncates long values so wide records stay readable.
const maxCell = 60

// table renders rows (first row is the header) with pterm.
func table(w io.Writer, rows [][]string) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(rows)).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCell {
		return string(r[:maxCell-3]) + "..."
	}
	return s
}

// stamp formats an IP Fabric millisecond timestamp.
func stamp(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

// Snapshots prints snapshots newest first, marking the active one with *.
func Snapshots(w io.Writer, snaps []ipf.Snapshot, active string) error {
	rows := [][]string{{"", "ID", "NAME", "STATE", "LOCKED", "END", "DEVICES"}}
	for _, s := range snaps {
		mark := ""
		if s.ID == active {
			mark = "*"
		}
		locked := ""
		if s.Locked {
			locked = "yes"
		}
		name := s.Name
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{mark, s.ID, name, s.State, locked, stamp(s.End), fmt.Sprint(s.Devices)})
	}
	return table(w, rows)
}

// Tables prints the table catalog.
func Tables(w io.Writer, tables []catalog.Table) error {
	rows := [][]string{{"TABLE", "DESCRIPTION"}}
	for _, t := range tables {
		rows = append(rows, []string{t.Name, t.Description})
	}
	return table(w, rows)
}

// Records prints records as a table with the given columns. When columns is
// empty the keys of the first record are used, sorted.
func Records(w io.Writer, records []ipf.Record, columns []string) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "(no records)")
		return err
	}
	if len(columns) == 0 {
		columns = keys(records[0])
	}
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, columns)
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			v, ok := r[c]
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = truncate(diff.Value(v))
		}
		rows = append(rows, row)
	}
	return table(w, rows)
}

func keys(r ipf.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Conversations prints chat conversations, most recent first.
func Conversations(w io.Writer, convs []history.Conversation) error {
	if len(convs) == 0 {
		_, err := fmt.Fprintln(w, "(no conversations)")
		return err
	}
	rows := [][]string{{"ID", "UPDATED", "MSGS", "SNAPSHOT", "TITLE"}}
	for _, c := range convs {
		snap := c.Snapshot
		if snap == "" {
			snap = "-"
		}
		rows = append(rows, []string{
			c.ID[:min(8, len(c.ID))],
			c.UpdatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprint(c.Messages),
			snap,
			truncate(c.Title),
		})
	}
	return table(w, rows)
}

// Transcript prints a conversation's messages. Tool results are truncated
// unless full is set.
func Transcript(w io.Writer, c history.Conversation, msgs []history.Message, full bool) error {
	fmt.Fprintf(w, "Conversation %s\n", c.ID)
	fmt.Fprintf(w, "Title:    %s\n", c.Title)
	if c.Model != "" {
		fmt.Fprintf(w, "Model:    %s\n", c.Model)
	}
	if c.Snapshot != "" {
		fmt.Fprintf(w, "Snapshot: %s\n", c.Snapshot)
	}
	fmt.Fprintf(w, "Started:  %s\n\n", c.CreatedAt.Local().Format("2006-01-02 15:04"))

	for _, m := range msgs {
		switch m.Role {
		case history.RoleUser:
			fmt.Fprintf(w, "You: %s\n\n", m.Content)
		case history.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				fmt.Fprintf(w, "  [tool calls] %s\n", string(m.ToolCalls))
			}
			if m.Content != "" {
				fmt.Fprintf(w, "Assistant: %s\n\n", m.Content)
			}
		case history.RoleTool:
			out := m.Content
			if !full {
				out = truncate(out)
			}
			fmt.Fprintf(w, "  [%s] %s\n", m.Name, out)
		default:
			fmt.Fprintf(w, "%s: %s\n\n", m.Role, m.Content)
		}
	}
	return nil
}

// LogEntries prints audit log records, newest first.
func LogEntries(w io.Writer, recs []log.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "(no log entries)")
		return err
	}
	rows := [][]string{{"TIME", "SOURCE", "ACTION", "TABLE", "SNAPSHOT", "ROWS", "RESULT"}}
	for _, r := range recs {
		snap := r.Snapshot
		if r.ResolvedSnapshot != "" && r.ResolvedSnapshot != r.Snapshot {
			snap += " -> " + r.ResolvedSnapshot
		}
		result := "ok"
		if !r.Success {
			result = "error: " + truncate(r.Error)
		}
		rows = append(rows, []string{
			r.Time.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			r.Action,
			r.Table,
			snap,
			fmt.Sprint(r.Rows),
			result,
		})
	}
	return table(w, rows)
}
