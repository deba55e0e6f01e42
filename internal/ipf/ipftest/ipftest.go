// Package ipftest provides an in-memory IP Fabric API for tests. It serves
// /snapshots and /tables/* with the same request and response shapes as the
// real API, including pagination and eq/like filters.
package ipftest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/jpl-au/ipfa/internal/ipf"
)

// Token is the API token the fake server accepts.
const Token = "test-token"

// Server is a fake IP Fabric instance.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	snapshots []ipf.Snapshot
	tables    map[string]map[string][]ipf.Record // endpoint -> snapshot id -> rows
	requests  []Request
	failures  map[string]int // endpoint -> status code to return
}

// Request records one table request made against the server.
type Request struct {
	Endpoint string
	Snapshot string
	Columns  []string
	Filters  map[string]any
	Start    int
	Limit    int
}

// New starts a fake server and registers cleanup with t.
func New(t testing.TB, snapshots ...ipf.Snapshot) *Server {
	t.Helper()
	s := &Server{
		snapshots: snapshots,
		tables:    make(map[string]map[string][]ipf.Record),
		failures:  make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/"+ipf.DefaultAPIVersion+"/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/"+ipf.DefaultAPIVersion+"/tables/", s.handleTable)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Client returns an ipf client pointed at the fake server.
func (s *Server) Client(t testing.TB) *ipf.Client {
	t.Helper()
	c, err := ipf.New(ipf.Options{URL: s.URL, Token: Token, Verify: true})
	if err != nil {
		t.Fatalf("ipftest: new client: %v", err)
	}
	return c
}

// SetTable sets the rows an endpoint returns for one snapshot.
func (s *Server) SetTable(endpoint, snapshot string, rows []ipf.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[endpoint] == nil {
		s.tables[endpoint] = make(map[string][]ipf.Record)
	}
	s.tables[endpoint][snapshot] = rows
}

// Fail makes every request to endpoint return status.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = status
}

// Requests returns the table requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) authorised(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-API-Token") != Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return false
	}
	return true
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.authorised(w, r) {
		return
	}
	s.mu.Lock()
	snaps := s.snapshots
	s.mu.Unlock()
	if snaps == nil {
		snaps = []ipf.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if !s.authorised(w, r) {
		return
	}
	endpoint := strings.TrimPrefix(r.URL.Path, "/api/"+ipf.DefaultAPIVersion+"/tables/")

	var body struct {
		Columns    []string       `json:"columns"`
		Filters    map[string]any `json:"filters"`
		Snapshot   string         `json:"snapshot"`
		Pagination struct {
			Limit int `json:"limit"`
			Start int `json:"start"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Endpoint: endpoint,
		Snapshot: body.Snapshot,
		Columns:  body.Columns,
		Filters:  body.Filters,
		Start:    body.Pagination.Start,
		Limit:    body.Pagination.Limit,
	})
	status, failing := s.failures[endpoint]
	bySnap, known := s.tables[endpoint]
	snapID := body.Snapshot
	if ipf.IsAlias(snapID) {
		// IP Fabric resolves aliases server-side.
		if snap, err := ipf.Resolve(s.snapshots, snapID); err == nil {
			snapID = snap.ID
		}
	}
	var rows []ipf.Record
	if known {
		rows = bySnap[snapID]
	}
	s.mu.Unlock()

	if failing {
		writeJSON(w, status, map[string]string{"message": "simulated failure"})
		return
	}
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "table not found: " + endpoint})
		return
	}

	var matched []ipf.Record
	for _, row := range rows {
		if matches(row, body.Filters) {
			matched = append(matched, project(row, body.Columns))
		}
	}

	total := len(matched)
	start := min(body.Pagination.Start, total)
	end := total
	if body.Pagination.Limit > 0 {
		end = min(start+body.Pagination.Limit, total)
	}
	page := matched[start:end]
	if page == nil {
		page = []ipf.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  page,
		"_meta": map[string]int{"count": total, "size": len(page), "limit": body.Pagination.Limit, "start": start},
	})
}

// matches supports the eq, like and reg operators, which is enough for tests.
func matches(row ipf.Record, filters map[string]any) bool {
	for col, f := range filters {
		spec, ok := f.([]any)
		if !ok || len(spec) != 2 {
			continue
		}
		op, _ := spec[0].(string)
		want, _ := spec[1].(string)
		got, _ := row[col].(string)
		switch op {
		case "eq":
			if got != want {
				return false
			}
		case "like":
			if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
				return false
			}
		case "reg":
			re, err := regexp.Compile(want)
			if err != nil || !re.MatchString(got) {
				return false
			}
		}
	}
	return true
}

func project(row ipf.Record, columns []string) ipf.Record {
	out := make(ipf.Record, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
