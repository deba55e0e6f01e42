// Testing Strategy Design Decision:
//
// The cmd/ package contains CLI integration tests that exercise the full
// stack: command parsing -> extension -> IP Fabric client -> HTTP, plus the
// SQLite history and audit log on disk.
//
// Each test builds (once) and runs the real ipfa binary against a fake IP
// Fabric instance served from the test process. HOME and IPFA_HOME point at
// temp directories so config, history and logs never touch the user's.

package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/ipf/ipftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary compiles the ipfa binary once for all tests.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "ipfa-test-bin-*")
		if err != nil {
			buildErr = err
			return
		}

		binaryName := "ipfa"
		if os.PathSeparator == '\\' {
			binaryName = "ipfa.exe"
		}
		binaryPath = filepath.Join(tmpDir, binaryName)

		// Project root is the parent of cmd/
		projectRoot := filepath.Dir(mustGetwd())

		cmd := exec.Command("go", "build", "-o", binaryPath, ".")
		cmd.Dir = projectRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, output: string(out)}
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("failed to build binary: %v", buildErr)
	}
	return binaryPath
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string {
	return e.err.Error() + "\n" + e.output
}

func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return dir
}

// Fixture snapshots: s2 is $last, s1 is $prev and locked.
var testSnapshots = []ipf.Snapshot{
	{ID: "s1", Name: "monday", State: "loaded", Locked: true, End: 1_700_000_000_000, Devices: 2},
	{ID: "s2", Name: "tuesday", State: "loaded", End: 1_700_086_400_000, Devices: 3},
}

// testEnv holds test environment state.
type testEnv struct {
	t      *testing.T
	dir    string
	home   string
	binary string
	ipf    *ipftest.Server
	extra  []string // additional environment variables
}

// newTestEnv creates an isolated home directory and a fake IP Fabric
// instance with device and route tables in both snapshots.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		t:      t,
		dir:    t.TempDir(),
		home:   t.TempDir(),
		binary: buildBinary(t),
		ipf:    ipftest.New(t, testSnapshots...),
	}

	env.ipf.SetTable("inventory/devices", "s1", []ipf.Record{
		{"id": "1", "hostname": "core-1", "siteName": "HQ", "vendor": "cisco", "version": "17.3"},
		{"id": "2", "hostname": "edge-1", "siteName": "HQ", "vendor": "juniper", "version": "21.2"},
	})
	env.ipf.SetTable("inventory/devices", "s2", []ipf.Record{
		{"id": "11", "hostname": "core-1", "siteName": "HQ", "vendor": "cisco", "version": "17.6"},
		{"id": "12", "hostname": "edge-1", "siteName": "HQ", "vendor": "juniper", "version": "21.2"},
		{"id": "13", "hostname": "dist-1", "siteName": "DC", "vendor": "arista", "version": "4.30"},
	})
	env.ipf.SetTable("technology/routing/routes", "s1", []ipf.Record{
		{"hostname": "core-1", "vrf": "", "network": "10.0.0.0/8", "protocol": "ospf",
			"nexthop": []any{map[string]any{"ip": "10.1.1.1", "intName": "Gi0/1"}}, "nhLowestMetric": 20.0},
		{"hostname": "core-1", "vrf": "", "network": "192.168.0.0/16", "protocol": "static",
			"nexthop": []any{map[string]any{"ip": "10.1.1.2", "intName": "Gi0/2"}}, "nhLowestMetric": 0.0},
	})
	env.ipf.SetTable("technology/routing/routes", "s2", []ipf.Record{
		{"hostname": "core-1", "vrf": "", "network": "10.0.0.0/8", "protocol": "bgp",
			"nexthop": []any{map[string]any{"ip": "10.2.2.2", "intName": "Gi0/3"}}, "nhLowestMetric": 0.0},
	})

	return env
}

// environ returns the child process environment: the parent's, minus
// anything that would leak real config, plus the fake instance.
func (e *testEnv) environ() []string {
	var out []string
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		switch {
		case strings.HasPrefix(k, "IPF_"), strings.HasPrefix(k, "AI_"),
			k == "IPFA_HOME", k == "HOME", k == "USERPROFILE":
			continue
		}
		out = append(out, kv)
	}
	out = append(out,
		"HOME="+e.home,
		"USERPROFILE="+e.home,
		"IPFA_HOME="+filepath.Join(e.home, ".ipfa"),
		"IPF_URL="+e.ipf.URL,
		"IPF_TOKEN="+ipftest.Token,
		"USER=tester",
	)
	return append(out, e.extra...)
}

// setenv adds an environment variable for subsequent runs.
func (e *testEnv) setenv(key, value string) {
	e.extra = append(e.extra, key+"="+value)
}

// run executes ipfa with the given args and returns stdout.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.runErr(args...)
	if err != nil {
		e.t.Fatalf("ipfa %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runErr executes ipfa and returns stdout and stderr combined, and any error.
func (e *testEnv) runErr(args ...string) (string, error) {
	e.t.Helper()

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = e.environ()
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// runStdout executes ipfa and returns stdout only, for JSON output.
func (e *testEnv) runStdout(args ...string) string {
	e.t.Helper()

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = e.environ()
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		e.t.Fatalf("ipfa %v failed: %v\nstderr: %s", args, err, stderr.String())
	}
	return string(out)
}

// runJSON runs ipfa with -o json and decodes stdout into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	out := e.runStdout(append(args, "-o", "json")...)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

// contains checks if output contains expected string.
func (e *testEnv) contains(output, expected string) {
	e.t.Helper()
	assert.Contains(e.t, output, expected)
}

// fakeModel serves an OpenAI-compatible chat completions endpoint. The first
// turn of every question calls ipf_get_snapshots; once a tool result is in
// the conversation it answers with answer.
func fakeModel(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		var req struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1].Role

		msg := map[string]any{"role": "assistant", "content": answer}
		if last == "user" {
			msg = map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []any{map[string]any{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      "ipf_get_snapshots",
						"arguments": "{}",
					},
				}},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"index": 0, "message": msg, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}
