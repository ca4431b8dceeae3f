package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeannie068/analogplace/pkg/cache"
	"github.com/jeannie068/analogplace/pkg/pipeline"
)

const serveNetlist = `# two mirrored modules and a free one
M1 4 3
M2 4 3
F1 5 5
SymGroup SG1 vertical
SymPair M1 M2
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
	s := &server{runner: runner, logger: logger, maxTimeout: 30 * time.Second}
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestServeHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestServeVersion(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["version"]; !ok {
		t.Error("version missing from response")
	}
}

func TestServeSolve(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/solve?quality=fast&seed=42", "text/plain",
		strings.NewReader(serveNetlist))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var got solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Area <= 0 {
		t.Errorf("area = %d, want > 0", got.Area)
	}
	if len(got.Modules) != 3 {
		t.Errorf("modules = %d, want 3", len(got.Modules))
	}
	for name, m := range got.Modules {
		if m.X < 0 || m.Y < 0 {
			t.Errorf("module %s at (%d, %d), want non-negative", name, m.X, m.Y)
		}
	}
}

func TestServeSolveSVG(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/solve?quality=fast&format=svg", "text/plain",
		strings.NewReader(serveNetlist))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "<svg") {
		t.Error("response does not look like SVG")
	}
}

func TestServeSolveRejects(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"garbage netlist", "/solve", "not a netlist at all %%%", http.StatusBadRequest},
		{"empty body", "/solve", "", http.StatusBadRequest},
		{"unknown quality", "/solve?quality=turbo", serveNetlist, http.StatusBadRequest},
		{"bad seed", "/solve?seed=abc", serveNetlist, http.StatusBadRequest},
		{"bad format", "/solve?format=gif", serveNetlist, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+tt.path, "text/plain", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
