package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/webindex/internal/config"
	"github.com/nao1215/webindex/internal/report"
)

// testSite serves a small site with a robots.txt exclusion.
type testSite struct {
	*httptest.Server

	mu      sync.Mutex
	headers map[string]string
}

func startTestSite(t *testing.T) *testSite {
	t.Helper()

	site := &testSite{headers: make(map[string]string)}
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		if v := r.Header.Get("X-Test-Token"); v != "" {
			site.headers["X-Test-Token"] = v
		}
		site.mu.Unlock()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><head><title>Home</title></head><body>
				<p>Gophers love concurrency</p>
				<a href="/garden">walk</a>
				<a href="/private/notes">notes</a>
			</body></html>`)
		case "/garden":
			fmt.Fprint(w, `<html><body><p>A garden of gophers</p>
				<img src="/gopher.png" alt="gopher">
				<video src="/tour.mp4"></video></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCrawlIndexSearch(t *testing.T) {
	site := startTestSite(t)
	dataDir := t.TempDir()
	seed := site.URL + "/"

	out, err := runCLI(t, "crawl", "-D", dataDir, "--delay", "0", "--json", seed)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	var summary report.CrawlSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("crawl output is not JSON: %v\n%s", err, out)
	}
	if summary.Documents != 2 {
		t.Errorf("expected 2 documents, got %d", summary.Documents)
	}
	if summary.RunID == 0 {
		t.Error("expected the run to be logged")
	}
	if _, err := os.Stat(filepath.Join(dataDir, config.DocumentsFile)); err != nil {
		t.Errorf("expected documents file: %v", err)
	}

	out, err = runCLI(t, "index", "-D", dataDir)
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if !strings.Contains(out, "Indexed 2 documents") {
		t.Errorf("unexpected index output %q", out)
	}

	out, err = runCLI(t, "search", "-D", dataDir, "--json", "gophers", "garden")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var result struct {
		Query string `json:"query"`
		Ready bool   `json:"index_ready"`
		Hits  []struct {
			Score float64 `json:"score"`
			URL   string  `json:"url"`
		} `json:"hits"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("search output is not JSON: %v\n%s", err, out)
	}
	if !result.Ready || result.Query != "gophers garden" {
		t.Errorf("unexpected search header %+v", result)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", result.Hits)
	}
	if result.Hits[0].URL != site.URL+"/garden" || result.Hits[0].Score != 2 {
		t.Errorf("expected garden page first with score 2, got %+v", result.Hits[0])
	}

	out, err = runCLI(t, "history", "-D", dataDir)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "completed") {
		t.Errorf("expected a completed run in history:\n%s", out)
	}

	out, err = runCLI(t, "history", "-D", dataDir, "1")
	if err != nil {
		t.Fatalf("history detail failed: %v", err)
	}
	if !strings.Contains(out, "skipped-robots-denied") {
		t.Errorf("expected robots denial in run detail:\n%s", out)
	}
}

func TestBuildAndCompare(t *testing.T) {
	site := startTestSite(t)
	dataDir := t.TempDir()
	seed := site.URL + "/"

	for range 2 {
		if _, err := runCLI(t, "build", "-D", dataDir, "--delay", "0", seed); err != nil {
			t.Fatalf("build failed: %v", err)
		}
	}

	out, err := runCLI(t, "history", "-D", dataDir, "2", "--compare", "1", "--json")
	if err != nil {
		t.Fatalf("history compare failed: %v", err)
	}
	var hist report.HistoryReport
	if err := json.Unmarshal([]byte(out), &hist); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, out)
	}
	if hist.Diff == nil || hist.Diff.HasChanges() || hist.Diff.Unchanged != 2 {
		t.Errorf("expected two unchanged pages, got %+v", hist.Diff)
	}

	out, err = runCLI(t, "search", "-D", dataDir, "concurrency")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, seed) {
		t.Errorf("expected home page in results:\n%s", out)
	}
}

func TestCrawlSiteConfigAndMetrics(t *testing.T) {
	site := startTestSite(t)
	dataDir := t.TempDir()

	host := strings.TrimPrefix(site.URL, "http://")
	configPath := filepath.Join(t.TempDir(), "webindex.yaml")
	content := fmt.Sprintf("sites:\n  %s:\n    headers:\n      X-Test-Token: secret\n    ignorePatterns:\n      - \"/garden\"\n", host)
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	metricsPath := filepath.Join(t.TempDir(), "webindex.prom")

	out, err := runCLI(t, "crawl", "-D", dataDir, "-c", configPath, "--metrics-file", metricsPath,
		"--delay", "0", "--no-history", "--json", site.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	var summary report.CrawlSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("crawl output is not JSON: %v", err)
	}
	if summary.Documents != 1 {
		t.Errorf("expected the ignored page to be skipped, got %d documents", summary.Documents)
	}
	if summary.RunID != 0 {
		t.Errorf("expected no run id with --no-history, got %d", summary.RunID)
	}

	site.mu.Lock()
	token := site.headers["X-Test-Token"]
	site.mu.Unlock()
	if token != "secret" {
		t.Errorf("expected site header to be sent, got %q", token)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), "webindex_crawl_outcomes_total") {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestCommandErrors(t *testing.T) {
	dataDir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"crawl without seed", []string{"crawl", "-D", dataDir}, "no seed"},
		{"crawl with ftp seed", []string{"crawl", "-D", dataDir, "ftp://example.com/"}, "invalid seed"},
		{"negative depth", []string{"crawl", "-D", dataDir, "-d", "-1", "https://example.com/"}, "invalid depth"},
		{"json and markdown", []string{"search", "-D", dataDir, "-j", "-m", "x"}, "conflicting report formats"},
		{"missing explicit config", []string{"index", "-D", dataDir, "-c", filepath.Join(dataDir, "nope.yaml")}, "not found"},
		{"index without crawl", []string{"index", "-D", dataDir}, "documents"},
		{"history without log", []string{"history", "-D", dataDir}, "no crawl history"},
		{"bad run id", []string{"history", "-D", dataDir, "abc"}, "invalid run id"},
		{"compare without run", []string{"history", "-D", dataDir, "--compare", "1"}, "requires a run id"},
		{"negative search limit", []string{"search", "-D", dataDir, "-n", "-1", "x"}, "invalid limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	out, err := runCLI(t, "search", "-D", t.TempDir(), "gopher")
	if err != nil {
		t.Fatalf("expected search to degrade, got %v", err)
	}
	if !strings.Contains(out, "No results") {
		t.Errorf("unexpected output %q", out)
	}
}
