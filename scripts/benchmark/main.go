package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Sectify API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"SPA", "https://react.dev"},
}

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type scrapeResponse struct {
	URL          string            `json:"url"`
	SourceMode   string            `json:"sourceMode"`
	Metadata     metadata          `json:"metadata"`
	Sections     []section         `json:"sections"`
	Interactions []interactionInfo `json:"interactions"`
	Errors       []scrapeErrorInfo `json:"errors"`
}

type metadata struct {
	Title string `json:"title"`
}

type section struct {
	Type      string `json:"type"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

type interactionInfo struct {
	Kind string `json:"kind"`
}

type scrapeErrorInfo struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error *errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run           int    `json:"run"`
	LatencyMs     int64  `json:"latency_ms"`
	HTTPStatus    int    `json:"http_status"`
	Sections      int    `json:"sections"`
	TextChars     int    `json:"text_chars"`
	SourceMode    string `json:"source_mode"`
	Interactions  int    `json:"interactions"`
	PartialErrors int    `json:"partial_errors"`
	HasTitle      bool   `json:"has_title"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

type urlAverages struct {
	LatencyMs    float64 `json:"latency_ms"`
	Sections     float64 `json:"sections"`
	TextChars    float64 `json:"text_chars"`
	Interactions float64 `json:"interactions"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Sectify Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure Sectify is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d sections  (%s)\n", rr.LatencyMs, rr.Sections, rr.SourceMode)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	reqBody := scrapeRequest{
		URL:     url,
		Timeout: 60,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	rr.LatencyMs = time.Since(start).Milliseconds()
	rr.HTTPStatus = resp.StatusCode

	// Non-200 carries a structured error body instead of a result.
	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&er); decErr == nil && er.Error != nil {
			rr.Error = fmt.Sprintf("%s: %s", er.Error.Code, er.Error.Message)
		} else {
			rr.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return rr
	}

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = true
	rr.Sections = len(sr.Sections)
	rr.SourceMode = sr.SourceMode
	rr.Interactions = len(sr.Interactions)
	rr.PartialErrors = len(sr.Errors)
	rr.HasTitle = sr.Metadata.Title != ""
	for _, s := range sr.Sections {
		rr.TextChars += len(s.Text)
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.LatencyMs += float64(r.LatencyMs)
		avg.Sections += float64(r.Sections)
		avg.TextChars += float64(r.TextChars)
		avg.Interactions += float64(r.Interactions)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.LatencyMs /= n
	avg.Sections /= n
	avg.TextChars /= n
	avg.Interactions /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tSections\tText Len\tSource\n")
	fmt.Fprintf(w, "───\t───────────\t────────\t────────\t──────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		// Determine dominant source mode from runs.
		source := dominantSource(r.Runs)

		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%s\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.LatencyMs),
			r.Averages.Sections,
			formatInt(int(r.Averages.TextChars)),
			source,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func dominantSource(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.SourceMode]++
		}
	}
	best, bestCount := "-", 0
	for mode, count := range counts {
		if count > bestCount {
			best = mode
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
