// Command loadtest drives the matcher service with concurrent scoring,
// retrieval or analysis requests and prints a latency report.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Mode        string
	Owners      int
	Concurrency int
	Duration    time.Duration
	// RPS caps the combined request rate; zero sends as fast as the
	// workers allow.
	RPS float64
}

// Recorder collects per-request outcomes from all workers.
type Recorder struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
	codes     map[string]int64
	transport int64
}

func NewRecorder() *Recorder {
	return &Recorder{
		latencies: make([]time.Duration, 0, 1<<16),
		statuses:  make(map[int]int64),
		codes:     make(map[string]int64),
	}
}

// Observe records one response. code is the "code" field of an error body,
// empty for successes.
func (r *Recorder) Observe(d time.Duration, status int, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, d)
	r.statuses[status]++
	if code != "" {
		r.codes[code]++
	}
}

func (r *Recorder) TransportError() {
	r.mu.Lock()
	r.transport++
	r.mu.Unlock()
}

// Report is the summary printed at the end of a run.
type Report struct {
	Mode           string           `json:"mode"`
	Requests       int64            `json:"requests"`
	Succeeded      int64            `json:"succeeded"`
	Failed         int64            `json:"failed"`
	TransportError int64            `json:"transport_errors"`
	PerSecond      float64          `json:"per_second"`
	Min            time.Duration    `json:"min_ns"`
	Mean           time.Duration    `json:"mean_ns"`
	P50            time.Duration    `json:"p50_ns"`
	P95            time.Duration    `json:"p95_ns"`
	P99            time.Duration    `json:"p99_ns"`
	Max            time.Duration    `json:"max_ns"`
	Statuses       map[int]int64    `json:"statuses"`
	ErrorCodes     map[string]int64 `json:"error_codes,omitempty"`
}

func (r *Recorder) Report(mode string, elapsed time.Duration) Report {
	r.mu.Lock()
	lat := slices.Clone(r.latencies)
	rep := Report{
		Mode:           mode,
		TransportError: r.transport,
		Statuses:       maps.Clone(r.statuses),
		ErrorCodes:     maps.Clone(r.codes),
	}
	r.mu.Unlock()

	for status, n := range rep.Statuses {
		if status >= 200 && status < 300 {
			rep.Succeeded += n
		} else {
			rep.Failed += n
		}
	}
	rep.Failed += rep.TransportError
	rep.Requests = rep.Succeeded + rep.Failed
	if elapsed > 0 {
		rep.PerSecond = float64(rep.Requests) / elapsed.Seconds()
	}
	if len(lat) == 0 {
		return rep
	}
	slices.Sort(lat)
	var sum time.Duration
	for _, d := range lat {
		sum += d
	}
	rep.Min, rep.Max = lat[0], lat[len(lat)-1]
	rep.Mean = sum / time.Duration(len(lat))
	rep.P50 = percentile(lat, 50)
	rep.P95 = percentile(lat, 95)
	rep.P99 = percentile(lat, 99)
	return rep
}

type sample struct {
	resume string
	job    string
}

var samples = []sample{
	{
		resume: "Summary\nBackend engineer building event-driven services.\n\nExperience\nBuilt Kafka consumers in Go and tuned PostgreSQL queries.\n\nSkills\nGo, Kafka, PostgreSQL, Docker, Kubernetes\n\nEducation\nB.Sc. Computer Science\n\nProjects\nDistributed search engine with BM25 ranking.",
		job:    "We are hiring a backend engineer with Go, Kafka and Kubernetes experience to build streaming data pipelines on AWS.",
	},
	{
		resume: "Summary\nData scientist.\n\nExperience\nTrained PyTorch models and shipped them behind FastAPI.\n\nSkills\nPython, PyTorch, Pandas, SQL\n\nEducation\nM.Sc. Statistics",
		job:    "Machine learning engineer: Python, PyTorch, MLOps, Docker, experience deploying models to production.",
	},
	{
		resume: "Experience\nFrontend developer working with React and TypeScript.\n\nSkills\nReact, TypeScript, CSS, Jest",
		job:    "Senior full stack developer. React, Node.js, GraphQL, PostgreSQL and CI/CD with GitHub Actions.",
	},
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the matcher service")
	flag.StringVar(&cfg.Mode, "mode", "score", "request type: score, context or analyze")
	flag.IntVar(&cfg.Owners, "owners", 10, "number of distinct owners for owner-scoped modes")
	flag.IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	flag.Float64Var(&cfg.RPS, "rps", 0, "target requests per second across all workers, 0 for unlimited")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg.Owners = max(cfg.Owners, 1)
	cfg.Concurrency = max(cfg.Concurrency, 1)
	if !slices.Contains([]string{"score", "context", "analyze"}, cfg.Mode) {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", cfg.Mode)
		os.Exit(2)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if cfg.Mode != "score" {
		if err := seedOwners(client, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "seeding owners: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "loadtest: %s %s, %d workers for %s\n", cfg.Mode, cfg.BaseURL, cfg.Concurrency, cfg.Duration)
	start := time.Now()
	rec, err := run(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
	}
	rep := rec.Report(cfg.Mode, time.Since(start))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(rep)
	} else {
		printReport(os.Stdout, rep)
	}
	if rep.Requests == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the matcher running?")
		os.Exit(1)
	}
}

// seedOwners indexes one sample résumé per owner so retrieval has data.
func seedOwners(client *http.Client, cfg Config) error {
	for i := range cfg.Owners {
		body, _ := json.Marshal(map[string]string{"text": samples[i%len(samples)].resume})
		u := fmt.Sprintf("%s/api/v1/owners/load-%d/resume", cfg.BaseURL, i)
		resp, err := client.Post(u, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("indexing owner %d: status %d", i, resp.StatusCode)
		}
	}
	return nil
}

func buildRequest(ctx context.Context, cfg Config, n int) (*http.Request, error) {
	s := samples[n%len(samples)]
	owner := fmt.Sprintf("load-%d", n%cfg.Owners)
	var (
		method = http.MethodPost
		target string
		body   io.Reader
	)
	switch cfg.Mode {
	case "context":
		method = http.MethodGet
		target = fmt.Sprintf("%s/api/v1/owners/%s/context?q=%s&top_k=5", cfg.BaseURL, owner, url.QueryEscape(s.job))
	case "analyze":
		target = fmt.Sprintf("%s/api/v1/owners/%s/analyze", cfg.BaseURL, owner)
	default:
		target = cfg.BaseURL + "/api/v1/score"
	}
	if method == http.MethodPost {
		data, err := json.Marshal(map[string]string{"resume": s.resume, "job": s.job})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// errorCode pulls the "code" field out of an error response body.
func errorCode(body io.Reader) string {
	var e struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 1<<16)).Decode(&e); err != nil || e.Code == "" {
		return "unparsed"
	}
	return e.Code
}

func run(client *http.Client, cfg Config) (*Recorder, error) {
	rec := NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var pace *rate.Limiter
	if cfg.RPS > 0 {
		pace = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(math.Ceil(cfg.RPS/10))))
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Concurrency {
		g.Go(func() error {
			for n := w; ; n += cfg.Concurrency {
				if pace != nil {
					if pace.Wait(gctx) != nil {
						return nil
					}
				}
				if gctx.Err() != nil {
					return nil
				}
				req, err := buildRequest(gctx, cfg, n)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if gctx.Err() == nil {
						rec.TransportError()
					}
					continue
				}
				code := ""
				if resp.StatusCode >= 300 {
					code = errorCode(resp.Body)
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rec.Observe(elapsed, resp.StatusCode, code)
			}
		})
	}
	return rec, g.Wait()
}

func printReport(out io.Writer, rep Report) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "mode\t%s\n", rep.Mode)
	fmt.Fprintf(tw, "requests\t%d\t(%.1f/s)\n", rep.Requests, rep.PerSecond)
	fmt.Fprintf(tw, "succeeded\t%d\n", rep.Succeeded)
	fmt.Fprintf(tw, "failed\t%d\t(%d transport)\n", rep.Failed, rep.TransportError)
	if rep.Requests > 0 {
		fmt.Fprintf(tw, "error rate\t%.2f%%\n", float64(rep.Failed)/float64(rep.Requests)*100)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "latency\tmin %s\tmean %s\tmax %s\n", rep.Min, rep.Mean, rep.Max)
	fmt.Fprintf(tw, "\tp50 %s\tp95 %s\tp99 %s\n", rep.P50, rep.P95, rep.P99)
	fmt.Fprintln(tw)
	for _, status := range slices.Sorted(maps.Keys(rep.Statuses)) {
		fmt.Fprintf(tw, "status %d\t%d\n", status, rep.Statuses[status])
	}
	for _, code := range slices.Sorted(maps.Keys(rep.ErrorCodes)) {
		fmt.Fprintf(tw, "error %s\t%d\n", code, rep.ErrorCodes[code])
	}
	tw.Flush()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
