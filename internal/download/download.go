// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches paper PDFs through a bounded worker pool.
// Workers share one rate limiter so concurrency never multiplies the
// request rate seen by the upstream host.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
	"golang.org/x/time/rate"

	"github.com/pdiddy/arxiv-harvester/internal/httputil"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// pdfBaseURL derives download links for records that carry none. Tests
// point it at a local server.
var pdfBaseURL = "https://arxiv.org/pdf"

const (
	defaultWorkers = 4
	defaultRate    = 1.0
	defaultTimeout = 60 * time.Second
)

// Result summarizes one batch download run.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int

	// Paths lists the PDFs present after the run, downloaded or already
	// on disk, in completion order.
	Paths []string
}

// Total returns the number of papers processed.
func (r Result) Total() int { return r.Downloaded + r.Skipped + r.Failed }

// HasFailures reports whether any paper failed to download.
func (r Result) HasFailures() bool { return r.Failed > 0 }

// FetchPDFs downloads the batch's PDFs into cfg.Dir, writing per-paper
// progress lines to w. Individual failures are counted, not fatal; the
// returned error covers only setup problems. PDFs already on disk are
// skipped without a request.
func FetchPDFs(ctx context.Context, cfg types.DownloadConfig, papers []types.Paper, w io.Writer) (Result, error) {
	if cfg.MaxDownloads > 0 && len(papers) > cfg.MaxDownloads {
		papers = papers[:cfg.MaxDownloads]
	}
	if len(papers) == 0 {
		return Result{}, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating download directory %s: %w", cfg.Dir, err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(papers) {
		workers = len(papers)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	out := &lockedWriter{w: w}

	type outcome struct {
		path    string
		skipped bool
		failed  bool
	}

	jobs := make(chan types.Paper, len(papers))
	for _, p := range papers {
		jobs <- p
	}
	close(jobs)

	outcomes := make(chan outcome, len(papers))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				path, skipped, err := fetchOne(ctx, client, limiter, cfg, p, out)
				if err != nil {
					fmt.Fprintf(out, "failed:  %s (%v)\n", p.ShortID(), err)
					outcomes <- outcome{failed: true}
					continue
				}
				outcomes <- outcome{path: path, skipped: skipped}
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	var result Result
	for o := range outcomes {
		switch {
		case o.failed:
			result.Failed++
		case o.skipped:
			result.Skipped++
			result.Paths = append(result.Paths, o.path)
		default:
			result.Downloaded++
			result.Paths = append(result.Paths, o.path)
		}
	}

	fmt.Fprintf(out, "\nDownload summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// fetchOne downloads one paper's PDF and writes its metadata sidecar.
// The skipped return reports that the PDF was already on disk.
func fetchOne(ctx context.Context, client *http.Client, limiter *rate.Limiter, cfg types.DownloadConfig, p types.Paper, w io.Writer) (string, bool, error) {
	shortID := p.ShortID()
	if shortID == "" {
		return "", false, fmt.Errorf("paper record has no identifier")
	}

	pdfPath := filepath.Join(cfg.Dir, shortID+".pdf")
	if _, err := os.Stat(pdfPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", shortID)
		return pdfPath, true, nil
	}

	url := p.PDFURL
	if url == "" {
		url = fmt.Sprintf("%s/%s.pdf", pdfBaseURL, shortID)
	}

	if err := limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	fmt.Fprintf(w, "downloading: %s\n", shortID)
	if err := downloadFile(ctx, client, cfg.UserAgent, url, pdfPath); err != nil {
		return "", false, err
	}

	if err := writeSidecar(p, filepath.Join(cfg.Dir, shortID+".yaml")); err != nil {
		return "", false, fmt.Errorf("writing metadata: %w", err)
	}
	return pdfPath, false, nil
}

// downloadFile fetches url to destPath through a temporary file so a
// torn download never leaves a partial PDF behind. Throttled responses
// are retried with the shared backoff helper.
func downloadFile(ctx context.Context, client *http.Client, userAgent, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// writeSidecar stores the paper record next to its PDF.
func writeSidecar(p types.Paper, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// lockedWriter serializes progress lines from concurrent workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
