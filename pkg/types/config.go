package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-harvester/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// DownloadConfig holds settings for the PDF download pool.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// Dir is the destination directory for PDFs and metadata sidecars.
	Dir string `json:"dir" yaml:"dir"`

	// Workers bounds the number of concurrent downloads (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxDownloads caps how many papers from a batch are fetched.
	// Zero means no cap.
	MaxDownloads int `json:"max_downloads" yaml:"max_downloads"`

	// RequestsPerSecond throttles the pool across all workers
	// (default 1). The arXiv PDF host rejects aggressive clients.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}
