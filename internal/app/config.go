package app

import (
	"time"

	"github.com/hyperifyio/pagesexpr/internal/compact"
)

// Config holds runtime configuration for one CLI invocation.
type Config struct {
	// Exactly one input: a file path ("-" for stdin), a URL, or a DevTools
	// endpoint.
	InputPath string
	URL       string
	CDPURL    string
	CDPTarget string

	// OutputPath of "" or "-" writes to stdout.
	OutputPath string

	Options compact.Options

	// Fetching
	UserAgent     string
	FetchTimeout  time.Duration
	FetchAttempts int
	IgnoreRobots  bool

	// Cache for fetched pages
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// MetricsTextfile, when set, receives Prometheus metrics after the run.
	MetricsTextfile string

	Verbose bool
}
