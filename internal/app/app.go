package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/pagesexpr/internal/browser"
	"github.com/hyperifyio/pagesexpr/internal/cache"
	"github.com/hyperifyio/pagesexpr/internal/compact"
	"github.com/hyperifyio/pagesexpr/internal/fetch"
	"github.com/hyperifyio/pagesexpr/internal/metrics"
	"github.com/hyperifyio/pagesexpr/internal/robots"
	"github.com/hyperifyio/pagesexpr/internal/tools"
)

// App wires one compaction run: input selection, fetching, metrics and
// output.
type App struct {
	cfg     Config
	fetcher *fetch.Client
	metrics *metrics.Recorder

	// Stdin and Stdout default to the process streams; tests replace them.
	Stdin  io.Reader
	Stdout io.Writer
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateLimits(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, metrics: metrics.New(), Stdin: os.Stdin, Stdout: os.Stdout}

	var pageCache *cache.PageCache
	if cfg.CacheDir != "" {
		// Apply cache invalidation controls; failures only cost a refetch
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		pageCache = &cache.PageCache{Dir: cfg.CacheDir}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent()
	}
	attempts := cfg.FetchAttempts
	if attempts <= 0 {
		attempts = 2
	}
	httpClient := newFetchHTTPClient(cfg.FetchTimeout)
	a.fetcher = &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         ua,
		MaxAttempts:       attempts,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             pageCache,
		BypassCache:       cfg.CacheClear,
		MaxConcurrent:     4,
	}
	if !cfg.IgnoreRobots {
		a.fetcher.Robots = &robots.Manager{HTTPClient: httpClient, Cache: pageCache, UserAgent: ua}
	}
	return a, nil
}

// Metrics exposes the recorder so callers can export after several runs.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Source returns the compact.Source selected by the configuration.
func (a *App) Source() compact.Source {
	switch {
	case strings.TrimSpace(a.cfg.URL) != "":
		return fetch.Source{Getter: a.fetcher, URL: strings.TrimSpace(a.cfg.URL)}
	case strings.TrimSpace(a.cfg.CDPURL) != "":
		return browser.Source{DebuggerURL: a.cfg.CDPURL, TargetID: a.cfg.CDPTarget, Timeout: a.cfg.FetchTimeout}
	case a.cfg.InputPath == "-":
		return readerSource{name: "stdin", r: a.Stdin}
	default:
		return fileSource{path: a.cfg.InputPath}
	}
}

// Run compacts the configured input and writes the S-expression.
func (a *App) Run(ctx context.Context) error {
	if err := validateInput(a.cfg); err != nil {
		return err
	}
	out, stats, err := compact.CompactWithStats(ctx, a.Source(), a.cfg.Options)
	a.metrics.Observe(stats, err)
	defer a.WriteMetrics()
	if err != nil {
		log.Error().Err(err).Msg("compaction failed")
		return err
	}
	log.Info().
		Int("elements_in", stats.ElementsIn).
		Int("elements_out", stats.ElementsOut).
		Int("bytes", stats.OutputBytes).
		Dur("took", stats.Duration).
		Msg("compacted page")

	if err := a.writeOutput(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// ToolRegistry returns the page_sexpr tool backed by this app's fetcher,
// options and metrics. No input needs to be configured to use it.
func (a *App) ToolRegistry() (*tools.Registry, error) {
	opts := a.cfg.Options
	return tools.NewPageRegistry(tools.PageDeps{Fetcher: a.fetcher, Defaults: &opts, Recorder: a.metrics})
}

func (a *App) writeOutput(out string) error {
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if a.cfg.OutputPath == "" || a.cfg.OutputPath == "-" {
		_, err := io.WriteString(a.Stdout, out)
		return err
	}
	return os.WriteFile(a.cfg.OutputPath, []byte(out), 0o644)
}

// WriteMetrics exports the recorder to the configured textfile, if any.
func (a *App) WriteMetrics() {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		log.Warn().Err(err).Str("path", a.cfg.MetricsTextfile).Msg("metrics textfile write failed")
	}
}

// fileSource reads a saved page from disk.
type fileSource struct{ path string }

func (s fileSource) Root(ctx context.Context) (*html.Node, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return compact.HTMLSource{Body: b}.Root(ctx)
}

type readerSource struct {
	name string
	r    io.Reader
}

func (s readerSource) Root(ctx context.Context) (*html.Node, error) {
	if s.r == nil {
		return nil, errors.New(s.name + " is not available")
	}
	b, err := io.ReadAll(s.r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	return compact.HTMLSource{Body: b}.Root(ctx)
}
