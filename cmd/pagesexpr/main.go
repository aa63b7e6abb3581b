package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pagesexpr/internal/app"
	"github.com/hyperifyio/pagesexpr/internal/compact"
	"github.com/hyperifyio/pagesexpr/internal/tools"
)

// cliFlags are switches that select a mode instead of configuring a run.
type cliFlags struct {
	configPath string
	envFiles   string
	toolsSpec  bool
	toolsCall  bool
	version    bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, cli, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if cli.version {
		fmt.Println(app.VersionString())
		return
	}
	if cli.toolsSpec {
		if err := writeToolsSpec(os.Stdout); err != nil {
			log.Error().Err(err).Msg("tools spec failed")
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cli.toolsCall {
		failed, err := callTool(ctx, cfg, os.Stdin, os.Stdout)
		if err != nil {
			log.Error().Err(err).Msg("tool call failed")
		}
		if err != nil || failed {
			os.Exit(1)
		}
		return
	}
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps run errors to the process exit status: 2 when the page
// could not be obtained, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, compact.ErrDocumentUnavailable) {
		return 2
	}
	return 1
}

// parseConfig resolves configuration with precedence flags > env > file >
// defaults.
func parseConfig(args []string) (app.Config, cliFlags, error) {
	fs := flag.NewFlagSet("pagesexpr", flag.ContinueOnError)
	var (
		cfg             app.Config
		cli             cliFlags
		interactiveTags string
		keepAttrs       string
	)
	def := compact.DefaultOptions()
	o := &cfg.Options

	fs.StringVar(&cfg.InputPath, "input", "", "Path to a saved HTML page, or - for stdin")
	fs.StringVar(&cfg.URL, "url", "", "http(s) URL of a page to fetch")
	fs.StringVar(&cfg.CDPURL, "cdp", "", "DevTools endpoint of a running browser, e.g. http://127.0.0.1:9222")
	fs.StringVar(&cfg.CDPTarget, "cdp.target", "", "Target id of the tab to read (default: first page)")
	fs.StringVar(&cfg.OutputPath, "output", "-", "Path to write the S-expression, - for stdout")

	fs.StringVar(&interactiveTags, "compact.interactiveTags", strings.Join(def.InteractiveTags, ","), "Comma-separated tags that are always kept")
	fs.StringVar(&keepAttrs, "compact.keepAttrs", strings.Join(def.KeepAttrs, ","), "Comma-separated global attribute allow-list")
	fs.BoolVar(&o.StripAttrs, "compact.stripAttrs", def.StripAttrs, "Reduce attributes to the allow-lists")
	fs.BoolVar(&o.DropAriaAttrs, "compact.dropAriaAttrs", def.DropAriaAttrs, "Drop aria-* attributes")
	fs.BoolVar(&o.DropDataAttrs, "compact.dropDataAttrs", def.DropDataAttrs, "Drop data-* attributes")
	fs.BoolVar(&o.KeepStyle, "compact.keepStyle", def.KeepStyle, "Keep style attributes")
	fs.BoolVar(&o.Pretty, "compact.pretty", def.Pretty, "Indent nested lists on their own lines")
	fs.IntVar(&o.Indent, "compact.indent", def.Indent, "Spaces per nesting level in pretty mode")
	fs.BoolVar(&o.CSSHead, "compact.cssHead", def.CSSHead, "Fold id and classes into the head token")
	fs.BoolVar(&o.IncludeIDInHead, "compact.includeIdInHead", def.IncludeIDInHead, "Put #id in the head token")
	fs.StringVar(&o.SpanAlias, "compact.spanAlias", def.SpanAlias, "Head token used for span elements")
	fs.BoolVar(&o.AttrMap, "compact.attrMap", def.AttrMap, "Group attributes in a {...} block")
	fs.BoolVar(&o.RelevantOnly, "compact.relevantOnly", def.RelevantOnly, "Prune elements that are not interactive, identified or textual")

	fs.StringVar(&cfg.UserAgent, "fetch.userAgent", "", "User-Agent for page fetches")
	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", 30*time.Second, "Per-request timeout for fetches and browser reads")
	fs.IntVar(&cfg.FetchAttempts, "fetch.attempts", 2, "Fetch attempts including the first")
	fs.BoolVar(&cfg.IgnoreRobots, "fetch.ignoreRobots", false, "Fetch pages even when robots.txt disallows them")
	fs.StringVar(&cfg.CacheDir, "cache.dir", "", "Page cache directory; empty disables caching")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.StringVar(&cfg.MetricsTextfile, "metrics.textfile", "", "Write Prometheus metrics to this file after the run")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")

	fs.StringVar(&cli.configPath, "config", "", "YAML or JSON config file")
	fs.StringVar(&cli.envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.BoolVar(&cli.toolsSpec, "tools.spec", false, "Print the page_sexpr tool definition as JSON and exit")
	fs.BoolVar(&cli.toolsCall, "tools.call", false, "Read one OpenAI tool call as JSON from stdin, run it and print the result as JSON")
	fs.BoolVar(&cli.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, cli, err
	}
	o.InteractiveTags = splitCSV(interactiveTags)
	o.KeepAttrs = splitCSV(keepAttrs)

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if err := app.LoadEnvFiles(splitCSV(cli.envFiles)...); err != nil {
		return cfg, cli, fmt.Errorf("load env: %w", err)
	}
	if cli.configPath != "" {
		fc, err := app.LoadConfigFile(cli.configPath)
		if err != nil {
			return cfg, cli, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc, explicit)
	}
	app.ApplyEnvOverrides(&cfg, explicit)

	if cli.toolsSpec || cli.toolsCall || cli.version {
		return cfg, cli, nil
	}
	return cfg, cli, app.ValidateConfig(cfg)
}

func splitCSV(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeToolsSpec(w io.Writer) error {
	r, err := tools.NewPageRegistry(tools.PageDeps{})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tools.EncodeTools(r.Specs()))
}

// callTool runs one tool call read from r and writes its Result to w. failed
// reports whether the tool itself returned an error result.
func callTool(ctx context.Context, cfg app.Config, r io.Reader, w io.Writer) (failed bool, err error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return false, fmt.Errorf("init app: %w", err)
	}
	defer a.WriteMetrics()
	reg, err := a.ToolRegistry()
	if err != nil {
		return false, fmt.Errorf("tool registry: %w", err)
	}
	log.Debug().Interface("tools", reg.Catalog()).Msg("tool catalog")

	var call openai.ToolCall
	if err := json.NewDecoder(r).Decode(&call); err != nil {
		return false, fmt.Errorf("decode tool call: %w", err)
	}
	res := reg.CallFromOpenAI(ctx, call)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		return res.IsError, fmt.Errorf("write result: %w", err)
	}
	return res.IsError, nil
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}
