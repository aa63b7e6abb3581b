package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Pointer fields tell
// "unset" apart from false/zero so defaults survive partial files.
type FileConfig struct {
	Input  string `yaml:"input" json:"input"`
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`

	CDP struct {
		URL    string `yaml:"url" json:"url"`
		Target string `yaml:"target" json:"target"`
	} `yaml:"cdp" json:"cdp"`

	Compact struct {
		InteractiveTags []string `yaml:"interactiveTags" json:"interactiveTags"`
		KeepAttrs       []string `yaml:"keepAttrs" json:"keepAttrs"`
		StripAttrs      *bool    `yaml:"stripAttrs" json:"stripAttrs"`
		DropAriaAttrs   *bool    `yaml:"dropAriaAttrs" json:"dropAriaAttrs"`
		DropDataAttrs   *bool    `yaml:"dropDataAttrs" json:"dropDataAttrs"`
		KeepStyle       *bool    `yaml:"keepStyle" json:"keepStyle"`
		Pretty          *bool    `yaml:"pretty" json:"pretty"`
		Indent          *int     `yaml:"indent" json:"indent"`
		CSSHead         *bool    `yaml:"cssHead" json:"cssHead"`
		IncludeIDInHead *bool    `yaml:"includeIdInHead" json:"includeIdInHead"`
		SpanAlias       *string  `yaml:"spanAlias" json:"spanAlias"`
		AttrMap         *bool    `yaml:"attrMap" json:"attrMap"`
		RelevantOnly    *bool    `yaml:"relevantOnly" json:"relevantOnly"`
	} `yaml:"compact" json:"compact"`

	Fetch struct {
		UserAgent    string        `yaml:"userAgent" json:"userAgent"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		Attempts     int           `yaml:"attempts" json:"attempts"`
		IgnoreRobots bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	Metrics struct {
		Textfile string `yaml:"textfile" json:"textfile"`
	} `yaml:"metrics" json:"metrics"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig. Unknown extensions are
// tried as YAML first, then JSON.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig copies file values into cfg for every setting whose flag
// was not given explicitly. explicit holds flag names as seen by flag.Visit.
func ApplyFileConfig(cfg *Config, fc FileConfig, explicit map[string]bool) {
	if cfg == nil {
		return
	}
	unset := func(flag string) bool { return !explicit[flag] }

	if unset("input") && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if unset("url") && fc.URL != "" {
		cfg.URL = fc.URL
	}
	if unset("output") && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if unset("cdp") && fc.CDP.URL != "" {
		cfg.CDPURL = fc.CDP.URL
	}
	if unset("cdp.target") && fc.CDP.Target != "" {
		cfg.CDPTarget = fc.CDP.Target
	}

	c := fc.Compact
	o := &cfg.Options
	if unset("compact.interactiveTags") && len(c.InteractiveTags) > 0 {
		o.InteractiveTags = append([]string(nil), c.InteractiveTags...)
	}
	if unset("compact.keepAttrs") && c.KeepAttrs != nil {
		o.KeepAttrs = append([]string(nil), c.KeepAttrs...)
	}
	setBool := func(flag string, dst *bool, v *bool) {
		if unset(flag) && v != nil {
			*dst = *v
		}
	}
	setBool("compact.stripAttrs", &o.StripAttrs, c.StripAttrs)
	setBool("compact.dropAriaAttrs", &o.DropAriaAttrs, c.DropAriaAttrs)
	setBool("compact.dropDataAttrs", &o.DropDataAttrs, c.DropDataAttrs)
	setBool("compact.keepStyle", &o.KeepStyle, c.KeepStyle)
	setBool("compact.pretty", &o.Pretty, c.Pretty)
	setBool("compact.cssHead", &o.CSSHead, c.CSSHead)
	setBool("compact.includeIdInHead", &o.IncludeIDInHead, c.IncludeIDInHead)
	setBool("compact.attrMap", &o.AttrMap, c.AttrMap)
	setBool("compact.relevantOnly", &o.RelevantOnly, c.RelevantOnly)
	if unset("compact.indent") && c.Indent != nil {
		o.Indent = *c.Indent
	}
	if unset("compact.spanAlias") && c.SpanAlias != nil {
		o.SpanAlias = *c.SpanAlias
	}

	if unset("fetch.userAgent") && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if unset("fetch.timeout") && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if unset("fetch.attempts") && fc.Fetch.Attempts > 0 {
		cfg.FetchAttempts = fc.Fetch.Attempts
	}

	if unset("fetch.ignoreRobots") && fc.Fetch.IgnoreRobots {
		cfg.IgnoreRobots = true
	}

	if unset("cache.dir") && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if unset("cache.maxAge") && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if unset("cache.clear") && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if unset("metrics.textfile") && fc.Metrics.Textfile != "" {
		cfg.MetricsTextfile = fc.Metrics.Textfile
	}
	if unset("v") && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks that exactly one input is configured and that the
// compaction options are usable.
func ValidateConfig(cfg Config) error {
	if err := validateInput(cfg); err != nil {
		return err
	}
	return validateLimits(cfg)
}

func validateInput(cfg Config) error {
	inputs := 0
	for _, s := range []string{cfg.InputPath, cfg.URL, cfg.CDPURL} {
		if strings.TrimSpace(s) != "" {
			inputs++
		}
	}
	switch {
	case inputs == 0:
		return errors.New("config: one of input, url or cdp is required")
	case inputs > 1:
		return errors.New("config: input, url and cdp are mutually exclusive")
	}
	return nil
}

// validateLimits checks everything except the input selection, which tool
// calls do not need.
func validateLimits(cfg Config) error {
	if cfg.FetchAttempts < 0 || cfg.FetchTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if err := cfg.Options.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
