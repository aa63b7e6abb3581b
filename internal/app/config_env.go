package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envPrefix namespaces every environment variable the CLI reads.
const envPrefix = "PAGESEXPR_"

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

// ApplyEnvOverrides overrides cfg fields with environment variables when
// they are set and the matching flag was not given explicitly. This lets env
// take precedence over a config file while flags stay highest.
func ApplyEnvOverrides(cfg *Config, explicit map[string]bool) {
	if cfg == nil {
		return
	}
	unset := func(flag string) bool { return !explicit[flag] }

	if v := getenv("INPUT"); v != "" && unset("input") {
		cfg.InputPath = v
	}
	if v := getenv("URL"); v != "" && unset("url") {
		cfg.URL = v
	}
	if v := getenv("CDP_URL"); v != "" && unset("cdp") {
		cfg.CDPURL = v
	}
	if v := getenv("CDP_TARGET"); v != "" && unset("cdp.target") {
		cfg.CDPTarget = v
	}
	if v := getenv("OUTPUT"); v != "" && unset("output") {
		cfg.OutputPath = v
	}

	if v := getenv("USER_AGENT"); v != "" && unset("fetch.userAgent") {
		cfg.UserAgent = v
	}
	if v := getenv("FETCH_TIMEOUT"); v != "" && unset("fetch.timeout") {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if v := getenv("FETCH_ATTEMPTS"); v != "" && unset("fetch.attempts") {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchAttempts = n
		}
	}

	if v := getenv("CACHE_DIR"); v != "" && unset("cache.dir") {
		cfg.CacheDir = v
	}
	if v := getenv("CACHE_MAX_AGE"); v != "" && unset("cache.maxAge") {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheMaxAge = d
		}
	}
	if v := getenv("METRICS_TEXTFILE"); v != "" && unset("metrics.textfile") {
		cfg.MetricsTextfile = v
	}

	o := &cfg.Options
	if v := getenv("INTERACTIVE_TAGS"); v != "" && unset("compact.interactiveTags") {
		o.InteractiveTags = splitList(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "KEEP_ATTRS"); ok && unset("compact.keepAttrs") {
		o.KeepAttrs = splitList(v)
	}
	if v := getenv("INDENT"); v != "" && unset("compact.indent") {
		if n, err := strconv.Atoi(v); err == nil {
			o.Indent = n
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "SPAN_ALIAS"); ok && unset("compact.spanAlias") {
		o.SpanAlias = strings.TrimSpace(v)
	}

	// Booleans override when env is present and truthy/falsey
	setBool := func(dst *bool, key, flag string) {
		if !unset(flag) {
			return
		}
		switch strings.ToLower(getenv(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&o.StripAttrs, "STRIP_ATTRS", "compact.stripAttrs")
	setBool(&o.DropAriaAttrs, "DROP_ARIA_ATTRS", "compact.dropAriaAttrs")
	setBool(&o.DropDataAttrs, "DROP_DATA_ATTRS", "compact.dropDataAttrs")
	setBool(&o.KeepStyle, "KEEP_STYLE", "compact.keepStyle")
	setBool(&o.Pretty, "PRETTY", "compact.pretty")
	setBool(&o.CSSHead, "CSS_HEAD", "compact.cssHead")
	setBool(&o.IncludeIDInHead, "INCLUDE_ID_IN_HEAD", "compact.includeIdInHead")
	setBool(&o.AttrMap, "ATTR_MAP", "compact.attrMap")
	setBool(&o.RelevantOnly, "RELEVANT_ONLY", "compact.relevantOnly")
	setBool(&cfg.IgnoreRobots, "IGNORE_ROBOTS", "fetch.ignoreRobots")
	setBool(&cfg.CacheClear, "CACHE_CLEAR", "cache.clear")
	setBool(&cfg.Verbose, "VERBOSE", "v")
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
