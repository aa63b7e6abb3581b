package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperifyio/pagesexpr/internal/compact"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadConfigFile_YAML(t *testing.T) {
	p := writeFile(t, "pagesexpr.yaml", `
url: https://shop.example/
compact:
  interactiveTags: [a, button]
  pretty: true
  indent: 4
  attrMap: false
fetch:
  timeout: 5s
cache:
  dir: /tmp/cache
  maxAge: 1h
`)
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	cfg := Config{Options: compact.DefaultOptions()}
	ApplyFileConfig(&cfg, fc, nil)

	want := compact.DefaultOptions()
	want.InteractiveTags = []string{"a", "button"}
	want.Pretty = true
	want.Indent = 4
	want.AttrMap = false
	if diff := cmp.Diff(want, cfg.Options); diff != "" {
		t.Fatalf("options (-want +got):\n%s", diff)
	}
	if cfg.URL != "https://shop.example/" || cfg.FetchTimeout != 5*time.Second || cfg.CacheDir != "/tmp/cache" || cfg.CacheMaxAge != time.Hour {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	p := writeFile(t, "pagesexpr.json", `{"input":"page.html","compact":{"spanAlias":"s","relevantOnly":false}}`)
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	cfg := Config{Options: compact.DefaultOptions()}
	ApplyFileConfig(&cfg, fc, nil)
	if cfg.InputPath != "page.html" || cfg.Options.SpanAlias != "s" || cfg.Options.RelevantOnly {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	// Unset keys keep their defaults
	if !cfg.Options.CSSHead || !cfg.Options.StripAttrs {
		t.Fatalf("defaults lost: %+v", cfg.Options)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	p := writeFile(t, "bad.json", `{"compact":`)
	if _, err := LoadConfigFile(p); err == nil || !strings.Contains(err.Error(), "parse json") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

// Flags given explicitly are not overwritten by the file.
func TestApplyFileConfig_ExplicitFlagsWin(t *testing.T) {
	var fc FileConfig
	fc.Output = "file.sexpr"
	pretty := true
	fc.Compact.Pretty = &pretty
	cfg := Config{OutputPath: "flag.sexpr"}
	ApplyFileConfig(&cfg, fc, map[string]bool{"output": true, "compact.pretty": true})
	if cfg.OutputPath != "flag.sexpr" || cfg.Options.Pretty {
		t.Fatalf("file overrode explicit flags: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := Config{InputPath: "page.html", Options: compact.DefaultOptions()}
	if err := ValidateConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[string]Config{
		"no input":          {Options: compact.DefaultOptions()},
		"two inputs":        {InputPath: "a.html", URL: "https://x", Options: compact.DefaultOptions()},
		"negative attempts": {URL: "https://x", FetchAttempts: -1},
		"negative indent":   {URL: "https://x", Options: compact.Options{Indent: -1}},
	}
	for name, cfg := range cases {
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
