package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/pagesexpr/internal/compact"
	"github.com/hyperifyio/pagesexpr/internal/fetch"
	"github.com/hyperifyio/pagesexpr/internal/metrics"
)

// PageSexprName is the stable name of the compaction tool.
const PageSexprName = "page_sexpr"

// Fetcher retrieves a page by URL. *fetch.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Page, error)
}

// PageDeps bundles what the page tool needs.
type PageDeps struct {
	// Fetcher serves url arguments. When nil, only html arguments work.
	Fetcher Fetcher
	// Defaults are the options a call starts from. Nil means
	// compact.DefaultOptions.
	Defaults *compact.Options
	// Recorder is optional.
	Recorder *metrics.Recorder
}

var pageSexprSchema = json.RawMessage(`{
    "type":"object",
    "properties":{
        "html":{"type":"string","description":"Serialized page to compact"},
        "url":{"type":"string","description":"http(s) URL of the page to fetch and compact"},
        "options":{
            "type":"object",
            "additionalProperties":false,
            "properties":{
                "interactiveTags":{"type":"array","items":{"type":"string"}},
                "keepAttrs":{"type":"array","items":{"type":"string"}},
                "stripAttrs":{"type":"boolean"},
                "dropAriaAttrs":{"type":"boolean"},
                "dropDataAttrs":{"type":"boolean"},
                "keepStyle":{"type":"boolean"},
                "pretty":{"type":"boolean"},
                "indent":{"type":"integer","minimum":0},
                "cssHead":{"type":"boolean"},
                "includeIdInHead":{"type":"boolean"},
                "spanAlias":{"type":"string"},
                "attrMap":{"type":"boolean"},
                "relevantOnly":{"type":"boolean"}
            }
        }
    },
    "additionalProperties":false
}`)

type pageArgs struct {
	HTML    string          `json:"html"`
	URL     string          `json:"url"`
	Options json.RawMessage `json:"options"`
}

// NewPageRegistry registers page_sexpr.
func NewPageRegistry(deps PageDeps) (*Registry, error) {
	r := NewRegistry()
	err := r.Register(ToolDefinition{
		StableName:   PageSexprName,
		SemVer:       "v1.0.0",
		Description:  "Compact a page into an S-expression of its interactive, identified and textual structure",
		JSONSchema:   pageSexprSchema,
		Capabilities: []string{"dom", "compact"},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var in pageArgs
			if err := decodeStrict(raw, &in); err != nil {
				return "", fmt.Errorf("invalid args: %w", err)
			}
			opts, err := resolveOptions(deps.Defaults, in.Options)
			if err != nil {
				return "", err
			}
			src, err := sourceFor(in, deps.Fetcher)
			if err != nil {
				return "", err
			}
			out, stats, err := compact.CompactWithStats(ctx, src, opts)
			if deps.Recorder != nil {
				deps.Recorder.Observe(stats, err)
			}
			return out, err
		},
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func sourceFor(in pageArgs, f Fetcher) (compact.Source, error) {
	hasHTML := strings.TrimSpace(in.HTML) != ""
	hasURL := strings.TrimSpace(in.URL) != ""
	switch {
	case hasHTML && hasURL:
		return nil, errors.New("invalid args: html and url are mutually exclusive")
	case hasHTML:
		return compact.HTMLSource{Body: []byte(in.HTML)}, nil
	case hasURL:
		if f == nil {
			return nil, errors.New("url arguments are not supported without a fetcher")
		}
		return fetch.Source{Getter: f, URL: strings.TrimSpace(in.URL)}, nil
	}
	return nil, errors.New("invalid args: one of html or url is required")
}

// resolveOptions overlays the recognized keys of raw onto a copy of the
// defaults. Unknown keys are rejected.
func resolveOptions(defaults *compact.Options, raw json.RawMessage) (compact.Options, error) {
	opts := compact.DefaultOptions()
	if defaults != nil {
		opts = *defaults
		opts.InteractiveTags = append([]string(nil), defaults.InteractiveTags...)
		opts.KeepAttrs = append([]string(nil), defaults.KeepAttrs...)
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return opts, nil
	}
	if err := decodeStrict(raw, &opts); err != nil {
		return opts, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
