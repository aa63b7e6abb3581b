package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/pagesexpr/internal/compact"
	"github.com/hyperifyio/pagesexpr/internal/fetch"
	"github.com/hyperifyio/pagesexpr/internal/metrics"
)

type stubFetcher struct {
	page fetch.Page
	err  error
	urls []string
}

func (s *stubFetcher) Get(_ context.Context, url string) (fetch.Page, error) {
	s.urls = append(s.urls, url)
	return s.page, s.err
}

func mustRegistry(t *testing.T, deps PageDeps) *Registry {
	t.Helper()
	r, err := NewPageRegistry(deps)
	if err != nil {
		t.Fatalf("NewPageRegistry: %v", err)
	}
	return r
}

func TestPageSexpr_HTML(t *testing.T) {
	r := mustRegistry(t, PageDeps{Recorder: metrics.New()})
	res := r.Call(context.Background(), PageSexprName, json.RawMessage(`{"html":"<div id=\"x\"><button>Go</button></div>"}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Text)
	}
	if res.Text != `(html (body (#x (button "Go"))))` {
		t.Fatalf("unexpected text: %s", res.Text)
	}
}

func TestPageSexpr_OptionsOverlay(t *testing.T) {
	r := mustRegistry(t, PageDeps{})
	args := `{"html":"<a href=\"/x\" id=\"l\">go</a>","options":{"attrMap":false,"includeIdInHead":false}}`
	res := r.Call(context.Background(), PageSexprName, json.RawMessage(args))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Text)
	}
	if res.Text != `(html (body (a :href "/x" :id "l" "go")))` {
		t.Fatalf("unexpected text: %s", res.Text)
	}
}

func TestPageSexpr_DefaultsNotMutated(t *testing.T) {
	defaults := compact.DefaultOptions()
	r := mustRegistry(t, PageDeps{Defaults: &defaults})
	res := r.Call(context.Background(), PageSexprName, json.RawMessage(`{"html":"<p>x</p>","options":{"interactiveTags":["p"]}}`))
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Text)
	}
	if defaults.InteractiveTags[0] != "a" {
		t.Fatalf("defaults were mutated: %v", defaults.InteractiveTags)
	}
}

func TestPageSexpr_Errors(t *testing.T) {
	r := mustRegistry(t, PageDeps{})
	cases := []struct {
		name, args, want string
	}{
		{"unknown option", `{"html":"<p>x</p>","options":{"colour":true}}`, "invalid options"},
		{"unknown arg", `{"html":"<p>x</p>","mode":"fast"}`, "invalid args"},
		{"no input", `{}`, "one of html or url"},
		{"both inputs", `{"html":"<p>x</p>","url":"https://x"}`, "mutually exclusive"},
		{"url without fetcher", `{"url":"https://x"}`, "without a fetcher"},
		{"malformed interactive tags", `{"html":"<p>x</p>","options":{"interactiveTags":["a["]}}`, "traversal failure"},
		{"not json", `nope`, "invalid args"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Call(context.Background(), PageSexprName, json.RawMessage(tc.args))
			if !res.IsError || !strings.Contains(res.Text, tc.want) {
				t.Fatalf("expected error containing %q, got %+v", tc.want, res)
			}
		})
	}
}

func TestPageSexpr_URL(t *testing.T) {
	f := &stubFetcher{page: fetch.Page{Body: []byte(`<button id="b">Buy</button>`), ContentType: "text/html"}}
	r := mustRegistry(t, PageDeps{Fetcher: f})
	res := r.Call(context.Background(), PageSexprName, json.RawMessage(`{"url":" https://shop.example/ "}`))
	if res.IsError || res.Text != `(html (body (button#b "Buy")))` {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(f.urls) != 1 || f.urls[0] != "https://shop.example/" {
		t.Fatalf("unexpected fetches: %v", f.urls)
	}
}

func TestPageSexpr_FetchFailureIsDocumentUnavailable(t *testing.T) {
	f := &stubFetcher{err: errors.New("unexpected status: 404")}
	r := mustRegistry(t, PageDeps{Fetcher: f})
	res := r.Call(context.Background(), PageSexprName, json.RawMessage(`{"url":"https://x/missing"}`))
	if !res.IsError || !strings.Contains(res.Text, "document unavailable") || !strings.Contains(res.Text, "404") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry()
	if res := r.Call(context.Background(), "nope", nil); !res.IsError {
		t.Fatalf("expected error result")
	}
}

func TestRegistry_Validation(t *testing.T) {
	r := NewRegistry()
	h := func(context.Context, json.RawMessage) (string, error) { return "", nil }
	bad := []ToolDefinition{
		{StableName: "Bad-Name", SemVer: "v1.0.0", JSONSchema: json.RawMessage(`{}`), Handler: h},
		{StableName: "ok", SemVer: "one", JSONSchema: json.RawMessage(`{}`), Handler: h},
		{StableName: "ok", SemVer: "v1.0.0", JSONSchema: json.RawMessage(`[]`), Handler: h},
		{StableName: "ok", SemVer: "v1.0.0", JSONSchema: json.RawMessage(`{}`)},
	}
	for i, def := range bad {
		if err := r.Register(def); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestSpecsAndEncodeTools(t *testing.T) {
	r := mustRegistry(t, PageDeps{})
	specs := r.Specs()
	if len(specs) != 1 || specs[0].Name != PageSexprName || !strings.HasSuffix(specs[0].Description, "(version v1.0.0)") {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	encoded := EncodeTools(specs)
	if encoded[0].Type != openai.ToolTypeFunction || encoded[0].Function.Name != PageSexprName {
		t.Fatalf("unexpected encoding: %+v", encoded[0])
	}
	meta := r.Catalog()
	if len(meta) != 1 || len(meta[0].Capabilities) != 2 {
		t.Fatalf("unexpected catalog: %+v", meta)
	}
}

func TestCallFromOpenAI(t *testing.T) {
	r := mustRegistry(t, PageDeps{})
	call := openai.ToolCall{
		ID:   "call_1",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      PageSexprName,
			Arguments: `{"html":"<label for=\"q\">Query</label>"}`,
		},
	}
	res := r.CallFromOpenAI(context.Background(), call)
	if res.IsError || res.Text != `(html (body (label {:for "q"} "Query")))` {
		t.Fatalf("unexpected result: %+v", res)
	}
}
