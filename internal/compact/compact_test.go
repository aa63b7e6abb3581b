package compact

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func compactString(t *testing.T, page string, opts Options) string {
	t.Helper()
	out, err := Compact(context.Background(), HTMLSource{Body: []byte(page)}, opts)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	return out
}

func TestCompact_MinimalDocument(t *testing.T) {
	got := compactString(t, `<div id="x"><button>Go</button></div>`, DefaultOptions())
	want := `(html (body (#x (button "Go"))))`
	if got != want {
		t.Fatalf("unexpected output\n got: %s\nwant: %s", got, want)
	}
	if !strings.Contains(got, `(#x (button "Go"))`) {
		t.Fatalf("expected div subtree in output: %s", got)
	}
}

func TestCompact_DeniedSubtreesVanish(t *testing.T) {
	page := `<body>
      <script>window.secret = "alert(1)"</script>
      <svg id="icon"><g id="g1"><text>label</text></g></svg>
      <style>.x{color:red}</style>
      <p id="keep">kept text</p>
    </body>`
	got := compactString(t, page, DefaultOptions())
	for _, bad := range []string{"alert", "secret", "g1", "label", "icon", "color"} {
		if strings.Contains(got, bad) {
			t.Fatalf("output should not contain %q: %s", bad, got)
		}
	}
	if !strings.Contains(got, `(p#keep "kept text")`) {
		t.Fatalf("expected paragraph to survive: %s", got)
	}
}

func TestCompact_UnwrapsCustomElements(t *testing.T) {
	page := `<my-widget><inner-frame><button id="b1">Buy</button></inner-frame></my-widget>`
	got := compactString(t, page, DefaultOptions())
	if !strings.Contains(got, `(button#b1 "Buy")`) {
		t.Fatalf("expected unwrapped button: %s", got)
	}
	if strings.Contains(got, "my-widget") || strings.Contains(got, "inner-frame") {
		t.Fatalf("custom tag names should be gone: %s", got)
	}
	if got != `(html (body (button#b1 "Buy")))` {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestCompact_RemovesNamespacedAndComments(t *testing.T) {
	page := `<div id="wrap"><!-- internal note --><fb:like id="fb">Like</fb:like><a href="/x">x</a></div>`
	got := compactString(t, page, DefaultOptions())
	if strings.Contains(got, "internal note") || strings.Contains(got, "fb") || strings.Contains(got, "Like") {
		t.Fatalf("comment or namespaced element leaked: %s", got)
	}
	if got != `(html (body (#wrap (a {:href "/x"} "x"))))` {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestCompact_HiddenAncestorRemovesVisibleChild(t *testing.T) {
	page := `<div style="color: red; display:none"><button id="inner">Hidden</button></div>
      <section aria-hidden=" TRUE "><a id="a1" href="#">x</a></section>
      <p hidden>gone</p>
      <input type="hidden" name="csrf" value="t">
      <button id="shown">Shown</button>`
	got := compactString(t, page, DefaultOptions())
	for _, bad := range []string{"inner", "a1", "gone", "csrf"} {
		if strings.Contains(got, bad) {
			t.Fatalf("hidden content %q leaked: %s", bad, got)
		}
	}
	if got != `(html (body (button#shown "Shown")))` {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestCompact_RelevancePrunesDecorativeContainers(t *testing.T) {
	decorative := compactString(t, `<section><div><span></span></div></section>`, DefaultOptions())
	if decorative != `(html (body))` {
		t.Fatalf("decorative section should be pruned: %s", decorative)
	}
	identified := compactString(t, `<section id="s"><div><span></span></div></section>`, DefaultOptions())
	if identified != `(html (body (section#s)))` {
		t.Fatalf("identified section should be kept: %s", identified)
	}
}

func TestCompact_RelevanceKeepsAncestorsOfInteractive(t *testing.T) {
	page := `<main><div class="row"><div class="cell"><a href="/buy">Buy</a></div></div><div class="spacer"> </div></main>`
	got := compactString(t, page, DefaultOptions())
	want := `(html (body (main (.row (.cell (a {:href "/buy"} "Buy"))))))`
	if got != want {
		t.Fatalf("unexpected output\n got: %s\nwant: %s", got, want)
	}
}

func TestCompact_RelevanceDisabledKeepsEverything(t *testing.T) {
	opts := DefaultOptions()
	opts.RelevantOnly = false
	got := compactString(t, `<section><div><span></span></div></section>`, opts)
	if got != `(html (head) (body (section (div (span)))))` {
		t.Fatalf("unexpected output: %s", got)
	}
}

func TestCompact_AttributeStripping(t *testing.T) {
	page := `<button id="b" onclick="go()" data-foo="1" aria-label="Go" title="t">x</button>`

	opts := DefaultOptions()
	opts.KeepAttrs = append(opts.KeepAttrs, "onclick")
	got := compactString(t, page, opts)
	if strings.Contains(got, "onclick") {
		t.Fatalf("onclick must always be stripped: %s", got)
	}
	if got != `(html (body (button#b {:aria-label "Go" :data-foo "1"} "x")))` {
		t.Fatalf("unexpected output: %s", got)
	}

	opts.DropDataAttrs = true
	opts.DropAriaAttrs = true
	got = compactString(t, page, opts)
	if got != `(html (body (button#b "x")))` {
		t.Fatalf("data and aria attributes should be dropped: %s", got)
	}
}

func TestCompact_StripsDataURIs(t *testing.T) {
	page := `<img id="i1" src="data:image/png;base64,AAAA"><img id="i2" src="https://x/y.png">` +
		`<img id="i3" srcset="DATA:image/png;base64,AAAA 1x, https://x/z.png 2x">`
	got := compactString(t, page, DefaultOptions())
	want := `(html (body (img#i1 {:src ""}) (img#i2 {:src "https://x/y.png"}) (img#i3 {:srcset "https://x/z.png 2x"})))`
	if got != want {
		t.Fatalf("unexpected output\n got: %s\nwant: %s", got, want)
	}
}

func TestCompact_DeterministicAndSourceUntouched(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div id="m" class="b a" data-z="1" data-a="2"><a href="/x" onclick="y()">go</a><!-- c --></div>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var before bytes.Buffer
	if err := html.Render(&before, doc); err != nil {
		t.Fatalf("render: %v", err)
	}
	src := NodeSource{Node: doc}
	first, err := Compact(context.Background(), src, DefaultOptions())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Compact(context.Background(), src, DefaultOptions())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("run %d differs:\n%s\n%s", i, again, first)
		}
	}
	if first != `(html (body (#m.b.a {:data-a "2" :data-z "1"} (a {:href "/x"} "go"))))` {
		t.Fatalf("unexpected output: %s", first)
	}
	var after bytes.Buffer
	if err := html.Render(&after, doc); err != nil {
		t.Fatalf("render: %v", err)
	}
	if before.String() != after.String() {
		t.Fatalf("source tree was mutated\nbefore: %s\nafter:  %s", before.String(), after.String())
	}
}

type failingSource struct{ err error }

func (f failingSource) Root(context.Context) (*html.Node, error) { return nil, f.err }

func TestCompact_DocumentUnavailable(t *testing.T) {
	cases := []struct {
		name string
		src  Source
	}{
		{"nil source", nil},
		{"empty html", HTMLSource{Body: []byte("   ")}},
		{"nil node", NodeSource{}},
		{"source error", failingSource{err: errors.New("target closed")}},
		{"text node", NodeSource{Node: &html.Node{Type: html.TextNode, Data: "x"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Compact(context.Background(), tc.src, DefaultOptions())
			if !errors.Is(err, ErrDocumentUnavailable) {
				t.Fatalf("expected ErrDocumentUnavailable, got %v", err)
			}
			if out != "" {
				t.Fatalf("expected no output, got %q", out)
			}
		})
	}
}

func TestCompact_SourceErrorKeepsCause(t *testing.T) {
	_, err := Compact(context.Background(), failingSource{err: context.DeadlineExceeded}, DefaultOptions())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestCompact_MalformedInteractiveTagsIsTraversalFailure(t *testing.T) {
	opts := DefaultOptions()
	opts.InteractiveTags = []string{"a[", "button"}
	_, err := Compact(context.Background(), HTMLSource{Body: []byte(`<a href="/">x</a>`)}, opts)
	if !errors.Is(err, ErrTraversal) {
		t.Fatalf("expected ErrTraversal, got %v", err)
	}
}

func TestCompact_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Indent = -1
	if _, err := Compact(context.Background(), HTMLSource{Body: []byte(`<p>x</p>`)}, opts); err == nil {
		t.Fatalf("expected error for negative indent")
	}
}

func TestCompactWithStats_CountsRemovals(t *testing.T) {
	page := `<script>x</script><my-el><p id="p">t</p></my-el><div style="display:none"><p>h</p></div><div><span></span></div>`
	_, stats, err := CompactWithStats(context.Background(), HTMLSource{Body: []byte(page)}, DefaultOptions())
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	// head holds the script after parsing; my-el is unwrapped.
	if stats.Removed[StageStructure] != 2 {
		t.Fatalf("structure removed = %d, want 2", stats.Removed[StageStructure])
	}
	if stats.Removed[StageVisibility] != 2 {
		t.Fatalf("visibility removed = %d, want 2", stats.Removed[StageVisibility])
	}
	// head, div and span go during relevance pruning.
	if stats.Removed[StageRelevance] != 3 {
		t.Fatalf("relevance removed = %d, want 3", stats.Removed[StageRelevance])
	}
	if stats.ElementsOut != 3 || stats.OutputBytes == 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHTMLSource_DecodesLegacyCharset(t *testing.T) {
	body := []byte("<p id=\"p\">caf\xe9</p>")
	out, err := Compact(context.Background(), HTMLSource{Body: body, ContentType: "text/html; charset=iso-8859-1"}, DefaultOptions())
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if !strings.Contains(out, `(p#p "café")`) {
		t.Fatalf("expected decoded text: %s", out)
	}
}
