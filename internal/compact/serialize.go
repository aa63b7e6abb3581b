package compact

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Serialize renders n as an S-expression. It does not modify n and returns
// the same bytes for the same tree and options.
func Serialize(n *html.Node, opts Options) string {
	s := serializer{opts: opts, keep: opts.keepSet()}
	if len(s.keep) == 0 {
		s.keep = defaultSerializedAttrs
	}
	var b strings.Builder
	s.node(&b, n, 0)
	return b.String()
}

type serializer struct {
	opts Options
	keep map[string]bool
}

// node writes the fragment for n and reports whether it wrote anything.
func (s serializer) node(b *strings.Builder, n *html.Node, depth int) bool {
	switch n.Type {
	case html.TextNode:
		text := normalizeSpace(n.Data)
		if text == "" {
			return false
		}
		s.indent(b, depth)
		b.WriteString(quote(text))
		return true
	case html.ElementNode:
		s.element(b, n, depth)
		return true
	case html.DocumentNode:
		wrote := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			var frag strings.Builder
			if !s.node(&frag, c, depth) {
				continue
			}
			if wrote {
				s.separator(b)
			}
			b.WriteString(frag.String())
			wrote = true
		}
		return wrote
	}
	return false
}

func (s serializer) element(b *strings.Builder, n *html.Node, depth int) {
	head, consumed := s.head(n)
	s.indent(b, depth)
	b.WriteByte('(')
	b.WriteString(head)
	if attrs := s.attrs(n, consumed); attrs != "" {
		b.WriteByte(' ')
		b.WriteString(attrs)
	}

	var kids strings.Builder
	wrote := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		var frag strings.Builder
		if !s.node(&frag, c, depth+1) {
			continue
		}
		s.separator(&kids)
		kids.WriteString(frag.String())
		wrote++
	}
	if wrote == 0 {
		b.WriteByte(')')
		return
	}
	b.WriteString(kids.String())
	if s.opts.Pretty {
		b.WriteByte('\n')
		s.indent(b, depth)
	}
	b.WriteByte(')')
}

// head builds the head token and returns the attribute names it absorbed.
func (s serializer) head(n *html.Node) (string, map[string]bool) {
	var base string
	switch tag := tagName(n); tag {
	case "div":
	case "span":
		base = s.opts.spanAlias()
	default:
		base = tag
	}
	consumed := map[string]bool{}
	var b strings.Builder
	b.WriteString(base)
	if s.opts.CSSHead {
		// Values that would break the head token stay in the attribute block.
		if id := attrValue(n, "id"); s.opts.IncludeIDInHead && (id == "" || headSafe(id)) {
			consumed["id"] = true
			if id != "" {
				b.WriteByte('#')
				b.WriteString(id)
			}
		}
		classes := strings.Fields(attrValue(n, "class"))
		if allHeadSafe(classes) {
			consumed["class"] = true
			for _, cls := range classes {
				b.WriteByte('.')
				b.WriteString(cls)
			}
		}
	}
	if b.Len() == 0 {
		return "div", consumed
	}
	return b.String(), consumed
}

// headUnsafe lists characters that cannot appear in an #id or .class suffix.
const headUnsafe = " \t\n\r\f\"()[]{}#.\\"

func headSafe(v string) bool {
	return v != "" && !strings.ContainsAny(v, headUnsafe)
}

func allHeadSafe(vs []string) bool {
	for _, v := range vs {
		if !headSafe(v) {
			return false
		}
	}
	return true
}

func (s serializer) attrs(n *html.Node, consumed map[string]bool) string {
	extra := tagAttrs[tagName(n)]
	type kv struct{ k, v string }
	var list []kv
	seen := map[string]bool{}
	for _, a := range n.Attr {
		k := strings.ToLower(a.Key)
		if consumed[k] || seen[k] || !s.emits(k, extra) {
			continue
		}
		seen[k] = true
		list = append(list, kv{k, a.Val})
	}
	if len(list) == 0 {
		return ""
	}
	sort.Slice(list, func(i, j int) bool { return list[i].k < list[j].k })
	parts := make([]string, 0, len(list))
	for _, p := range list {
		parts = append(parts, ":"+p.k+" "+quote(p.v))
	}
	joined := strings.Join(parts, " ")
	if s.opts.AttrMap {
		return "{" + joined + "}"
	}
	return joined
}

// emits decides serialization of an attribute that survived reduction.
// data- and aria- attributes follow the same drop flags as the reducer.
func (s serializer) emits(name string, extra []string) bool {
	if strings.HasPrefix(name, "on") {
		return false
	}
	if name == "style" {
		return s.opts.KeepStyle
	}
	if s.keep[name] || contains(extra, name) {
		return true
	}
	if strings.HasPrefix(name, "data-") {
		return !s.opts.DropDataAttrs
	}
	if strings.HasPrefix(name, "aria-") {
		return !s.opts.DropAriaAttrs
	}
	return false
}

func (s serializer) separator(b *strings.Builder) {
	if s.opts.Pretty {
		b.WriteByte('\n')
		return
	}
	b.WriteByte(' ')
}

func (s serializer) indent(b *strings.Builder, depth int) {
	if s.opts.Pretty && s.opts.Indent > 0 {
		b.WriteString(strings.Repeat(" ", s.opts.Indent*depth))
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
