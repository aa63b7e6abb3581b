package compact

// deniedTags are non-content elements removed together with their subtree.
var deniedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"meta":     true,
	"link":     true,
	"svg":      true,
	"math":     true,
}

// knownTags is the HTML element vocabulary. Elements outside it are unwrapped
// so that content authored through custom elements survives.
var knownTags = setOf(
	"a", "abbr", "address", "area", "article", "aside", "audio",
	"b", "base", "bdi", "bdo", "blockquote", "body", "br", "button",
	"canvas", "caption", "cite", "code", "col", "colgroup",
	"data", "datalist", "dd", "del", "details", "dfn", "dialog", "div", "dl", "dt",
	"em", "embed",
	"fieldset", "figcaption", "figure", "footer", "form",
	"h1", "h2", "h3", "h4", "h5", "h6", "head", "header", "hgroup", "hr", "html",
	"i", "iframe", "img", "input", "ins",
	"kbd",
	"label", "legend", "li", "link",
	"main", "map", "mark", "math", "menu", "meta", "meter",
	"nav", "noscript",
	"object", "ol", "optgroup", "option", "output",
	"p", "param", "picture", "pre", "progress",
	"q",
	"rp", "rt", "ruby",
	"s", "samp", "script", "search", "section", "select", "slot", "small", "source",
	"span", "strong", "style", "sub", "summary", "sup", "svg",
	"table", "tbody", "td", "template", "textarea", "tfoot", "th", "thead", "time",
	"title", "tr", "track",
	"u", "ul",
	"var", "video",
	"wbr",
)

// tagAttrs lists attributes kept on specific tags in addition to the global
// keep list. The form entry is deliberately empty: forms keep only globally
// allowed attributes.
var tagAttrs = map[string][]string{
	"a":        {"href", "target", "rel"},
	"img":      {"src", "srcset", "alt"},
	"source":   {"src", "srcset", "type", "media"},
	"input":    {"type", "name", "value", "checked", "disabled", "placeholder"},
	"button":   {"type", "name", "value", "disabled"},
	"select":   {"name", "multiple", "disabled"},
	"option":   {"value", "selected", "disabled"},
	"textarea": {"name", "placeholder", "disabled"},
	"label":    {"for"},
	"form":     {},
	"iframe":   {"src", "title"},
	"video":    {"src", "poster"},
	"audio":    {"src"},
	"td":       {"colspan", "rowspan"},
	"th":       {"colspan", "rowspan", "scope"},
}

// defaultSerializedAttrs is used by the serializer when Options.KeepAttrs is
// empty.
var defaultSerializedAttrs = setOf(
	"id", "class", "name", "href", "src", "srcset", "for", "value", "type", "role",
)

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
