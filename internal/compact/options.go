package compact

import (
	"fmt"
	"sort"
	"strings"
)

// Options controls every stage of the compaction pipeline. A zero Options is
// valid but keeps very little; start from DefaultOptions.
type Options struct {
	// InteractiveTags are always kept by relevance pruning and anchor their
	// ancestors.
	InteractiveTags []string `json:"interactiveTags" yaml:"interactiveTags"`
	// KeepAttrs is the global attribute allow-list. When empty, the serializer
	// falls back to id, class, name, href, src, srcset, for, value, type, role.
	KeepAttrs []string `json:"keepAttrs" yaml:"keepAttrs"`

	StripAttrs    bool `json:"stripAttrs" yaml:"stripAttrs"`
	DropAriaAttrs bool `json:"dropAriaAttrs" yaml:"dropAriaAttrs"`
	DropDataAttrs bool `json:"dropDataAttrs" yaml:"dropDataAttrs"`
	KeepStyle     bool `json:"keepStyle" yaml:"keepStyle"`

	Pretty bool `json:"pretty" yaml:"pretty"`
	Indent int  `json:"indent" yaml:"indent"`

	// CSSHead folds id and classes into the head token (div#main.wide).
	CSSHead         bool   `json:"cssHead" yaml:"cssHead"`
	IncludeIDInHead bool   `json:"includeIdInHead" yaml:"includeIdInHead"`
	SpanAlias       string `json:"spanAlias" yaml:"spanAlias"`
	AttrMap         bool   `json:"attrMap" yaml:"attrMap"`
	RelevantOnly    bool   `json:"relevantOnly" yaml:"relevantOnly"`
}

// DefaultOptions returns the options used when a caller supplies none.
func DefaultOptions() Options {
	return Options{
		InteractiveTags: []string{"a", "button", "input", "select", "textarea", "option", "label", "summary", "details", "form"},
		KeepAttrs:       []string{"id", "class", "name", "href", "src", "srcset", "for", "value", "type", "role"},
		StripAttrs:      true,
		Indent:          2,
		CSSHead:         true,
		IncludeIDInHead: true,
		SpanAlias:       "span",
		AttrMap:         true,
		RelevantOnly:    true,
	}
}

// Validate reports option values the pipeline cannot honor.
func (o Options) Validate() error {
	if o.Indent < 0 {
		return fmt.Errorf("indent must not be negative, got %d", o.Indent)
	}
	for _, t := range o.InteractiveTags {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("interactive tag list contains an empty entry")
		}
	}
	return nil
}

func (o Options) interactiveSet() map[string]bool {
	m := make(map[string]bool, len(o.InteractiveTags))
	for _, t := range o.InteractiveTags {
		m[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return m
}

// interactiveSelector joins the interactive tags into a selector group in a
// stable order.
func (o Options) interactiveSelector() string {
	tags := make([]string, 0, len(o.InteractiveTags))
	for t := range o.interactiveSet() {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return strings.Join(tags, ", ")
}

func (o Options) keepSet() map[string]bool {
	m := make(map[string]bool, len(o.KeepAttrs))
	for _, a := range o.KeepAttrs {
		m[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return m
}

func (o Options) spanAlias() string {
	if o.SpanAlias == "" {
		return "span"
	}
	return o.SpanAlias
}
