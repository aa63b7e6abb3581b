package compact

import (
	"strings"

	"golang.org/x/net/html"
)

// reduceAttrs narrows the attributes of every element below root (root
// included) to the allow-list.
func reduceAttrs(root *html.Node, opts Options) {
	keep := opts.keepSet()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			n.Attr = allowedAttrs(n, keep, opts)
		}
		for _, c := range children(n) {
			walk(c)
		}
	}
	walk(root)
}

func allowedAttrs(n *html.Node, keep map[string]bool, opts Options) []html.Attribute {
	extra := tagAttrs[tagName(n)]
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if keepAttr(strings.ToLower(a.Key), keep, extra, opts) {
			out = append(out, a)
		}
	}
	return out
}

// keepAttr applies the reduction rules in order: event handlers and style go
// first regardless of the allow-list.
func keepAttr(name string, keep map[string]bool, extra []string, opts Options) bool {
	if strings.HasPrefix(name, "on") {
		return false
	}
	if name == "style" {
		return opts.KeepStyle
	}
	if keep[name] || contains(extra, name) {
		return true
	}
	if strings.HasPrefix(name, "data-") {
		return !opts.DropDataAttrs
	}
	if strings.HasPrefix(name, "aria-") {
		return !opts.DropAriaAttrs
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
