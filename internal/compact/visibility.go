package compact

import (
	"strings"

	"golang.org/x/net/html"
)

// pruneHidden removes every element that is hidden itself or sits below a
// hidden ancestor. The root is not evaluated.
func pruneHidden(root *html.Node) {
	pruneHiddenBelow(root, false)
}

func pruneHiddenBelow(n *html.Node, hiddenUpstream bool) {
	for _, c := range children(n) {
		if c.Type != html.ElementNode {
			continue
		}
		hidden := hiddenUpstream || selfHidden(c)
		if hidden {
			n.RemoveChild(c)
			continue
		}
		pruneHiddenBelow(c, hidden)
	}
}

func selfHidden(n *html.Node) bool {
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(attrValue(n, "aria-hidden"))) {
	case "true", "1", "yes":
		return true
	}
	if tagName(n) == "input" && strings.EqualFold(strings.TrimSpace(attrValue(n, "type")), "hidden") {
		return true
	}
	style, ok := attr(n, "style")
	if !ok {
		return false
	}
	return styleHides(style)
}

// styleHides inspects an inline style declaration list for display:none,
// visibility:hidden or a zero opacity.
func styleHides(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToLower(strings.TrimSpace(val))
		switch key {
		case "display":
			if strings.Contains(val, "none") {
				return true
			}
		case "visibility":
			if strings.Contains(val, "hidden") {
				return true
			}
		case "opacity":
			if strings.HasPrefix(val, "0") {
				return true
			}
		}
	}
	return false
}
