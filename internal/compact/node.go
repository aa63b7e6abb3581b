package compact

import (
	"strings"

	"golang.org/x/net/html"
)

// children snapshots n's child list so callers can detach nodes while
// iterating.
func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func tagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

// unwrap moves n's children into its parent at n's position and detaches n.
func unwrap(n *html.Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for _, c := range children(n) {
		n.RemoveChild(c)
		p.InsertBefore(c, n)
	}
	p.RemoveChild(n)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func countElements(n *html.Node) int {
	total := 0
	if n.Type == html.ElementNode {
		total++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += countElements(c)
	}
	return total
}
