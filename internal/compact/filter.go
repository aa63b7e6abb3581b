package compact

import (
	"strings"

	"golang.org/x/net/html"
)

// filterStructure removes comments, denied and namespaced elements, then
// unwraps elements outside the HTML vocabulary. Each rule is a full pass and
// the root itself is never removed or unwrapped.
func filterStructure(root *html.Node) {
	removeComments(root)
	removeElements(root, func(n *html.Node) bool { return deniedTags[tagName(n)] })
	removeElements(root, func(n *html.Node) bool { return strings.Contains(n.Data, ":") })
	unwrapUnknown(root)
}

func removeComments(n *html.Node) {
	for _, c := range children(n) {
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			continue
		}
		removeComments(c)
	}
}

// removeElements detaches every descendant element matching drop, subtree
// included.
func removeElements(n *html.Node, drop func(*html.Node) bool) {
	for _, c := range children(n) {
		if c.Type != html.ElementNode {
			continue
		}
		if drop(c) {
			n.RemoveChild(c)
			continue
		}
		removeElements(c, drop)
	}
}

// unwrapUnknown walks children before deciding on the parent so nested
// unknown elements are unwrapped too.
func unwrapUnknown(n *html.Node) {
	for _, c := range children(n) {
		if c.Type != html.ElementNode {
			continue
		}
		unwrapUnknown(c)
		if !knownTags[tagName(c)] {
			unwrap(c)
		}
	}
}
