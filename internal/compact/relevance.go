package compact

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

type relevancePruner struct {
	root        *html.Node
	interactive map[string]bool
	// descendant matches any interactive tag; nil when there are none.
	descendant cascadia.Matcher
}

func newRelevancePruner(root *html.Node, opts Options) (*relevancePruner, error) {
	p := &relevancePruner{root: root, interactive: opts.interactiveSet()}
	if len(p.interactive) == 0 {
		return p, nil
	}
	sel := opts.interactiveSelector()
	group, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: interactive selector %q: %w", ErrTraversal, sel, err)
	}
	p.descendant = group
	return p, nil
}

// pruneIrrelevant keeps only elements that are interactive, identified, carry
// direct text, or lead to such an element. The root and its body are kept
// regardless.
func pruneIrrelevant(root *html.Node, opts Options) error {
	p, err := newRelevancePruner(root, opts)
	if err != nil {
		return err
	}
	p.keep(root)
	return nil
}

// keep decides children first, then n.
func (p *relevancePruner) keep(n *html.Node) bool {
	for _, c := range children(n) {
		if c.Type == html.ElementNode && !p.keep(c) && !p.anchored(c) {
			n.RemoveChild(c)
		}
	}
	for _, c := range children(n) {
		if c.Type == html.TextNode && isBlank(c.Data) {
			n.RemoveChild(c)
		}
	}
	return p.relevant(n)
}

func (p *relevancePruner) anchored(n *html.Node) bool {
	return n == p.root || (n.Parent == p.root && tagName(n) == "body")
}

func (p *relevancePruner) relevant(n *html.Node) bool {
	if p.interactive[tagName(n)] {
		return true
	}
	if strings.TrimSpace(attrValue(n, "id")) != "" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && !isBlank(c.Data) {
			return true
		}
	}
	return p.descendant != nil && cascadia.Query(n, p.descendant) != nil
}
