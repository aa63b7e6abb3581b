package compact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var (
	// ErrDocumentUnavailable is returned when a Source cannot supply a root
	// element. Nothing is produced for the call.
	ErrDocumentUnavailable = errors.New("document unavailable")
	// ErrTraversal is returned when a tree pass fails, for example when the
	// interactive tag list does not form a valid selector.
	ErrTraversal = errors.New("traversal failure")
)

// Source supplies a rendered document. Root may return either the document
// node or its html element; the pipeline never mutates what it returns.
type Source interface {
	Root(ctx context.Context) (*html.Node, error)
}

// HTMLSource parses a serialized page. ContentType is consulted for the
// charset when the body is not UTF-8.
type HTMLSource struct {
	Body        []byte
	ContentType string
}

func (s HTMLSource) Root(ctx context.Context) (*html.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(s.Body)) == 0 {
		return nil, errors.New("empty html body")
	}
	var r io.Reader = bytes.NewReader(s.Body)
	if enc, name, _ := charset.DetermineEncoding(s.Body, s.ContentType); name != "utf-8" {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// NodeSource wraps a tree that was parsed elsewhere. The tree is copied
// before every compaction, so one NodeSource can be compacted repeatedly.
type NodeSource struct {
	Node *html.Node
}

func (s NodeSource) Root(ctx context.Context) (*html.Node, error) {
	if s.Node == nil {
		return nil, errors.New("nil node")
	}
	return s.Node, nil
}

// loadDetached asks src for its document and returns a private deep copy of
// the html element.
func loadDetached(ctx context.Context, src Source) (*html.Node, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no source", ErrDocumentUnavailable)
	}
	n, err := src.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnavailable, err)
	}
	root := documentElement(n)
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrDocumentUnavailable)
	}
	return cloneTree(root), nil
}

func documentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		return n
	}
	if n.Type != html.DocumentNode {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Html || c.Data == "html") {
			return c
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// cloneTree copies n and its descendants into a new tree with no parent.
func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneTree(ch))
	}
	return c
}
