package fetch

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/hyperifyio/pagesexpr/internal/compact"
)

// Getter retrieves a page by URL. *Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (Page, error)
}

// Source implements compact.Source by fetching URL when the pipeline asks
// for the document.
type Source struct {
	Getter Getter
	URL    string
}

func (s Source) Root(ctx context.Context) (*html.Node, error) {
	page, err := s.Getter.Get(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	return compact.HTMLSource{Body: page.Body, ContentType: page.ContentType}.Root(ctx)
}
