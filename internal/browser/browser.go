// Package browser reads the rendered DOM of a tab in an already running
// Chrome through the DevTools protocol. It never navigates; the page must be
// loaded by whoever owns the browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// DefaultTimeout bounds attaching and reading the DOM when Source.Timeout is
// zero.
const DefaultTimeout = 15 * time.Second

const outerHTMLScript = `document.documentElement ? document.documentElement.outerHTML : ""`

// ErrNoPageTarget is returned when the browser has no page tab to read.
var ErrNoPageTarget = errors.New("no page target")

// Source implements compact.Source against a remote debugging endpoint such
// as http://127.0.0.1:9222 or a ws:// browser URL.
type Source struct {
	DebuggerURL string
	// TargetID selects a tab. Empty means the first page target.
	TargetID string
	Timeout  time.Duration
}

// Root snapshots the tab's document element and parses it.
func (s Source) Root(ctx context.Context) (*html.Node, error) {
	if strings.TrimSpace(s.DebuggerURL) == "" {
		return nil, errors.New("debugger url is required")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, s.DebuggerURL)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	infos, err := chromedp.Targets(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	id, err := pickTarget(infos, s.TargetID)
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithTargetID(id))
	defer cancelTab()
	var outer string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(outerHTMLScript, &outer)); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	log.Debug().Str("target", string(id)).Int("bytes", len(outer)).Msg("captured rendered document")
	return parseOuterHTML(outer)
}

// pickTarget returns want when it names a page target, or the first page
// target when want is empty.
func pickTarget(infos []*target.Info, want string) (target.ID, error) {
	for _, info := range infos {
		if info == nil || info.Type != "page" {
			continue
		}
		if want == "" || string(info.TargetID) == want {
			return info.TargetID, nil
		}
	}
	if want != "" {
		return "", fmt.Errorf("%w: %s", ErrNoPageTarget, want)
	}
	return "", ErrNoPageTarget
}

func parseOuterHTML(outer string) (*html.Node, error) {
	if strings.TrimSpace(outer) == "" {
		return nil, errors.New("document has no root element")
	}
	doc, err := html.Parse(strings.NewReader(outer))
	if err != nil {
		return nil, fmt.Errorf("parse rendered document: %w", err)
	}
	return doc, nil
}
