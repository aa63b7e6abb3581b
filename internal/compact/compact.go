// Package compact turns a rendered HTML document into a compact S-expression
// that keeps interactive, identified and textual structure and drops the rest.
//
// The pipeline runs in a fixed order on a private copy of the document:
// structural filtering, inline payload stripping, hidden subtree pruning,
// attribute reduction, relevance pruning and serialization.
package compact

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// Stage names used in Stats and logs.
const (
	StageStructure  = "structure"
	StageVisibility = "visibility"
	StageRelevance  = "relevance"
)

// Stats describes one compaction run.
type Stats struct {
	// ElementsIn counts elements in the detached copy before any pass.
	ElementsIn int
	// Removed counts elements dropped per stage. Unwrapped elements count as
	// removed by the structure stage.
	Removed     map[string]int
	ElementsOut int
	OutputBytes int
	Duration    time.Duration
}

// Compact loads the document from src and returns its S-expression.
func Compact(ctx context.Context, src Source, opts Options) (string, error) {
	out, _, err := CompactWithStats(ctx, src, opts)
	return out, err
}

// CompactWithStats is Compact plus per-stage counters.
func CompactWithStats(ctx context.Context, src Source, opts Options) (string, Stats, error) {
	start := time.Now()
	stats := Stats{Removed: map[string]int{}}
	if err := opts.Validate(); err != nil {
		return "", stats, fmt.Errorf("options: %w", err)
	}
	root, err := loadDetached(ctx, src)
	if err != nil {
		return "", stats, err
	}
	stats.ElementsIn = countElements(root)

	if err := run(root, opts, &stats); err != nil {
		return "", stats, err
	}

	out := Serialize(root, opts)
	stats.ElementsOut = countElements(root)
	stats.OutputBytes = len(out)
	stats.Duration = time.Since(start)
	log.Debug().
		Int("elements_in", stats.ElementsIn).
		Int("elements_out", stats.ElementsOut).
		Int("bytes", stats.OutputBytes).
		Dur("took", stats.Duration).
		Msg("compacted document")
	return out, stats, nil
}

// run applies every mutating pass to root in order.
func run(root *html.Node, opts Options, stats *Stats) error {
	measure := func(stage string, pass func() error) error {
		before := countElements(root)
		if err := pass(); err != nil {
			return err
		}
		removed := before - countElements(root)
		stats.Removed[stage] += removed
		log.Debug().Str("stage", stage).Int("removed", removed).Msg("compact pass")
		return nil
	}

	if err := measure(StageStructure, func() error {
		filterStructure(root)
		stripInlinePayloads(root)
		return nil
	}); err != nil {
		return err
	}
	if err := measure(StageVisibility, func() error {
		pruneHidden(root)
		return nil
	}); err != nil {
		return err
	}
	if opts.StripAttrs {
		reduceAttrs(root, opts)
	}
	if opts.RelevantOnly {
		return measure(StageRelevance, func() error {
			return pruneIrrelevant(root, opts)
		})
	}
	return nil
}
