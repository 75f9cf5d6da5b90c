// Package discovery drives search runs: paging through search results,
// filtering out delivered ads, and handing fresh ones to the notifier.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/bloom"
	"github.com/fwojciec/adwatch/catalog"
)

// markupSampleLen is how much of an unusable page is logged at debug level.
const markupSampleLen = 800

// adsPerPage sizes the per-search dedup filter.
const adsPerPage = 50

// SearchOptions controls one paginated search.
type SearchOptions struct {
	// Pages is the page budget. Values below 1 mean one page.
	Pages int
	// MaxPrice drops ads with a known price above it. Nil disables it.
	MaxPrice *int
	// MaxAgeMinutes is the freshness window. Nil disables it.
	MaxAgeMinutes *int
}

// Searcher runs the fetch, extract, normalize loop over result pages.
type Searcher struct {
	Fetcher   adwatch.Fetcher
	Extractor adwatch.StateExtractor
	Logger    *slog.Logger
	// Now returns the reference time for the freshness window.
	Now func() time.Time
}

// Search collects ads from up to opts.Pages pages starting at rawURL.
//
// Paging stops early at the first page with an empty catalog. A fetch
// failure on any page fails the whole search. The context is checked
// between pages only; a fetch in progress always runs to completion.
func (s *Searcher) Search(ctx context.Context, rawURL string, opts SearchOptions) ([]*adwatch.Ad, error) {
	pages := max(opts.Pages, 1)
	seen := bloom.NewSet(uint(pages*adsPerPage), 0.001)
	logger := s.logger()

	var ads []*adwatch.Ad
	next := rawURL
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return ads, err
		}
		if page > 1 {
			logger.Info("search page", "page", page, "url", next)
		}

		markup, err := s.Fetcher.Fetch(context.WithoutCancel(ctx), next)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		state := s.Extractor.Extract(markup)
		if catalog.Lookup(state) == nil {
			s.logEmptyCatalog(next, markup, state)
			break
		}

		result := catalog.Normalize(state, catalog.Options{
			MaxPrice:      opts.MaxPrice,
			MaxAgeMinutes: opts.MaxAgeMinutes,
			Now:           s.now(),
		})
		if result.Entries == 0 {
			break
		}
		for _, ad := range result.Ads {
			if !seen.Add(ad.ID) {
				continue
			}
			ads = append(ads, ad)
		}

		if page == pages {
			break
		}
		if next, err = adwatch.NextPage(next); err != nil {
			return nil, err
		}
	}
	return ads, nil
}

// logEmptyCatalog records what came back when a page had no catalog, so an
// operator can tell a challenge page from a layout change.
func (s *Searcher) logEmptyCatalog(url, markup string, state adwatch.State) {
	logger := s.logger()
	logger.Warn("catalog not found",
		"url", url,
		"markup_len", len(markup),
		"markup_digest", fmt.Sprintf("%016x", xxhash.Sum64String(markup)),
		"state_empty", len(state) == 0,
		"state_keys", strings.Join(slices.Sorted(maps.Keys(state)), ","),
	)
	sample := markup
	if len(sample) > markupSampleLen {
		sample = sample[:markupSampleLen] + "..."
	}
	logger.Debug("catalog not found: markup sample", "sample", strings.ReplaceAll(sample, "\n", " "))
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Searcher) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
