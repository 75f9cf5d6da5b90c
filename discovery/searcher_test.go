package discovery_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/discovery"
	"github.com/fwojciec/adwatch/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

// item builds a catalog entry published minutesAgo before now.
func item(id int64, minutesAgo int, price int) map[string]any {
	return map[string]any{
		"id":            float64(id),
		"urlPath":       "/moskva/avtomobili/ad_" + strconv.FormatInt(id, 10),
		"title":         "Car",
		"priceDetailed": map[string]any{"value": float64(price)},
		"sortTimeStamp": float64(now.Add(-time.Duration(minutesAgo) * time.Minute).UnixMilli()),
	}
}

func catalogState(items ...map[string]any) adwatch.State {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = it
	}
	return adwatch.State{"data": map[string]any{"catalog": map[string]any{"items": list}}}
}

// site serves a fixed state per URL. The fetched markup is the URL itself so
// the extractor can look the state up.
type site struct {
	mu      sync.Mutex
	states  map[string]adwatch.State
	errs    map[string][]error
	fetched []string
}

func newSite() *site {
	return &site{states: map[string]adwatch.State{}, errs: map[string][]error{}}
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.fetched = append(s.fetched, url)
			if errs := s.errs[url]; len(errs) > 0 {
				s.errs[url] = errs[1:]
				if errs[0] != nil {
					return "", errs[0]
				}
			}
			return url, nil
		},
		CloseFn: func() error { return nil },
	}
}

func (s *site) extractor() *mock.StateExtractor {
	return &mock.StateExtractor{
		ExtractFn: func(markup string) adwatch.State {
			s.mu.Lock()
			defer s.mu.Unlock()
			if st, ok := s.states[markup]; ok {
				return st
			}
			return adwatch.State{}
		},
	}
}

func (s *site) searcher() *discovery.Searcher {
	return &discovery.Searcher{
		Fetcher:   s.fetcher(),
		Extractor: s.extractor(),
		Now:       func() time.Time { return now },
	}
}

func (s *site) fetches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func TestSearcher_Search(t *testing.T) {
	t.Parallel()

	const base = "https://www.avito.ru/moskva/avtomobili/bmw?q=x5"

	t.Run("stops after first page without marker script", func(t *testing.T) {
		t.Parallel()

		s := newSite()

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 5})

		require.NoError(t, err)
		assert.Empty(t, ads)
		assert.Equal(t, []string{base}, s.fetches())
	})

	t.Run("keeps only fresh entries", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 5, 100), item(2, 90, 100), item(3, 61, 100))

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 1, MaxAgeMinutes: intPtr(60)})

		require.NoError(t, err)
		require.Len(t, ads, 1)
		assert.Equal(t, int64(1), ads[0].ID)
	})

	t.Run("pages until catalog is empty", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 5, 100))
		s.states[base+"&p=2"] = catalogState(item(2, 5, 100))
		s.states[base+"&p=3"] = catalogState()

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 10})

		require.NoError(t, err)
		assert.Len(t, ads, 2)
		assert.Equal(t, []string{base, base + "&p=2", base + "&p=3"}, s.fetches())
	})

	t.Run("respects page budget", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 5, 100))
		s.states[base+"&p=2"] = catalogState(item(2, 5, 100))

		_, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 2})

		require.NoError(t, err)
		assert.Equal(t, []string{base, base + "&p=2"}, s.fetches())
	})

	t.Run("continues when a page is fully filtered", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 500, 100))
		s.states[base+"&p=2"] = catalogState(item(2, 5, 100))

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 2, MaxAgeMinutes: intPtr(60)})

		require.NoError(t, err)
		require.Len(t, ads, 1)
		assert.Equal(t, int64(2), ads[0].ID)
	})

	t.Run("drops ads repeated on later pages", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 5, 100), item(2, 5, 100))
		s.states[base+"&p=2"] = catalogState(item(2, 5, 100), item(3, 5, 100))

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 2})

		require.NoError(t, err)
		var ids []int64
		for _, a := range ads {
			ids = append(ids, a.ID)
		}
		assert.Equal(t, []int64{1, 2, 3}, ids)
	})

	t.Run("applies price ceiling", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 5, 100), item(2, 5, 5000))

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{MaxPrice: intPtr(1000)})

		require.NoError(t, err)
		require.Len(t, ads, 1)
		assert.Equal(t, int64(1), ads[0].ID)
	})

	t.Run("fails when a page cannot be fetched", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.states[base] = catalogState(item(1, 5, 100))
		s.errs[base+"&p=2"] = []error{&adwatch.FetchExhaustedError{URL: base + "&p=2", Attempts: 5}}

		ads, err := s.searcher().Search(context.Background(), base, discovery.SearchOptions{Pages: 2})

		var exhausted *adwatch.FetchExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Nil(t, ads)
	})

	t.Run("checks context before each page", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.searcher().Search(ctx, base, discovery.SearchOptions{Pages: 2})

		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, s.fetches())
	})

	t.Run("fetches with a context that cannot be canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		searcher := &discovery.Searcher{
			Fetcher: &mock.Fetcher{
				FetchFn: func(fctx context.Context, url string) (string, error) {
					cancel()
					if fctx.Err() != nil {
						return "", errors.New("fetch saw cancellation")
					}
					return "", nil
				},
			},
			Extractor: &mock.StateExtractor{ExtractFn: func(string) adwatch.State { return nil }},
		}

		_, err := searcher.Search(ctx, base, discovery.SearchOptions{})

		require.NoError(t, err)
	})

	t.Run("logs diagnostics for empty catalog", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		s := newSite()
		searcher := s.searcher()
		searcher.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		_, err := searcher.Search(context.Background(), base, discovery.SearchOptions{})

		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "catalog not found")
		assert.Contains(t, out, "markup_digest=")
		assert.Contains(t, out, "state_empty=true")
		assert.Contains(t, out, "markup sample")
	})
}
