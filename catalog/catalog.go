// Package catalog turns the embedded search state into normalized ads.
//
// The catalog payload is loosely typed and changes shape without notice, so
// entries are decoded with github.com/mitchellh/mapstructure into a narrow
// schema and coerced field by field. A payload that does not fit the schema
// yields no ads rather than an error.
package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/adwatch"
	"github.com/mitchellh/mapstructure"
)

// millisThreshold separates second timestamps from millisecond timestamps.
const millisThreshold = 1_000_000_000_000

// Options controls the filters applied during normalization.
type Options struct {
	// MaxPrice drops ads with a known price above it. Nil disables the filter.
	MaxPrice *int
	// MaxAgeMinutes drops ads without a timestamp, older than the window, or
	// dated in the future. Nil disables the filter.
	MaxAgeMinutes *int
	// Now is the reference time for the age filter. Zero means time.Now.
	Now time.Time
}

// Page is the normalized content of one search results page.
type Page struct {
	// Ads are the entries that survived every filter, in catalog order.
	Ads []*adwatch.Ad
	// Entries is the number of raw catalog entries before filtering.
	// Zero means the page had no results, was blocked, or was malformed.
	Entries int
}

type listing struct {
	Items []item `json:"items"`
}

type item struct {
	ID              any                 `json:"id"`
	URLPath         string              `json:"urlPath"`
	Title           string              `json:"title"`
	PriceDetailed   *priceDetailed      `json:"priceDetailed"`
	Images          []map[string]string `json:"images"`
	SortTimeStamp   any                 `json:"sortTimeStamp"`
	Location        *location           `json:"location"`
	AddressDetailed *addressDetailed    `json:"addressDetailed"`
}

type priceDetailed struct {
	Value any `json:"value"`
}

type location struct {
	Name string `json:"name"`
}

type addressDetailed struct {
	LocationName string `json:"locationName"`
}

// Lookup returns the catalog subtree of a search state. It tries
// data.catalog, then listing.data.catalog; the first non-empty one wins.
// It returns nil when neither exists.
func Lookup(state adwatch.State) map[string]any {
	if c := dig(state, "data", "catalog"); len(c) > 0 {
		return c
	}
	if c := dig(state, "listing", "data", "catalog"); len(c) > 0 {
		return c
	}
	return nil
}

func dig(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Normalize locates the catalog in state and converts its entries to ads.
func Normalize(state adwatch.State, opts Options) *Page {
	raw := Lookup(state)
	if raw == nil {
		return &Page{}
	}
	items, err := decode(raw)
	if err != nil {
		return &Page{}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	page := &Page{Entries: len(items)}
	for i := range items {
		if ad, ok := normalizeItem(&items[i], opts, now); ok {
			page.Ads = append(page.Ads, ad)
		}
	}
	return page
}

func decode(raw map[string]any) ([]item, error) {
	var out listing
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// normalizeItem applies the entry filters in order and builds the ad.
func normalizeItem(it *item, opts Options, now time.Time) (*adwatch.Ad, bool) {
	id := parseID(it.ID)
	if id <= 0 || it.URLPath == "" {
		return nil, false
	}

	var price *int
	if it.PriceDetailed != nil {
		if v, ok := toInt(it.PriceDetailed.Value); ok && v >= 0 {
			p := int(v)
			price = &p
		}
	}
	if opts.MaxPrice != nil && price != nil && *price > *opts.MaxPrice {
		return nil, false
	}

	title := strings.TrimSpace(it.Title)
	if title == "" {
		return nil, false
	}

	var imageURL string
	if len(it.Images) > 0 {
		imageURL = BestImage(it.Images[0])
	}

	published := parseTimestamp(it.SortTimeStamp)
	if opts.MaxAgeMinutes != nil {
		if published == nil {
			return nil, false
		}
		age := now.Sub(*published)
		if age < 0 || age > time.Duration(*opts.MaxAgeMinutes)*time.Minute {
			return nil, false
		}
	}

	return &adwatch.Ad{
		ID:          id,
		Title:       title,
		Price:       price,
		URL:         adwatch.SiteOrigin + it.URLPath,
		Location:    locationName(it),
		ImageURL:    imageURL,
		PublishedAt: published,
	}, true
}

// parseID accepts a number, a numeric string, or an object {"value": N}.
func parseID(v any) int64 {
	if m, ok := v.(map[string]any); ok {
		v = m["value"]
	}
	n, ok := toInt(v)
	if !ok {
		return 0
	}
	return n
}

func locationName(it *item) string {
	if it.Location != nil && it.Location.Name != "" {
		return it.Location.Name
	}
	if it.AddressDetailed != nil {
		return it.AddressDetailed.LocationName
	}
	return ""
}

// BestImage returns the URL of the entry whose "WIDTHxHEIGHT" key has the
// largest pixel area. Keys that do not parse are skipped. Ties go to the
// lexically smaller key.
func BestImage(images map[string]string) string {
	var (
		bestKey  string
		bestArea int64 = -1
	)
	for key, u := range images {
		if u == "" {
			continue
		}
		w, h, ok := parseResolution(key)
		if !ok {
			continue
		}
		area := w * h
		if area > bestArea || (area == bestArea && key < bestKey) {
			bestKey, bestArea = key, area
		}
	}
	if bestArea < 0 {
		return ""
	}
	return images[bestKey]
}

func parseResolution(key string) (int64, int64, bool) {
	ws, hs, found := strings.Cut(key, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.ParseInt(ws, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.ParseInt(hs, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// parseTimestamp reads seconds or milliseconds since the epoch.
func parseTimestamp(v any) *time.Time {
	n, ok := toInt(v)
	if !ok {
		return nil
	}
	var t time.Time
	if n >= millisThreshold {
		t = time.UnixMilli(n).UTC()
	} else {
		t = time.Unix(n, 0).UTC()
	}
	return &t
}

// toInt coerces the scalar shapes decoded JSON can take into an integer.
// Fractions are truncated.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
