package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/discovery"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	opts := discovery.SearchOptions{
		Pages:    deps.Config.Pages,
		MaxPrice: c.MaxPrice,
	}
	if c.Pages > 0 {
		opts.Pages = c.Pages
	}
	maxAge := deps.Config.MaxAgeMinutes
	if c.MaxAge != nil {
		maxAge = *c.MaxAge
	}
	if maxAge > 0 {
		opts.MaxAgeMinutes = &maxAge
	}

	ads, err := deps.Searcher.Search(deps.Ctx, c.URL, opts)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}

	if len(ads) == 0 {
		fmt.Fprintln(deps.Stdout, "No ads found.")
		return nil
	}

	for _, ad := range ads {
		printAd(deps.Stdout, ad)
	}
	fmt.Fprintf(deps.Stdout, "%d ads\n", len(ads))
	return nil
}

func printAd(w io.Writer, ad *adwatch.Ad) {
	price := "-"
	if ad.Price != nil {
		price = fmt.Sprintf("%d RUB", *ad.Price)
	}
	published := "-"
	if ad.PublishedAt != nil {
		published = ad.PublishedAt.Format("2006-01-02 15:04")
	}
	fmt.Fprintf(w, "%d  %s  %s  %s\n", ad.ID, published, price, ad.Title)
	fmt.Fprintf(w, "    %s\n", ad.URL)
}
