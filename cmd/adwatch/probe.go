package main

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/catalog"
)

// Run executes the probe command. Each strategy's result is reported on its
// own line; a failing strategy does not stop the others.
func (c *ProbeCmd) Run(deps *Dependencies) error {
	if len(deps.Probes) == 0 {
		return adwatch.Errorf(adwatch.EINVALID, "no fetch strategies configured")
	}

	working := 0
	for _, p := range deps.Probes {
		markup, ok := p.Fetch(deps.Ctx, c.URL)
		if !ok {
			fmt.Fprintf(deps.Stdout, "%-8s  failed\n", p.Name)
			continue
		}

		state := deps.Extractor.Extract(markup)
		entries := 0
		if raw := catalog.Lookup(state); raw != nil {
			entries = catalog.Normalize(state, catalog.Options{}).Entries
			working++
		}
		fmt.Fprintf(deps.Stdout, "%-8s  %d bytes  digest=%016x  state=%t  entries=%d\n",
			p.Name, len(markup), xxhash.Sum64String(markup), len(state) > 0, entries)
	}

	if working == 0 {
		fmt.Fprintln(deps.Stdout, "No strategy returned a catalog. The page may be a bot challenge.")
	}
	return nil
}
