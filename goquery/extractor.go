// Package goquery locates data embedded in search page markup using
// github.com/PuerkitoBio/goquery.
package goquery

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/adwatch"
	"golang.org/x/net/html"
)

// StateScriptSelector matches the script elements carrying application
// state. The content type is non-executable so browsers ignore the body.
const StateScriptSelector = `script[type="mime/invalid"]`

// Ensure StateExtractor implements adwatch.StateExtractor at compile time.
var _ adwatch.StateExtractor = (*StateExtractor)(nil)

// StateExtractor pulls the embedded JSON state out of a search page.
type StateExtractor struct{}

// NewStateExtractor creates a new StateExtractor.
func NewStateExtractor() *StateExtractor {
	return &StateExtractor{}
}

// Extract returns the state tree of the first marker script whose body
// parses as a JSON object. A top-level "state" key wins over "data"; with
// neither the parsed object is returned as is. Markup without a usable
// script yields an empty State.
func (e *StateExtractor) Extract(markup string) adwatch.State {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return adwatch.State{}
	}

	var state adwatch.State
	doc.Find(StateScriptSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		parsed, ok := parseState(sel.Text())
		if !ok {
			return true
		}
		state = parsed
		return false
	})
	if state == nil {
		return adwatch.State{}
	}
	return state
}

func parseState(body string) (adwatch.State, bool) {
	dec := json.NewDecoder(strings.NewReader(html.UnescapeString(body)))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil || root == nil {
		return nil, false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, false
	}
	for _, key := range []string{"state", "data"} {
		if v, ok := root[key]; ok {
			sub, _ := v.(map[string]any)
			return adwatch.State(sub), true
		}
	}
	return adwatch.State(root), true
}
