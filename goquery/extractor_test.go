package goquery_test

import (
	"encoding/json"
	"html"
	"testing"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(scripts ...string) string {
	out := "<!DOCTYPE html><html><head><title>Avito</title></head><body><div id=\"app\"></div>"
	for _, s := range scripts {
		out += s
	}
	return out + "</body></html>"
}

func stateScript(payload string) string {
	return `<script type="mime/invalid" data-mfe-state="true">` + html.EscapeString(payload) + `</script>`
}

func TestStateExtractor_Extract(t *testing.T) {
	t.Parallel()

	extractor := goquery.NewStateExtractor()

	t.Run("returns state subtree", func(t *testing.T) {
		t.Parallel()

		markup := page(stateScript(`{"state":{"data":{"catalog":{"items":[]}}},"data":{"ignored":true}}`))

		state := extractor.Extract(markup)

		require.Contains(t, state, "data")
		assert.NotContains(t, state, "ignored")
		data := state["data"].(map[string]any)
		assert.Contains(t, data, "catalog")
	})

	t.Run("returns data subtree without state key", func(t *testing.T) {
		t.Parallel()

		markup := page(stateScript(`{"data":{"catalog":{"items":[]}}}`))

		state := extractor.Extract(markup)

		assert.Equal(t, adwatch.State{"catalog": map[string]any{"items": []any{}}}, state)
	})

	t.Run("returns parsed object without either key", func(t *testing.T) {
		t.Parallel()

		markup := page(stateScript(`{"listing":{"data":{}},"n":1}`))

		state := extractor.Extract(markup)

		assert.Equal(t, adwatch.State{"listing": map[string]any{"data": map[string]any{}}, "n": json.Number("1")}, state)
	})

	t.Run("unescapes entities before parsing", func(t *testing.T) {
		t.Parallel()

		markup := page(`<script type="mime/invalid">{&quot;state&quot;:{&quot;title&quot;:&quot;BMW &amp; Audi&quot;}}</script>`)

		state := extractor.Extract(markup)

		assert.Equal(t, "BMW & Audi", state["title"])
	})

	t.Run("ignores scripts of other types", func(t *testing.T) {
		t.Parallel()

		markup := page(
			`<script type="application/json">{"state":{"wrong":true}}</script>`,
			`<script>var x = {"state":{}};</script>`,
		)

		state := extractor.Extract(markup)

		assert.NotNil(t, state)
		assert.Empty(t, state)
	})

	t.Run("continues past unparsable candidate", func(t *testing.T) {
		t.Parallel()

		markup := page(
			`<script type="mime/invalid">{not json</script>`,
			stateScript(`{"state":{"ok":true}}`),
			stateScript(`{"state":{"second":true}}`),
		)

		state := extractor.Extract(markup)

		assert.Equal(t, adwatch.State{"ok": true}, state)
	})

	t.Run("skips candidate with trailing garbage", func(t *testing.T) {
		t.Parallel()

		markup := page(
			`<script type="mime/invalid">{"junk":1} not json</script>`,
			stateScript(`{"state":{"ok":true}}`),
		)

		state := extractor.Extract(markup)

		assert.Equal(t, adwatch.State{"ok": true}, state)
	})

	t.Run("skips candidate with two objects", func(t *testing.T) {
		t.Parallel()

		markup := page(
			`<script type="mime/invalid">{"a":1}{"b":2}</script>`,
			stateScript(`{"state":{"ok":true}}`),
		)

		assert.Equal(t, adwatch.State{"ok": true}, extractor.Extract(markup))
	})

	t.Run("accepts trailing whitespace", func(t *testing.T) {
		t.Parallel()

		markup := page(stateScript("{\"state\":{\"ok\":true}}\n  "))

		assert.Equal(t, adwatch.State{"ok": true}, extractor.Extract(markup))
	})

	t.Run("returns empty state for challenge page", func(t *testing.T) {
		t.Parallel()

		markup := `<html><body><h1>Доступ ограничен</h1><form id="captcha"></form></body></html>`

		state := extractor.Extract(markup)

		assert.NotNil(t, state)
		assert.Empty(t, state)
	})

	t.Run("returns empty state when every candidate is malformed", func(t *testing.T) {
		t.Parallel()

		markup := page(`<script type="mime/invalid">[1,2,3]</script>`, `<script type="mime/invalid"></script>`)

		assert.Empty(t, extractor.Extract(markup))
	})

	t.Run("never panics on garbage", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() {
			extractor.Extract("")
			extractor.Extract("\x00\x01<<<>>>")
		})
	})
}
