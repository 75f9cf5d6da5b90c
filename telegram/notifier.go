// Package telegram delivers ads through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/adwatch"
)

// Defaults used when the matching option is not given.
const (
	DefaultBaseURL = "https://api.telegram.org"
	DefaultTimeout = 15 * time.Second
)

// moscow is the display zone for publish times. Moscow has stayed at
// UTC+3 without daylight saving since 2014.
var moscow = time.FixedZone("MSK", 3*60*60)

// Ensure Notifier implements adwatch.Notifier at compile time.
var _ adwatch.Notifier = (*Notifier)(nil)

// Notifier sends ads to subscriber chats through a bot.
type Notifier struct {
	token   string
	baseURL string
	client  *http.Client
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBaseURL points the notifier at a different Bot API server.
func WithBaseURL(u string) Option {
	return func(n *Notifier) {
		n.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout bounds each API call. Defaults to 15s.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		n.client.Timeout = d
	}
}

// WithProxy routes API calls through an HTTP or SOCKS5 proxy. A nil URL
// leaves the default transport in place.
func WithProxy(proxy *url.URL) Option {
	return func(n *Notifier) {
		if proxy == nil {
			return
		}
		n.client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}
}

// NewNotifier creates a Notifier for the bot token.
func NewNotifier(token string, opts ...Option) *Notifier {
	n := &Notifier{
		token:   token,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendAd sends a photo with the ad caption when the ad has an image, and a
// text message without link preview otherwise.
func (n *Notifier) SendAd(ctx context.Context, sub *adwatch.Subscriber, target *adwatch.SearchTarget, ad *adwatch.Ad) error {
	caption := Caption(target, ad)
	if ad.HasImage() {
		return n.call(ctx, "sendPhoto", map[string]any{
			"chat_id":                  sub.ChatID,
			"photo":                    ad.ImageURL,
			"caption":                  caption,
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		})
	}
	return n.call(ctx, "sendMessage", map[string]any{
		"chat_id":                  sub.ChatID,
		"text":                     caption,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

// SendText sends a plain status message.
func (n *Notifier) SendText(ctx context.Context, sub *adwatch.Subscriber, text string) error {
	return n.call(ctx, "sendMessage", map[string]any{
		"chat_id": sub.ChatID,
		"text":    text,
	})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) call(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", method, err)
	}

	endpoint := n.baseURL + "/bot" + n.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return adwatch.Errorf(adwatch.EUNAVAILABLE, "telegram %s: %v", method, redact(err, n.token))
	}
	defer resp.Body.Close()

	var r apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &r)
	if resp.StatusCode != http.StatusOK || !r.OK {
		desc := r.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return adwatch.Errorf(adwatch.EUNAVAILABLE, "telegram %s: status %d: %s", method, resp.StatusCode, desc)
	}
	return nil
}

// Caption renders the HTML message body for an ad: bold labels for brand,
// model, price and publish time, each followed by its escaped value, then
// the ad link.
func Caption(target *adwatch.SearchTarget, ad *adwatch.Ad) string {
	price := "—"
	if ad.Price != nil {
		price = strconv.Itoa(*ad.Price) + " ₽"
	}
	published := "—"
	if ad.PublishedAt != nil {
		published = ad.PublishedAt.In(moscow).Format("02.01.2006, 15:04")
	}
	return strings.Join([]string{
		"<b>Марка</b>",
		html.EscapeString(target.Category),
		"<b>Модель</b>",
		html.EscapeString(ad.Title),
		"<b>Цена</b>",
		html.EscapeString(price),
		"<b>Дата публикации</b>",
		html.EscapeString(published),
		"",
		html.EscapeString(ad.URL),
	}, "\n")
}

// redact strips the bot token from transport errors, which embed the
// request URL.
func redact(err error, token string) string {
	if token == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), token, "<token>")
}
