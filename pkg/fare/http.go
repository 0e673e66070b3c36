package fare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/session"
	"golang.org/x/time/rate"
)

// HTTPConfig configures the HTTP fare source.
type HTTPConfig struct {
	BaseURL           string
	Proxy             string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int
	UserAgent         string
}

// HTTPBrowser looks fares up over HTTP. Each session slot owns its own client
// and cookie jar so concurrent lookups never share session state.
type HTTPBrowser struct {
	baseURL   *url.URL
	userAgent string
	clients   []*http.Client
	pace      *rate.Limiter
	closed    atomic.Bool
}

// NewHTTPBrowser creates an HTTP browser with the given number of sessions.
func NewHTTPBrowser(cfg HTTPConfig, sessions int) (*HTTPBrowser, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fare base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse fare base URL: %w", err)
	}
	if sessions < 1 {
		sessions = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Fare-Guardian/1.0"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	clients := make([]*http.Client, sessions)
	for i := range clients {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		clients[i] = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			Jar:       jar,
		}
	}

	b := &HTTPBrowser{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		clients:   clients,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		b.pace = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return b, nil
}

// HTTPLauncher returns a Launcher that opens an HTTPBrowser from cfg.
func HTTPLauncher(cfg HTTPConfig) Launcher {
	return func(_ context.Context, sessions int) (Browser, error) {
		b, err := NewHTTPBrowser(cfg, sessions)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

type faresResponse struct {
	Fares []struct {
		Flight string `json:"flight"`
		Price  int    `json:"price"`
	} `json:"fares"`
}

// FetchPrice implements Fetcher.
func (b *HTTPBrowser) FetchPrice(ctx context.Context, slot *session.Slot, q Query) (int, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	if b.pace != nil {
		if err := b.pace.Wait(ctx); err != nil {
			return 0, fmt.Errorf("wait for request budget: %w", err)
		}
	}

	client := b.clients[0]
	if slot != nil {
		client = b.clients[slot.ID()%len(b.clients)]
	}

	u := *b.baseURL
	u.Path += "/fares"
	params := url.Values{}
	params.Set("origin", q.Origin)
	params.Set("destination", q.Destination)
	params.Set("date", q.Date.Format("2006-01-02"))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create fare request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch fares: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("fare source returned status %d", resp.StatusCode)
	}

	var body faresResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode fares: %w", err)
	}

	return pickPrice(body, q)
}

// pickPrice selects the flight's own fare for single-flight queries and the
// cheapest fare of the day otherwise.
func pickPrice(body faresResponse, q Query) (int, error) {
	if !q.Kind.Valid() {
		return 0, fmt.Errorf("unsupported alert kind %q", q.Kind)
	}
	best := 0
	for _, f := range body.Fares {
		if f.Price <= 0 {
			continue
		}
		if q.Kind == model.KindSingleFlight {
			if f.Flight == q.FlightNumber {
				return f.Price, nil
			}
			continue
		}
		if best == 0 || f.Price < best {
			best = f.Price
		}
	}
	if best == 0 {
		return 0, ErrNoFare
	}
	return best, nil
}

// Close releases idle connections of every session. Further lookups fail with ErrClosed.
func (b *HTTPBrowser) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, c := range b.clients {
		c.CloseIdleConnections()
	}
	return nil
}
