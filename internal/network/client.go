package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"sync"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/jimezsa/jobharvest/internal/scraper"
)

var ErrRequestFailed = errors.New("request failed")

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 16 << 20
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7",
	"Accept-Language": "en-US,en;q=0.9",
}

// Client is a browser-fingerprinted HTTP client implementing scraper.Fetcher.
// One Client serves one site run; the proxy it switches to is client-wide.
type Client struct {
	http       tls_client.HttpClient
	rotator    *Rotator
	userAgents []string

	mu   sync.Mutex
	rand *rand.Rand
}

var _ scraper.Fetcher = (*Client)(nil)

// NewClient builds a client with a Chrome TLS profile and a fresh cookie jar.
// A nil rotator sends every request directly.
func NewClient(rotator *Rotator, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := fhttpcookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client, err := tls_client.NewHttpClient(
		tls_client.NewNoopLogger(),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(int(timeout.Seconds())),
		tls_client.WithCookieJar(jar),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:       client,
		rotator:    rotator,
		userAgents: append([]string{}, userAgents...),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Get fetches url, overlaying headers on the client defaults. Non-2xx
// statuses are returned as responses; only transport failures are errors.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*scraper.Response, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.randomUA())
	}

	resp, proxy, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRequestFailed, rawURL, err)
	}
	c.rotator.Report(proxy, resp.StatusCode)

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &scraper.Response{Status: resp.StatusCode, Body: body, URL: final}, nil
}

func (c *Client) do(req *fhttp.Request) (*fhttp.Response, *url.URL, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	proxy, err := c.rotateProxy()
	if err != nil {
		return nil, nil, &scraper.UnavailableError{Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, proxy, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return resp, proxy, nil
}

func (c *Client) rotateProxy() (*url.URL, error) {
	if c.rotator == nil {
		return nil, nil
	}
	proxy, err := c.rotator.Next()
	if err != nil {
		return nil, err
	}
	if err := c.http.SetProxy(proxy.String()); err != nil {
		return nil, fmt.Errorf("set proxy %s: %w", proxy.Redacted(), err)
	}
	return proxy, nil
}

func (c *Client) randomUA() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.userAgents) == 0 {
		return ""
	}
	return c.userAgents[c.rand.Intn(len(c.userAgents))]
}
