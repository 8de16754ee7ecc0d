package network

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jimezsa/jobharvest/internal/models"
)

var ErrInvalidProxy = errors.New("invalid proxy")

var proxySchemes = map[string]bool{"http": true, "https": true, "socks5": true}

// ProxyPool is the read-only proxy configuration shared by every run.
type ProxyPool struct {
	proxies []string
}

// NewProxyPool normalizes every entry; the first malformed one fails the pool.
func NewProxyPool(raw []string) (*ProxyPool, error) {
	pool := &ProxyPool{}
	seen := map[string]bool{}
	for _, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		proxy, err := NormalizeProxy(entry)
		if err != nil {
			return nil, err
		}
		if seen[proxy] {
			continue
		}
		seen[proxy] = true
		pool.proxies = append(pool.proxies, proxy)
	}
	return pool, nil
}

func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}

// ProxiesFor returns the proxies a site may use. Indeed and Glassdoor get
// every other entry of pools larger than two.
func (p *ProxyPool) ProxiesFor(site models.Site) []string {
	if p.Len() == 0 {
		return nil
	}
	switch site {
	case models.SiteIndeed, models.SiteGlassdoor:
		if len(p.proxies) > 2 {
			out := make([]string, 0, (len(p.proxies)+1)/2)
			for i := 0; i < len(p.proxies); i += 2 {
				out = append(out, p.proxies[i])
			}
			return out
		}
	}
	return append([]string(nil), p.proxies...)
}

// Rotator builds a fresh rotator over the site's proxies, or nil when the
// pool is empty.
func (p *ProxyPool) Rotator(site models.Site) (*Rotator, error) {
	proxies := p.ProxiesFor(site)
	if len(proxies) == 0 {
		return nil, nil
	}
	return NewRotator(proxies, DefaultBanDuration)
}

// NormalizeProxy accepts scheme://[user:pass@]host:port, host:port and
// host:port:user:pass and returns a URL string.
func NormalizeProxy(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty entry", ErrInvalidProxy)
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidProxy, raw, err)
		}
		if !proxySchemes[strings.ToLower(u.Scheme)] {
			return "", fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidProxy, raw, u.Scheme)
		}
		if err := checkHostPort(u.Hostname(), u.Port()); err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidProxy, raw, err)
		}
		return u.String(), nil
	}

	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2, 4:
	default:
		return "", fmt.Errorf("%w: %q: want host:port or host:port:user:pass", ErrInvalidProxy, raw)
	}
	if err := checkHostPort(parts[0], parts[1]); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidProxy, raw, err)
	}
	u := &url.URL{Scheme: "http", Host: net.JoinHostPort(parts[0], parts[1])}
	if len(parts) == 4 {
		if parts[2] == "" {
			return "", fmt.Errorf("%w: %q: empty user", ErrInvalidProxy, raw)
		}
		u.User = url.UserPassword(parts[2], parts[3])
	}
	return u.String(), nil
}

func checkHostPort(host, port string) error {
	if host == "" {
		return errors.New("missing host")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("bad port %q", port)
	}
	return nil
}
