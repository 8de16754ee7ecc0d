package network

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var ErrNoProxies = errors.New("no proxies available")

const DefaultBanDuration = 5 * time.Minute

// Rotator hands out proxies round-robin and benches the ones a board
// answered with 403 or 429 for banDuration.
type Rotator struct {
	proxies     []*url.URL
	banDuration time.Duration
	bannedUntil map[string]time.Time
	index       int
	now         func() time.Time
	mu          sync.Mutex
}

// NewRotator parses proxies that are already normalized URLs; see NormalizeProxy.
func NewRotator(raw []string, banDuration time.Duration) (*Rotator, error) {
	if banDuration <= 0 {
		banDuration = DefaultBanDuration
	}
	rotator := &Rotator{
		banDuration: banDuration,
		bannedUntil: map[string]time.Time{},
		now:         time.Now,
	}

	for _, proxy := range raw {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, err
		}
		rotator.proxies = append(rotator.proxies, u)
	}

	return rotator, nil
}

// Next returns the next proxy that is not banned, or ErrNoProxies once the
// whole pool is benched.
func (r *Rotator) Next() (*url.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return nil, ErrNoProxies
	}

	for range r.proxies {
		proxy := r.proxies[r.index]
		r.index = (r.index + 1) % len(r.proxies)
		if !r.isBanned(proxy) {
			return proxy, nil
		}
	}
	return nil, ErrNoProxies
}

func (r *Rotator) Report(proxy *url.URL, status int) {
	if r == nil || proxy == nil {
		return
	}
	if status != http.StatusForbidden && status != http.StatusTooManyRequests {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bannedUntil[proxy.String()] = r.now().Add(r.banDuration)
}

// Len is the pool size, banned entries included.
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.proxies)
}

func (r *Rotator) isBanned(proxy *url.URL) bool {
	until, ok := r.bannedUntil[proxy.String()]
	if !ok {
		return false
	}
	if r.now().After(until) {
		delete(r.bannedUntil, proxy.String())
		return false
	}
	return true
}
