package models

import (
	"encoding/json"
	"net/url"
	"strings"
)

// ProxyPolicy describes whether and which proxies a search may use.
type ProxyPolicy struct {
	Enabled bool     `json:"use_proxies"`
	URLs    []string `json:"urls,omitempty"`
}

const redactedSecret = "xxxxx"

// MarshalJSON masks proxy passwords so echoed requests never carry credentials.
func (p ProxyPolicy) MarshalJSON() ([]byte, error) {
	type plain ProxyPolicy
	out := plain(p)
	if len(p.URLs) > 0 {
		out.URLs = make([]string, len(p.URLs))
		for i, raw := range p.URLs {
			out.URLs[i] = RedactProxy(raw)
		}
	}
	return json.Marshal(out)
}

// RedactProxy hides the password of a proxy given as a URL or as
// host:port:user:pass.
func RedactProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return redactedSecret
		}
		return u.Redacted()
	}
	parts := strings.Split(raw, ":")
	if len(parts) == 4 {
		parts[3] = redactedSecret
		return strings.Join(parts, ":")
	}
	return raw
}
