package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/rate"
)

// Proxies are the networks whose X-Forwarded-For header is believed.
type Proxies []*net.IPNet

// ParseProxies reads CIDRs or bare addresses.
func ParseProxies(list []string) (Proxies, error) {
	var ps Proxies
	for _, v := range list {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !strings.Contains(v, "/") {
			ip := net.ParseIP(v)
			if ip == nil {
				return nil, fmt.Errorf("invalid proxy address %q", v)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			ps = append(ps, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(v)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy network %q: %w", v, err)
		}
		ps = append(ps, n)
	}
	return ps, nil
}

func (ps Proxies) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range ps {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RateLimit rejects clients, keyed by IP address, that exceed the limiter's
// budget. A nil limiter disables the check.
func RateLimit(lim *rate.Limiter, proxies Proxies) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if lim == nil {
				return handler(ctx, w, r)
			}

			if !lim.Check(ClientIP(r, proxies)) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// ClientIP is the peer address, unless the peer is a trusted proxy. Then
// X-Forwarded-For is walked from the right and the first hop that is not a
// trusted proxy wins.
func ClientIP(r *http.Request, proxies Proxies) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}

	if !proxies.trusts(peer) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !proxies.trusts(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}
