// ABOUTME: Cookie codec for the gateway's session and device cookies
// ABOUTME: Pure parse/strip/build helpers, no I/O and no shared state

package cookie

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names owned by the gateway. The device cookie is written by the
// challenge page in the browser; the gateway only ever reads it.
const (
	SessionName = "wg_session"
	DeviceName  = "wg_device"
)

// Value extracts the named cookie's value from the request's Cookie header.
// Returns ok=false when the cookie is absent or unparseable.
func Value(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// StripHeader removes the named cookies from a raw Cookie header value and
// returns the remaining header, or "" when nothing survives.
func StripHeader(header string, names ...string) string {
	if header == "" {
		return ""
	}

	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	var kept []string
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if drop[strings.TrimSpace(name)] {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "; ")
}

// Strip removes the named cookies from the request's Cookie header in place,
// so a forwarded request never carries the gateway's own auth cookies.
func Strip(r *http.Request, names ...string) {
	header := r.Header.Get("Cookie")
	if header == "" {
		return
	}
	remaining := StripHeader(header, names...)
	if remaining == "" {
		r.Header.Del("Cookie")
		return
	}
	r.Header.Set("Cookie", remaining)
}

// SessionCookie builds the Set-Cookie for a freshly minted session token.
// Host-only on purpose: no Domain attribute, so the cookie cannot be replayed
// against sibling subdomains.
func SessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
