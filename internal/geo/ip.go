package geo

import "strings"

// HeaderGetter reads a single inbound request header, returning ""
// when the header is absent. http.Header.Get satisfies it.
type HeaderGetter func(name string) string

// UnknownIP is the sentinel stored when no proxy header carries a
// usable client address.
const UnknownIP = "0.0.0.0"

// ipHeaders in priority order: CDN first, then common proxy headers.
// The first header yielding a non-empty value wins.
var ipHeaders = []string{
	"CF-Connecting-IP",
	"X-Client-IP",
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Cluster-Client-IP",
	"Forwarded-For",
	"Forwarded",
}

// ClientIP extracts the originating client address from proxy headers.
// Comma-separated chains (X-Forwarded-For style) contribute their
// first entry, trimmed. Returns "" when nothing matches.
func ClientIP(get HeaderGetter) string {
	for _, name := range ipHeaders {
		value := get(name)
		if value == "" {
			continue
		}
		if first, _, found := strings.Cut(value, ","); found {
			value = first
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
