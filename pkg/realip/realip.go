// Package realip resolves the best-effort client IP address of an HTTP
// request from proxy headers, in a fixed priority order.
package realip

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is returned when neither a forwarding header nor a remote address
// is present on the request.
const Unknown = "UNKNOWN"

// headerOrder is the resolution priority. Earlier headers win.
var headerOrder = []string{
	"Client-Ip",
	"X-Forwarded-For",
	"X-Forwarded",
	"Forwarded-For",
	"Forwarded",
}

// FromRequest returns the first non-empty candidate address. Forwarding
// headers may carry a comma-separated proxy chain; the first entry is the
// originating client.
func FromRequest(r *http.Request) string {
	for _, header := range headerOrder {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if i := strings.IndexByte(value, ','); i >= 0 {
			value = value[:i]
		}
		if ip := strings.TrimSpace(value); ip != "" {
			return ip
		}
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return Unknown
}
