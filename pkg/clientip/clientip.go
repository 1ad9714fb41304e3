package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the host part of r.RemoteAddr, the key the rate limiters count by.
// Forwarding headers are ignored since clients can set them freely; behind a
// reverse proxy every request shares the proxy's address.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
