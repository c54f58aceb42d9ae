package query

import (
	"context"
	"net"
	"strconv"
	"strings"
)

// Valid port range for UDP game servers.
const (
	MinPort = 1
	MaxPort = 65535
)

// Endpoint is a validated, resolved network target. It lives for the
// duration of a single fetch and is never persisted.
type Endpoint struct {
	// Host is the original user-supplied input.
	Host string

	// ResolvedIP is the dotted-quad IPv4 address the query will hit.
	ResolvedIP string

	// Port in [1, 65535].
	Port int
}

// Addr returns the dial address for the endpoint.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.ResolvedIP, strconv.Itoa(e.Port))
}

// ResolveEndpoint validates user input and resolves the host to an IPv4
// address before any game-server socket is opened. IPv4 literals are used
// as-is; anything else goes through the OS resolver and the first returned
// address wins. All failures come back as a *ErrorDetail.
func ResolveEndpoint(host string, port int) (Endpoint, error) {
	if port < MinPort || port > MaxPort {
		return Endpoint{}, errorDetail(ErrInvalidInput,
			"port must be between %d and %d, got %d", MinPort, MaxPort, port)
	}

	if strings.TrimSpace(host) == "" {
		return Endpoint{}, errorDetail(ErrInvalidInput, "host must be a non-empty string")
	}

	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return Endpoint{Host: host, ResolvedIP: v4.String(), Port: port}, nil
		}
		return Endpoint{}, errorDetail(ErrResolution,
			"cannot resolve %q: only IPv4 servers can be queried", host)
	}

	ips, err := net.DefaultResolver.LookupIP(context.Background(), "ip4", host)
	if err != nil {
		return Endpoint{}, errorDetail(ErrResolution, "cannot resolve hostname %q: %v", host, err)
	}
	if len(ips) == 0 {
		return Endpoint{}, errorDetail(ErrResolution, "hostname %q has no IPv4 addresses", host)
	}

	return Endpoint{Host: host, ResolvedIP: ips[0].String(), Port: port}, nil
}
