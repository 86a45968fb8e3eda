package transport

import (
	"io"
	"net/http"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"

	// DefaultReadLimit caps the size of one submitted snapshot.
	DefaultReadLimit = 4 << 20
)

// ServerBuilderOption is a functional option for configuring a Server.
type ServerBuilderOption func(s *server)

// WithAddr sets the listen address.
//
// Parameters:
//   - addr: host:port to listen on
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithAddr(addr string) ServerBuilderOption {
	return func(s *server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAccessLog sets where request lines are written.
//
// Parameters:
//   - w: the access log destination
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithAccessLog(w io.Writer) ServerBuilderOption {
	return func(s *server) {
		if w != nil {
			s.accessLog = w
		}
	}
}

// WithReadLimit caps the size of one submitted snapshot.
//
// Parameters:
//   - n: the limit in bytes
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithReadLimit(n int64) ServerBuilderOption {
	return func(s *server) {
		if n > 0 {
			s.readLimit = n
		}
	}
}

// WithOriginCheck sets the websocket origin policy. Nil keeps the same-origin default.
//
// Parameters:
//   - check: returns true for an allowed request
//
// Returns:
//   - ServerBuilderOption: option function to apply
func WithOriginCheck(check func(r *http.Request) bool) ServerBuilderOption {
	return func(s *server) {
		s.upgrader.CheckOrigin = check
	}
}
