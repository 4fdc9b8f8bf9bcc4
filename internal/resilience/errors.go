package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// HTTPStatusError is implemented by errors that carry an HTTP response
// status.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is worth retrying: a retryable HTTP
// status, a network timeout, a refused or reset connection, or one of the
// known transient messages from net/http.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se HTTPStatusError
	if errors.As(err, &se) {
		return IsTransientStatus(se.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransientStatus reports whether an HTTP status is safe to retry.
func IsTransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
