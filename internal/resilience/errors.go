package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusError carries the HTTP status of a failed API call.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool { return RetryableStatus(e.Status) }

// RetryableStatus reports whether an HTTP status is transient: 408, 409,
// 429 and 5xx.
func RetryableStatus(code int) bool {
	switch {
	case code == 408, code == 409, code == 429:
		return true
	case code >= 500 && code <= 599:
		return true
	}
	return false
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"tls handshake timeout",
	"server closed idle connection",
	"temporary failure in name resolution",
	"unexpected eof",
	"overloaded",
}

// IsRetryable reports whether err is transient: a StatusError with a
// retryable status, a network timeout, a reset or refused connection, or a
// message matching a known transient failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
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
