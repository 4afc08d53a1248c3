package client

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError is returned for any REST failure: network, timeout,
// non-2xx status, or a payload the backend marked unsuccessful.
type TransportError struct {
	Op         string // latest | history | status | export
	URL        string
	StatusCode int // 0 when no response was received
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s %s: timeout: %v", e.Op, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: http %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err carries a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

var (
	errUnexpectedStatus = errors.New("unexpected status")
	errBackendRejected  = errors.New("backend reported success=false")
)

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
