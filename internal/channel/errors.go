package channel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// FailureClass groups dial failures for reporting.
type FailureClass string

const (
	classNone      FailureClass = ""
	ClassRefused   FailureClass = "refused"
	ClassTimeout   FailureClass = "timeout"
	ClassHandshake FailureClass = "handshake"
	ClassClosed    FailureClass = "closed"
	ClassOther     FailureClass = "other"
)

// ChannelError describes one failed connection attempt.
type ChannelError struct {
	Op      string
	Attempt int
	Class   FailureClass
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s attempt %d (%s): %v", e.Op, e.Attempt, e.Class, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

var errNoURL = errors.New("channel: push URL is not configured")

// Classify maps a dial error to its failure class.
func Classify(err error) FailureClass {
	var ne net.Error
	switch {
	case err == nil:
		return classNone
	case errors.Is(err, websocket.ErrBadHandshake):
		return ClassHandshake
	case errors.Is(err, syscall.ECONNREFUSED):
		return ClassRefused
	case errors.As(err, &ne) && ne.Timeout():
		return ClassTimeout
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ClassClosed
	default:
		return ClassOther
	}
}

// Decision says whether a failure reaches users or only the debug log.
type Decision int

const (
	Surface Decision = iota
	Suppress
)

// decide is the reporting table for one failed attempt of a reconnection
// episode:
//
//	first failure of the episode        -> Surface
//	class differs from the last surfaced -> Surface
//	same class as the last surfaced      -> Suppress
func decide(attempt int, lastSurfaced, cur FailureClass) Decision {
	if attempt <= 1 || lastSurfaced == classNone || cur != lastSurfaced {
		return Surface
	}
	return Suppress
}
