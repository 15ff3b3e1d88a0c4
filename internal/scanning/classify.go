package scanning

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// Classify maps a connect attempt's outcome to a port status. The rules are
// checked in order: success is open, an active refusal is closed, a timeout
// is filtered, and anything else is an error carrying its message.
//
// Treating a timeout as filtered is an approximation: a silently dropping
// firewall and a congested path are indistinguishable from here.
func Classify(err error) (PortStatus, string) {
	if err == nil {
		return StatusOpen, ""
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return StatusClosed, ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return StatusFiltered, ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusFiltered, ""
	}

	return StatusError, err.Error()
}
