package scanning

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// timeoutError mimics a dial timeout as the net package reports it.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus PortStatus
		wantMsg    string
	}{
		{
			name:       "success is open",
			err:        nil,
			wantStatus: StatusOpen,
		},
		{
			name:       "refusal is closed",
			err:        &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			wantStatus: StatusClosed,
		},
		{
			name:       "net timeout is filtered",
			err:        &net.OpError{Op: "dial", Err: timeoutError{}},
			wantStatus: StatusFiltered,
		},
		{
			name:       "deadline exceeded is filtered",
			err:        context.DeadlineExceeded,
			wantStatus: StatusFiltered,
		},
		{
			name:       "unreachable network is error",
			err:        &net.OpError{Op: "dial", Err: syscall.ENETUNREACH},
			wantStatus: StatusError,
			wantMsg:    (&net.OpError{Op: "dial", Err: syscall.ENETUNREACH}).Error(),
		},
		{
			name:       "plain error carries its message",
			err:        errors.New("no route to host"),
			wantStatus: StatusError,
			wantMsg:    "no route to host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	// The same error always maps to the same status.
	err := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	first, _ := Classify(err)
	second, _ := Classify(err)
	assert.Equal(t, first, second)
}
