package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
)

// Request and response frames are single newline-delimited JSON lines. Size
// caps prevent a misbehaving peer from exhausting memory.
const (
	maxPipeRequestBytes  = 64 * 1024
	maxPipeResponseBytes = 64 * 1024
)

func readDelimitedFrame(reader *bufio.Reader, maxBytes int) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func readRequestFrame(reader *bufio.Reader) ([]byte, error) {
	return readDelimitedFrame(reader, maxPipeRequestBytes)
}

// IsConnectionError returns true when the error indicates that the pipe
// server is absent or unreachable (dial/connect failures).
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
