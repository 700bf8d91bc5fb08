//go:build windows

package ipc

import (
	"bufio"
	"fmt"
	"time"

	"github.com/Microsoft/go-winio"
)

const (
	defaultPipeDialTimeout = 3 * time.Second
	defaultPipeRWTimeout   = 15 * time.Second
)

// Send sends one request and waits for one response.
func Send(pipeName string, req ActivateRequest) (ActivateResponse, error) {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}

	dialTimeout := defaultPipeDialTimeout
	conn, err := winio.DialPipe(pipeName, &dialTimeout)
	if err != nil {
		return ActivateResponse{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(defaultPipeRWTimeout)); err != nil {
		return ActivateResponse{}, fmt.Errorf("set deadline: %w", err)
	}

	rawReq, err := encodeRequest(req)
	if err != nil {
		return ActivateResponse{}, err
	}

	if _, err := conn.Write(rawReq); err != nil {
		return ActivateResponse{}, err
	}
	if _, err := conn.Write([]byte{'\n'}); err != nil {
		return ActivateResponse{}, err
	}

	respRaw, err := readDelimitedFrame(bufio.NewReaderSize(conn, maxPipeResponseBytes+1), maxPipeResponseBytes)
	if err != nil {
		return ActivateResponse{}, err
	}

	resp, err := decodeResponse(respRaw)
	if err != nil {
		return ActivateResponse{}, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}
