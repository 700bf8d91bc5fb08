// Package ipc implements the Named Pipe handoff between launcher processes.
// When a second launcher starts while one is already running, it forwards its
// invocation to the running process and exits, so the user ends up with the
// existing window focused instead of a duplicate launcher.
package ipc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/user"
	"regexp"
	"strings"

	"kable/internal/userutil"
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\kable-[a-z0-9._-]{1,128}$`)

const defaultPipePrefix = `\\.\pipe\kable-`

// ErrUnsupported is returned by pipe operations on platforms without Named
// Pipe support. Single-instance handoff only exists on Windows.
var ErrUnsupported = errors.New("named pipe ipc is only supported on windows")

// ActivateRequest is one forwarded launcher invocation.
type ActivateRequest struct {
	// Action selects what the running instance should do: "activate" brings
	// the window to the foreground, "launch" starts the named instance.
	Action string   `json:"action"`
	Args   []string `json:"args,omitempty"`
}

// ActivateResponse reports whether the running instance handled the request.
type ActivateResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// RequestHandler handles a forwarded request inside the running instance.
type RequestHandler interface {
	Handle(req ActivateRequest) ActivateResponse
}

func sanitizeUsername(value string) string {
	return userutil.SanitizeUsername(value)
}

// DefaultPipeName returns the pipe path to use. If the KABLE_PIPE environment
// variable is set and passes pattern validation, its value is used; otherwise
// a per-user default is constructed from the current username.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}

	username := strings.TrimSpace(os.Getenv("USERNAME"))
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}
	return defaultPipePrefix + sanitizeUsername(username)
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv("KABLE_PIPE"))
	if value == "" {
		return "", false
	}
	if !pipeNamePattern.MatchString(value) {
		slog.Warn("[ipc] KABLE_PIPE rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req ActivateRequest) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (ActivateRequest, error) {
	var req ActivateRequest
	err := json.Unmarshal(raw, &req)
	if err != nil {
		return ActivateRequest{}, err
	}
	if req.Args == nil {
		req.Args = []string{}
	}
	return req, nil
}

func encodeResponse(resp ActivateResponse) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (ActivateResponse, error) {
	var resp ActivateResponse
	err := json.Unmarshal(raw, &resp)
	if err != nil {
		return ActivateResponse{}, err
	}
	return resp, nil
}
