// Package wsserver provides a WebSocket server for streaming game console
// output to the frontend.
//
// # Binary frame protocol
//
// Binary frame format: [1 byte: scope length][scope bytes][data bytes]
//
//   - Byte 0: uint8 length of the scope (0..255).
//   - Bytes 1..1+scopeLen: scope encoded as ASCII/UTF-8. The scope is an
//     instance ID or "global".
//   - Remaining bytes: raw console data (may be empty).
//
// EncodeConsoleFrame produces frames in this format; DecodeConsoleFrame
// parses them.
package wsserver

import (
	"fmt"
	"log/slog"
)

// maxScopeLen is the maximum scope length that fits in the 1-byte length
// prefix of the binary frame protocol. Scopes exceeding this are truncated.
const maxScopeLen = 255

// EncodeConsoleFrame constructs a binary frame for streaming console output
// to the frontend.
//
// Frame format:
//
//	[1 byte: len(scope) as uint8] [scope bytes (ASCII)] [data bytes]
//
// The frame avoids JSON serialization overhead on the hot path: a modded game
// at startup can emit thousands of lines per second. A single allocation is
// used: make([]byte, 1+len(scope)+len(data)).
//
// Precondition: len(scope) must fit in uint8 (max 255 bytes). Longer scopes
// are truncated to 255 bytes with a warning.
func EncodeConsoleFrame(scope string, data []byte) ([]byte, error) {
	if len(scope) == 0 {
		return nil, fmt.Errorf("wsserver: encode console frame: scope must not be empty")
	}

	id := scope
	if len(id) > maxScopeLen {
		// Warn (not Debug) because truncation changes the scope used for
		// routing: two instances sharing the same 255-byte prefix would
		// receive each other's output.
		slog.Warn("[console-ws] scope truncated, routing collision possible",
			"originalLen", len(id), "truncatedTo", maxScopeLen, "scope", id[:maxScopeLen])
		id = id[:maxScopeLen]
	}

	idLen := len(id)
	buf := make([]byte, 1+idLen+len(data))
	buf[0] = byte(idLen)
	copy(buf[1:1+idLen], id)
	copy(buf[1+idLen:], data)
	return buf, nil
}

// DecodeConsoleFrame parses a binary frame produced by EncodeConsoleFrame.
// Returns the scope and raw console data, or an error if the frame is
// malformed (empty frame, insufficient length for declared scope).
//
// Zero-copy: The returned data slice shares memory with frame.
// Callers must not modify frame after calling this function.
func DecodeConsoleFrame(frame []byte) (scope string, data []byte, err error) {
	if len(frame) < 1 {
		return "", nil, fmt.Errorf("wsserver: decode console frame: empty frame")
	}

	idLen := int(frame[0])
	// The frame must contain at least the length byte + idLen bytes of scope.
	if len(frame) < 1+idLen {
		return "", nil, fmt.Errorf("wsserver: decode console frame: frame too short for scope length %d (frame length %d)", idLen, len(frame))
	}

	scope = string(frame[1 : 1+idLen])
	data = frame[1+idLen:]
	return scope, data, nil
}
