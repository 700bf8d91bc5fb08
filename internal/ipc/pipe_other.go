//go:build !windows

package ipc

// Send is unavailable off Windows.
func Send(pipeName string, req ActivateRequest) (ActivateResponse, error) {
	return ActivateResponse{}, ErrUnsupported
}

// PipeServer is a stub off Windows; Start reports ErrUnsupported.
type PipeServer struct {
	pipeName string
}

// NewPipeServer constructs a stub PipeServer.
func NewPipeServer(pipeName string, handler RequestHandler) *PipeServer {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	return &PipeServer{pipeName: pipeName}
}

// PipeName returns the configured pipe name.
func (s *PipeServer) PipeName() string { return s.pipeName }

// Start reports ErrUnsupported.
func (s *PipeServer) Start() error { return ErrUnsupported }

// Stop is a no-op.
func (s *PipeServer) Stop() error { return nil }
