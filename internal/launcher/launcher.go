// Package launcher spawns and supervises game processes, feeding their
// console output into the in-memory log hub and the console WebSocket stream.
package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"kable/internal/loghub"
	"kable/internal/procutil"
)

// scanBufferInitial and scanBufferMax size the line scanner for game output.
// Modded games occasionally dump single lines well past bufio's 64KB default
// (mod lists, data-pack JSON); 1MB covers everything seen in practice.
const (
	scanBufferInitial = 64 * 1024
	scanBufferMax     = 1024 * 1024
)

// activityBumpInterval throttles LastActivity updates during output floods.
// One bump per second is plenty for staleness tracking and avoids taking the
// hub's write lock twice per line.
const activityBumpInterval = time.Second

// ConsoleSink receives raw console lines for streaming to the frontend.
// *wsserver.Hub satisfies this.
type ConsoleSink interface {
	BroadcastConsole(scope string, data []byte)
}

// LaunchSpec describes one game process to start.
type LaunchSpec struct {
	// Name is the human-readable instance name shown in the UI.
	Name string
	// JavaPath is the executable to run. Empty resolves "java" from PATH.
	JavaPath string
	// Args are passed to the executable verbatim.
	Args []string
	// Dir is the working directory. Empty inherits the launcher's.
	Dir string
}

// Manager owns the set of running game processes. All methods are safe for
// concurrent use.
type Manager struct {
	hub     *loghub.Hub
	console ConsoleSink // may be nil (no WebSocket client support)

	mu    sync.Mutex
	procs map[string]*gameProcess

	// newID is a test seam; production uses uuid.NewString.
	newID func() string
}

type gameProcess struct {
	id   string
	cmd  *exec.Cmd
	done chan struct{} // closed after the exit status is recorded
}

// NewManager creates a Manager feeding output into hub and, when console is
// non-nil, mirroring raw lines to the console stream.
func NewManager(hub *loghub.Hub, console ConsoleSink) *Manager {
	return &Manager{
		hub:     hub,
		console: console,
		procs:   make(map[string]*gameProcess),
		newID:   uuid.NewString,
	}
}

// Launch starts the process described by spec, registers a new instance with
// the log hub, and begins streaming its output. Returns the registered
// instance record.
func (m *Manager) Launch(spec LaunchSpec) (loghub.GameInstance, error) {
	exe := spec.JavaPath
	if exe == "" {
		exe = "java"
	}

	cmd := exec.Command(exe, spec.Args...)
	cmd.Dir = spec.Dir
	procutil.HideWindow(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return loghub.GameInstance{}, fmt.Errorf("launcher: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return loghub.GameInstance{}, fmt.Errorf("launcher: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return loghub.GameInstance{}, fmt.Errorf("launcher: start %s: %w", exe, err)
	}

	id := m.newID()
	inst := loghub.GameInstance{
		ID:           id,
		Name:         spec.Name,
		Status:       loghub.StatusRunning,
		LastActivity: time.Now(),
	}
	m.hub.RegisterInstance(inst)

	proc := &gameProcess{id: id, cmd: cmd, done: make(chan struct{})}
	m.mu.Lock()
	m.procs[id] = proc
	m.mu.Unlock()

	slog.Info("[launcher] game started", "instance", id, "name", spec.Name, "pid", cmd.Process.Pid)
	m.hub.Append(id, loghub.SourceLauncher, loghub.LevelInfo,
		fmt.Sprintf("Started %s (pid %d)", spec.Name, cmd.Process.Pid))

	// Drain both pipes before Wait; Wait closes the pipes, so the scanners
	// must finish first.
	var scanners sync.WaitGroup
	scanners.Add(2)
	go func() {
		defer scanners.Done()
		m.scanOutput(id, bufio.NewScanner(stdout), loghub.LevelInfo)
	}()
	go func() {
		defer scanners.Done()
		m.scanOutput(id, bufio.NewScanner(stderr), loghub.LevelWarn)
	}()

	go m.supervise(proc, &scanners)

	return inst, nil
}

// scanOutput reads console lines from one pipe until EOF, classifying each
// and appending it to the hub. fallback is the severity used for lines with
// no recognizable level marker.
func (m *Manager) scanOutput(id string, scanner *bufio.Scanner, fallback loghub.Level) {
	scanner.Buffer(make([]byte, scanBufferInitial), scanBufferMax)

	var lastBump time.Time
	for scanner.Scan() {
		line := scanner.Text()
		level := classifyLine(line, fallback)
		m.hub.Append(id, loghub.SourceGame, level, line)

		if m.console != nil {
			m.console.BroadcastConsole(id, append([]byte(line), '\n'))
		}

		if now := time.Now(); now.Sub(lastBump) >= activityBumpInterval {
			lastBump = now
			m.hub.UpdateInstance(id, loghub.InstanceUpdate{LastActivity: &now})
		}
	}
	if err := scanner.Err(); err != nil {
		// Pipe read errors usually mean the process died mid-line; the exit
		// status from supervise is the authoritative signal.
		slog.Debug("[launcher] output scan ended", "instance", id, "error", err)
	}
}

// supervise waits for process exit, records the terminal status in the hub,
// and drops the process from the running set.
func (m *Manager) supervise(proc *gameProcess, scanners *sync.WaitGroup) {
	scanners.Wait()
	err := proc.cmd.Wait()

	status := loghub.StatusClosed
	detail := "Game exited normally"
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status = loghub.StatusCrashed
		detail = fmt.Sprintf("Game crashed with exit code %d", exitErr.ExitCode())
	} else if err != nil {
		status = loghub.StatusCrashed
		detail = fmt.Sprintf("Game process failed: %v", err)
	}

	// Stop marks the instance stopped before killing; don't overwrite that
	// with crashed when the kill lands.
	if inst, ok := m.hub.Instance(proc.id); ok && inst.Status == loghub.StatusStopped {
		status = loghub.StatusStopped
		detail = "Game stopped by user"
	}

	m.mu.Lock()
	delete(m.procs, proc.id)
	m.mu.Unlock()

	now := time.Now()
	m.hub.UpdateInstance(proc.id, loghub.InstanceUpdate{Status: &status, LastActivity: &now})
	m.hub.Append(proc.id, loghub.SourceLauncher, loghub.LevelInfo, detail)
	slog.Info("[launcher] game exited", "instance", proc.id, "status", status)

	close(proc.done)
}

// Stop kills the process for id. The instance record survives in the hub with
// status "stopped" until removed or cleaned up.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	proc, ok := m.procs[id]
	if ok {
		// Mark before the kill so supervise sees the user intent.
		status := loghub.StatusStopped
		m.hub.UpdateInstance(id, loghub.InstanceUpdate{Status: &status})
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("launcher: no running instance %q", id)
	}
	if err := proc.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("launcher: kill instance %q: %w", id, err)
	}
	return nil
}

// StopAll kills every running process. Used during application shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.procs))
	for id := range m.procs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(id); err != nil {
			slog.Warn("[launcher] stop during shutdown failed", "instance", id, "error", err)
		}
	}
}

// Running reports whether the process for id is still alive.
func (m *Manager) Running(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.procs[id]
	return ok
}

// Done returns a channel closed once the instance's exit status has been
// recorded, or nil if the instance is not running.
func (m *Manager) Done(id string) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if proc, ok := m.procs[id]; ok {
		return proc.done
	}
	return nil
}
