package shellproc

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunResult is the outcome of a foreground Run. When the command outlives
// the timeout, Status is StatusRunning, ReturnCode is nil, and ProcessID
// identifies the background record the command was adopted into.
type RunResult struct {
	Stdout     string
	Stderr     string
	ReturnCode *int
	Status     Status
	ProcessID  string
	Message    string
}

// Run executes command in the foreground, waiting up to timeout for it
// to exit. A command still running at the deadline is not killed: it is
// registered as a background process (so the usual lifecycle operations
// and final cleanup apply) and the partial output captured so far is
// returned.
func (m *Manager) Run(command string, timeout time.Duration) (RunResult, error) {
	if timeout <= 0 {
		timeout = m.cfg.RunTimeout
	}

	id := uuid.New().String()
	p, err := startProcess(id, command, m.cfg.WorkingDir)
	if err != nil {
		return RunResult{}, fmt.Errorf("run %q: %w", command, err)
	}

	if p.waitDead(timeout) {
		code := p.exitCode
		return RunResult{
			Stdout:     p.stdout.String(),
			Stderr:     p.stderr.String(),
			ReturnCode: &code,
			Status:     StatusTerminated,
		}, nil
	}

	// Still running: adopt it into the registry instead of leaking it.
	m.mu.Lock()
	m.procs[id] = p
	m.mu.Unlock()

	m.log.Debug("command outlived timeout, continuing in background",
		zap.String("id", id), zap.String("command", command))

	return RunResult{
		Stdout:    p.stdout.String(),
		Stderr:    p.stderr.String(),
		Status:    StatusRunning,
		ProcessID: id,
		Message:   fmt.Sprintf("Command still running after %s. Continuing in background.", timeout),
	}, nil
}
