package shellproc

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for identifiers that are unknown or whose
// records have already been removed.
var ErrNotFound = errors.New("process not found")

// Config holds Manager tunables. The settle delays give a freshly
// spawned or freshly fed process a moment to produce output before the
// caller inspects the buffers.
type Config struct {
	WorkingDir  string
	SpawnSettle time.Duration
	InputSettle time.Duration
	StopGrace   time.Duration
	RunTimeout  time.Duration // default timeout for foreground Run
}

// DefaultConfig returns the default Manager configuration.
func DefaultConfig() Config {
	return Config{
		SpawnSettle: 500 * time.Millisecond,
		InputSettle: 200 * time.Millisecond,
		StopGrace:   500 * time.Millisecond,
		RunTimeout:  10 * time.Second,
	}
}

// Manager owns the registry of live background processes.
type Manager struct {
	cfg Config
	log *zap.Logger

	mu    sync.Mutex
	procs map[string]*process
}

// NewManager creates a Manager. A nil logger disables logging.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	if cfg.SpawnSettle == 0 {
		cfg.SpawnSettle = DefaultConfig().SpawnSettle
	}
	if cfg.InputSettle == 0 {
		cfg.InputSettle = DefaultConfig().InputSettle
	}
	if cfg.StopGrace == 0 {
		cfg.StopGrace = DefaultConfig().StopGrace
	}
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = DefaultConfig().RunTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:   cfg,
		log:   log,
		procs: make(map[string]*process),
	}
}

// SpawnResult is the initial snapshot returned by Spawn.
type SpawnResult struct {
	ID     string
	Stdout string
	Stderr string
}

// Spawn starts command detached into its own process group, registers a
// record under a fresh identifier, and returns an initial output
// snapshot after a short settle delay. No record is created on spawn
// failure.
func (m *Manager) Spawn(command string) (SpawnResult, error) {
	id := uuid.New().String()

	p, err := startProcess(id, command, m.cfg.WorkingDir)
	if err != nil {
		return SpawnResult{}, fmt.Errorf("spawn %q: %w", command, err)
	}

	m.mu.Lock()
	m.procs[id] = p
	m.mu.Unlock()

	m.log.Debug("spawned background process",
		zap.String("id", id), zap.String("command", command))

	time.Sleep(m.cfg.SpawnSettle)

	return SpawnResult{
		ID:     id,
		Stdout: p.stdout.String(),
		Stderr: p.stderr.String(),
	}, nil
}

// ProcessInfo is one entry in a List result.
type ProcessInfo struct {
	Command string
	Status  Status
	Runtime float64 // seconds since spawn
}

// List polls every record's liveness and returns the view. Records found
// dead are removed from the registry as a side effect; their entry still
// appears in this call's result with StatusTerminated.
func (m *Manager) List() map[string]ProcessInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]ProcessInfo, len(m.procs))
	for id, p := range m.procs {
		status := StatusRunning
		if !p.alive() {
			status = StatusTerminated
		}
		out[id] = ProcessInfo{
			Command: p.command,
			Status:  status,
			Runtime: p.runtimeSeconds(),
		}
	}
	m.sweepLocked()
	return out
}

// Output is the accumulated buffer view returned by PeekOutput.
type Output struct {
	Status     Status
	Stdout     string
	Stderr     string
	ReturnCode *int // set only when Status is StatusTerminated
}

// PeekOutput returns the accumulated stdout/stderr buffers. If the
// process is found dead the exit code is included and the record is
// removed; subsequent calls with the same id fail with ErrNotFound.
func (m *Manager) PeekOutput(id string) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.procs[id]
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	out := Output{
		Status: StatusRunning,
		Stdout: p.stdout.String(),
		Stderr: p.stderr.String(),
	}
	if !p.alive() {
		out.Status = StatusTerminated
		code := p.exitCode
		out.ReturnCode = &code
	}
	m.sweepLocked()
	return out, nil
}

// SendInput writes text plus a trailing newline to the process's stdin,
// flushes, and waits a short settle delay so output produced in response
// is visible to the next buffer read. Fails with ErrNotFound if the
// process has already terminated.
func (m *Manager) SendInput(id, text string) error {
	m.mu.Lock()
	p, ok := m.procs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !p.alive() {
		m.sweepLocked()
		m.mu.Unlock()
		return fmt.Errorf("%w: %s (already terminated)", ErrNotFound, id)
	}
	m.mu.Unlock()

	if _, err := p.stdin.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("send input to %s: %w", id, err)
	}
	time.Sleep(m.cfg.InputSettle)
	return nil
}

// StopResult reports the outcome of a Stop call.
type StopResult struct {
	AlreadyTerminated bool
	Stdout            string
	Stderr            string
}

// Stop terminates the process group: SIGTERM first, then SIGKILL if it
// is still alive after the grace period. The record is removed
// unconditionally, so a second Stop with the same id reports
// ErrNotFound.
func (m *Manager) Stop(id string) (StopResult, error) {
	m.mu.Lock()
	p, ok := m.procs[id]
	if ok {
		delete(m.procs, id)
	}
	m.sweepLocked()
	m.mu.Unlock()

	if !ok {
		return StopResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	res := StopResult{
		Stdout: p.stdout.String(),
		Stderr: p.stderr.String(),
	}
	if !p.alive() {
		res.AlreadyTerminated = true
		return res, nil
	}

	if err := p.signalGroup(syscall.SIGTERM); err != nil {
		m.log.Debug("SIGTERM failed", zap.String("id", id), zap.Error(err))
	}
	if !p.waitDead(m.cfg.StopGrace) {
		if err := p.signalGroup(syscall.SIGKILL); err != nil {
			return res, fmt.Errorf("kill %s: %w", id, err)
		}
	}
	m.log.Debug("stopped background process", zap.String("id", id))
	return res, nil
}

// StopAll stops every registered process, best-effort. Individual stop
// failures are logged and do not interrupt the rest.
func (m *Manager) StopAll() {
	for id := range m.List() {
		if _, err := m.Stop(id); err != nil && !errors.Is(err, ErrNotFound) {
			m.log.Warn("failed to stop process", zap.String("id", id), zap.Error(err))
		}
	}
}

// IDs returns the identifiers of all currently registered processes.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.procs))
	for id := range m.procs {
		ids = append(ids, id)
	}
	return ids
}

// sweepLocked removes every record observed dead. It is the single
// garbage-collection path; callers must hold m.mu.
func (m *Manager) sweepLocked() {
	for id, p := range m.procs {
		if !p.alive() {
			delete(m.procs, id)
		}
	}
}
