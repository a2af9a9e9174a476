package taskloop

import (
	"context"

	"go.uber.org/zap"

	"github.com/martinemde/stepwise/llm"
	"github.com/martinemde/stepwise/shellproc"
)

// Config controls the task loop.
type Config struct {
	// MaxSteps is the number of steps a task may take before the loop
	// gives up.
	MaxSteps int
	// MaxRetries is the number of additional model round trips allowed
	// per step when a response is unusable.
	MaxRetries int
	// HistoryByteCap bounds stdout/stderr fields when history is
	// rendered into the model context.
	HistoryByteCap int
	// WorkingDir is the directory commands and file paths resolve
	// against. Defaults to the current directory.
	WorkingDir string
	// EventBuffer sizes the event channel.
	EventBuffer int
}

// DefaultConfig returns the stock loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxSteps:       20,
		MaxRetries:     2,
		HistoryByteCap: 500,
		EventBuffer:    256,
	}
}

// Runner drives a task to completion step by step. Each step sends the
// task plus accumulated history to the model, executes the action it
// chooses, and records the result for the next step.
type Runner struct {
	client   llm.Client
	procs    *shellproc.Manager
	registry *Registry
	events   *EventEmitter
	executor *Executor
	history  *History
	cfg      Config
	log      *zap.Logger
}

// NewRunner creates a Runner with the terminal action set registered.
// Zero config fields take their defaults; a nil logger disables
// logging.
func NewRunner(client llm.Client, procs *shellproc.Manager, cfg Config, log *zap.Logger) *Runner {
	def := DefaultConfig()
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.HistoryByteCap <= 0 {
		cfg.HistoryByteCap = def.HistoryByteCap
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}

	registry := NewRegistry()
	terminal := NewTerminal(procs, cfg.WorkingDir)
	RegisterTerminalTools(registry, terminal)

	events := NewEventEmitter(cfg.EventBuffer)
	history := NewHistory()
	dispatcher := NewDispatcher(registry, events)
	executor := NewExecutor(client, registry, dispatcher, history, events, log, terminal.WorkingDir(), cfg.MaxRetries, cfg.HistoryByteCap, procs.StopAll)

	return &Runner{
		client:   client,
		procs:    procs,
		registry: registry,
		events:   events,
		executor: executor,
		history:  history,
		cfg:      cfg,
		log:      log,
	}
}

// Events returns the channel of presentation events. It is closed when
// Solve returns.
func (r *Runner) Events() <-chan Event { return r.events.Events() }

// Registry returns the action registry, for registering additional
// actions before Solve.
func (r *Runner) Registry() *Registry { return r.registry }

// History returns the step history accumulated so far.
func (r *Runner) History() *History { return r.history }

// Solve runs the task loop until the model signals completion or the
// step limit is reached. All background processes are stopped before it
// returns, on every exit path.
func (r *Runner) Solve(ctx context.Context, task string) (bool, error) {
	defer r.events.Close()
	defer r.procs.StopAll()

	r.events.Emit(EventSessionStart, map[string]interface{}{
		"task":     task,
		"provider": r.client.Provider(),
		"model":    r.client.Model(),
	})
	r.log.Info("starting task",
		zap.String("provider", r.client.Provider()),
		zap.String("model", r.client.Model()),
		zap.Int("max_steps", r.cfg.MaxSteps))

	for step := 1; step <= r.cfg.MaxSteps; step++ {
		r.events.Emit(EventStepStart, map[string]interface{}{
			"step":      step,
			"max_steps": r.cfg.MaxSteps,
		})

		done, err := r.executor.ExecuteStep(ctx, task, step)
		if err != nil {
			r.events.Emit(EventErrorBox, map[string]interface{}{"message": err.Error()})
			r.events.Emit(EventSessionEnd, map[string]interface{}{"completed": false, "steps": step})
			return false, err
		}
		if done {
			r.events.Emit(EventTaskComplete, map[string]interface{}{"steps": step})
			r.events.Emit(EventSessionEnd, map[string]interface{}{"completed": true, "steps": step})
			r.log.Info("task complete", zap.Int("steps", step))
			return true, nil
		}
	}

	r.events.Emit(EventStepLimit, map[string]interface{}{"max_steps": r.cfg.MaxSteps})
	r.events.Emit(EventSessionEnd, map[string]interface{}{"completed": false, "steps": r.cfg.MaxSteps})
	r.log.Warn("step limit reached", zap.Int("max_steps", r.cfg.MaxSteps))
	return false, nil
}
