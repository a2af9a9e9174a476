package taskloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/martinemde/stepwise/llm"
)

// Executor runs a single decision round: it asks the model for its next
// move, recovers from malformed responses, and applies the resulting
// decision.
type Executor struct {
	client         llm.Client
	dispatcher     *Dispatcher
	history        *History
	events         *EventEmitter
	log            *zap.Logger
	workingDir     string
	maxRetries     int
	historyByteCap int

	// cleanup runs once when the executor reports completion, before
	// done is returned. Used to stop background processes best-effort.
	cleanup func()

	systemContext string
}

// NewExecutor creates an Executor. The system context is built once
// from the registry and reused for every step.
func NewExecutor(client llm.Client, registry *Registry, dispatcher *Dispatcher, history *History, events *EventEmitter, log *zap.Logger, workingDir string, maxRetries, historyByteCap int, cleanup func()) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		client:         client,
		dispatcher:     dispatcher,
		history:        history,
		events:         events,
		log:            log,
		workingDir:     workingDir,
		maxRetries:     maxRetries,
		historyByteCap: historyByteCap,
		cleanup:        cleanup,
		systemContext:  buildSystemContext(registry),
	}
}

// ExecuteStep performs one step of the task. It returns true when the
// model signaled completion without also requesting an action. A failed
// round trip or an unparseable response is retried up to maxRetries
// times; exhausting the budget records the failure in history and lets
// the loop move on to the next step.
func (e *Executor) ExecuteStep(ctx context.Context, task string, stepNum int) (bool, error) {
	userContext := buildUserContext(task, stepNum, e.workingDir, e.history.Render(e.historyByteCap))

	var lastErr string
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			e.events.Emit(EventRetry, map[string]interface{}{
				"attempt": attempt + 1,
				"max":     e.maxRetries + 1,
				"reason":  lastErr,
			})
		}

		response, err := e.client.Complete(ctx, e.systemContext, userContext)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			lastErr = err.Error()
			e.log.Warn("model request failed",
				zap.Int("step", stepNum),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		decision := ExtractDecision(response)
		if !decision.Valid() {
			lastErr = "response contained no function call or completion signal"
			e.log.Warn("unusable model response",
				zap.Int("step", stepNum),
				zap.Int("attempt", attempt+1),
				zap.Int("response_bytes", len(response)))
			continue
		}

		return e.applyDecision(decision), nil
	}

	message := fmt.Sprintf("No valid response after %d attempts: %s", e.maxRetries+1, lastErr)
	e.events.Emit(EventErrorBox, map[string]interface{}{"message": message})
	e.history.Append("none()", ErrorResult("%s", message))
	return false, nil
}

// applyDecision executes the decision's action, if any. An action takes
// precedence over a completion signal in the same response: the action
// runs and completion is left for a later step, once the model has seen
// its result.
func (e *Executor) applyDecision(decision Decision) bool {
	e.events.Emit(EventThought, map[string]interface{}{"thought": decision.Thought})

	if decision.Action == "" {
		if decision.TaskComplete && e.cleanup != nil {
			e.cleanup()
		}
		return decision.TaskComplete
	}

	label := FormatCall(decision.Action, decision.Parameters)
	e.events.Emit(EventAction, map[string]interface{}{"call": label})

	result := e.dispatcher.Dispatch(decision.Action, decision.Parameters)
	e.history.Append(label, result)
	e.events.Emit(EventResult, map[string]interface{}{"result": map[string]interface{}(result)})

	if decision.TaskComplete {
		e.log.Debug("completion signaled alongside an action, deferring",
			zap.String("action", decision.Action))
	}
	return false
}
