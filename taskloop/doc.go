// Package taskloop implements a step-driven task executor.
//
// A Runner repeatedly asks a language model for the next action, runs
// that action against a local shell/process environment, and feeds the
// observed result back into the next request, until the model signals
// completion or the step budget is exhausted.
//
// The package is organized around these core concepts:
//
//   - Runner: drives the step loop and guarantees background-process
//     cleanup on every exit path.
//   - Executor: one step — build prompt, call the model, extract the
//     decision, dispatch the action, update history — with bounded retry
//     on transient failures.
//   - Decision / ExtractDecision: permissive parsing of the model's
//     tag-delimited reply into a typed record. Extraction never fails;
//     an empty decision is judged invalid by the Executor.
//   - Dispatcher: maps action names to registry handlers, normalizing
//     bare names and rerouting very large file writes through chunked
//     appends.
//   - Registry: qualified action names mapped to descriptions, parameter
//     schemas, and handlers.
//   - EventEmitter: typed presentation events (header, thought, action,
//     result, error box, debug) consumed by a display layer.
//
// # Quick Start
//
//	client, _ := llm.NewGollmClient("anthropic", "")
//	procs := shellproc.NewManager(shellproc.DefaultConfig(), nil)
//	runner := taskloop.NewRunner(client, procs, taskloop.DefaultConfig(), nil)
//
//	done, err := runner.Solve(ctx, "create hello.txt with content 'hi'")
package taskloop
