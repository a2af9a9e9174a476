// Package llm provides the model client used by the task loop.
//
// The loop only needs a single blocking exchange: a system context and a
// user context in, raw reply text out. The Client interface captures
// exactly that, and GollmClient implements it on top of the gollm
// library (github.com/teilomillet/gollm) for OpenAI and Anthropic
// backends. Errors are classified into a small typed hierarchy so
// callers can distinguish retryable transport conditions from terminal
// configuration problems.
package llm
