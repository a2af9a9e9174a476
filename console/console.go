// Package console renders task loop events to a terminal. It consumes
// the event channel produced by the loop and owns all styling; the loop
// itself never prints.
package console

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/stepwise/taskloop"
)

// Styles holds the lipgloss styles used for each event family.
type Styles struct {
	Banner  lipgloss.Style
	Step    lipgloss.Style
	Thought lipgloss.Style
	Action  lipgloss.Style
	Stdout  lipgloss.Style
	Stderr  lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Dim     lipgloss.Style
}

// DefaultStyles returns the stock color scheme.
func DefaultStyles() Styles {
	return Styles{
		Banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2),
		Step: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		Thought: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245")),
		Action: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
		Stdout: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Stderr: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Renderer writes styled event output to a writer.
type Renderer struct {
	out    io.Writer
	styles Styles
	debug  bool
}

// NewRenderer creates a Renderer with the default styles. Debug events
// are rendered only when debug is true.
func NewRenderer(out io.Writer, debug bool) *Renderer {
	return &Renderer{out: out, styles: DefaultStyles(), debug: debug}
}

// Run consumes events until the channel is closed, rendering each one.
func (r *Renderer) Run(events <-chan taskloop.Event) {
	for event := range events {
		r.Render(event)
	}
}

// Render writes one event.
func (r *Renderer) Render(event taskloop.Event) {
	switch event.Kind {
	case taskloop.EventSessionStart:
		header := fmt.Sprintf("stepwise  %s/%s",
			stringField(event, "provider"), stringField(event, "model"))
		fmt.Fprintln(r.out, r.styles.Banner.Render(header))
		fmt.Fprintln(r.out, r.styles.Dim.Render("Task: "+stringField(event, "task")))
	case taskloop.EventStepStart:
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.styles.Step.Render(fmt.Sprintf("Step %v/%v",
			event.Data["step"], event.Data["max_steps"])))
	case taskloop.EventThought:
		fmt.Fprintln(r.out, r.styles.Thought.Render(stringField(event, "thought")))
	case taskloop.EventAction:
		fmt.Fprintln(r.out, r.styles.Action.Render("→ "+stringField(event, "call")))
	case taskloop.EventResult:
		r.renderResult(event)
	case taskloop.EventProgress:
		fmt.Fprintln(r.out, r.styles.Dim.Render(stringField(event, "message")))
	case taskloop.EventRetry:
		fmt.Fprintln(r.out, r.styles.Warning.Render(fmt.Sprintf("Retrying (%v/%v): %s",
			event.Data["attempt"], event.Data["max"], stringField(event, "reason"))))
	case taskloop.EventWarning:
		fmt.Fprintln(r.out, r.styles.Warning.Render(stringField(event, "message")))
	case taskloop.EventErrorBox:
		fmt.Fprintln(r.out, r.styles.Error.Render(stringField(event, "message")))
	case taskloop.EventDebug:
		if r.debug {
			fmt.Fprintln(r.out, r.styles.Dim.Render(stringField(event, "message")))
		}
	case taskloop.EventTaskComplete:
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.styles.Success.Render(fmt.Sprintf("Task complete in %v steps", event.Data["steps"])))
	case taskloop.EventStepLimit:
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, r.styles.Error.Render(fmt.Sprintf("Task incomplete after %v steps", event.Data["max_steps"])))
	}
}

func (r *Renderer) renderResult(event taskloop.Event) {
	result, _ := event.Data["result"].(map[string]interface{})
	if result == nil {
		return
	}
	if msg, ok := result["error"].(string); ok {
		fmt.Fprintln(r.out, r.styles.Stderr.Render("error: "+msg))
		return
	}
	if out, ok := result["stdout"].(string); ok || result["stderr"] != nil {
		if out != "" {
			fmt.Fprintln(r.out, r.styles.Stdout.Render(out))
		}
		if errOut, ok := result["stderr"].(string); ok && errOut != "" {
			fmt.Fprintln(r.out, r.styles.Stderr.Render(errOut))
		}
		if code, ok := result["returncode"]; ok {
			fmt.Fprintln(r.out, r.styles.Dim.Render(fmt.Sprintf("exit %v", code)))
		}
		if msg, ok := result["message"].(string); ok && msg != "" {
			fmt.Fprintln(r.out, r.styles.Dim.Render(msg))
		}
		return
	}
	if msg, ok := result["message"].(string); ok {
		fmt.Fprintln(r.out, r.styles.Stdout.Render(msg))
		return
	}
	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, "%v\n", result)
		return
	}
	fmt.Fprintln(r.out, r.styles.Stdout.Render(string(pretty)))
}

func stringField(event taskloop.Event, key string) string {
	s, _ := event.Data[key].(string)
	return s
}
