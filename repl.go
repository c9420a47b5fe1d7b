package swarm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// DemoLoopOptions configures RunDemoLoop.
type DemoLoopOptions struct {
	// In is read line by line. Defaults to os.Stdin.
	In io.Reader
	// Out receives the transcript. Defaults to os.Stdout.
	Out io.Writer

	ContextVariables map[string]interface{}
	ModelOverride    string
	Debug            bool
	MaxTurns         int
}

// RunDemoLoop runs an interactive conversation with agent until the input is
// exhausted or the user types exit or quit. The full history, the active
// agent and the context variables carry over from one input to the next.
func RunDemoLoop(ctx context.Context, s *Swarm, agent *Agent, opts DemoLoopOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var history []map[string]interface{}
	contextVariables := copyVariables(opts.ContextVariables)
	activeAgent := agent

	return PromptLoop(opts.In, out, func(input string) error {
		history = append(history, map[string]interface{}{"role": "user", "content": input})
		response, err := s.Run(ctx, activeAgent, history, RunOptions{
			ContextVariables: contextVariables,
			ModelOverride:    opts.ModelOverride,
			Debug:            opts.Debug,
			MaxTurns:         opts.MaxTurns,
			ExecuteTools:     true,
		})
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}

		PrintMessages(out, response.Messages)
		history = append(history, response.Messages...)
		activeAgent = response.Agent
		contextVariables = response.ContextVariables
		return nil
	})
}

// PromptLoop prints the CLI banner and then calls handle with every
// non-blank line read from in. It returns on EOF, on exit or quit, or with
// the first error from handle. A nil in reads os.Stdin and a nil out writes
// os.Stdout.
func PromptLoop(in io.Reader, out io.Writer, handle func(input string) error) error {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintln(out, "Starting Swarm CLI 🐝 (type 'exit' to quit)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nUser: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lower := strings.ToLower(input); lower == "exit" || lower == "quit" {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if err := handle(input); err != nil {
			return err
		}
	}
}

// PrintMessages writes the assistant messages of a transcript as
// "Sender: content" lines and their tool calls as "Sender: name(k=v)".
func PrintMessages(w io.Writer, messages []map[string]interface{}) {
	for _, msg := range messages {
		if role, _ := msg["role"].(string); role != "assistant" {
			continue
		}
		sender, _ := msg["sender"].(string)

		if content, _ := msg["content"].(string); content != "" {
			fmt.Fprintf(w, "%s: %s\n", sender, content)
		}

		for _, call := range ToolCalls(msg) {
			fmt.Fprintf(w, "%s: %s(%s)\n", sender, call.Function.Name, formatArguments(call.Function.Arguments))
		}
	}
}

func formatArguments(raw string) string {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := json.Marshal(args[k])
		parts[i] = k + "=" + string(v)
	}
	return strings.Join(parts, ", ")
}
