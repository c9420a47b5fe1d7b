package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	swarm "github.com/nulib/swarm-tools"
)

const (
	// DefaultPipelineMaxTurns bounds each step's run when the pipeline sets no max_turns.
	DefaultPipelineMaxTurns = 30
	// DefaultPipelineTimeout bounds a whole pipeline run.
	DefaultPipelineTimeout = 5 * time.Minute
)

var (
	ErrNoSteps     = errors.New("pipeline must have at least one step")
	ErrUnknownTool = errors.New("unknown tool")
)

// Pipeline is a sequence of agent steps loaded from YAML. Each step sees the
// conversation of the steps before it and the outputs they stored in the
// context variables as "<step>Result".
type Pipeline struct {
	Name     string `yaml:"name"`
	Model    string `yaml:"model,omitempty"`
	MaxTurns int    `yaml:"max_turns,omitempty"`
	// System is prepended to every step's instructions.
	System  string         `yaml:"system,omitempty"`
	Timeout time.Duration  `yaml:"timeout,omitempty"`
	Steps   []PipelineStep `yaml:"steps"`
}

// PipelineStep is one agent of a Pipeline.
type PipelineStep struct {
	Name         string                 `yaml:"name"`
	Instructions string                 `yaml:"instructions,omitempty"`
	Inputs       map[string]interface{} `yaml:"inputs,omitempty"`
	// Tools names functions from the registry passed to Compile.
	Tools []string `yaml:"tools,omitempty"`
	// Timeout defaults to the pipeline timeout split evenly between steps.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoadPipeline reads and validates a pipeline file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline decodes and validates a YAML pipeline.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the step list and fills in defaults.
func (p *Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	if p.MaxTurns <= 0 {
		p.MaxTurns = DefaultPipelineMaxTurns
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultPipelineTimeout
	}

	seen := make(map[string]struct{}, len(p.Steps))
	for i := range p.Steps {
		step := &p.Steps[i]
		switch step.Name {
		case "":
			return fmt.Errorf("step %d has no name", i+1)
		case START, END:
			return fmt.Errorf("%w: %q", ErrReservedName, step.Name)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, step.Name)
		}
		seen[step.Name] = struct{}{}
		if step.Timeout <= 0 {
			step.Timeout = p.Timeout / time.Duration(len(p.Steps))
		}
	}
	return nil
}

// Save writes the pipeline as YAML.
func (p *Pipeline) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pipeline file: %w", err)
	}
	return nil
}

// Compile turns the steps into a linear graph. Step tools are looked up in
// tools by name.
func (p *Pipeline) Compile(s *swarm.Swarm, tools map[string]swarm.AgentFunction, opts ...CompileOption) (*CompiledGraph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := NewStateGraph()
	prev := START
	for _, step := range p.Steps {
		agent, err := p.agent(step, tools)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(step.Name, p.stepNode(s, agent, step)); err != nil {
			return nil, err
		}
		if err := g.AddEdge(prev, step.Name); err != nil {
			return nil, err
		}
		prev = step.Name
	}
	if err := g.AddEdge(prev, END); err != nil {
		return nil, err
	}
	return g.Compile(opts...)
}

// Run compiles and executes the pipeline once and returns the last step's
// reply together with the final state.
func (p *Pipeline) Run(ctx context.Context, s *swarm.Swarm, tools map[string]swarm.AgentFunction, opts ...CompileOption) (string, State, error) {
	compiled, err := p.Compile(s, tools, append([]CompileOption{WithMaxSteps(len(p.Steps))}, opts...)...)
	if err != nil {
		return "", State{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	state, err := compiled.Invoke(ctx, State{}, "")
	if err != nil {
		return "", state, fmt.Errorf("pipeline %q failed: %w", p.Name, err)
	}
	return Reply(state), state, nil
}

func (p *Pipeline) agent(step PipelineStep, tools map[string]swarm.AgentFunction) (*swarm.Agent, error) {
	instructions := step.Instructions
	if p.System != "" {
		instructions = p.System + "\n\n" + instructions
	}
	agent := swarm.NewAgent(step.Name).WithInstructions(instructions)
	if p.Model != "" {
		agent.WithModel(p.Model)
	}
	for _, name := range step.Tools {
		f, ok := tools[name]
		if !ok {
			return nil, fmt.Errorf("%w %q in step %q", ErrUnknownTool, name, step.Name)
		}
		agent.AddFunction(f)
	}
	return agent, nil
}

func (p *Pipeline) stepNode(s *swarm.Swarm, agent *swarm.Agent, step PipelineStep) NodeFunc {
	return func(ctx context.Context, state State) (Update, error) {
		ctx, cancel := context.WithTimeout(ctx, step.Timeout)
		defer cancel()

		vars := state.ContextVariables
		for k, v := range step.Inputs {
			vars[k] = v
		}
		data, err := json.Marshal(vars)
		if err != nil {
			return Update{}, fmt.Errorf("failed to encode inputs of step %q: %w", step.Name, err)
		}
		prompt := map[string]interface{}{"role": "user", "content": "Context: " + string(data)}

		resp, err := s.Run(ctx, agent, append(state.Messages, prompt), swarm.RunOptions{
			ContextVariables: vars,
			MaxTurns:         p.MaxTurns,
			ExecuteTools:     true,
		})
		if err != nil {
			return Update{}, err
		}
		if len(resp.Messages) == 0 {
			return Update{}, fmt.Errorf("step %q returned no response", step.Name)
		}

		out := resp.ContextVariables
		content, _ := resp.Messages[len(resp.Messages)-1]["content"].(string)
		out[step.Name+"Result"] = content
		return Update{
			Messages:         append([]map[string]interface{}{prompt}, resp.Messages...),
			ContextVariables: out,
		}, nil
	}
}
