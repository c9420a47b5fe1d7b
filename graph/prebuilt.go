package graph

import (
	"context"
	"fmt"

	swarm "github.com/nulib/swarm-tools"
)

// Node names used by NewAgentGraph.
const (
	AgentNodeName = "agent"
	ToolsNodeName = "tools"
)

// AgentNode asks the model for one reply from agent, advertising the
// agent's functions without executing them.
func AgentNode(s *swarm.Swarm, agent *swarm.Agent, opts swarm.RunOptions) NodeFunc {
	return func(ctx context.Context, state State) (Update, error) {
		if len(state.Messages) == 0 {
			return Update{}, swarm.ErrEmptyMessages
		}
		run := opts
		run.ContextVariables = state.ContextVariables
		run.MaxTurns = 1
		run.ExecuteTools = false

		resp, err := s.Run(ctx, agent, state.Messages, run)
		if err != nil {
			return Update{}, err
		}
		return Update{Messages: resp.Messages}, nil
	}
}

// ToolNode executes the tool calls of the last assistant message. With
// parallel unset the calls run one after another and each sees the context
// variables left by the previous one.
func ToolNode(s *swarm.Swarm, functions []swarm.AgentFunction, parallel, debug bool) NodeFunc {
	return func(ctx context.Context, state State) (Update, error) {
		calls := swarm.ToolCalls(state.Last())
		if len(calls) == 0 {
			return Update{}, fmt.Errorf("%w: last message has no tool calls", swarm.ErrInvalidToolCall)
		}
		resp, err := s.ExecuteToolCalls(ctx, calls, functions, state.ContextVariables, parallel, debug)
		if err != nil {
			return Update{}, err
		}
		return Update{Messages: resp.Messages, ContextVariables: resp.ContextVariables}, nil
	}
}

// ShouldContinue routes to the tools node while the model keeps asking
// for tools and ends the run otherwise.
func ShouldContinue(state State) string {
	if len(swarm.ToolCalls(state.Last())) > 0 {
		return ToolsNodeName
	}
	return END
}

// NewAgentGraph builds the agent <-> tools loop for agent.
func NewAgentGraph(s *swarm.Swarm, agent *swarm.Agent, opts swarm.RunOptions, compileOpts ...CompileOption) (*CompiledGraph, error) {
	g := NewStateGraph()
	if err := g.AddNode(AgentNodeName, AgentNode(s, agent, opts)); err != nil {
		return nil, err
	}
	if err := g.AddNode(ToolsNodeName, ToolNode(s, agent.Functions, agent.ParallelToolCalls, opts.Debug)); err != nil {
		return nil, err
	}
	if err := g.AddEdge(START, AgentNodeName); err != nil {
		return nil, err
	}
	if err := g.AddConditionalEdges(AgentNodeName, ShouldContinue); err != nil {
		return nil, err
	}
	if err := g.AddEdge(ToolsNodeName, AgentNodeName); err != nil {
		return nil, err
	}
	return g.Compile(compileOpts...)
}

// Reply returns the content of the last message in state.
func Reply(state State) string {
	content, _ := state.Last()["content"].(string)
	return content
}
