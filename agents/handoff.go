package agents

import (
	"context"

	swarm "github.com/nulib/swarm-tools"
)

// NewHandoffAgents returns Agent A, which can transfer the conversation to
// Agent B, and Agent B, which only speaks in haikus.
func NewHandoffAgents(opts ...Option) (a, b *swarm.Agent) {
	o := newOptions(opts)

	b = o.agent("Agent B").WithInstructions("Only speak in Haikus.")
	a = o.agent("Agent A").
		WithInstructions("You are a helpful agent.").
		AddFunction(TransferTo("transfer_to_agent_b", "Transfer the conversation to Agent B.", b))
	return a, b
}

// TransferTo returns a function that hands the conversation to target.
func TransferTo(name, description string, target *swarm.Agent) swarm.AgentFunction {
	return swarm.MustAgentFunction(name, description,
		func(context.Context, map[string]interface{}) (interface{}, error) {
			return target, nil
		},
		nil,
	)
}
