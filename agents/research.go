package agents

import (
	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/search"
)

const researchInstructions = "You answer questions about Northwestern University Library digital collections. " +
	"Use search for qualitative questions and ground your answer in the returned documents and their metadata. " +
	"Use aggregate for quantitative questions such as counts by field."

// NewResearchAgent returns the agent driven by the agent/tools graph. It can
// search the collections and aggregate over the index.
func NewResearchAgent(store search.Store, opts ...Option) *swarm.Agent {
	o := newOptions(opts)
	return o.agent("Research Agent").
		WithInstructions(researchInstructions).
		AddFunctions(
			search.SearchFunction(store, search.DefaultSearchSize),
			search.AggregateFunction(store),
		)
}
