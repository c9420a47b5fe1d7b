package agents

import (
	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/finder"
	"github.com/nulib/swarm-tools/search"
)

// Tools collects the functions of the example agents by name so that
// pipelines can refer to them. A nil finder or store leaves out the tools
// that need it.
func Tools(f *finder.Finder, store search.Store, opts ...Option) map[string]swarm.AgentFunction {
	var fns []swarm.AgentFunction
	fns = append(fns, NewWeatherAgent(opts...).Functions...)
	fns = append(fns, NewUserInterfaceAgent(opts...).Functions...)
	if f != nil {
		fns = append(fns, f.Tools()...)
	}
	if store != nil {
		fns = append(fns,
			search.SimilaritySearchFunction(store, search.DefaultSimilaritySize),
			search.SearchFunction(store, search.DefaultSearchSize),
			search.AggregateFunction(store),
		)
	}

	tools := make(map[string]swarm.AgentFunction, len(fns))
	for _, fn := range fns {
		tools[fn.Name()] = fn
	}
	return tools
}
