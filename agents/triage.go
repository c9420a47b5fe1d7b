package agents

import (
	"context"
	"fmt"

	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/search"
	"go.uber.org/zap"
)

// TriageAgents is the triage, search and formatter trio. Each can hand the
// conversation to the others.
type TriageAgents struct {
	Triage    *swarm.Agent
	Search    *swarm.Agent
	Formatter *swarm.Agent
}

// NewTriageAgents wires the three agents around store.
func NewTriageAgents(store search.Store, opts ...Option) *TriageAgents {
	o := newOptions(opts)

	t := &TriageAgents{
		Triage:    o.agent("Triage Agent").WithInstructions(triageInstructions),
		Search:    o.agent("Search Agent").WithInstructions(searchInstructions),
		Formatter: o.agent("Formatter Agent").WithInstructions(formatterInstructions),
	}

	toTriage := TransferTo("transfer_to_triage",
		"Call this function when a user needs to be transferred to a different agent and a different policy. "+
			"For instance, if a user is asking about a topic that is not handled by the current agent, call this function.",
		t.Triage)
	toSearch := TransferTo("transfer_to_search", "Transfer the conversation to the search agent.", t.Search)
	toFormatter := TransferTo("transfer_to_formatter", "Transfer the conversation to the formatter agent.", t.Formatter)
	approve := markAsApproved(o.logger)

	t.Triage.AddFunctions(toSearch, approve, flagProblematicRecords(o.logger))
	t.Search.AddFunctions(toTriage, toFormatter, search.SimilaritySearchFunction(store, search.DefaultSimilaritySize), approve)
	t.Formatter.AddFunctions(toTriage)
	return t
}

func triageInstructions(vars map[string]interface{}) string {
	return fmt.Sprintf(`You are to triage a users request, and call a tool to transfer to the right intent.
Once you are ready to transfer to the right intent, call the tool to transfer to the right intent.
You dont need to know specifics, just the topic of the request.
When you need more information to triage the request to an agent, ask a direct question without explaining why you're asking it.
Do not share your thought process with the user! Do not make unreasonable assumptions on behalf of user.
The user context is here: %s`, stringVar(vars, "name", "friend"))
}

func searchInstructions(vars map[string]interface{}) string {
	return fmt.Sprintf(`You are a search agent. Your current source information is: %s
Ask clarifying questions to make sure you know the user's search intent if necessary.
Queries are stored in your context when the function is called.
If you already have the proper sources in context, transfer to the appropriate agent.`, stringVar(vars, search.SourceVariable, "none"))
}

func formatterInstructions(vars map[string]interface{}) string {
	return fmt.Sprintf(`You are a formatter agent. Your current source information is: %s
Format the source documents according to the user's instructions. Focus only on the source information that is relevant to the user's request.`, stringVar(vars, search.SourceVariable, "none"))
}

func markAsApproved(logger *zap.Logger) swarm.AgentFunction {
	return swarm.MustAgentFunction("mark_as_approved", "Mark a record as approved.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			logger.Info("marking records as approved", zap.Any("source", contextVariables(args)[search.SourceVariable]))
			return "Record marked as approved", nil
		},
		nil,
	)
}

func flagProblematicRecords(logger *zap.Logger) swarm.AgentFunction {
	return swarm.MustAgentFunction("flag_problematic_records", "Flag problematic records in the source.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			logger.Info("flagging problematic records", zap.Any("source", contextVariables(args)[search.SourceVariable]))
			return "Problematic records flagged", nil
		},
		nil,
	)
}
