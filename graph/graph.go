// Package graph runs agents as a small state machine: named nodes append
// messages to a shared state and edges, fixed or computed from the state,
// pick the next node until END is reached.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// START is the virtual node an entry edge leaves from.
	START = "__start__"
	// END is the virtual node that terminates a run.
	END = "__end__"

	// DefaultMaxSteps bounds the number of node executions per Invoke.
	DefaultMaxSteps = 25
)

var (
	ErrNoEntryPoint    = errors.New("graph has no entry point")
	ErrUnknownNode     = errors.New("unknown node")
	ErrDuplicateNode   = errors.New("node already exists")
	ErrReservedName    = errors.New("node name is reserved")
	ErrNoOutgoingEdge  = errors.New("node has no outgoing edge")
	ErrRecursionLimit  = errors.New("graph exceeded the step limit")
	ErrConflictingEdge = errors.New("node already has an outgoing edge")
)

// State is what flows between nodes.
type State struct {
	Messages         []map[string]interface{}
	ContextVariables map[string]interface{}
}

// Last returns the most recent message, or nil.
func (s State) Last() map[string]interface{} {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

func (s State) clone() State {
	out := State{
		Messages:         make([]map[string]interface{}, len(s.Messages)),
		ContextVariables: make(map[string]interface{}, len(s.ContextVariables)),
	}
	copy(out.Messages, s.Messages)
	for k, v := range s.ContextVariables {
		out.ContextVariables[k] = v
	}
	return out
}

// Update is what a node contributes: messages to append and variables to merge.
type Update struct {
	Messages         []map[string]interface{}
	ContextVariables map[string]interface{}
}

func (s *State) apply(u Update) {
	s.Messages = append(s.Messages, u.Messages...)
	if len(u.ContextVariables) > 0 && s.ContextVariables == nil {
		s.ContextVariables = make(map[string]interface{}, len(u.ContextVariables))
	}
	for k, v := range u.ContextVariables {
		s.ContextVariables[k] = v
	}
}

// NodeFunc is the work done at a node.
type NodeFunc func(ctx context.Context, state State) (Update, error)

// RouterFunc picks the next node name (or END) from the state.
type RouterFunc func(state State) string

// StateGraph is a graph under construction.
type StateGraph struct {
	nodes       map[string]NodeFunc
	edges       map[string]string
	conditional map[string]RouterFunc
	entry       string
}

// NewStateGraph returns an empty graph.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:       make(map[string]NodeFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]RouterFunc),
	}
}

// AddNode registers fn under name.
func (g *StateGraph) AddNode(name string, fn NodeFunc) error {
	if name == "" || name == START || name == END {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if fn == nil {
		return fmt.Errorf("node %q has no function", name)
	}
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	g.nodes[name] = fn
	return nil
}

// AddEdge always moves from one node to another. An edge from START sets
// the entry point.
func (g *StateGraph) AddEdge(from, to string) error {
	if from == START {
		g.entry = to
		return nil
	}
	if _, ok := g.conditional[from]; ok {
		return fmt.Errorf("%w: %q", ErrConflictingEdge, from)
	}
	if _, ok := g.edges[from]; ok {
		return fmt.Errorf("%w: %q", ErrConflictingEdge, from)
	}
	g.edges[from] = to
	return nil
}

// AddConditionalEdges lets router choose the node that follows from.
func (g *StateGraph) AddConditionalEdges(from string, router RouterFunc) error {
	if router == nil {
		return fmt.Errorf("conditional edge from %q has no router", from)
	}
	if _, ok := g.edges[from]; ok {
		return fmt.Errorf("%w: %q", ErrConflictingEdge, from)
	}
	if _, ok := g.conditional[from]; ok {
		return fmt.Errorf("%w: %q", ErrConflictingEdge, from)
	}
	g.conditional[from] = router
	return nil
}

// SetEntryPoint is AddEdge(START, name).
func (g *StateGraph) SetEntryPoint(name string) {
	g.entry = name
}

// CompileOption configures a compiled graph.
type CompileOption func(*CompiledGraph)

// WithCheckpointer persists state per thread between invocations.
func WithCheckpointer(c Checkpointer) CompileOption {
	return func(cg *CompiledGraph) { cg.checkpointer = c }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) CompileOption {
	return func(cg *CompiledGraph) {
		if n > 0 {
			cg.maxSteps = n
		}
	}
}

// WithLogger traces node transitions at debug level.
func WithLogger(l *zap.Logger) CompileOption {
	return func(cg *CompiledGraph) {
		if l != nil {
			cg.logger = l
		}
	}
}

// Compile validates the graph and freezes it for execution.
func (g *StateGraph) Compile(opts ...CompileOption) (*CompiledGraph, error) {
	if g.entry == "" {
		return nil, ErrNoEntryPoint
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("%w: entry %q", ErrUnknownNode, g.entry)
	}
	for name := range g.nodes {
		_, fixed := g.edges[name]
		_, routed := g.conditional[name]
		if !fixed && !routed {
			return nil, fmt.Errorf("%w: %q", ErrNoOutgoingEdge, name)
		}
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge from %q", ErrUnknownNode, from)
		}
		if _, ok := g.nodes[to]; !ok && to != END {
			return nil, fmt.Errorf("%w: edge to %q", ErrUnknownNode, to)
		}
	}
	for from := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge from %q", ErrUnknownNode, from)
		}
	}

	cg := &CompiledGraph{
		nodes:       make(map[string]NodeFunc, len(g.nodes)),
		edges:       make(map[string]string, len(g.edges)),
		conditional: make(map[string]RouterFunc, len(g.conditional)),
		entry:       g.entry,
		maxSteps:    DefaultMaxSteps,
		logger:      zap.NewNop(),
	}
	for k, v := range g.nodes {
		cg.nodes[k] = v
	}
	for k, v := range g.edges {
		cg.edges[k] = v
	}
	for k, v := range g.conditional {
		cg.conditional[k] = v
	}
	for _, opt := range opts {
		opt(cg)
	}
	return cg, nil
}

// CompiledGraph is an executable graph. It is safe for concurrent use when
// its nodes and checkpointer are.
type CompiledGraph struct {
	nodes        map[string]NodeFunc
	edges        map[string]string
	conditional  map[string]RouterFunc
	entry        string
	maxSteps     int
	checkpointer Checkpointer
	logger       *zap.Logger
}

// NewThreadID returns a fresh thread identifier.
func NewThreadID() string {
	return uuid.NewString()
}

// Invoke appends input to the thread's saved state (if a checkpointer is
// configured) and runs the graph from the entry point to END. The final
// state is saved and returned. Nothing is saved when a node fails.
func (cg *CompiledGraph) Invoke(ctx context.Context, input State, threadID string) (State, error) {
	state := State{ContextVariables: map[string]interface{}{}}
	if cg.checkpointer != nil && threadID != "" {
		saved, ok, err := cg.checkpointer.Get(ctx, threadID)
		if err != nil {
			return State{}, fmt.Errorf("failed to load checkpoint %q: %w", threadID, err)
		}
		if ok {
			state = saved
		}
	}
	state.apply(Update(input))

	current := cg.entry
	for step := 0; current != END; step++ {
		if step >= cg.maxSteps {
			return state, fmt.Errorf("%w (%d)", ErrRecursionLimit, cg.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		fn, ok := cg.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %q", ErrUnknownNode, current)
		}
		update, err := fn(ctx, state.clone())
		if err != nil {
			return state, fmt.Errorf("node %q: %w", current, err)
		}
		state.apply(update)

		next := cg.edges[current]
		if router, ok := cg.conditional[current]; ok {
			next = router(state)
		}
		cg.logger.Debug("graph step",
			zap.String("thread", threadID),
			zap.Int("step", step),
			zap.String("node", current),
			zap.String("next", next),
			zap.Int("messages", len(state.Messages)),
		)
		current = next
	}

	if cg.checkpointer != nil && threadID != "" {
		if err := cg.checkpointer.Put(ctx, threadID, state); err != nil {
			return state, fmt.Errorf("failed to save checkpoint %q: %w", threadID, err)
		}
	}
	return state, nil
}
