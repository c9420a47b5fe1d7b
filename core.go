package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyMessages indicates that the messages array is empty when making a request.
	// This error is returned when attempting to run an agent interaction without any initial messages.
	ErrEmptyMessages = errors.New("messages cannot be empty")

	// ErrInvalidToolCall indicates that a tool call request was malformed or invalid.
	// This can occur when the tool call parameters don't match the function signature.
	ErrInvalidToolCall = errors.New("invalid tool call")

	// ErrInvalidInstruction is returned when Agent.Instructions is neither a
	// string nor a supported instruction function.
	ErrInvalidInstruction = errors.New("invalid agent instructions")

	// ErrNilAgent is returned when a run is started without an agent.
	ErrNilAgent = errors.New("agent cannot be nil")

	// ErrNilFunction is returned by NewAgentFunction when no implementation is given.
	ErrNilFunction = errors.New("function implementation cannot be nil")

	// ErrInvalidSchema wraps every tool descriptor validation failure.
	ErrInvalidSchema = errors.New("invalid tool schema")

	// ErrNoChoices is returned when the model responds without any choice.
	ErrNoChoices = errors.New("completion returned no choices")
)

// DefaultMaxTurns bounds a run when RunOptions.MaxTurns is not positive.
const DefaultMaxTurns = 10

// Swarm orchestrates interactions between agents and OpenAI's language models.
// It handles message processing, tool execution, and response management.
type Swarm struct {
	// Client is the interface to OpenAI's API
	Client OpenAIClient

	// Logger receives debug traces of every turn. Nil disables logging.
	Logger *zap.Logger

	// Metrics records completions and tool calls. Nil disables metrics.
	Metrics *Metrics
}

// Option configures a Swarm.
type Option func(*Swarm)

// WithLogger sets the logger used for run tracing.
func WithLogger(l *zap.Logger) Option {
	return func(s *Swarm) { s.Logger = l }
}

// WithMetrics sets the collectors updated during runs.
func WithMetrics(m *Metrics) Option {
	return func(s *Swarm) { s.Metrics = m }
}

// NewSwarm creates a new Swarm instance with the provided OpenAI client.
//
// Parameters:
//   - client: An implementation of OpenAIClient interface for API communication
//   - opts: Optional logger and metrics settings
//
// Returns:
//   - *Swarm: A new Swarm instance
//
// It panics when client is nil.
func NewSwarm(client OpenAIClient, opts ...Option) *Swarm {
	if client == nil {
		panic("OpenAI client cannot be nil")
	}
	s := &Swarm{Client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOptions controls a single call to Run.
type RunOptions struct {
	// ContextVariables are shared with instructions and tool functions.
	ContextVariables map[string]interface{}

	// ModelOverride replaces the agent's model when set.
	ModelOverride string

	// Debug traces every turn through the logger.
	Debug bool

	// MaxTurns limits the number of model calls. DefaultMaxTurns applies when <= 0.
	MaxTurns int

	// ExecuteTools dispatches tool calls returned by the model. When false
	// the run stops after the first completion.
	ExecuteTools bool

	// JSONMode asks the model for a JSON object response.
	JSONMode bool
}

func (s *Swarm) logger() *zap.Logger {
	return orNop(s.Logger)
}

func (s *Swarm) trace(debug bool, msg string, fields ...zap.Field) {
	if debug {
		s.logger().Debug(msg, fields...)
	}
}

// getChatCompletion sends a request to the chat completion API for the active agent.
func (s *Swarm) getChatCompletion(
	ctx context.Context,
	agent *Agent,
	history []map[string]interface{},
	contextVariables map[string]interface{},
	opts RunOptions,
) (*openai.ChatCompletion, error) {
	if agent == nil {
		return nil, ErrNilAgent
	}

	instructions, err := getInstructions(agent, contextVariables)
	if err != nil {
		return nil, err
	}

	model := opts.ModelOverride
	if model == "" {
		model = agent.Model
	}

	tools, err := prepareTools(agent)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: prepareMessages(instructions, history, model),
		Model:    model,
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
	if len(tools) > 0 {
		params.Tools = tools
		params.ParallelToolCalls = openai.Bool(agent.ParallelToolCalls)
		if agent.ToolChoice != nil {
			params.ToolChoice = *agent.ToolChoice
		}
	}

	s.trace(opts.Debug, "Getting chat completion",
		zap.String("agent", agent.Name),
		zap.String("model", model),
		zap.Int("messages", len(params.Messages)),
		zap.Int("tools", len(tools)),
	)

	completion, err := s.Client.CreateChatCompletion(ctx, params)
	s.Metrics.observeCompletion(agent.Name, err)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return completion, nil
}

// getInstructions resolves the agent's instructions against the context variables.
func getInstructions(agent *Agent, contextVariables map[string]interface{}) (string, error) {
	switch i := agent.Instructions.(type) {
	case nil:
		return "", nil
	case string:
		return i, nil
	case func(map[string]interface{}) string:
		return i(contextVariables), nil
	case func() string:
		return i(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidInstruction, agent.Instructions)
	}
}

func prepareTools(agent *Agent) ([]openai.ChatCompletionToolParam, error) {
	var tools []openai.ChatCompletionToolParam
	for _, f := range agent.Functions {
		if f == nil {
			continue
		}
		tool, err := ToolParam(f)
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// usesUserInstructions reports whether model rejects system messages.
func usesUserInstructions(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.Contains(m, "deepseek-r")
}

func prepareMessages(instructions string, history []map[string]interface{}, model string) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if usesUserInstructions(model) {
		messages = append(messages, openai.UserMessage(instructions))
	} else {
		messages = append(messages, openai.SystemMessage(instructions))
	}

	for _, msg := range history {
		content, _ := msg["content"].(string)
		role, _ := msg["role"].(string)

		switch role {
		case "user":
			messages = append(messages, openai.UserMessage(content))
		case "system":
			// instructions of the active agent replace earlier system prompts
		case "tool":
			toolCallID, _ := msg["tool_call_id"].(string)
			messages = append(messages, openai.ToolMessage(content, toolCallID))
		default:
			assistantMsg := openai.AssistantMessage(content)
			if toolCalls := ToolCalls(msg); len(toolCalls) > 0 {
				params := make([]openai.ChatCompletionMessageToolCallParam, len(toolCalls))
				for i, tc := range toolCalls {
					params[i] = openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Function.Name,
							Arguments: tc.Function.Arguments,
						},
					}
				}
				assistantMsg.OfAssistant.ToolCalls = params
			}
			messages = append(messages, assistantMsg)
		}
	}
	return messages
}

// ToolCalls returns the tool calls recorded on a history message, if any.
func ToolCalls(msg map[string]interface{}) []openai.ChatCompletionMessageToolCall {
	calls, _ := msg["tool_calls"].([]openai.ChatCompletionMessageToolCall)
	return calls
}

// handleFunctionResult normalizes the value returned by an agent function.
func handleFunctionResult(result interface{}) (*Result, error) {
	switch v := result.(type) {
	case nil:
		return &Result{}, nil
	case *Result:
		if v == nil {
			return &Result{}, nil
		}
		return v, nil
	case Result:
		return &v, nil
	case *Agent:
		if v == nil {
			return &Result{}, nil
		}
		data, err := json.Marshal(map[string]string{"assistant": v.Name})
		if err != nil {
			return nil, fmt.Errorf("failed to encode handoff to %q: %w", v.Name, err)
		}
		return &Result{Value: string(data), Agent: v}, nil
	case string:
		return &Result{Value: v}, nil
	case fmt.Stringer:
		return &Result{Value: v.String()}, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result of type %T: %w", result, err)
		}
		return &Result{Value: string(data)}, nil
	}
}

// toolOutcome is the processed result of one tool call.
type toolOutcome struct {
	message map[string]interface{}
	result  *Result
}

func toolMessage(call openai.ChatCompletionMessageToolCall, content string) map[string]interface{} {
	return map[string]interface{}{
		"role":         "tool",
		"tool_call_id": call.ID,
		"tool_name":    call.Function.Name,
		"content":      content,
	}
}

func copyVariables(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// callTool executes a single tool call. Failures become "Error: ..." tool
// messages so the model can react to them.
func (s *Swarm) callTool(
	ctx context.Context,
	call openai.ChatCompletionMessageToolCall,
	functionMap map[string]AgentFunction,
	contextVariables map[string]interface{},
	debug bool,
) toolOutcome {
	name := call.Function.Name
	fail := func(errMsg string) toolOutcome {
		s.trace(debug, errMsg, zap.String("tool", name))
		return toolOutcome{message: toolMessage(call, "Error: "+errMsg)}
	}

	fn, exists := functionMap[name]
	if !exists {
		return fail(fmt.Sprintf("Tool %q not found in function map", name))
	}

	args := map[string]interface{}{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fail(fmt.Sprintf("Failed to parse arguments for tool %q: %v", name, err))
		}
		if args == nil {
			args = map[string]interface{}{}
		}
	}
	args[ContextVariablesName] = contextVariables

	s.trace(debug, "Processing tool call", zap.String("tool", name), zap.String("arguments", call.Function.Arguments))

	started := time.Now()
	raw, err := fn.Call(ctx, args)
	s.Metrics.observeToolCall(name, started, err)
	if err != nil {
		return fail(fmt.Sprintf("Function %q execution failed: %v", name, err))
	}

	result, err := handleFunctionResult(raw)
	if err != nil {
		return fail(fmt.Sprintf("Failed to handle result for tool %q: %v", name, err))
	}

	message := toolMessage(call, result.Value)
	if result.Agent != nil {
		message["agent"] = result.Agent.Name
	}
	return toolOutcome{message: message, result: result}
}

// handleToolCalls processes tool calls from the chat completion. Calls run
// concurrently when parallel is set; each then sees its own copy of the
// context variables and updates are merged back in call order.
func (s *Swarm) handleToolCalls(
	ctx context.Context,
	toolCalls []openai.ChatCompletionMessageToolCall,
	functions []AgentFunction,
	contextVariables map[string]interface{},
	parallel bool,
	debug bool,
) (*Response, error) {
	if len(toolCalls) == 0 {
		return nil, fmt.Errorf("%w: no tool calls provided", ErrInvalidToolCall)
	}

	functionMap := make(map[string]AgentFunction, len(functions))
	for _, f := range functions {
		if f != nil {
			functionMap[f.Name()] = f
		}
	}

	response := &Response{
		Messages:         make([]map[string]interface{}, 0, len(toolCalls)),
		ContextVariables: copyVariables(contextVariables),
	}

	outcomes := make([]toolOutcome, len(toolCalls))
	if parallel && len(toolCalls) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i, call := range toolCalls {
			i, call := i, call
			vars := copyVariables(contextVariables)
			g.Go(func() error {
				outcomes[i] = s.callTool(gctx, call, functionMap, vars, debug)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, call := range toolCalls {
			outcomes[i] = s.callTool(ctx, call, functionMap, response.ContextVariables, debug)
			if res := outcomes[i].result; res != nil {
				for k, v := range res.ContextVariables {
					response.ContextVariables[k] = v
				}
			}
		}
	}

	for _, outcome := range outcomes {
		response.Messages = append(response.Messages, outcome.message)
		if outcome.result == nil {
			continue
		}
		for k, v := range outcome.result.ContextVariables {
			response.ContextVariables[k] = v
		}
		if outcome.result.Agent != nil {
			response.Agent = outcome.result.Agent
		}
	}

	return response, nil
}

// ExecuteToolCalls runs the given tool calls against functions the same way
// Run does between turns and returns the tool messages, merged context
// variables and any handoff agent.
func (s *Swarm) ExecuteToolCalls(
	ctx context.Context,
	toolCalls []openai.ChatCompletionMessageToolCall,
	functions []AgentFunction,
	contextVariables map[string]interface{},
	parallel bool,
	debug bool,
) (*Response, error) {
	return s.handleToolCalls(ctx, toolCalls, functions, contextVariables, parallel, debug)
}

// Run executes an interaction with the model using the provided agent.
// Tool calls are dispatched until the model answers without any, tools are
// disabled, or MaxTurns completions have been made.
//
// Parameters:
//   - ctx: Context for the request
//   - agent: Agent configuration including tools and instructions
//   - messages: Conversation history
//   - opts: Context variables, model override, turn limit and tool execution
//
// Returns a Response holding only the messages produced by this run, the
// last active agent and the updated context variables, or an error if a
// completion request fails.
func (s *Swarm) Run(
	ctx context.Context,
	agent *Agent,
	messages []map[string]interface{},
	opts RunOptions,
) (*Response, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}
	if agent == nil {
		return nil, ErrNilAgent
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	contextVariables := copyVariables(opts.ContextVariables)
	activeAgent := agent
	history := make([]map[string]interface{}, len(messages))
	copy(history, messages)
	initLen := len(messages)

	for turn := 0; turn < maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		completion, err := s.getChatCompletion(ctx, activeAgent, history, contextVariables, opts)
		if err != nil {
			return nil, err
		}

		choice := completion.Choices[0].Message
		message := map[string]interface{}{
			"content": choice.Content,
			"sender":  activeAgent.Name,
			"role":    "assistant",
		}
		if len(choice.ToolCalls) > 0 {
			message["tool_calls"] = choice.ToolCalls
		}

		s.trace(opts.Debug, "Received completion",
			zap.String("sender", activeAgent.Name),
			zap.String("content", choice.Content),
			zap.Int("tool_calls", len(choice.ToolCalls)),
		)
		history = append(history, message)

		if len(choice.ToolCalls) == 0 || !opts.ExecuteTools {
			s.trace(opts.Debug, "Ending turn.")
			break
		}

		response, err := s.handleToolCalls(ctx, choice.ToolCalls, activeAgent.Functions, contextVariables, activeAgent.ParallelToolCalls, opts.Debug)
		if err != nil {
			return nil, err
		}

		history = append(history, response.Messages...)
		for k, v := range response.ContextVariables {
			contextVariables[k] = v
		}
		if response.Agent != nil {
			s.trace(opts.Debug, "Handing off", zap.String("from", activeAgent.Name), zap.String("to", response.Agent.Name))
			activeAgent = response.Agent
		}
	}

	return &Response{
		Messages:         history[initLen:],
		Agent:            activeAgent,
		ContextVariables: contextVariables,
	}, nil
}
