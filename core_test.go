package swarm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulib/swarm-tools/internal/swarmtest"
)

func hello() []map[string]interface{} {
	return []map[string]interface{}{{"role": "user", "content": "Hello"}}
}

func echoFunction(t *testing.T) AgentFunction {
	t.Helper()
	f, err := NewAgentFunction("echo", "Echo the text back.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			return args["text"], nil
		},
		[]Parameter{{Name: "text", Type: TypeString, Required: true}},
	)
	require.NoError(t, err)
	return f
}

func TestNewSwarm(t *testing.T) {
	client := swarmtest.NewMockClient()
	s := NewSwarm(client, WithLogger(nil))
	assert.Same(t, client, s.Client)

	assert.Panics(t, func() { NewSwarm(nil) })
}

func TestRunReturnsOnlyNewMessages(t *testing.T) {
	client := swarmtest.NewMockClient(swarmtest.Text("Hi there"))
	agent := NewAgent("TestAgent")

	resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{ExecuteTools: true})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "assistant", resp.Messages[0]["role"])
	assert.Equal(t, "TestAgent", resp.Messages[0]["sender"])
	assert.Equal(t, "Hi there", resp.Messages[0]["content"])
	assert.Same(t, agent, resp.Agent)
	assert.Empty(t, resp.ContextVariables)

	requests := client.Requests()
	require.Len(t, requests, 1)
	assert.EqualValues(t, "gpt-4o", requests[0].Model)
	assert.Equal(t, "You are a helpful agent.", swarmtest.Instructions(requests[0]))
	assert.Len(t, requests[0].Messages, 2)
	assert.Empty(t, requests[0].Tools)
}

func TestRunErrors(t *testing.T) {
	failure := errors.New("service unavailable")

	tests := []struct {
		name     string
		agent    *Agent
		messages []map[string]interface{}
		setup    func(*swarmtest.MockClient)
		want     error
	}{
		{name: "empty messages", agent: NewAgent("A"), want: ErrEmptyMessages},
		{name: "nil agent", messages: hello(), want: ErrNilAgent},
		{
			name:     "client error",
			agent:    NewAgent("A"),
			messages: hello(),
			setup:    func(c *swarmtest.MockClient) { c.SetError(failure) },
			want:     failure,
		},
		{
			name:     "no choices",
			agent:    NewAgent("A"),
			messages: hello(),
			setup:    func(c *swarmtest.MockClient) { c.Enqueue(&openai.ChatCompletion{}) },
			want:     ErrNoChoices,
		},
		{
			name:     "invalid instructions",
			agent:    NewAgent("A").WithInstructions(42),
			messages: hello(),
			want:     ErrInvalidInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := swarmtest.NewMockClient()
			if tt.setup != nil {
				tt.setup(client)
			}
			_, err := NewSwarm(client).Run(context.Background(), tt.agent, tt.messages, RunOptions{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRunDispatchesToolCalls(t *testing.T) {
	client := swarmtest.NewMockClient(
		swarmtest.ToolCalls(swarmtest.Call("call_1", "echo", map[string]string{"text": "ping"})),
		swarmtest.Text("pong"),
	)
	agent := NewAgent("TestAgent").AddFunction(echoFunction(t))

	resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{ExecuteTools: true})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 3)
	assert.Len(t, ToolCalls(resp.Messages[0]), 1)
	assert.Equal(t, map[string]interface{}{
		"role":         "tool",
		"tool_call_id": "call_1",
		"tool_name":    "echo",
		"content":      "ping",
	}, resp.Messages[1])
	assert.Equal(t, "pong", resp.Messages[2]["content"])

	requests := client.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, []string{"echo"}, swarmtest.ToolNames(requests[0]))
	assert.True(t, requests[0].ParallelToolCalls.Value)

	second := requests[1].Messages
	require.Len(t, second, 4)
	require.NotNil(t, second[2].OfAssistant)
	require.Len(t, second[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "echo", second[2].OfAssistant.ToolCalls[0].Function.Name)
	require.NotNil(t, second[3].OfTool)
	assert.Equal(t, "call_1", second[3].OfTool.ToolCallID)
}

func TestRunToolFailuresBecomeMessages(t *testing.T) {
	boom := MustAgentFunction("boom", "Always fails.",
		func(context.Context, map[string]interface{}) (interface{}, error) {
			return nil, errors.New("kaput")
		}, nil)

	tests := []struct {
		name string
		call openai.ChatCompletionMessageToolCall
		want string
	}{
		{
			name: "unknown tool",
			call: swarmtest.Call("c1", "missing", "{}"),
			want: `Error: Tool "missing" not found in function map`,
		},
		{
			name: "malformed arguments",
			call: swarmtest.Call("c1", "echo", "{not json"),
			want: `Error: Failed to parse arguments for tool "echo"`,
		},
		{
			name: "function error",
			call: swarmtest.Call("c1", "boom", "{}"),
			want: `Error: Function "boom" execution failed: kaput`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := swarmtest.NewMockClient(swarmtest.ToolCalls(tt.call), swarmtest.Text("recovered"))
			agent := NewAgent("A").AddFunctions(echoFunction(t), boom)

			resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{ExecuteTools: true})
			require.NoError(t, err)
			require.Len(t, resp.Messages, 3)

			content, _ := resp.Messages[1]["content"].(string)
			assert.True(t, strings.HasPrefix(content, tt.want), content)
			assert.Equal(t, "recovered", resp.Messages[2]["content"])
		})
	}
}

func TestRunHandoff(t *testing.T) {
	agentB := NewAgent("Agent B").WithInstructions("Only speak in Haikus.")
	transfer := MustAgentFunction("transfer_to_agent_b", "Transfer to Agent B.",
		func(context.Context, map[string]interface{}) (interface{}, error) {
			return agentB, nil
		}, nil)
	agentA := NewAgent("Agent A").AddFunction(transfer)

	client := swarmtest.NewMockClient(
		swarmtest.ToolCalls(swarmtest.Call("c1", "transfer_to_agent_b", "{}")),
		swarmtest.Text("Agent B speaks now"),
	)

	resp, err := NewSwarm(client).Run(context.Background(), agentA, hello(), RunOptions{ExecuteTools: true})
	require.NoError(t, err)

	assert.Same(t, agentB, resp.Agent)
	assert.Equal(t, `{"assistant":"Agent B"}`, resp.Messages[1]["content"])
	assert.Equal(t, "Agent B", resp.Messages[1]["agent"])
	assert.Equal(t, "Agent B", resp.Messages[2]["sender"])
	assert.Equal(t, "Only speak in Haikus.", swarmtest.Instructions(client.Requests()[1]))
}

func TestRunContextVariables(t *testing.T) {
	var seenName interface{}
	setName := MustAgentFunction("set_name", "Remember the user's name.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			vars, _ := args[ContextVariablesName].(map[string]interface{})
			seenName = vars["name"]
			return &Result{
				Value:            "saved",
				ContextVariables: map[string]interface{}{"name": args["name"]},
			}, nil
		},
		[]Parameter{{Name: "name", Type: TypeString, Required: true}},
	)
	agent := NewAgent("A").
		WithInstructions(func(vars map[string]interface{}) string {
			name, _ := vars["name"].(string)
			return "Talk to " + name
		}).
		AddFunction(setName)

	client := swarmtest.NewMockClient(
		swarmtest.ToolCalls(swarmtest.Call("c1", "set_name", map[string]string{"name": "Ada"})),
		swarmtest.Text("Hello Ada"),
	)
	initial := map[string]interface{}{"name": "stranger", "user_id": 7}

	resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{
		ContextVariables: initial,
		ExecuteTools:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "stranger", seenName)
	assert.Equal(t, map[string]interface{}{"name": "Ada", "user_id": 7}, resp.ContextVariables)
	assert.Equal(t, "stranger", initial["name"])

	requests := client.Requests()
	assert.Equal(t, "Talk to stranger", swarmtest.Instructions(requests[0]))
	assert.Equal(t, "Talk to Ada", swarmtest.Instructions(requests[1]))
}

func TestRunWithoutToolExecution(t *testing.T) {
	client := swarmtest.NewMockClient(
		swarmtest.ToolCalls(swarmtest.Call("c1", "echo", map[string]string{"text": "x"})),
	)
	agent := NewAgent("A").AddFunction(echoFunction(t))

	resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Len(t, ToolCalls(resp.Messages[0]), 1)
	assert.Len(t, client.Requests(), 1)
}

func TestRunMaxTurns(t *testing.T) {
	call := swarmtest.ToolCalls(swarmtest.Call("c1", "echo", map[string]string{"text": "again"}))
	client := swarmtest.NewMockClient(call, call, call)
	agent := NewAgent("A").AddFunction(echoFunction(t))

	resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{MaxTurns: 2, ExecuteTools: true})
	require.NoError(t, err)

	assert.Len(t, client.Requests(), 2)
	assert.Len(t, resp.Messages, 4)
}

func TestRunModelSelection(t *testing.T) {
	tests := []struct {
		name       string
		override   string
		wantModel  string
		wantSystem bool
	}{
		{name: "agent model", wantModel: "gpt-4o", wantSystem: true},
		{name: "override", override: "gpt-4o-mini", wantModel: "gpt-4o-mini", wantSystem: true},
		{name: "o1 takes instructions as user message", override: "o1-mini", wantModel: "o1-mini"},
		{name: "o3", override: "o3-mini", wantModel: "o3-mini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := swarmtest.NewMockClient(swarmtest.Text("ok"))
			_, err := NewSwarm(client).Run(context.Background(), NewAgent("A"), hello(), RunOptions{ModelOverride: tt.override})
			require.NoError(t, err)

			req := client.Requests()[0]
			assert.EqualValues(t, tt.wantModel, req.Model)
			assert.Equal(t, tt.wantSystem, req.Messages[0].OfSystem != nil)
			assert.Equal(t, !tt.wantSystem, req.Messages[0].OfUser != nil)
		})
	}
}

func TestRunJSONMode(t *testing.T) {
	client := swarmtest.NewMockClient(swarmtest.Text(`{"ok":true}`))
	_, err := NewSwarm(client).Run(context.Background(), NewAgent("A"), hello(), RunOptions{JSONMode: true})
	require.NoError(t, err)
	assert.NotNil(t, client.Requests()[0].ResponseFormat.OfJSONObject)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := swarmtest.NewMockClient(swarmtest.Text("unused"))
	_, err := NewSwarm(client).Run(ctx, NewAgent("A"), hello(), RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.Requests())
}

func TestRunParallelToolCalls(t *testing.T) {
	var calls atomic.Int32
	tag := MustAgentFunction("tag", "Store a tag.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			calls.Add(1)
			key, _ := args["key"].(string)
			return &Result{Value: key, ContextVariables: map[string]interface{}{key: true}}, nil
		},
		[]Parameter{{Name: "key", Type: TypeString, Required: true}},
	)
	agent := NewAgent("A").AddFunction(tag)

	client := swarmtest.NewMockClient(
		swarmtest.ToolCalls(
			swarmtest.Call("c1", "tag", map[string]string{"key": "first"}),
			swarmtest.Call("c2", "tag", map[string]string{"key": "second"}),
			swarmtest.Call("c3", "tag", map[string]string{"key": "third"}),
		),
		swarmtest.Text("done"),
	)

	resp, err := NewSwarm(client).Run(context.Background(), agent, hello(), RunOptions{ExecuteTools: true})
	require.NoError(t, err)

	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, resp.Messages, 5)
	for i, id := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, id, resp.Messages[i+1]["tool_call_id"])
	}
	assert.Equal(t, map[string]interface{}{"first": true, "second": true, "third": true}, resp.ContextVariables)
}

func TestExecuteToolCallsRequiresCalls(t *testing.T) {
	s := NewSwarm(swarmtest.NewMockClient())
	_, err := s.ExecuteToolCalls(context.Background(), nil, nil, nil, false, false)
	assert.ErrorIs(t, err, ErrInvalidToolCall)
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestHandleFunctionResult(t *testing.T) {
	agent := NewAgent("TestAgent")
	quoted := NewAgent(`Agent "B"`)

	tests := []struct {
		name      string
		input     interface{}
		want      string
		wantAgent *Agent
		wantErr   bool
	}{
		{name: "nil", input: nil, want: ""},
		{name: "string", input: "test string", want: "test string"},
		{name: "result pointer", input: &Result{Value: "test value"}, want: "test value"},
		{name: "result value", input: Result{Value: "by value"}, want: "by value"},
		{name: "agent", input: agent, want: `{"assistant":"TestAgent"}`, wantAgent: agent},
		{name: "agent name is escaped", input: quoted, want: `{"assistant":"Agent \"B\""}`, wantAgent: quoted},
		{name: "stringer", input: stringer{}, want: "stringer"},
		{name: "slice", input: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", input: map[string]int{"temp": 67}, want: `{"temp":67}`},
		{name: "unencodable", input: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleFunctionResult(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantAgent, result.Agent)
		})
	}
}

func TestGetInstructions(t *testing.T) {
	vars := map[string]interface{}{"name": "Ada"}

	tests := []struct {
		name         string
		instructions interface{}
		want         string
		wantErr      bool
	}{
		{name: "nil", instructions: nil, want: ""},
		{name: "string", instructions: "Be brief.", want: "Be brief."},
		{
			name:         "context function",
			instructions: func(v map[string]interface{}) string { return "Hi " + v["name"].(string) },
			want:         "Hi Ada",
		},
		{name: "plain function", instructions: func() string { return "static" }, want: "static"},
		{name: "unsupported", instructions: 3.14, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getInstructions(&Agent{Instructions: tt.instructions}, vars)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInstruction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrepareMessagesDropsSystemMessages(t *testing.T) {
	history := []map[string]interface{}{
		{"role": "system", "content": "old instructions"},
		{"role": "user", "content": "Hello"},
		{"role": "assistant", "content": "Hi"},
	}

	msgs := prepareMessages("new instructions", history, "gpt-4o")
	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[0].OfSystem)
	assert.Equal(t, "new instructions", msgs[0].OfSystem.Content.OfString.Value)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
}
