package swarm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgent(t *testing.T) {
	agent := NewAgent("TestAgent")

	assert.Equal(t, "TestAgent", agent.Name)
	assert.Equal(t, "gpt-4o", agent.Model)
	assert.Equal(t, "You are a helpful agent.", agent.Instructions)
	assert.Empty(t, agent.Functions)
	assert.Nil(t, agent.ToolChoice)
	assert.True(t, agent.ParallelToolCalls)
}

func TestAgentChaining(t *testing.T) {
	noop := func(context.Context, map[string]interface{}) (interface{}, error) { return "ok", nil }

	agent := NewAgent("TestAgent").
		WithModel("gpt-4o-mini").
		WithInstructions("Custom instructions").
		AddFunction(MustAgentFunction("first", "First.", noop, nil)).
		AddFunctions(
			MustAgentFunction("second", "Second.", noop, nil),
			MustAgentFunction("third", "Third.", noop, nil),
		)

	assert.Equal(t, "gpt-4o-mini", agent.Model)
	assert.Equal(t, "Custom instructions", agent.Instructions)
	require.Len(t, agent.Functions, 3)

	f, ok := agent.Function("second")
	require.True(t, ok)
	assert.Equal(t, "Second.", f.Description())

	_, ok = agent.Function("fourth")
	assert.False(t, ok)
}

func TestNewAgentFunction(t *testing.T) {
	fn := func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		return args["x"], nil
	}

	f, err := NewAgentFunction("double", "Doubles x.", fn, []Parameter{{Name: "x", Type: TypeNumber, Required: true}})
	require.NoError(t, err)
	assert.Equal(t, "double", f.Name())
	assert.Equal(t, "Doubles x.", f.Description())
	assert.Len(t, f.Parameters(), 1)

	out, err := f.Call(context.Background(), map[string]interface{}{"x": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out)

	_, err = NewAgentFunction("nil", "No body.", nil, nil)
	assert.ErrorIs(t, err, ErrNilFunction)

	_, err = NewAgentFunction("bad name!", "Invalid.", fn, nil)
	assert.ErrorIs(t, err, ErrInvalidSchema)

	assert.Panics(t, func() { MustAgentFunction("", "Invalid.", fn, nil) })
}
