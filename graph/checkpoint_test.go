package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySaverCopies(t *testing.T) {
	ctx := context.Background()
	saver := NewMemorySaver()

	state := userInput("hello")
	state.ContextVariables = map[string]interface{}{"name": "Brendan"}
	require.NoError(t, saver.Put(ctx, "t", state))

	state.Messages = append(state.Messages, map[string]interface{}{"role": "user", "content": "later"})
	state.ContextVariables["name"] = "changed"

	got, ok, err := saver.Get(ctx, "t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, "Brendan", got.ContextVariables["name"])

	_, ok, err = saver.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	saver.Delete("t")
	assert.Empty(t, saver.Threads())
}

func TestMemorySaverConcurrent(t *testing.T) {
	ctx := context.Background()
	saver := NewMemorySaver()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = saver.Put(ctx, "shared", userInput("x"))
			_, _, _ = saver.Get(ctx, "shared")
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"shared"}, saver.Threads())
}
