package finder

import (
	"context"
	"testing"

	swarm "github.com/nulib/swarm-tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCutoff(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		want    float64
		wantErr bool
	}{
		{"missing", nil, DefaultCutoff, false},
		{"float", 0.8, 0.8, false},
		{"int", 1, 1.0, false},
		{"numeric string", " 0.25 ", 0.25, false},
		{"above one", 1.5, 1.5, false},
		{"negative", -0.2, -0.2, false},
		{"garbage string", "abc", DefaultCutoff, true},
		{"bool", true, DefaultCutoff, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCutoff(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTools(t *testing.T) {
	f := New(newTestFs(t, "/root/coffee.txt", "/root/tea.txt", "/root/sub/cofee.txt"))
	tools := f.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, ListDirectoryTool, tools[0].Name())
	assert.Equal(t, SearchDirectoryTool, tools[1].Name())

	ctx := context.Background()

	t.Run("list_directory", func(t *testing.T) {
		out, err := tools[0].Call(ctx, map[string]interface{}{"path": "/root"})
		require.NoError(t, err)
		assert.Equal(t, []string{"coffee.txt", "sub", "tea.txt"}, out)
	})

	t.Run("list_directory requires path", func(t *testing.T) {
		_, err := tools[0].Call(ctx, map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("search_directory default cutoff", func(t *testing.T) {
		out, err := tools[1].Call(ctx, map[string]interface{}{"path": "/root", "filename": "coffee"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/root/coffee.txt", "/root/sub/cofee.txt"}, out)
	})

	t.Run("search_directory invalid cutoff falls back", func(t *testing.T) {
		out, err := tools[1].Call(ctx, map[string]interface{}{"path": "/root", "filename": "coffee", "cutoff": "abc"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/root/coffee.txt", "/root/sub/cofee.txt"}, out)
	})

	t.Run("search_directory string cutoff", func(t *testing.T) {
		out, err := tools[1].Call(ctx, map[string]interface{}{"path": "/root", "filename": "coffee", "cutoff": "0.7"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/root/coffee.txt"}, out)
	})

	t.Run("search_directory requires filename", func(t *testing.T) {
		_, err := tools[1].Call(ctx, map[string]interface{}{"path": "/root"})
		assert.Error(t, err)
	})
}

func TestSearchDirectorySchema(t *testing.T) {
	tool, err := swarm.ToolParam(New(nil).SearchDirectoryFunction())
	require.NoError(t, err)

	params := tool.Function.Parameters
	assert.Equal(t, "object", params["type"])
	assert.ElementsMatch(t, []interface{}{"path", "filename"}, params["required"])

	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	cutoff, ok := props["cutoff"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "number", cutoff["type"])
	assert.Equal(t, 0.6, cutoff["default"])
}
