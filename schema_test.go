package swarm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaFunction(params []Parameter) AgentFunction {
	return &SimpleAgentFunction{
		NameString:     "search_directory",
		DescString:     "Perform a fuzzy search for a file.",
		ParametersList: params,
		CallFn: func(context.Context, map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	}
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		fn      string
		params  []Parameter
		wantErr bool
	}{
		{name: "no parameters", fn: "get_zip_code"},
		{
			name: "all types",
			fn:   "everything",
			params: []Parameter{
				{Name: "s", Type: TypeString, Default: "x"},
				{Name: "n", Type: TypeNumber, Default: 0.6},
				{Name: "i", Type: TypeInteger, Default: 3},
				{Name: "b", Type: TypeBoolean, Default: true},
				{Name: "o", Type: TypeObject},
				{Name: "a", Type: TypeArray},
			},
		},
		{name: "integer default for number", fn: "f", params: []Parameter{{Name: "n", Type: TypeNumber, Default: 1}}},
		{name: "empty function name", fn: "", wantErr: true},
		{name: "function name with spaces", fn: "list directory", wantErr: true},
		{name: "parameter without name", fn: "f", params: []Parameter{{Type: TypeString}}, wantErr: true},
		{
			name:    "duplicate parameter",
			fn:      "f",
			params:  []Parameter{{Name: "p", Type: TypeString}, {Name: "p", Type: TypeString}},
			wantErr: true,
		},
		{name: "unknown type", fn: "f", params: []Parameter{{Name: "p", Type: "float"}}, wantErr: true},
		{name: "missing type", fn: "f", params: []Parameter{{Name: "p"}}, wantErr: true},
		{name: "mismatched default", fn: "f", params: []Parameter{{Name: "p", Type: TypeNumber, Default: "0.6"}}, wantErr: true},
		{name: "float default for integer", fn: "f", params: []Parameter{{Name: "p", Type: TypeInteger, Default: 1.5}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSchema(tt.fn, tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchema)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFunctionParameters(t *testing.T) {
	f := schemaFunction([]Parameter{
		{Name: "path", Type: TypeString, Required: true, Description: "The directory path to search in."},
		{Name: "filename", Type: TypeString, Required: true, Description: "The name of the file to search for."},
		{Name: "cutoff", Type: TypeNumber, Default: 0.6, Description: "The similarity threshold."},
		{Name: ContextVariablesName, Type: TypeObject},
	})

	params, err := FunctionParameters(f)
	require.NoError(t, err)

	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []interface{}{"path", "filename"}, params["required"])

	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, props, 3)
	assert.NotContains(t, props, ContextVariablesName)
	assert.Equal(t, map[string]interface{}{
		"type":        "number",
		"description": "The similarity threshold.",
		"default":     0.6,
	}, props["cutoff"])
	assert.Equal(t, map[string]interface{}{
		"type":        "string",
		"description": "The directory path to search in.",
	}, props["path"])
}

func TestFunctionSchemaKeepsDeclarationOrder(t *testing.T) {
	schema := FunctionSchema(schemaFunction([]Parameter{
		{Name: "zeta", Type: TypeString},
		{Name: "alpha", Type: TypeString},
	}))

	var names []string
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha"}, names)
	assert.Empty(t, schema.Required)
}

func TestToolParam(t *testing.T) {
	tool, err := ToolParam(schemaFunction(nil))
	require.NoError(t, err)

	assert.Equal(t, "search_directory", tool.Function.Name)
	assert.Equal(t, "Perform a fuzzy search for a file.", tool.Function.Description.Value)
	assert.Equal(t, "object", tool.Function.Parameters["type"])
}
