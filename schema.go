package swarm

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// ContextVariablesName is the key used to store context variables in function arguments.
// Parameters with this name are never advertised to the model.
const ContextVariablesName = "context_variables"

// ParameterType is the JSON schema type of a tool parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeObject  ParameterType = "object"
	TypeArray   ParameterType = "array"
)

// Valid reports whether t is one of the supported JSON schema types.
func (t ParameterType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Parameter describes a single named argument of an AgentFunction.
type Parameter struct {
	Name        string
	Description string
	Type        ParameterType
	Required    bool
	// Default is advertised to the model and must match Type. Nil means no default.
	Default interface{}
}

var functionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func validateSchema(name string, parameters []Parameter) error {
	if !functionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: function name %q", ErrInvalidSchema, name)
	}
	seen := make(map[string]struct{}, len(parameters))
	for _, p := range parameters {
		if p.Name == "" {
			return fmt.Errorf("%w: %s has a parameter without a name", ErrInvalidSchema, name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %s declares parameter %q twice", ErrInvalidSchema, name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if !p.Type.Valid() {
			return fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidSchema, name, p.Name, p.Type)
		}
		if p.Default != nil && !defaultMatches(p.Type, p.Default) {
			return fmt.Errorf("%w: %s.%s default %v is not a %s", ErrInvalidSchema, name, p.Name, p.Default, p.Type)
		}
	}
	return nil
}

func defaultMatches(t ParameterType, v interface{}) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
	case TypeInteger:
		switch v.(type) {
		case int, int64, int32:
			return true
		}
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	case TypeArray:
		_, ok := v.([]interface{})
		return ok
	}
	return false
}

// FunctionSchema renders the parameter list of f as a JSON schema object.
// The reserved context_variables parameter is left out.
func FunctionSchema(f AgentFunction) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, p := range f.Parameters() {
		if p.Name == ContextVariablesName {
			continue
		}
		schema.Properties.Set(p.Name, &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
			Default:     p.Default,
		})
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// FunctionParameters converts the schema of f into the map form expected by the
// chat completions API.
func FunctionParameters(f AgentFunction) (openai.FunctionParameters, error) {
	data, err := json.Marshal(FunctionSchema(f))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", f.Name(), err)
	}
	params := openai.FunctionParameters{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema for %s: %w", f.Name(), err)
	}
	return params, nil
}

// ToolParam builds the tool definition sent to the model for f.
func ToolParam(f AgentFunction) (openai.ChatCompletionToolParam, error) {
	params, err := FunctionParameters(f)
	if err != nil {
		return openai.ChatCompletionToolParam{}, err
	}
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        f.Name(),
			Description: openai.String(f.Description()),
			Parameters:  params,
		},
	}, nil
}
