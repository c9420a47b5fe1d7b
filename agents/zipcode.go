package agents

import (
	"context"
	"encoding/json"
	"strings"

	swarm "github.com/nulib/swarm-tools"
	"go.uber.org/zap"
)

// ZipCodeVariable is the context variable holding the user's zip code.
const ZipCodeVariable = "zip_code"

const userInterfaceInstructions = "You are a helpful agent that provides information. When a user provides a location, " +
	"store the associated zip code in the context variables and use it in your responses."

// NewUserInterfaceAgent returns an agent that remembers the user's zip code
// in the context variables.
func NewUserInterfaceAgent(opts ...Option) *swarm.Agent {
	o := newOptions(opts)

	setZipCode := swarm.MustAgentFunction(
		"set_zip_code",
		"Set the zip code in the context based on the user's message. Pass the zip code itself.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			message, _ := args["message"].(string)
			zip := strings.TrimSpace(message)
			o.logger.Debug("storing zip code", zap.String("zip_code", zip))
			return &swarm.Result{
				Value:            zipCodeJSON(zip),
				ContextVariables: map[string]interface{}{ZipCodeVariable: zip},
			}, nil
		},
		[]swarm.Parameter{
			{Name: "message", Type: swarm.TypeString, Required: true, Description: "The zip code provided by the user."},
		},
	)

	getZipCode := swarm.MustAgentFunction(
		"get_zip_code",
		"Retrieve the zip code from the context variables.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			return zipCodeJSON(stringVar(contextVariables(args), ZipCodeVariable, "Not provided")), nil
		},
		nil,
	)

	return o.agent("User Interface Agent").
		WithInstructions(func(map[string]interface{}) string { return userInterfaceInstructions }).
		AddFunctions(setZipCode, getZipCode)
}

func zipCodeJSON(zip string) string {
	data, _ := json.Marshal(map[string]string{ZipCodeVariable: zip})
	return string(data)
}
