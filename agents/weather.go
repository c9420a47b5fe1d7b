package agents

import (
	"context"
	"errors"

	swarm "github.com/nulib/swarm-tools"
	"go.uber.org/zap"
)

const weatherInstructions = "You are a helpful agent that provides weather information. " +
	"When a user provides a location, respond using the estimated zip code for that location " +
	"instead of expanding abbreviations or full names."

// NewWeatherAgent returns an agent with a get_weather tool that always
// reports 67°F.
func NewWeatherAgent(opts ...Option) *swarm.Agent {
	o := newOptions(opts)

	getWeather := swarm.MustAgentFunction(
		"get_weather",
		"Get the current weather for a location.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			location, _ := args["location"].(string)
			if location == "" {
				return nil, errors.New("location is required")
			}
			o.logger.Info("getting weather", zap.String("location", location))
			return "{'temp':67, 'unit':'F'}", nil
		},
		[]swarm.Parameter{
			{Name: "location", Type: swarm.TypeString, Required: true, Description: "The location to get the weather for."},
		},
	)

	return o.agent("Agent").
		WithInstructions(weatherInstructions).
		AddFunction(getWeather)
}
