// Package agents holds the ready-made agents used by the swarm-tools CLI.
package agents

import (
	"encoding/json"
	"fmt"

	swarm "github.com/nulib/swarm-tools"
	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	model  string
}

// Option configures the agents built by this package.
type Option func(*options)

// WithLogger sets the logger tools report their activity to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithModel sets the model of every agent built.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) agent(name string) *swarm.Agent {
	a := swarm.NewAgent(name)
	if o.model != "" {
		a.WithModel(o.model)
	}
	return a
}

// contextVariables extracts the run's context variables from tool arguments.
func contextVariables(args map[string]interface{}) map[string]interface{} {
	vars, _ := args[swarm.ContextVariablesName].(map[string]interface{})
	if vars == nil {
		return map[string]interface{}{}
	}
	return vars
}

// stringVar returns the string form of a context variable or def.
func stringVar(vars map[string]interface{}, key, def string) string {
	switch v := vars[key].(type) {
	case nil:
		return def
	case string:
		return v
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprint(v)
	}
}
