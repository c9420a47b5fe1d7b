package finder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	swarm "github.com/nulib/swarm-tools"
	"go.uber.org/zap"
)

// Tool names advertised to the model.
const (
	ListDirectoryTool   = "list_directory"
	SearchDirectoryTool = "search_directory"
)

// Tools returns the list_directory and search_directory functions bound to f.
func (f *Finder) Tools() []swarm.AgentFunction {
	return []swarm.AgentFunction{f.ListDirectoryFunction(), f.SearchDirectoryFunction()}
}

// ListDirectoryFunction exposes ListDirectory as an agent function.
func (f *Finder) ListDirectoryFunction() swarm.AgentFunction {
	return swarm.MustAgentFunction(
		ListDirectoryTool,
		"List all files and directories in the specified path.",
		func(_ context.Context, args map[string]interface{}) (interface{}, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return nil, err
			}
			return f.ListDirectory(path), nil
		},
		[]swarm.Parameter{
			{Name: "path", Type: swarm.TypeString, Required: true, Description: "The directory path to list contents of."},
		},
	)
}

// SearchDirectoryFunction exposes SearchDirectoryContext as an agent function.
func (f *Finder) SearchDirectoryFunction() swarm.AgentFunction {
	return swarm.MustAgentFunction(
		SearchDirectoryTool,
		"Perform a fuzzy search for a file within a directory and its subdirectories.",
		func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			path, err := stringArg(args, "path")
			if err != nil {
				return nil, err
			}
			filename, err := stringArg(args, "filename")
			if err != nil {
				return nil, err
			}
			cutoff, err := ParseCutoff(args["cutoff"])
			if err != nil {
				f.logger.Warn("invalid cutoff, using default",
					zap.Any("cutoff", args["cutoff"]),
					zap.Float64("default", DefaultCutoff),
					zap.Error(err),
				)
			}
			return f.SearchDirectoryContext(ctx, path, filename, cutoff)
		},
		[]swarm.Parameter{
			{Name: "path", Type: swarm.TypeString, Required: true, Description: "The directory path to search in."},
			{Name: "filename", Type: swarm.TypeString, Required: true, Description: "The name of the file to search for."},
			{Name: "cutoff", Type: swarm.TypeNumber, Default: DefaultCutoff, Description: "The similarity threshold between 0 and 1."},
		},
	)
}

// ParseCutoff converts a model supplied cutoff to a float. A missing value
// yields DefaultCutoff; numeric strings are parsed. Anything else yields
// DefaultCutoff together with an error describing the rejected value.
func ParseCutoff(v interface{}) (float64, error) {
	switch c := v.(type) {
	case nil:
		return DefaultCutoff, nil
	case float64:
		return c, nil
	case float32:
		return float64(c), nil
	case int:
		return float64(c), nil
	case int64:
		return float64(c), nil
	case json.Number:
		if f, err := c.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			return f, nil
		}
	}
	return DefaultCutoff, fmt.Errorf("cutoff %v is not a number", v)
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	return s, nil
}
