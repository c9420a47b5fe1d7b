package agents

import (
	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/finder"
)

const filesystemInstructions = "You help users find files on their computer. " +
	"Use list_directory to see what a directory contains and search_directory to find files " +
	"whose names are similar to the one the user describes. " +
	"Lower the cutoff when nothing is found. Answer with the full paths you found."

// NewFilesystemAgent returns an agent that browses and fuzzy-searches the
// filesystem served by f.
func NewFilesystemAgent(f *finder.Finder, opts ...Option) *swarm.Agent {
	o := newOptions(opts)
	return o.agent("Filesystem Agent").
		WithInstructions(filesystemInstructions).
		AddFunctions(f.Tools()...)
}
