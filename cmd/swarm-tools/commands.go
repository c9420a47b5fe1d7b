package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/agents"
	"github.com/nulib/swarm-tools/finder"
	"github.com/nulib/swarm-tools/graph"
	"github.com/nulib/swarm-tools/search"
)

// HandoffCmd asks Agent A to pass the conversation on.
type HandoffCmd struct {
	Prompt string `arg:"" optional:"" help:"Message sent to Agent A." default:"I want to talk to agent B."`
}

func (c *HandoffCmd) Run(ctx context.Context, cli *CLI) error {
	a, _ := agents.NewHandoffAgents(cli.agentOptions()...)
	return cli.runOnce(ctx, a, c.Prompt, nil)
}

// WeatherCmd asks the weather agent a single question.
type WeatherCmd struct {
	Prompt string `arg:"" optional:"" help:"Question for the weather agent." default:"What's the weather in Buffalo Grove?"`
}

func (c *WeatherCmd) Run(ctx context.Context, cli *CLI) error {
	return cli.runOnce(ctx, agents.NewWeatherAgent(cli.agentOptions()...), c.Prompt, nil)
}

// ZipCmd starts a REPL with the zip code agent.
type ZipCmd struct{}

func (c *ZipCmd) Run(ctx context.Context, cli *CLI) error {
	vars := map[string]interface{}{"user_id": 123, "name": "Brendan"}
	return cli.demoLoop(ctx, agents.NewUserInterfaceAgent(cli.agentOptions()...), vars)
}

// TriageCmd starts a REPL with the triage agent.
type TriageCmd struct {
	Name string `help:"User name shown to the triage agent." default:"Brendan"`
}

func (c *TriageCmd) Run(ctx context.Context, cli *CLI) error {
	store, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	trio := agents.NewTriageAgents(store, cli.agentOptions()...)
	return cli.demoLoop(ctx, trio.Triage, map[string]interface{}{"name": c.Name})
}

// FilesCmd sends one request to the filesystem agent.
type FilesCmd struct {
	Prompt string `arg:"" help:"What to look for, e.g. \"Search for files similar to 'coffee' in ~/Desktop\"."`
}

func (c *FilesCmd) Run(ctx context.Context, cli *CLI) error {
	f := finder.New(afero.NewOsFs(), finder.WithLogger(cli.logger))
	return cli.runOnce(ctx, agents.NewFilesystemAgent(f, cli.agentOptions()...), expandHome(c.Prompt), nil)
}

// GraphCmd chats with the research agent through the agent/tools graph.
// Messages of a thread are kept between inputs.
type GraphCmd struct {
	Thread string `help:"Conversation thread id. A new one is generated when empty."`
}

func (c *GraphCmd) Run(ctx context.Context, cli *CLI) error {
	s, err := cli.swarm()
	if err != nil {
		return err
	}
	store, err := cli.openStore(ctx)
	if err != nil {
		return err
	}

	agent := agents.NewResearchAgent(store, cli.agentOptions()...)
	opts := cli.runOptions()
	compiled, err := graph.NewAgentGraph(s, agent, opts,
		graph.WithCheckpointer(graph.NewMemorySaver()),
		graph.WithLogger(cli.logger),
	)
	if err != nil {
		return err
	}

	thread := c.Thread
	if thread == "" {
		thread = graph.NewThreadID()
	}
	cli.logger.Info("starting graph conversation", zap.String("thread", thread))

	return swarm.PromptLoop(os.Stdin, os.Stdout, func(input string) error {
		state, err := compiled.Invoke(ctx, graph.State{
			Messages: []map[string]interface{}{{"role": "user", "content": input}},
		}, thread)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", agent.Name, graph.Reply(state))
		return nil
	})
}

// IndexCmd loads documents into the chromem store.
type IndexCmd struct {
	File string `arg:"" help:"JSON array of documents with id, content and metadata." type:"existingfile"`
}

func (c *IndexCmd) Run(ctx context.Context, cli *CLI) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	var docs []search.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}

	store, err := cli.openChromem()
	if err != nil {
		return err
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		return err
	}
	fmt.Printf("Indexed %d documents, %d in collection %q\n", len(docs), store.Count(), cli.Store.Collection)
	return nil
}

// LsCmd prints the entries of a directory.
type LsCmd struct {
	Path string `arg:"" help:"Directory to list." default:"."`
}

func (c *LsCmd) Run() error {
	for _, name := range finder.ListDirectory(expandHome(c.Path)) {
		fmt.Println(name)
	}
	return nil
}

// FindCmd prints the files whose names resemble Name.
type FindCmd struct {
	Path   string  `arg:"" help:"Directory to search."`
	Name   string  `arg:"" help:"File name to look for."`
	Cutoff float64 `help:"Similarity threshold between 0 and 1." default:"0.6"`
}

func (c *FindCmd) Run(ctx context.Context, cli *CLI) error {
	f := finder.New(afero.NewOsFs(), finder.WithLogger(cli.logger))
	matches, err := f.SearchDirectoryContext(ctx, expandHome(c.Path), c.Name, c.Cutoff)
	for _, m := range matches {
		fmt.Println(m)
	}
	return err
}

func expandHome(s string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return s
	}
	if s == "~" {
		return home
	}
	return strings.ReplaceAll(s, "~/", home+"/")
}

// PipelineCmd runs a YAML pipeline of agent steps.
type PipelineCmd struct {
	File string `arg:"" help:"Pipeline definition." type:"existingfile"`
}

func (c *PipelineCmd) Run(ctx context.Context, cli *CLI) error {
	p, err := graph.LoadPipeline(c.File)
	if err != nil {
		return err
	}
	if p.Model == "" {
		p.Model = cli.cfg.Model
	}

	s, err := cli.swarm()
	if err != nil {
		return err
	}
	store, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	f := finder.New(afero.NewOsFs(), finder.WithLogger(cli.logger))

	reply, state, err := p.Run(ctx, s, agents.Tools(f, store, cli.agentOptions()...), graph.WithLogger(cli.logger))
	if err != nil {
		return err
	}
	swarm.PrintMessages(os.Stdout, state.Messages)
	cli.logger.Debug("pipeline finished", zap.String("pipeline", p.Name), zap.Int("messages", len(state.Messages)))
	if reply == "" {
		return fmt.Errorf("pipeline %q produced no reply", p.Name)
	}
	return nil
}
