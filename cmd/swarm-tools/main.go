// Command swarm-tools runs the example agents and the filesystem finder.
//
// Usage:
//
//	swarm-tools weather "What's the weather in Chicago?"
//	swarm-tools files "Find files similar to 'coffee' in ~/Desktop"
//	swarm-tools triage --store chromem --chromem-path .swarm/chromem
//	swarm-tools find ~/Desktop coffee --cutoff 0.5
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	swarm "github.com/nulib/swarm-tools"
	"github.com/nulib/swarm-tools/agents"
)

// CLI defines the command-line interface.
type CLI struct {
	Handoff  HandoffCmd  `cmd:"" help:"Hand a conversation from Agent A to the haiku-speaking Agent B."`
	Weather  WeatherCmd  `cmd:"" help:"Ask the weather agent a question."`
	Zip      ZipCmd      `cmd:"" help:"Chat with the zip code agent."`
	Triage   TriageCmd   `cmd:"" help:"Chat with the triage, search and formatter agents."`
	Files    FilesCmd    `cmd:"" help:"Ask the filesystem agent to find files."`
	Graph    GraphCmd    `cmd:"" help:"Chat with the research agent through the agent/tools graph."`
	Pipeline PipelineCmd `cmd:"" help:"Run a YAML pipeline of agent steps."`
	Index    IndexCmd    `cmd:"" help:"Add documents from a JSON file to the local chromem store."`
	Ls       LsCmd       `cmd:"" help:"List a directory."`
	Find     FindCmd     `cmd:"" help:"Fuzzy-search a directory tree for a file name."`

	Config      string   `short:"c" help:"YAML config file. Overrides the environment." type:"path"`
	EnvFile     []string `name:"env-file" help:"Dotenv files to load." default:".env"`
	Model       string   `help:"Model used by every agent. Defaults to AZURE_DEPLOYMENT_NAME or gpt-4o."`
	MaxTurns    int      `name:"max-turns" help:"Maximum model calls per run (default 10)."`
	Debug       bool     `help:"Trace every turn."`
	MetricsAddr string   `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090)." placeholder:"ADDR"`

	Store StoreFlags `embed:"" prefix:""`

	logger *zap.Logger
	cfg    swarm.Config
}

// AfterApply loads the configuration and builds the logger before any command runs.
func (c *CLI) AfterApply() error {
	logger, err := swarm.NewLogger(c.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	c.logger = logger

	if c.Config != "" {
		c.cfg, err = swarm.LoadConfigFile(c.Config)
	} else {
		c.cfg, err = swarm.LoadConfig(c.EnvFile...)
	}
	if err != nil {
		return err
	}
	if c.Model != "" {
		c.cfg.Model = c.Model
	}
	if c.MaxTurns > 0 {
		c.cfg.MaxTurns = c.MaxTurns
	}
	c.cfg.Debug = c.cfg.Debug || c.Debug
	return nil
}

// swarm builds the runtime and, when requested, starts the metrics endpoint.
func (c *CLI) swarm() (*swarm.Swarm, error) {
	client, err := swarm.NewClient(c.cfg)
	if err != nil {
		return nil, err
	}

	opts := []swarm.Option{swarm.WithLogger(c.logger)}
	if c.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := swarm.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, swarm.WithMetrics(metrics))
		c.serveMetrics(reg)
	}
	return swarm.NewSwarm(client, opts...), nil
}

func (c *CLI) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(c.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	c.logger.Info("serving metrics", zap.String("addr", c.MetricsAddr))
}

func (c *CLI) agentOptions() []agents.Option {
	return []agents.Option{agents.WithLogger(c.logger), agents.WithModel(c.cfg.Model)}
}

func (c *CLI) runOptions() swarm.RunOptions {
	return swarm.RunOptions{
		ModelOverride: c.cfg.Model,
		Debug:         c.cfg.Debug,
		MaxTurns:      c.cfg.MaxTurns,
		ExecuteTools:  true,
	}
}

func (c *CLI) demoLoop(ctx context.Context, agent *swarm.Agent, vars map[string]interface{}) error {
	s, err := c.swarm()
	if err != nil {
		return err
	}
	return swarm.RunDemoLoop(ctx, s, agent, swarm.DemoLoopOptions{
		ContextVariables: vars,
		ModelOverride:    c.cfg.Model,
		Debug:            c.cfg.Debug,
		MaxTurns:         c.cfg.MaxTurns,
	})
}

// runOnce sends a single user message to agent and prints the transcript.
func (c *CLI) runOnce(ctx context.Context, agent *swarm.Agent, prompt string, vars map[string]interface{}) error {
	s, err := c.swarm()
	if err != nil {
		return err
	}
	opts := c.runOptions()
	opts.ContextVariables = vars
	resp, err := s.Run(ctx, agent, []map[string]interface{}{{"role": "user", "content": prompt}}, opts)
	if err != nil {
		return err
	}
	swarm.PrintMessages(os.Stdout, resp.Messages)
	return nil
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("swarm-tools"),
		kong.Description("Swarm agents with local tools."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run(&cli)
	if cli.logger != nil {
		_ = cli.logger.Sync()
	}
	kctx.FatalIfErrorf(err)
}
