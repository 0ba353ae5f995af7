// Command clio is the CLI for the clio fact-checking backend.
//
// Usage:
//
//	clio serve --config config.yaml
//	clio index syllabus.pdf notes.txt
//	clio ask "When did the Suez Canal open?"
//	clio search "Louisiana Purchase"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/clio-ai/clio/pkg/agent"
	"github.com/clio-ai/clio/pkg/config"
	"github.com/clio-ai/clio/pkg/embedder"
	"github.com/clio-ai/clio/pkg/llms"
	"github.com/clio-ai/clio/pkg/logger"
	"github.com/clio-ai/clio/pkg/rag"
	"github.com/clio-ai/clio/pkg/server"
	"github.com/clio-ai/clio/pkg/tools"
	"github.com/clio-ai/clio/pkg/vector"
)

const defaultSystemPrompt = `You are a careful historical fact-checking assistant.
Answer questions using the tools available to you. When you cite indexed
documents, keep the source and page references from the tool output in your
answer. If the indexed material does not cover the question, say so instead
of guessing.`

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API server."`
	Index   IndexCmd   `cmd:"" help:"Index document files into the store."`
	Ask     AskCmd     `cmd:"" help:"Ask the agent a question."`
	Search  SearchCmd  `cmd:"" help:"Search the indexed documents."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("clio version %s\n", version)
	return nil
}

// runtime bundles the components every command builds from configuration.
type runtime struct {
	cfg      *config.Config
	provider llms.Provider
	store    *rag.Store
	agent    *agent.Agent
	registry *prometheus.Registry
}

func (rt *runtime) Close() {
	if err := rt.provider.Close(); err != nil {
		slog.Warn("closing provider", "error", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Info("loaded configuration", "path", path)
	return cfg, nil
}

// buildRuntime wires provider, embedder, index, store, tools, and agent.
// When the store has a configured persist path an existing index is loaded.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	provider, err := llms.NewProvider(&cfg.LLM)
	if err != nil {
		return nil, err
	}

	emb, err := embedder.NewMistralEmbedder(&cfg.Embedder)
	if err != nil {
		return nil, err
	}

	idx, err := vector.NewChromemIndex("documents")
	if err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := rag.NewStore(&cfg.Store, idx, emb, rag.NewMetrics(promRegistry))
	if err != nil {
		return nil, err
	}
	if cfg.Store.PersistPath != "" {
		if _, statErr := os.Stat(cfg.Store.PersistPath); statErr == nil {
			if err := store.Load(cfg.Store.PersistPath); err != nil {
				return nil, err
			}
			slog.Info("loaded persisted index", "path", cfg.Store.PersistPath, "documents", store.Stats().Documents)
		}
	}

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewTimeTool(),
		tools.NewWikipediaTool(),
		tools.NewSearchTool(store, cfg.Store.SearchLimit),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	ag := agent.New(provider, registry, &cfg.Agent, agent.WithSystemPrompt(defaultSystemPrompt))

	return &runtime{
		cfg:      cfg,
		provider: provider,
		store:    store,
		agent:    ag,
		registry: promRegistry,
	}, nil
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := server.New(&cfg.Server, rt.agent, rt.store, rt.registry)

	fmt.Printf("clio server listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   Health:  http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   Metrics: http://%s:%d/metrics\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.ListenAndServe(ctx)
}

// IndexCmd extracts, chunks, and indexes document files.
type IndexCmd struct {
	Files []string `arg:"" help:"Document files to index (.pdf, .docx, .txt, .md)." type:"existingfile"`
}

func (c *IndexCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, path := range c.Files {
		docs, err := rag.ExtractFile(ctx, path)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", path, err)
		}

		report, err := rt.store.AddDocuments(ctx, docs)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks indexed (%d duplicates skipped, %d over capacity)\n",
			path, report.Indexed, report.Deduplicated, report.Truncated)
	}

	if cfg.Store.PersistPath != "" {
		if err := rt.store.Persist(cfg.Store.PersistPath); err != nil {
			return err
		}
		fmt.Printf("index persisted to %s\n", cfg.Store.PersistPath)
	}

	stats := rt.store.Stats()
	fmt.Printf("store: %d documents indexed (capacity %d)\n", stats.Documents, stats.MaxDocuments)
	return nil
}

// AskCmd runs one agent question.
type AskCmd struct {
	Question []string `arg:"" help:"Question to ask."`
}

func (c *AskCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.agent.Run(ctx, strings.Join(c.Question, " "))
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	fmt.Printf("\n(%d rounds, %d tool calls, ~%d tokens)\n",
		result.Iterations, result.ToolCalls, result.TokensUsed)
	return nil
}

// SearchCmd queries the indexed documents directly.
type SearchCmd struct {
	Query []string `arg:"" help:"Search query."`
	Limit int      `help:"Maximum number of hits." default:"5"`
}

func (c *SearchCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	hits, err := rt.store.Search(ctx, strings.Join(c.Query, " "), c.Limit)
	if err != nil {
		return err
	}

	fmt.Println(rag.FormatCitations(hits))
	return nil
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("clio"),
		kong.Description("clio - grounded historical fact-checking backend"),
		kong.UsageOnError(),
	)

	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(logger.ParseLevel(cli.LogLevel), output, cli.LogFormat)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
