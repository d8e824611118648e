package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/coursesearch"
	"github.com/poiesic/coursesearch/config"
	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/ingestion"
	"github.com/poiesic/coursesearch/search"
	"github.com/poiesic/coursesearch/server"
	"github.com/poiesic/coursesearch/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "coursesearch",
		Usage: "Semantic search over the course catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
			},
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Local deployment: load environment variables from .env",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Index the catalog if needed and serve searches over HTTP",
				Action: serveCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:    "reindex",
						Aliases: []string{"r"},
						Usage:   "Rebuild the index even if the store is populated",
					},
					&cli.StringFlag{
						Name:    "frontend",
						Aliases: []string{"f"},
						Usage:   "Frontend static file directory",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
					},
					&cli.Float64Flag{
						Name:  "rate-limit",
						Usage: "Searches per second, 0 disables limiting",
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the index from the catalog and exit",
				Action: reindexCommand,
				Flags:  commonFlags(),
			},
			{
				Name:   "embed",
				Usage:  "Build the embedded snapshot without touching the store",
				Action: embedCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Embed again even if the embedded snapshot is usable",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run one search against an indexed store",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print every search stage",
					},
				),
			},
		},
	}
}

// commonFlags returns the catalog, storage and embedding flags shared by
// every command. Each one overrides the configuration file when set.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "courses",
			Usage: "Raw scraped courses file",
		},
		&cli.StringFlag{
			Name:    "embedded",
			Aliases: []string{"e"},
			Usage:   "Embedded courses file",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory (in memory when empty)",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Embedding provider (openai, gemini)",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL for OpenAI-compatible APIs",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Embedding vector width",
		},
		&cli.StringFlag{
			Name:  "fingerprint",
			Usage: "Embedded snapshot fingerprint policy (ignore, enforce)",
		},
		&cli.IntFlag{
			Name:  "ready-attempts",
			Usage: "Store readiness checks before giving up",
		},
		&cli.DurationFlag{
			Name:  "ready-delay",
			Usage: "Delay between store readiness checks",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts for the catalog embedding call",
		},
	}
}

func setup(c *cli.Context) error {
	if c.Bool("local") {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the configuration file and applies the flags that were
// set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadFromFiles(c.String("config"))
	if err != nil {
		return nil, err
	}

	setString := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	setInt := func(flag string, dst *int) {
		if c.IsSet(flag) {
			*dst = c.Int(flag)
		}
	}

	setString("courses", &cfg.Catalog.Raw)
	setString("embedded", &cfg.Catalog.Embedded)
	setString("fingerprint", &cfg.Catalog.Fingerprint)
	setString("db", &cfg.Storage.Path)
	setString("provider", &cfg.Embedding.Provider)
	setString("embedding-host", &cfg.Embedding.Host)
	setString("embedding-model", &cfg.Embedding.Model)
	setInt("dimensions", &cfg.Embedding.Dimensions)
	setInt("ready-attempts", &cfg.Storage.ReadyAttempts)
	setInt("max-retries", &cfg.Embedding.MaxAttempts)
	setString("frontend", &cfg.Server.Frontend)
	setString("addr", &cfg.Server.Addr)
	if c.IsSet("ready-delay") {
		cfg.Storage.ReadyDelay = c.Duration("ready-delay").String()
	}
	if c.IsSet("rate-limit") {
		cfg.Server.RateLimit = c.Float64("rate-limit")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(ctx context.Context, cfg *config.Config) (*coursesearch.Engine, error) {
	opts := []coursesearch.EngineOption{
		coursesearch.WithAIConfig(cfg.AIConfig()),
		coursesearch.WithFingerprintPolicy(cfg.FingerprintPolicy()),
	}
	if cfg.Storage.PoolSize > 0 {
		opts = append(opts, coursesearch.WithStoreOptions(badger.WithPoolSize(cfg.Storage.PoolSize)))
	}
	engine, err := coursesearch.NewEngine(ctx, cfg.Storage.Path, opts...)
	if err != nil {
		return nil, core.ProcessFatal("open engine", err)
	}
	return engine, nil
}

// prepare waits for the store and runs the indexing path.
func prepare(ctx context.Context, engine *coursesearch.Engine, cfg *config.Config, force bool) (*ingestion.Result, error) {
	delay, err := cfg.ReadyDelay()
	if err != nil {
		return nil, err
	}
	if err := engine.WaitForReady(ctx, cfg.Storage.ReadyAttempts, delay); err != nil {
		return nil, core.ProcessFatal("wait for store", err)
	}

	builder, err := engine.NewBuilder(ingestion.WithEmbedRetry(cfg.Embedding.MaxAttempts, time.Second))
	if err != nil {
		return nil, err
	}
	pipeline, err := ingestion.NewPipeline(engine.Store(), builder)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, cfg.Catalog.Raw, cfg.Catalog.Embedded, force)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if _, err := prepare(ctx, engine, cfg, c.Bool("reindex")); err != nil {
		return err
	}

	searcher, err := engine.NewSearcher(search.WithMaxQueryLength(cfg.Search.MaxQueryLength))
	if err != nil {
		return err
	}
	srv, err := server.New(searcher, engine.Store(),
		server.WithFrontend(cfg.Server.Frontend),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst),
	)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func reindexCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := prepare(c.Context, engine, cfg, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d courses in %s\n", res.Courses, res.Elapsed.Round(time.Millisecond))
	return nil
}

func embedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	provider, err := coursesearch.NewProvider(c.Context, cfg.AIConfig())
	if err != nil {
		return err
	}
	defer provider.Close()

	builder, err := ingestion.NewBuilder(provider.Embedder(),
		ingestion.WithDimensions(provider.Dimensions()),
		ingestion.WithFingerprintPolicy(cfg.FingerprintPolicy()),
		ingestion.WithEmbedRetry(cfg.Embedding.MaxAttempts, time.Second),
	)
	if err != nil {
		return err
	}

	var courses []*core.Course
	if c.Bool("force") {
		courses, err = builder.Rebuild(c.Context, cfg.Catalog.Raw, cfg.Catalog.Embedded)
	} else {
		courses, err = builder.Obtain(c.Context, cfg.Catalog.Raw, cfg.Catalog.Embedded)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d courses in %s\n", len(courses), cfg.Catalog.Embedded)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c.Context, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	// An in-memory store has to be filled first.
	if _, err := prepare(c.Context, engine, cfg, false); err != nil {
		return err
	}

	searcher, err := engine.NewSearcher(search.WithMaxQueryLength(cfg.Search.MaxQueryLength))
	if err != nil {
		return err
	}

	monitor := &printMonitor{out: c.App.ErrWriter, verbose: c.Bool("verbose")}
	results, err := searcher.SearchWithMonitor(c.Context, query, c.Int("limit"), monitor)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(results))
	for i, course := range results {
		fmt.Fprintf(c.App.Writer, "%d: %s %s '%s' [%0.3f]\n",
			i, course.DepartmentShort, course.Code, course.Title, monitor.distance(i))
	}
	return nil
}
