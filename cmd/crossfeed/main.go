package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campuso/crossfeed/internal/api"
	"github.com/campuso/crossfeed/internal/cache"
	"github.com/campuso/crossfeed/internal/config"
	"github.com/campuso/crossfeed/internal/feed"
	"github.com/campuso/crossfeed/internal/ops"
	"github.com/campuso/crossfeed/internal/tui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "manual"
)

func main() {
	// Define subcommands
	if len(os.Args) > 1 && os.Args[1] == "init" {
		handleInit()
		return
	}

	var (
		showVersion = flag.Bool("version", false, "Show version information")
		configPath  = flag.String("config", "", "Path to configuration file")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("crossfeed %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		fmt.Printf("  by:     %s\n", builtBy)
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Println("crossfeed - terminal client for the cross-campus wall")
		fmt.Println()
		fmt.Println("No configuration file specified. Use --config <path> to specify config.")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  crossfeed init              Generate example configuration")
		fmt.Println("  crossfeed --version         Show version information")
		fmt.Println("  crossfeed --config <path>   Start with configuration file")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Cancelled on signal or UI exit; every in-flight request checks it
	// before mutating state
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := ops.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	ops.SetDefault(logger)
	logger.LogStartup(version, commit)

	client := api.New(&cfg.Server)
	filter := feed.FilterFromConfig(&cfg.Feed)

	paginator := feed.NewPaginator(client, filter, cfg.Feed.PageSize, logger)
	submitter := feed.NewSubmissionController(client, paginator, logger)
	reactions := feed.NewReactionDispatcher(client, paginator, logger)
	gesture := feed.NewGestureController(&cfg.Gesture, paginator)
	scroll := feed.NewScrollTrigger(&cfg.Scroll)

	// The snapshot cache renders the last known feed instantly while
	// the first refresh is in flight. Cache trouble is never fatal.
	var store *cache.Store
	if !cfg.Cache.Disabled {
		store, err = cache.Open(cfg.Cache.Path)
		if err != nil {
			logger.Warn("feed cache unavailable", "path", cfg.Cache.Path, "error", err)
			store = nil
		} else {
			defer store.Close()
			if posts, err := store.LoadSnapshot(cache.Signature(filter)); err != nil {
				logger.Warn("failed to load cached feed", "error", err)
			} else if len(posts) > 0 {
				paginator.Seed(posts)
				logger.LogCacheOperation("load", cache.Signature(filter), true)
			}
		}
	}

	pageSize := cfg.Feed.PageSize
	paginator.SetOnApply(func(posts []api.Post) {
		// Confirmed pages retire their optimistic placeholders, then
		// the freshest page is snapshotted for the next startup
		submitter.Retire(posts)
		if store == nil {
			return
		}
		if len(posts) > pageSize {
			posts = posts[:pageSize]
		}
		sig := cache.Signature(paginator.Filter())
		if err := store.SaveSnapshot(sig, posts); err != nil {
			logger.Warn("failed to persist feed snapshot", "error", err)
		}
	})

	model := tui.New(ctx, tui.Deps{
		Paginator: paginator,
		Submitter: submitter,
		Reactions: reactions,
		Gesture:   gesture,
		Scroll:    scroll,
		Log:       logger,
	})

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("ui error: %w", err)
	}

	logger.LogShutdown("ui exited")
	return nil
}

func handleInit() {
	exampleConfig, err := config.GetExampleConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading example config: %v\n", err)
		os.Exit(1)
	}

	// Write to stdout
	fmt.Print(string(exampleConfig))
}
