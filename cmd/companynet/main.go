package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OFFIS-RIT/companynet/internal/config"
	"github.com/OFFIS-RIT/companynet/internal/storage"
	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/export"
	"github.com/OFFIS-RIT/companynet/pkg/graph"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/logger/console"
	"github.com/OFFIS-RIT/companynet/pkg/search"
	"github.com/OFFIS-RIT/companynet/pkg/search/meili"
	pgstore "github.com/OFFIS-RIT/companynet/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

type cli struct {
	cfg      config.Config
	searcher search.Searcher
	sinks    []export.Sink
	stdout   io.Writer
	stderr   io.Writer
}

func main() {
	util.LoadEnv()
	cfg := config.Load()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	searcher, err := meili.NewClient(meili.NewClientParams{
		BaseURL:       cfg.MeiliURL,
		APIKey:        cfg.MeiliKey,
		Timeout:       cfg.MeiliTimeout,
		MaxRetries:    cfg.MeiliMaxRetries,
		RatePerSecond: cfg.MeiliRatePerSecond,
	})
	if err != nil {
		logger.Fatal("Failed to create search client", "err", err)
	}

	c := &cli{
		cfg:      cfg,
		searcher: searcher,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}

	sinks, closeSinks := openSinks(ctx, cfg)
	c.sinks = sinks

	code := c.run(ctx, os.Args[1:])
	closeSinks()
	stop()
	os.Exit(code)
}

// openSinks connects the optional backends. A backend that cannot be set up
// is skipped with a warning so the local export still runs.
func openSinks(ctx context.Context, cfg config.Config) ([]export.Sink, func()) {
	var sinks []export.Sink
	closeFn := func() {}

	if cfg.PersistsToDatabase() {
		sink, pool, err := postgresSink(ctx, cfg)
		if err != nil {
			logger.Warn("Skipping postgres sink", "err", err)
		} else {
			sinks = append(sinks, sink)
			closeFn = pool.Close
		}
	}

	if cfg.PersistsToS3() {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			logger.Warn("Skipping s3 sink", "err", err)
		} else {
			sinks = append(sinks, storage.NewSink(client, cfg.S3Bucket))
		}
	}

	return sinks, closeFn
}

func postgresSink(ctx context.Context, cfg config.Config) (export.Sink, *pgxpool.Pool, error) {
	if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	networks := pgstore.NewNetworkDBStorageWithConnection(pool, pgstore.WithChunkSize(cfg.DBChunkSize))
	return export.SinkFunc("postgres", networks.SaveNetwork), pool, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: companynet <query>")
	fmt.Fprintln(w, "\nExamples:")
	fmt.Fprintln(w, "  companynet MBRAS")
	fmt.Fprintln(w, "  companynet 16728568000163")
	fmt.Fprintln(w, "  companynet 'BANCO DO BRASIL'")
}

// run builds, reports and exports the network for args and returns the
// process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(c.stderr)
		return 1
	}
	query := strings.Join(args, " ")

	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Searcher:     c.searcher,
		CompanyIndex: c.cfg.CompanyIndex,
		SeedLimit:    c.cfg.SeedLimit,
		MaxDepth:     c.cfg.MaxDepth,
		Observer:     progressObserver(c.stdout),
	})
	if err != nil {
		logger.Error("Failed to create graph client", "err", err)
		return 1
	}

	fmt.Fprintf(c.stdout, "Searching companies: %s\n\n", query)

	network := client.Build(ctx, query)
	analysis := client.AnalyzeNetwork(network)
	export.PrintReport(c.stdout, analysis)

	file := &export.FileSink{Dir: c.cfg.OutputDir}
	if err := file.Persist(ctx, network); err != nil {
		logger.Error("Failed to export network", "err", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "\nNetwork exported to: %s\n", file.Path)

	if err := export.PersistAll(ctx, network, c.sinks...); err != nil {
		logger.Warn("Failed to persist network", "id", network.ID, "err", err)
	}

	fmt.Fprintln(c.stdout, "\nAnalysis complete!")
	return 0
}

func progressObserver(w io.Writer) graph.Observer {
	return graph.ObserverFunc(func(phase graph.Phase, stats graph.PhaseStats) {
		switch phase {
		case graph.PhaseSeedFetched:
			fmt.Fprintf(w, "Found %d seed companies\n", stats.Seeds)
		case graph.PhaseGraphBuilt:
			fmt.Fprintf(w, "\nNetwork built:\n")
			fmt.Fprintf(w, "   - Companies: %d\n", stats.Companies)
			fmt.Fprintf(w, "   - Partners: %d\n", stats.Partners)
			fmt.Fprintf(w, "   - Connections: %d\n", stats.Connections)
		}
	})
}
