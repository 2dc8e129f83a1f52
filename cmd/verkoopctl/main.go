package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"verkoop/internal/cli"
	"verkoop/internal/cli/formatter"
	"verkoop/internal/config"
	"verkoop/internal/core"
	"verkoop/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	// Reports go to stdout, so logs stay on stderr.
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentCLI,
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	dash, data, err := cli.NewDashboard(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	app := &cli.App{
		Dashboard: dash,
		Import:    importFunc(cfg, logger),
		ImportWorkbook: func(ctx context.Context, r io.Reader) (core.ImportRun, error) {
			return cli.ImportWorkbook(ctx, cfg, logger, r)
		},
		Printer: formatter.Printer{Styled: isTerminal()},
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}

// importFunc opens the import source and snapshot store only when the
// import command runs.
func importFunc(cfg *config.Config, logger *log.Logger) func(context.Context) (core.ImportRun, error) {
	return func(ctx context.Context) (core.ImportRun, error) {
		importer, src, store, err := cli.NewImporter(ctx, cfg, logger)
		if err != nil {
			return core.ImportRun{}, err
		}
		defer src.Close()
		defer store.Close()
		return importer.Import(ctx)
	}
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
