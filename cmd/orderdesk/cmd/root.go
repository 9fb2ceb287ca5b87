// Package cmd provides the CLI commands for orderdesk.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderdesk/internal/config"
	deskerrors "github.com/Aman-CERP/orderdesk/internal/errors"
	"github.com/Aman-CERP/orderdesk/internal/logging"
	"github.com/Aman-CERP/orderdesk/internal/orderbook"
	"github.com/Aman-CERP/orderdesk/internal/search"
	"github.com/Aman-CERP/orderdesk/internal/store"
	"github.com/Aman-CERP/orderdesk/internal/telemetry"
	"github.com/Aman-CERP/orderdesk/pkg/version"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	debug   bool
	dataDir string

	cfg            *config.Config
	loggingCleanup func()
}

// NewRootCmd creates the root command for the orderdesk CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orderdesk",
		Short: "Supplier catalogs, favorites and orders from the terminal",
		Long: `orderdesk keeps supplier catalogs, favorites, default quantities and
order lines in a local database and exports orders in the accounting CSV
formats.

Selections are tied to products by supplier and supplier product number,
so re-importing a catalog never loses them.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	cmd.SetVersionTemplate("orderdesk version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to ~/.orderdesk/logs/")
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Directory holding the orderdesk database (overrides config)")

	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newSuppliersCmd(a))
	cmd.AddCommand(newProductsCmd(a))
	cmd.AddCommand(newFavoriteCmd(a))
	cmd.AddCommand(newDefaultCmd(a))
	cmd.AddCommand(newOrderCmd(a))
	cmd.AddCommand(newCategoryCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. Errors are logged and printed to stderr,
// as JSON when the failing command was asked for --format json.
func Execute() error {
	a := &app{}
	defer a.teardown(nil, nil)

	c, err := newRootCmd(a).ExecuteC()
	if err == nil {
		return nil
	}
	slog.LogAttrs(context.Background(), slog.LevelError, "command_failed",
		append([]slog.Attr{slog.String("command", c.CommandPath())}, deskerrors.LogAttrs(err)...)...)

	if wantsJSON(c) {
		if data, jerr := deskerrors.FormatJSON(err); jerr == nil {
			fmt.Fprintln(os.Stderr, string(data))
			return err
		}
	}
	fmt.Fprint(os.Stderr, deskerrors.FormatForCLI(err))
	return err
}

func wantsJSON(c *cobra.Command) bool {
	f := c.Flags().Lookup("format")
	return f != nil && f.Value.String() == formatJSON
}

// setup loads the configuration and starts logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return deskerrors.ConfigError("failed to load configuration", err).
			WithSuggestion("Check " + config.GetUserConfigPath() + " and " + config.ProjectFileName)
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	a.cfg = cfg

	logger, cleanup, err := logging.Setup(cfg.LoggingConfig(a.debug))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.loggingCleanup = cleanup
	slog.SetDefault(logger)
	if a.debug {
		slog.Info("debug_logging_enabled",
			slog.String("command", cmd.CommandPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) {
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
}

// withBook opens the store, loads the book and runs fn. When save is set
// and fn succeeds the book is written back.
func (a *app) withBook(cmd *cobra.Command, save bool, fn func(ctx context.Context, b *orderbook.Book) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(a.cfg.StorePath())
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("store_close_failed", slog.String("error", err.Error()))
		}
	}()

	worker := search.NewWorker(
		search.WithIndexOptions(a.cfg.IndexOptions()),
		search.WithWorkerLogger(slog.Default()),
	)
	defer func() { _ = worker.Close() }()

	metrics := a.openMetrics(ctx, st)
	defer func() {
		if err := metrics.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
		}
	}()

	book := orderbook.New(
		orderbook.WithStore(st),
		orderbook.WithLogger(slog.Default()),
		orderbook.WithMetrics(metrics),
		orderbook.WithSearchOptions(
			search.WithWorker(worker),
			search.WithCacheSize(a.cfg.Search.CacheSize),
		),
	)
	if err := book.Load(ctx); err != nil {
		return err
	}

	if err := fn(ctx, book); err != nil {
		return err
	}
	if save {
		return book.Save(ctx)
	}
	return nil
}

// openMetrics returns a collector flushing into st, or nil when telemetry
// is disabled or unavailable.
func (a *app) openMetrics(ctx context.Context, st *store.Store) *telemetry.Metrics {
	if !a.cfg.Search.Telemetry {
		return nil
	}
	sink, err := telemetry.NewSQLiteStore(ctx, st.DB())
	if err != nil {
		slog.Warn("telemetry_unavailable", slog.String("error", err.Error()))
		return nil
	}
	return telemetry.New(sink, telemetry.DefaultConfig())
}

// marker picks the highlight style: tags for JSON, colors on a terminal,
// nothing otherwise.
func marker(out io.Writer, jsonOutput bool) search.Marker {
	if jsonOutput {
		return search.DefaultMarker
	}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return search.NewTerminalMarker()
	}
	return search.TagMarker{}
}
