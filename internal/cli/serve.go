package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/dataserver/internal/api"
	"github.com/roach88/dataserver/internal/config"
	"github.com/roach88/dataserver/internal/ingest"
	"github.com/roach88/dataserver/internal/query"
	"github.com/roach88/dataserver/internal/store"
	"github.com/roach88/dataserver/internal/store/pebblestore"
	"github.com/roach88/dataserver/internal/store/pgstore"
)

// ServeOptions holds flags for the serve command. Non-empty values
// override the config file.
type ServeOptions struct {
	*RootOptions
	Listen      string
	StoreDriver string
	StorePath   string
	DSN         string

	// IDGenerator allows overriding record ID generation (for testing).
	// If nil, defaults to ingest.UUIDv7Generator.
	IDGenerator ingest.IDGenerator

	// ready, if set, receives the listening address once the server is up.
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dataserver HTTP API",
		Long: `Run the dataserver HTTP API until interrupted.

Settings come from the config file (--config), then from flags. The block
store is SQLite by default; pebble and postgres are also available.

Example:
  dataserver serve
  dataserver serve --listen :9000 --store-path /var/lib/dataserver.db
  dataserver serve --store-driver pebble --store-path /var/lib/dataserver
  dataserver serve --store-driver postgres --dsn postgres://localhost/data`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.StoreDriver, "store-driver", "", "block store: sqlite|pebble|postgres (overrides config)")
	cmd.Flags().StringVar(&opts.StorePath, "store-path", "", "sqlite file or pebble directory (overrides config)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "postgres connection string (overrides config)")

	return cmd
}

// serveConfig loads the config file and applies flag overrides.
func serveConfig(opts *ServeOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.StoreDriver != "" {
		cfg.Store.Driver = opts.StoreDriver
	}
	if opts.StorePath != "" {
		cfg.Store.Path = opts.StorePath
	}
	if opts.DSN != "" {
		cfg.Store.DSN = opts.DSN
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the process logger described by cfg.
func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openStore opens the configured block store backend.
func openStore(ctx context.Context, cfg config.Store) (store.BlockStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return store.Open(cfg.Path)
	case config.DriverPebble:
		return pebblestore.Open(cfg.Path)
	case config.DriverPostgres:
		return pgstore.Open(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := serveConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("opening block store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open block store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing block store", "error", closeErr)
		}
	}()

	ids := opts.IDGenerator
	if ids == nil {
		ids = ingest.UUIDv7Generator{}
	}

	srv, err := api.NewServer(api.ServerConfig{
		ListenAddress: cfg.Server.Listen,
		Ingest:        ingest.New(st, ingest.WithLogger(logger), ingest.WithIDGenerator(ids)),
		Query:         query.New(st),
		Logger:        logger,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create server", err)
	}
	if err := srv.Start(); err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "dataserver listening on %s\n", srv.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready <- srv.Addr()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := <-srv.Done(); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server stopped", err)
	}

	logger.Info("dataserver stopped gracefully")
	return nil
}
