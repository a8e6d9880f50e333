// Package cmd provides the commands of the memctl CLI, which builds and
// queries collection indices directly on disk without the HTTP service.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/redis"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	root       string
	topK       int
	jsonOut    bool
	logLevel   string

	cfg     *config.Config
	manager *collection.Manager
	closers []io.Closer
}

// NewRootCmd creates the root command for the memctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "memctl",
		Short: "Build and query BM25 memory indices over novel collections",
		Long: `memctl manages the per-collection BM25 indices stored as sidecar files
inside each collection directory.

Examples:
  memctl list --root novels
  memctl build TestNovel
  memctl query TestNovel 人工智能 --top-k 5
  memctl search 云舒 --json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			opts.close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "Collection root directory (overrides config)")
	cmd.PersistentFlags().IntVarP(&opts.topK, "top-k", "k", 0, "Maximum number of results (default from config)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print machine-readable JSON")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), o.logLevel, "text"))

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.root != "" {
		cfg.Memory.Root = o.root
	}
	if o.topK <= 0 {
		o.topK = cfg.Memory.DefaultTopK
	}
	mopts := collection.OptionsFromConfig(cfg.Memory)
	qc, closer := openCache(cfg)
	if closer != nil {
		o.closers = append(o.closers, closer)
	}
	mopts.Cache = qc
	mgr, err := collection.NewManager(mopts)
	if err != nil {
		o.close()
		return err
	}
	o.cfg = cfg
	o.manager = mgr
	return nil
}

// openCache connects the shared query cache so builds run from the CLI
// invalidate the entries a running searcher holds. Only the redis backend is
// shared; an in-process cache would die with the command, so memory and none
// both yield no cache. An unreachable Redis is logged and skipped.
func openCache(cfg *config.Config) (*cache.QueryCache, io.Closer) {
	if cfg.Cache.Backend != "redis" {
		return nil, nil
	}
	client, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, shared query cache will not be invalidated", "addr", cfg.Redis.Addr, "error", err)
		return nil, nil
	}
	return cache.New(cache.NewRedisBackend(client, cfg.Redis.CacheTTL)), client
}

func (o *rootOptions) close() {
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close", "error", err)
		}
	}
	o.closers = nil
}

// print writes v as indented JSON when --json is set and calls text
// otherwise.
func (o *rootOptions) print(w io.Writer, v any, text func(io.Writer)) error {
	if !o.jsonOut {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
