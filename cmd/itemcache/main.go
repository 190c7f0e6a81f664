package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentuity/itemcache/config"
	"github.com/agentuity/itemcache/logger"
	"github.com/agentuity/itemcache/sys"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "itemcache",
		Short:         "Read-through item cache in front of a relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log)
			ctx, cancel := sys.ShutdownContext(cmd.Context())
			defer cancel()
			return run(ctx, cfg, log)
		},
	}
	flags := cmd.Flags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("addr", "", "listen address")
	flags.String("redis", "", "shared cache redis URL (empty disables the shared tier)")
	flags.String("dsn", "", "PostgreSQL DSN")
	flags.Bool("fallback", true, "fall back to the embedded store when the DSN is unreachable")
	flags.Int("max-size", 0, "local cache entry limit")
	flags.String("ttl", "", "cache TTL (e.g. 5m, or milliseconds)")
	flags.String("log-format", "", "console, json or auto")
	flags.String("log-level", "", "trace, debug, info, warn or error")
	return cmd
}

// loadConfig layers changed flags on top of the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("redis") {
		cfg.Shared.URL, _ = flags.GetString("redis")
	}
	if flags.Changed("dsn") {
		cfg.Store.DSN, _ = flags.GetString("dsn")
	}
	if flags.Changed("fallback") {
		cfg.Store.Fallback, _ = flags.GetBool("fallback")
	}
	if flags.Changed("max-size") {
		cfg.Cache.MaxSize, _ = flags.GetInt("max-size")
	}
	if flags.Changed("ttl") {
		v, _ := flags.GetString("ttl")
		d, err := config.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, "--ttl")
		}
		cfg.Cache.TTL = d
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger resolves the "auto" format to JSON inside a container and
// console output elsewhere.
func newLogger(cfg config.Log) logger.Logger {
	format := cfg.Format
	if strings.EqualFold(format, "auto") {
		format = "console"
		if sys.IsRunningInsideContainer() {
			format = "json"
		}
	}
	return logger.New(format, logger.ParseLevel(cfg.Level))
}
