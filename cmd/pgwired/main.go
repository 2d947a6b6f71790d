// Command pgwired serves the in-memory demonstration engine over a real
// TCP listener, speaking the PostgreSQL wire protocol.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	wire "github.com/splitgraph/convergence"
	"github.com/splitgraph/convergence/internal/config"
	"github.com/splitgraph/convergence/internal/memdb"
	"github.com/splitgraph/convergence/internal/sqllit"
)

var cfgFile string

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

var rootCmd = &cobra.Command{
	Use:   "pgwired",
	Short: "Serve a demonstration in-memory engine over the PostgreSQL wire protocol",
	Long: `pgwired is a small reference server built on the wire-protocol embedding
point: it answers real SELECT queries from any PostgreSQL client against a
couple of fixed in-memory tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: ./pgwired.yaml)")
	rootCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:5432)")
	rootCmd.Flags().Int("buffer-size", 0, "maximum protocol message size in bytes")
	rootCmd.Flags().String("version", "", "server_version reported to clients")
	rootCmd.Flags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("addr", rootCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("buffer_size", rootCmd.Flags().Lookup("buffer-size"))
	_ = viper.BindPFlag("version", rootCmd.Flags().Lookup("version"))
	_ = viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyFlagOverrides(cmd, cfg)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	srv, err := wire.NewServer(memdb.New(), sqllit.Parser{},
		wire.Logger(logger),
		wire.BufferSize(cfg.BufferSize),
		wire.Version(cfg.Version),
	)
	if err != nil {
		return fmt.Errorf("configuring server: %w", err)
	}

	logger.Info("pgwired listening", slog.String("addr", cfg.Addr))
	return srv.ListenAndServe(cfg.Addr)
}

// applyFlagOverrides lets an explicitly-set flag win over a config-file or
// default value, since viper's own flag binding can't tell "not passed"
// apart from "passed with the zero value" for these types.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if f := cmd.Flags(); f.Changed("addr") {
		cfg.Addr, _ = f.GetString("addr")
	} else if v := viper.GetString("addr"); v != "" {
		cfg.Addr = v
	}

	if f := cmd.Flags(); f.Changed("buffer-size") {
		cfg.BufferSize, _ = f.GetInt("buffer-size")
	}

	if f := cmd.Flags(); f.Changed("version") {
		cfg.Version, _ = f.GetString("version")
	}

	if f := cmd.Flags(); f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
