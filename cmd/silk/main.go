package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/silk/pkg/config"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/plugins"
	"github.com/jingkaihe/silk/pkg/presenter"
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/status"
	"github.com/jingkaihe/silk/pkg/tui"
)

// logFileName is the TUI log file inside the state directory
const logFileName = "silk.log"

var (
	// cfg is resolved once in the root pre-run and shared by every command
	cfg             *config.Config
	shutdownTracing func(context.Context) error
)

func init() {
	// Environment variables
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.silk")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	config.SetDefaults(viper.GetViper())
}

var rootCmd = &cobra.Command{
	Use:   "silk",
	Short: "Install git repositories of agent skills and link them where agents look",
	Long: `silk installs git repositories that bundle skills (directories containing a
SKILL.md file) into a local cache and links individual skills into the
directories coding agents load skills from.

Run without a subcommand to open the interactive manager.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInteractive(cmd.Context())
	},
}

// setup resolves the configuration and initializes logging and tracing
func setup(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded

	if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	logger.SetLogFormat(cfg.LogFormat)
	presenter.SetQuiet(cfg.Quiet)

	shutdown, err := initTracing(cmd.Context(), cfg)
	if err != nil {
		logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
	} else {
		shutdownTracing = shutdown
	}

	logger.G(cmd.Context()).
		WithField("cache_dir", cfg.CacheDir).
		WithField("targets", len(cfg.Targets)).
		Debug("configuration loaded")
	return nil
}

// newStore creates the plugin store described by the configuration
func newStore(cfg *config.Config) (*plugins.Store, error) {
	scanner, err := skills.NewScanner(skills.WithIgnorePatterns(cfg.Scan.Ignore...))
	if err != nil {
		return nil, err
	}
	return plugins.NewStore(
		plugins.StoreConfig{CacheDir: cfg.CacheDir, Targets: cfg.Targets},
		plugins.WithScanner(scanner),
	)
}

func runInteractive(ctx context.Context) error {
	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	// the terminal belongs to the TUI, so logs go to a file
	closer, err := logger.RedirectToFile(filepath.Join(cfg.StateDir, logFileName))
	if err != nil {
		return err
	}
	defer closer.Close()

	board := status.NewBoard(status.WithDisplayDuration(cfg.Status.DisplayDuration))
	return tui.Run(ctx, store, cfg.CacheDir, tui.WithStatusBoard(board))
}

func main() {
	// Add global flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.silk/config.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", "", "Directory plugins are cloned into (default $HOME/.cache/silk/repos)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress and success messages")

	// Bind flags to viper
	viper.BindPFlag(config.KeyCacheDir, rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag(config.KeyQuiet, rootCmd.PersistentFlags().Lookup("quiet"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(installCmd))
	rootCmd.AddCommand(withTracing(updateCmd))
	rootCmd.AddCommand(withTracing(removeCmd))
	rootCmd.AddCommand(withTracing(listCmd))
	rootCmd.AddCommand(withTracing(skillsCmd))
	rootCmd.AddCommand(withTracing(linkCmd))
	rootCmd.AddCommand(withTracing(unlinkCmd))
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if shutdownTracing != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := shutdownTracing(flushCtx); serr != nil {
			logger.G(flushCtx).WithError(serr).Warn("failed to flush traces")
		}
		flushCancel()
	}

	if err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
