package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-mirror/internal/collector"
	"github.com/kurihiro0119/github-mirror/internal/config"
	"github.com/kurihiro0119/github-mirror/internal/logging"
	"github.com/kurihiro0119/github-mirror/internal/mirror"
	"github.com/kurihiro0119/github-mirror/internal/reconciler"
	"github.com/kurihiro0119/github-mirror/internal/runner"
	"github.com/kurihiro0119/github-mirror/internal/storage/backend"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

const retryBackoff = 5 * time.Second

var (
	cfgFile        string
	databasePath   string
	storageType    string
	logLevel       string
	cgitrcPath     string
	skipLargerThan string
	token          string
	gitTimeout     time.Duration
	retries        int
)

var rootCmd = &cobra.Command{
	Use:   "github-mirror [flags] --database DATABASE ACCOUNT REPO_PARENT_DIR",
	Short: "Mirror the repositories of a GitHub account",
	Long: `Mirror every repository owned by a GitHub account into REPO_PARENT_DIR.

Each repository is kept as a bare mirror named <repo>.git (forks under
fork/), with a description file and an optional cgitrc for cgit. The
database remembers what was mirrored, so repeated runs only fetch
repositories that changed.`,
	Version:       version,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMirror,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $MIRROR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "database", "", "mirror state database, created if absent")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "database type: sqlite, postgres or bolt")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	rootCmd.Flags().StringVar(&cgitrcPath, "cgitrc", "", "cgitrc file copied into new mirrors")
	rootCmd.Flags().StringVar(&skipLargerThan, "skip-larger-than", "", "skip repositories larger than SIZE, e.g. 500K or 2M")
	rootCmd.Flags().StringVar(&token, "token", "", "GitHub token (default $GITHUB_TOKEN)")
	rootCmd.Flags().DurationVar(&gitTimeout, "git-timeout", 0, "timeout of each git command (default 30m)")
	rootCmd.Flags().IntVar(&retries, "retries", 0, "extra attempts for a failed clone or fetch")
	rootCmd.Flags().BoolP("version", "V", false, "print the version and exit")

	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies the flags that were set
// on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfgFile != "" {
		os.Setenv("MIRROR_CONFIG", cfgFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	override := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}
	override("database", func() { cfg.DatabasePath = databasePath })
	override("storage", func() { cfg.StorageType = storageType })
	override("log-level", func() { cfg.LogLevel = logLevel })
	override("cgitrc", func() { cfg.CgitrcPath = cgitrcPath })
	override("skip-larger-than", func() { cfg.SkipLargerThan = skipLargerThan })
	override("token", func() { cfg.GitHubToken = token })
	override("git-timeout", func() { cfg.GitTimeout = gitTimeout })
	override("retries", func() { cfg.MirrorRetries = retries })
	return cfg, nil
}

func runMirror(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Account = args[0]
	if cfg.MirrorRoot, err = filepath.Abs(args[1]); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	maxSize, err := cfg.MaxRepoSize()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	store, err := backend.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	source, err := collector.NewGitHubSource(collector.GitHubOptions{
		Token:   cfg.GitHubToken,
		BaseURL: cfg.GitHubAPIURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	driver := mirror.NewGitDriver(mirror.GitOptions{Timeout: cfg.GitTimeout, Logger: logger})
	engine := reconciler.NewEngine(reconciler.Config{
		Root:               cfg.MirrorRoot,
		MaxSizeBytes:       maxSize,
		HostConfigTemplate: cfg.CgitrcPath,
		Retries:            cfg.MirrorRetries,
		RetryBackoff:       retryBackoff,
	}, store, driver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := runner.New(source, engine, store, logger).Run(ctx, cfg.Account)
	// a listing that failed before any repository was seen has nothing to report
	if report != nil && (runErr == nil || report.Total() > 0) {
		printReport(cmd.OutOrStdout(), report)
	}
	if runErr != nil {
		return runErr
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("%d of %d repositories failed", report.Failed, report.Total())
	}
	return nil
}
