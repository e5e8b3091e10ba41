package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/toasts-app/toasts/internal/client"
	"github.com/toasts-app/toasts/internal/config"
	"github.com/toasts-app/toasts/internal/desktop"
	"github.com/toasts-app/toasts/internal/logging"
	"github.com/toasts-app/toasts/internal/poller"
	"github.com/toasts-app/toasts/internal/stats"
)

var (
	version  = "0.1.0"
	cfgFile  string
	logLevel string
	force    bool
)

var rootCmd = &cobra.Command{
	Use:   "toasts",
	Short: "Desktop notifications for your web accounts",
	Long:  `Toasts polls your accounts (GitHub for now) and shows new notifications on the desktop.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runAgent())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start polling (the default)",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runAgent())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("toasts v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/toasts/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override general.log_level (trace, debug, info, warn, error)")
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// fatal writes the diagnostic line to w and returns the failure exit code.
func fatal(w io.Writer, msg string) int {
	fmt.Fprintln(w, "ERROR(toasts) - "+msg)
	return 1
}

// runAgent runs the poll loop until interrupted and returns the exit code.
func runAgent() int {
	fmt.Println("Press Control-C to quit")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path, err := configPath()
	if err != nil {
		return fatal(os.Stderr, err.Error())
	}

	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		// No usable config: report with the built-in display settings.
		log := logging.New(os.Stderr, logLevel)
		n := newNotifier(config.Default(), log)
		defer n.Close()
		msg := fmt.Sprintf("Could not load the config file (%s): %v. Please fix it and restart the app.", path, err)
		if showErr := n.ShowError(ctx, msg); showErr != nil {
			log.Error().Err(showErr).Msg("could not show error notification")
		}
		return fatal(os.Stderr, err.Error())
	}

	level := cfg.General.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log := logging.New(os.Stderr, level)
	if created {
		log.Info().Str("path", path).Msg("wrote default config file")
	}
	log.Info().
		Str("version", version).
		Str("config", path).
		Strs("clients", cfg.General.Clients).
		Int("check_every_min", cfg.General.CheckEvery).
		Msg("toasts starting")

	n := newNotifier(cfg, log)
	defer n.Close()

	var watcher poller.ConfigWatcher
	if w, err := config.NewWatcher(path, log); err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
	} else {
		defer w.Close()
		watcher = w
	}

	p, err := poller.Start(ctx, cfg, client.DefaultRegistry(), n, poller.Options{
		Logger:  log,
		Stats:   stats.New(),
		Watcher: watcher,
	})
	if err != nil {
		return exitCode(ctx, os.Stderr, err)
	}
	log.Info().Strs("clients", p.Clients()).Msg("polling")
	if err := p.Run(ctx); err != nil {
		return exitCode(ctx, os.Stderr, err)
	}
	log.Info().Msg("toasts shutting down")
	return 0
}

// exitCode maps the poller's result to the process exit status. An
// interrupted run exits 0 whatever err is.
func exitCode(ctx context.Context, w io.Writer, err error) int {
	if ctx.Err() != nil {
		return 0
	}
	var fe *poller.FatalError
	if errors.As(err, &fe) {
		return fatal(w, fe.Detail)
	}
	return fatal(w, err.Error())
}

func newNotifier(cfg *config.Config, log zerolog.Logger) *desktop.Notifier {
	return desktop.New(desktop.NewBackend(log), desktop.Options{
		Timeout:  cfg.General.DisplayTimeout(),
		IconsDir: cfg.General.IconsDir,
		Logger:   log,
	})
}
