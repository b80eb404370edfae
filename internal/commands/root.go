// Package commands implements fintrackctl, a command line client for the
// finance backend.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fintrack/internal/api"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

// Version is set at build time.
var Version = "dev"

// settings are resolved from flags, FINTRACK_* env vars and an optional
// config file, in that order of precedence.
type settings struct {
	BackendURL   string        `mapstructure:"backend_url"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Output       string        `mapstructure:"output"`
	LogLevel     string        `mapstructure:"log_level"`
	AMQPURL      string        `mapstructure:"amqp_url"`
	AMQPExchange string        `mapstructure:"amqp_exchange"`
}

type app struct {
	v      *viper.Viper
	cfg    settings
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "fintrackctl",
		Short:   "Manage transactions and budgets from the command line",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./fintrackctl.yaml or ~/.config/fintrack/fintrackctl.yaml)")
	flags.String("backend-url", "http://localhost:5000", "finance backend base URL")
	flags.String("username", "", "log in as this user before running the command")
	flags.String("password", "", "password for --username")
	flags.Duration("timeout", 10*time.Second, "per-request timeout")
	flags.StringP("output", "o", "table", "output format: table or json")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("amqp-url", "", "AMQP broker URL for event commands")
	flags.String("amqp-exchange", "fintrack", "exchange carrying change events")

	for _, name := range []string{"backend-url", "username", "password", "timeout", "output", "log-level", "amqp-url", "amqp-exchange"} {
		_ = a.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
	a.v.SetEnvPrefix("FINTRACK")
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		newTransactionsCommand(a),
		newBudgetsCommand(a),
		newOverviewCommand(a),
		newEventsCommand(a),
	)

	return rootCmd
}

func (a *app) load(cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("fintrackctl")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "fintrack"))
		}
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	switch a.cfg.Output {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q: use table or json", a.cfg.Output)
	}

	lvl := log.ParseLevel(a.cfg.LogLevel)
	a.logger = log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}),
	})
	return nil
}

// client builds an API client, logging in first when a username is set.
func (a *app) client(ctx context.Context) (*api.Client, error) {
	c, err := api.New(a.cfg.BackendURL,
		api.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}),
		api.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if a.cfg.Username != "" {
		if err := c.Login(ctx, a.cfg.Username, a.cfg.Password); err != nil {
			return nil, fmt.Errorf("login as %s: %w", a.cfg.Username, err)
		}
		if len(c.Cookies()) == 0 {
			a.logger.Warn("Backend issued no session cookie", "username", a.cfg.Username)
		}
	}
	return c, nil
}

// outcome prints the view's notification and turns a failure into an error.
func outcome(cmd *cobra.Command, n *view.Notifier, err error) error {
	note, ok := n.Take()
	if !ok {
		return err
	}
	if note.Level == view.LevelError {
		if err == nil {
			return errors.New(note.Message)
		}
		return fmt.Errorf("%s: %w", note.Message, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), note.Message)
	return err
}
