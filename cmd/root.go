// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/config"
	"github.com/xkilldash9x/visa-autofill/internal/observability"
	"github.com/xkilldash9x/visa-autofill/internal/settings"
)

type contextKey string

const envPrefix = "AUTOFILL"

const cliStateKey contextKey = "cli_state"

// cliState is what PersistentPreRunE resolves for subcommands.
type cliState struct {
	cfg      *config.Config
	settings *settings.Store
}

// NewRootCommand builds a fresh command tree. Every call is independent, so
// tests can execute it repeatedly.
func NewRootCommand() *cobra.Command {
	var cfgFile, settingsPath string

	root := &cobra.Command{
		Use:           "autofill",
		Short:         "Fills IRCC visa application forms from your questionnaire answers.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			if err := initializeConfig(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "visa-autofill"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			observability.InitializeLogger(cfg.Logger())
			logger := observability.GetLogger()

			store, err := settings.Open(settingsPath, logger)
			if err != nil {
				return err
			}
			// Saved settings win over the config file; command flags win over both.
			store.ApplyTo(cfg)

			logger.Debug("Configuration loaded",
				zap.String("version", Version),
				zap.String("config_file", v.ConfigFileUsed()),
				zap.String("settings", store.Path()))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, cliStateKey, &cliState{cfg: cfg, settings: store}))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml, then ~/.autofill/config.yaml)")
	root.PersistentFlags().StringVar(&settingsPath, "settings", settings.DefaultPath, "persisted settings file")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newRunCmd(),
		newFillCmd(),
		newAnswersCmd(),
		newSessionCmd(),
		newConfigCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with ctx, which should be cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig wires the config file and AUTOFILL_ environment variables
// into v. A missing config file is not an error.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if dir, err := homedir.Expand("~/.autofill"); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func stateFrom(cmd *cobra.Command) (*cliState, error) {
	st, ok := cmd.Context().Value(cliStateKey).(*cliState)
	if !ok || st == nil {
		return nil, errors.New("configuration not initialized")
	}
	return st, nil
}
