package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gitlab.com/dutbench.net/internal/adapter/logging"
	"gitlab.com/dutbench.net/internal/config"
)

// app is what every subcommand shares once the environment is loaded
type app struct {
	cfg    *config.AppConfig
	logger *logging.ZapLogger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var env string
	a := &app{}

	root := &cobra.Command{
		Use:          "dutbench",
		Short:        "DUT bench controller",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(env); err != nil {
				return err
			}
			a.cfg = config.NewSystemConfig()
			level := a.cfg.LogConfig.Level
			if a.cfg.DebugMode {
				level = "debug"
			}
			a.logger = logging.NewZapLogger(level, logging.WithFile(
				a.cfg.LogConfig.File,
				a.cfg.LogConfig.MaxSizeMB,
				a.cfg.LogConfig.MaxBackups,
			))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&env, "env", "", "load <env>.env before reading configuration")

	root.AddCommand(
		newServeCommand(a),
		newBatchCommand(a),
		newSendCommand(a),
		newNormalizeCommand(a),
		newUpdateDefaultsCommand(a),
		newStatusCommand(a),
		newTokenCommand(a),
	)
	return root
}

func loadEnv(env string) error {
	if env == "" {
		return nil
	}
	if err := godotenv.Load(env + ".env"); err != nil {
		return fmt.Errorf("error loading %s.env file: %w", env, err)
	}
	return nil
}
