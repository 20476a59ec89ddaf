package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"gazepomdp/internal/config"
	"gazepomdp/internal/observability"
	"gazepomdp/pkg/gazepomdp"
)

// app carries per-invocation state so every NewRootCommand is independent.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "gazectl",
		Short:         "Train and evaluate gaze-pointing policies under perceptual and motor noise.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./gazectl.yaml if present)")
	flags.Uint64("seed", 0, "random seed; 0 derives one from the clock")
	flags.Int("workers", 1, "parallel rollout workers")
	flags.String("store", "memory", "store backend: memory|sqlite")
	flags.String("db-path", "gaze.db", "sqlite database path")
	flags.String("artifacts-dir", "runs", "directory holding run artifacts")
	flags.String("log-level", "info", "log level")
	for key, flag := range map[string]string{
		"run.seed":          "seed",
		"run.workers":       "workers",
		"storage.kind":      "store",
		"storage.db_path":   "db-path",
		"run.artifacts_dir": "artifacts-dir",
		"logger.level":      "log-level",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	root.AddCommand(
		newTrainCommand(a),
		newEvaluateCommand(a),
		newSimulateCommand(a),
		newRunsCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) initialize() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("gazectl")
		a.v.SetConfigType("yaml")
	}
	config.BindEnv(a.v)
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	observability.InitializeLogger(cfg.Logger)
	observability.GetLogger().Debug("configuration loaded", zap.String("config_file", a.v.ConfigFileUsed()))
	return nil
}

func (a *app) client() (*gazepomdp.Client, error) {
	return gazepomdp.New(gazepomdp.Options{Config: a.cfg, Logger: observability.GetLogger()})
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gazectl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		},
	}
}
