package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"model-artifact-registry/internal/bootstrap"
	"model-artifact-registry/internal/config"
)

var version = "dev"

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "modelreg",
		Short:         "Local registry for trained model artifacts",
		Long:          `modelreg stores model files under a versioned directory tree and keeps their metadata (metrics, dataset, input shape) in a registry file or database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("storage", "", "artifact storage root (default ./models)")
	flags.String("metadata", "", "metadata file for the yaml backend (default ./registry.yaml)")
	flags.String("backend", "", "metadata backend: yaml, sqlite or postgres")
	flags.String("best-metric", "", "metric used to rank versions for the \"best\" selector")
	flags.Bool("lower-is-better", false, "rank the best metric ascending")
	flags.String("log-level", "", "log level (default warn)")

	_ = a.v.BindPFlag("REGISTRY_STORAGE_PATH", flags.Lookup("storage"))
	_ = a.v.BindPFlag("REGISTRY_METADATA_FILE", flags.Lookup("metadata"))
	_ = a.v.BindPFlag("REGISTRY_BACKEND", flags.Lookup("backend"))
	_ = a.v.BindPFlag("REGISTRY_BEST_METRIC", flags.Lookup("best-metric"))
	_ = a.v.BindPFlag("REGISTRY_BEST_LOWER_IS_BETTER", flags.Lookup("lower-is-better"))
	_ = a.v.BindPFlag("LOGGER_LEVEL", flags.Lookup("log-level"))

	root.AddCommand(
		newRegisterCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newFamiliesCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	config.SetDefaults(a.v)
	a.v.SetDefault("LOGGER_LEVEL", "warn")
	a.v.AutomaticEnv()

	file := a.cfgFile
	if file == "" {
		file = a.v.GetString("CONFIG_FILE")
	}
	if err := config.ReadConfigFile(a.v, file); err != nil {
		return err
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	bootstrap.InitLogger(cfg.Logger)
	return nil
}

// withRegistry opens the configured registry for the duration of fn.
func (a *app) withRegistry(ctx context.Context, fn func(*bootstrap.Registry) error) error {
	reg, err := bootstrap.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer reg.Close()
	return fn(reg)
}
