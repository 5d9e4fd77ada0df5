package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/charge-telemetry/backend/internal/config"
	"github.com/charge-telemetry/backend/internal/replay"
	"github.com/charge-telemetry/backend/internal/signaldb"
	"github.com/charge-telemetry/backend/internal/storage"
)

const envPrefix = "CANREPLAY"

// cli carries the state shared by every subcommand.
type cli struct {
	fs afero.Fs
	v  *viper.Viper
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	c := &cli{fs: fs, v: v}

	root := &cobra.Command{
		Use:           "canreplay",
		Short:         "Replay recorded CAN traces through the charge tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "XML configuration file (defaults are used when empty)")
	root.PersistentFlags().String("data-dir", "", "directory holding the traces and the signal database")
	root.PersistentFlags().String("dbc", "", "signal database file")
	root.PersistentFlags().String("log-level", "warn", "log level")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(c.newRunCmd(), c.newLogsCmd())
	return root
}

// bind exposes a subcommand's flags through viper so CANREPLAY_* variables apply.
func (c *cli) bind(flags *pflag.FlagSet) error {
	return c.v.BindPFlags(flags)
}

// loadConfig builds the effective configuration. Flags and environment win over the file.
func (c *cli) loadConfig() (*config.AppConfig, error) {
	cfg := config.DefaultConfig()
	if path := c.v.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dir := c.v.GetString("data-dir"); dir != "" {
		cfg.CANData.DataDirectory = dir
	}
	if dbc := c.v.GetString("dbc"); dbc != "" {
		cfg.CANData.DBCFile = dbc
	}
	return cfg, nil
}

func (c *cli) logger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	level, err := logrus.ParseLevel(c.v.GetString("log-level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

func (c *cli) catalog(cfg *config.AppConfig) (*storage.Catalog, error) {
	catalog, err := cfg.Catalog(c.fs)
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	return catalog, nil
}

func (c *cli) engine(cfg *config.AppConfig, logger logrus.FieldLogger) (*replay.Engine, error) {
	catalog, err := c.catalog(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := signaldb.NewLoader(c.fs, 1)
	if err != nil {
		return nil, err
	}
	return replay.NewEngine(catalog, loader, cfg.EngineOptions(), logger, nil), nil
}
