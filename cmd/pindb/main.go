// Command pindb loads, validates, searches and exports the excavator pin
// dimensions dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/data-power-io/excavator-pins/internal/config"
	"github.com/data-power-io/excavator-pins/internal/logging"
	"github.com/data-power-io/excavator-pins/internal/metrics"
	"github.com/data-power-io/excavator-pins/internal/toolkit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := a.execute(ctx, a.rootCmd()); err != nil {
		a.log().Error("Command failed", zap.Error(err))
		a.log().Sync()
		stop()
		os.Exit(1)
	}
}

// execute runs the command and then writes the metrics file and flushes the
// logs, whether the command failed or not
func (a *app) execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if terr := a.teardown(); terr != nil {
		a.log().Error("Failed to write metrics file", zap.String("path", a.metricsFile), zap.Error(terr))
		if err == nil {
			err = terr
		}
	}
	return err
}

// app holds the global flags and the objects built from them
type app struct {
	configPath   string
	dataLocation string
	metricsFile  string
	verbose      bool
	timeout      time.Duration

	cfg    *config.Config
	logger *logging.Logger
	svc    *toolkit.Service
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pindb",
		Short:         "Excavator pin dimensions dataset toolkit",
		Long:          `Load, validate, search and export the excavator pin dimensions dataset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVarP(&a.dataLocation, "data", "d", "", "dataset location, a local path or s3://bucket/key (default $"+config.KeyData+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to the console")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.DurationVar(&a.timeout, "timeout", 5*time.Minute, "overall command timeout")

	root.AddCommand(
		a.validateCmd(),
		a.statsCmd(),
		a.searchCmd(),
		a.lookupCmd(),
		a.manufacturersCmd(),
		a.exportCmd(),
		a.checkCmd(),
		a.schemaCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Set(config.KeyData, a.dataLocation)
	a.cfg = cfg

	logCfg := logging.Config{
		Level:      cfg.GetString(config.KeyLogLevel, "info"),
		Format:     cfg.GetString(config.KeyLogFormat, "json"),
		OutputPath: cfg.GetString(config.KeyLogOutput, ""),
		Fields:     map[string]string{"service": "pindb"},
	}
	if a.verbose {
		logCfg.Level = "debug"
		logCfg.Format = "console"
		logCfg.Development = true
	}

	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	a.svc = toolkit.NewService(cfg, logger)
	return nil
}

func (a *app) teardown() error {
	defer a.log().Sync()
	if a.metricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.metricsFile); err != nil {
		return err
	}
	a.log().Debug("Wrote metrics file", zap.String("path", a.metricsFile))
	return nil
}

func (a *app) log() *logging.Logger {
	if a.logger == nil {
		a.logger = logging.NewDefaultLogger()
	}
	return a.logger
}

// context bounds a command by the global timeout
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

func (a *app) location() (string, error) {
	loc := a.cfg.GetString(config.KeyData, "")
	if loc == "" {
		return "", fmt.Errorf("no dataset location: use --data or set %s", config.KeyData)
	}
	return loc, nil
}
