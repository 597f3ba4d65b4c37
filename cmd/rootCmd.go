package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"promptrun/logging"
)

var rootCmd = &cobra.Command{
	Use:   "promptrun",
	Short: "Run command scripts on SSH devices through an interactive shell",
	Long: "Connects to every device in the inventory over SSH, opens an interactive shell, runs the device's " +
		"command script line by line and appends the cleaned output to a per-device file.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, devices, err := prepareConfig()
		if err != nil {
			return err
		}

		logFile := cfg.General.LogFile
		if cfgLogFile != "" {
			logFile = cfgLogFile
		}
		log, closeLog, err := logging.New(logging.Options{Path: logFile, Level: cfgLogLevel, Console: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()

		runID := uuid.NewString()
		log = log.With().Str("run_id", runID).Logger()
		log.Info().Str("config", cfgConfigPath).Int("devices", len(devices)).Msg("run started")

		report := newYAMLReport(runID, cfgConfigPath)
		runErr := runDevices(context.Background(), cfg, devices, log, report)
		report.finish()

		reportPath := cfg.General.Report
		if cfgReport != "" {
			reportPath = cfgReport
		}
		if reportPath != "" {
			if err := saveYAMLReport(reportPath, report); err != nil {
				log.Error().Err(err).Str("path", reportPath).Msg("failed to write run report")
				if runErr == nil {
					runErr = err
				}
			}
		}

		if runErr != nil {
			log.Error().Err(runErr).Msg("run finished with failures")
			return runErr
		}
		log.Info().Msg("run finished")
		return nil
	},
}

// prepareConfig loads the inventory, applies flag overrides, validates it and
// selects the devices to run.
func prepareConfig() (*appConfig, []deviceConfig, error) {
	path := strings.TrimSpace(cfgConfigPath)
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if cfgDataDir != "" {
		cfg.General.DataDir = cfgDataDir
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	devices, err := cfg.selectDevices(cfgDevices)
	if err != nil {
		return nil, nil, err
	}
	return cfg, devices, nil
}
