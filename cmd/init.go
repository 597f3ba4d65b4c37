package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PROMPTRUN"

// init registers the persistent flags shared by the root command and verify,
// binds them to PROMPTRUN_* environment variables and adds subcommands.
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgConfigPath, "config", "c", defaultConfigPath, "Path to the YAML device inventory")
	pf.StringVar(&cfgDataDir, "data-dir", "", "Override general.data_dir (output files go to <data-dir>/output)")
	pf.StringVar(&cfgLogFile, "log-file", "", "Override general.log_file")
	pf.StringVar(&cfgLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&cfgReport, "report", "", "Write a YAML run report to this path")
	pf.StringSliceVar(&cfgDevices, "device", nil, "Only run the named devices (hostname or address; comma-separated or repeated)")
	pf.BoolVar(&cfgNoFile, "no-file", false, "Do not write per-device output files")

	for _, name := range []string{"config", "data-dir", "log-file", "log-level", "report", "device", "no-file"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	configureEnv()

	// Pull in environment overrides on init
	cobra.OnInitialize(func() {
		if v := viper.GetString("config"); v != "" {
			cfgConfigPath = v
		}
		if v := viper.GetString("data-dir"); v != "" {
			cfgDataDir = v
		}
		if v := viper.GetString("log-file"); v != "" {
			cfgLogFile = v
		}
		if v := viper.GetString("log-level"); v != "" {
			cfgLogLevel = v
		}
		if v := viper.GetString("report"); v != "" {
			cfgReport = v
		}
		if v := splitList(viper.GetStringSlice("device")); len(v) > 0 {
			cfgDevices = v
		}
		if viper.IsSet("no-file") {
			cfgNoFile = viper.GetBool("no-file")
		}
	})

	rootCmd.AddCommand(verifyCmd)
}

// splitList splits every element on commas and drops blanks, so
// PROMPTRUN_DEVICE=a,b selects the same devices as --device a,b.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// configureEnv maps flag names to environment variables, e.g. data-dir to
// PROMPTRUN_DATA_DIR.
func configureEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
