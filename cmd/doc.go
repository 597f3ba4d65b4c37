// Package cmd implements the promptrun command-line interface.
//
// The root command loads the YAML device inventory, then for each device
// opens an SSH session (package session), runs the device's command script
// (package runner) and appends cleaned output under <data_dir>/output. A
// failing device does not stop the others; the command exits non-zero when
// any device failed. The verify subcommand validates the inventory and the
// command scripts without connecting.
//
// Start with rootCmd.go for the flow, init.go for flag and environment
// wiring and runDevices.go for the per-device loop.
package cmd
