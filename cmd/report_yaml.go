package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"promptrun/runner"
)

// yamlReport summarizes one invocation: which devices were visited, which
// commands ran on each and how each device ended. Command output itself
// lives in the per-device output files.
type yamlReport struct {
	RunID    string       `yaml:"run_id"`
	Config   string       `yaml:"config"`
	Started  string       `yaml:"started"`
	Finished string       `yaml:"finished,omitempty"`
	Failed   int          `yaml:"failed"`
	Devices  []yamlDevice `yaml:"devices"`
}

type yamlDevice struct {
	Name       string          `yaml:"name,omitempty"`
	Host       string          `yaml:"host"`
	Port       int             `yaml:"port,omitempty"`
	Status     string          `yaml:"status"`
	Error      string          `yaml:"error,omitempty"`
	OutputFile string          `yaml:"output_file,omitempty"`
	Results    []yamlCmdResult `yaml:"results,omitempty"`
}

// yamlCmdResult records the outcome of a single command execution.
type yamlCmdResult struct {
	Command  string `yaml:"command"`
	Duration string `yaml:"duration"`
	Error    string `yaml:"error,omitempty"`
}

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

func newYAMLReport(runID, configPath string) *yamlReport {
	return &yamlReport{
		RunID:   runID,
		Config:  configPath,
		Started: nowFunc().Format(time.RFC3339),
		Devices: []yamlDevice{},
	}
}

// addDevice records the outcome for d. res may be empty when the device
// failed before any command ran.
func (r *yamlReport) addDevice(d deviceConfig, outputFile string, res runner.Result, err error) {
	dev := yamlDevice{
		Name:       d.Hostname,
		Host:       d.IPAddress,
		Port:       d.Port,
		Status:     statusOK,
		OutputFile: outputFile,
	}
	if err != nil {
		dev.Status = statusFailed
		dev.Error = err.Error()
		r.Failed++
	}
	for _, c := range res.Commands {
		cr := yamlCmdResult{Command: c.Command, Duration: c.Duration.Round(time.Millisecond).String()}
		if c.Err != nil {
			cr.Error = c.Err.Error()
		}
		dev.Results = append(dev.Results, cr)
	}
	r.Devices = append(r.Devices, dev)
}

func (r *yamlReport) finish() {
	r.Finished = nowFunc().Format(time.RFC3339)
}

// writeYAMLReport serializes the report to YAML with indentation and writes to
// the provided writer in a buffered manner for efficiency.
func writeYAMLReport(w io.Writer, r *yamlReport) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		_ = enc.Close()
		return err
	}
	_ = enc.Close()
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(buf.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}

// saveYAMLReport writes the report to path, replacing any previous report.
func saveYAMLReport(path string, r *yamlReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := writeYAMLReport(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
