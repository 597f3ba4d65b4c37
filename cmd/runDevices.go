package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"promptrun/runner"
	"promptrun/session"
)

// runDevices visits devices one at a time. A failing device is logged and
// recorded in report; the rest still run. The returned error summarizes how
// many devices failed.
func runDevices(ctx context.Context, cfg *appConfig, devices []deviceConfig, log zerolog.Logger, report *yamlReport) error {
	var sink *runner.FileSink
	if *cfg.General.ToFile && !cfgNoFile {
		sink = &runner.FileSink{Dir: cfg.General.DataDir}
	}

	failed := 0
	for i := range devices {
		d := devices[i]
		dlog := deviceLogger(log, &d)
		dlog.Info().Msgf("processing device %d/%d", i+1, len(devices))

		start := nowFunc()
		outFile, res, err := runDevice(ctx, cfg, &d, log, sink)
		report.addDevice(d, outFile, res, err)
		if err != nil {
			failed++
			dlog.Error().Err(err).Msg("device failed")
			continue
		}
		dlog.Info().Dur("elapsed", time.Since(start)).Msg("device completed")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed", failed, len(devices))
	}
	return nil
}

// deviceLogger tags log with the device fields. The session logger adds the
// same fields itself, so it gets the untagged logger.
func deviceLogger(log zerolog.Logger, d *deviceConfig) zerolog.Logger {
	return log.With().Str("device", d.label()).Str("host", d.IPAddress).Logger()
}

// runDevice connects to one device, runs its script and always closes the
// session. It returns the output file written to, if any.
func runDevice(ctx context.Context, cfg *appConfig, d *deviceConfig, log zerolog.Logger, sink *runner.FileSink) (string, runner.Result, error) {
	tg, err := d.target()
	if err != nil {
		return "", runner.Result{}, err
	}
	prompt, err := d.prompt(cfg.General.Prompt)
	if err != nil {
		return "", runner.Result{}, err
	}
	// fail before connecting when the script is unusable
	if err := runner.CheckScript(tg.Script()); err != nil {
		return "", runner.Result{}, err
	}

	var (
		out    string
		rsink  runner.Sink
		result runner.Result
	)
	if sink != nil {
		out = sink.Path(tg)
		rsink = sink
	}

	s := session.New(tg, newDialerFunc(cfg.General), log, sessionOptionsFunc(cfg.General))
	policy := session.RetryPolicy{MaxAttempts: cfg.General.Retries, Delay: cfg.General.RetryDelay}
	r := runner.New(deviceLogger(log, d), prompt, d.commandTimeout(cfg.General.CommandTimeout), rsink)
	err = session.WithShell(ctx, s, policy, prompt, cfg.General.PromptTimeout, func(s *session.Session) error {
		var err error
		result, err = r.RunFile(s, tg.Script())
		return err
	})
	return out, result, err
}
