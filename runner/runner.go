// Package runner feeds a command script through an interactive session, one
// command at a time, and hands each cleaned output to a Sink.
package runner

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"promptrun/logging"
	"promptrun/session"
)

// Executor is the part of *session.Session the runner drives.
type Executor interface {
	Target() session.Target
	ExecuteCommand(cmd string, prompt *regexp.Regexp, timeout time.Duration) (string, error)
	Close()
}

// CommandResult records one executed command.
type CommandResult struct {
	Command  string
	Output   string
	Duration time.Duration
	Err      error
}

// Result lists the commands attempted, in order. A failed command is the
// last entry.
type Result struct {
	Commands []CommandResult
}

// Runner executes scripts with a fixed prompt and per-command timeout.
type Runner struct {
	log     zerolog.Logger
	prompt  *regexp.Regexp
	timeout time.Duration
	sink    Sink
}

// New returns a Runner. sink may be nil, in which case output is only
// returned in the Result.
func New(log zerolog.Logger, prompt *regexp.Regexp, timeout time.Duration, sink Sink) *Runner {
	return &Runner{log: log, prompt: prompt, timeout: timeout, sink: sink}
}

// Run executes commands in order and closes sess when done. The first
// failing command stops the run.
func (r *Runner) Run(sess Executor, commands []string) (Result, error) {
	defer sess.Close()
	return r.run(sess, commands)
}

// RunFile loads the script at path and runs it. sess is closed even when
// the script cannot be read.
func (r *Runner) RunFile(sess Executor, path string) (Result, error) {
	defer sess.Close()
	cmds, err := LoadScript(path)
	if err != nil {
		r.log.Error().Err(err).Str("script", path).Msg("command script unavailable")
		return Result{}, err
	}
	return r.run(sess, cmds)
}

func (r *Runner) run(sess Executor, commands []string) (Result, error) {
	var res Result
	target := sess.Target()
	for i, cmd := range commands {
		r.log.Info().Msgf("[%d/%d] %s", i+1, len(commands), logging.Sanitize(cmd))

		start := time.Now()
		out, err := sess.ExecuteCommand(cmd, r.prompt, r.timeout)
		cr := CommandResult{Command: cmd, Output: out, Duration: time.Since(start), Err: err}
		res.Commands = append(res.Commands, cr)
		if err != nil {
			return res, fmt.Errorf("command %d/%d %q: %w", i+1, len(commands), cmd, err)
		}
		if r.sink != nil {
			if err := r.sink.Write(target, out); err != nil {
				res.Commands[len(res.Commands)-1].Err = err
				return res, fmt.Errorf("command %d/%d %q: %w", i+1, len(commands), cmd, err)
			}
		}
	}
	r.log.Info().Int("commands", len(commands)).Msg("script completed")
	return res, nil
}
