// Package proc implements spec.md 4.B's process runner: spawning external
// commands, streaming their output to a logger line-by-line, and surfacing
// exit status with secrets scrubbed from any returned error.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"sort"

	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/xerrors"
)

// Options configures a spawned process. Env, if non-nil, replaces the
// process's inherited environment entirely (exec.Cmd semantics).
type Options struct {
	Dir string
	Env map[string]string
}

// scrub returns a copy of opts suitable for embedding in an error: Env is
// replaced by the sorted list of its key names only, values are never
// retained.
func (o Options) scrub() map[string]interface{} {
	m := map[string]interface{}{"dir": o.Dir}
	if o.Env != nil {
		keys := make([]string, 0, len(o.Env))
		for k := range o.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m["env"] = keys
	}
	return m
}

func (o Options) environ() []string {
	if o.Env == nil {
		return nil
	}
	env := make([]string, 0, len(o.Env))
	for k, v := range o.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// Spawn runs command with args, streaming stdout and stderr line-by-line to
// logger.Debugw (prefixed "{command}: {line}"), and returns accumulated
// stdout on success.
//
// command must be non-empty, otherwise Spawn fails with
// *tagerr.InvalidArgument without attempting to run anything. A non-zero
// exit, or a failure to start the process at all, fails with
// *tagerr.ProcessFailed carrying the exit code (or -1 for a spawn failure),
// the full argv, and Options with Env reduced to its sorted key list.
func Spawn(ctx context.Context, command string, args []string, opts Options, logger logging.Logger) ([]byte, error) {
	if command == "" {
		return nil, &tagerr.InvalidArgument{Msg: "proc.Spawn: command must be a non-empty string"}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.environ()

	var stdout bytes.Buffer
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &tagerr.ProcessFailed{Code: -1, Args: cmd.Args, Options: opts.scrub(), Cause: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &tagerr.ProcessFailed{Code: -1, Args: cmd.Args, Options: opts.scrub(), Cause: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &tagerr.ProcessFailed{Code: -1, Args: cmd.Args, Options: opts.scrub(), Cause: err}
	}

	// Stream both pipes to the logger, and tee stdout into our buffer. We
	// must drain both pipes concurrently and wait for both to hit EOF before
	// calling cmd.Wait, or the child can deadlock on a full pipe buffer; this
	// also satisfies the "wait until both streams have delivered all
	// buffered lines" requirement before resolution.
	done := make(chan struct{}, 2)
	go func() {
		streamLines(io.TeeReader(stdoutPipe, &stdout), command, logger)
		done <- struct{}{}
	}()
	go func() {
		streamLines(stderrPipe, command, logger)
		done <- struct{}{}
	}()
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return nil, &tagerr.ProcessFailed{Code: code, Args: cmd.Args, Options: opts.scrub(), Cause: err}
	}

	return stdout.Bytes(), nil
}

func streamLines(r io.Reader, command string, logger logging.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Debugw(command+": "+scanner.Text(), "command", command)
	}
	// A scan error here (e.g. a line exceeding the buffer) is not fatal to
	// the overall spawn; surface it at debug level and move on, matching
	// the teacher's habit of logging pipe issues rather than failing the
	// whole build step over them.
	if err := scanner.Err(); err != nil {
		logger.Debugw(xerrors.Errorf("%s: reading output: %w", command, err).Error())
	}
}
