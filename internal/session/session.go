// Package session runs the operator flow: clear the device log, print what to
// watch for, then relay the filtered log until it ends or is interrupted.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/logging"
	"github.com/psantana5/logcheck/internal/report"
	"github.com/psantana5/logcheck/internal/streamer"
)

// CommandRunner runs a one-shot command
type CommandRunner interface {
	Run(ctx context.Context, c adb.Command) (string, error)
}

// LogStreamer relays a long-running command
type LogStreamer interface {
	Stream(ctx context.Context, c adb.Command) (*streamer.Result, error)
}

var (
	rule      = strings.Repeat("=", 60)
	separator = strings.Repeat("-", 60)
)

// Config wires a session together
type Config struct {
	ID       string
	Bridge   *adb.Bridge
	Filter   adb.Filter
	Clear    bool
	Hints    []string
	Out      io.Writer
	Runner   CommandRunner
	Streamer LogStreamer
	Metrics  *report.Metrics
	Logger   *logging.Logger
}

// Outcome records what happened in each step
type Outcome struct {
	Cleared  bool
	ClearErr error
	Stream   *streamer.Result
}

// Session is a single clear-then-stream run
type Session struct {
	cfg    Config
	logger *logging.Logger
}

// New creates a session
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Session{
		cfg:    cfg,
		logger: cfg.Logger.WithField("session", cfg.ID),
	}
}

// Run executes the flow. A failed clear never aborts the run; a failed
// stream launch is returned.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	out := s.cfg.Out
	outcome := &Outcome{}

	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Android log check: %s\n", s.cfg.Filter)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	step := 1
	if s.cfg.Clear {
		outcome.Cleared = true
		outcome.ClearErr = s.clear(ctx, step)
		step++
	}

	if ctx.Err() != nil {
		s.logger.Info("interrupted before streaming")
		return outcome, nil
	}

	fmt.Fprintf(out, "%d. Watching logs (press Ctrl+C to stop)\n", step)
	if len(s.cfg.Hints) > 0 {
		fmt.Fprintln(out, "   Watch for:")
		for _, hint := range s.cfg.Hints {
			fmt.Fprintf(out, "   - %s\n", hint)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, separator)

	res, err := s.cfg.Streamer.Stream(ctx, s.cfg.Bridge.Stream(s.cfg.Filter))
	outcome.Stream = res
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordStream(res)
	}
	if err != nil {
		return outcome, fmt.Errorf("log stream failed: %w", err)
	}
	return outcome, nil
}

func (s *Session) clear(ctx context.Context, step int) error {
	fmt.Fprintf(s.cfg.Out, "%d. Clearing previous logs...\n", step)

	_, err := s.cfg.Runner.Run(ctx, s.cfg.Bridge.Clear())
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordCommand("clear", err)
	}
	if err != nil {
		s.logger.Warn("log clear failed, continuing", map[string]interface{}{"error": err.Error()})
	} else {
		fmt.Fprintln(s.cfg.Out, "   done")
	}
	fmt.Fprintln(s.cfg.Out)
	return err
}
