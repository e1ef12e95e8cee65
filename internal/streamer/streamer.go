// Package streamer relays a long-running device log command to the console.
//
// A Streamer owns at most one child process. It pulls the child's stdout line
// by line and writes each line verbatim, in order, until the child closes its
// output or the context is cancelled. On cancellation it prints the closing
// banner once, right away, and asks the child to terminate with a single
// SIGTERM. If the child is still alive when the grace period expires it is
// killed; with no grace period Stream does not wait for it.
package streamer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/logging"
)

// ErrAlreadyRunning is returned when Stream is called while a child is active
var ErrAlreadyRunning = errors.New("log stream already running")

// DefaultBanner is printed once when the operator stops the stream
var DefaultBanner = "\n" + strings.Repeat("-", 60) + "\nlog monitoring stopped\n"

// Config configures a Streamer
type Config struct {
	// Out receives relayed lines and the closing banner
	Out io.Writer

	Logger *logging.Logger

	// GracePeriod bounds the wait after the termination request before the
	// child is killed. Zero sends the request and returns without waiting.
	GracePeriod time.Duration

	// Banner overrides DefaultBanner
	Banner string

	// Terminate sends the graceful termination request. Defaults to SIGTERM.
	Terminate func(*os.Process) error
}

// Streamer relays one child's stdout to Out
type Streamer struct {
	out       io.Writer
	logger    *logging.Logger
	grace     time.Duration
	banner    string
	terminate func(*os.Process) error

	mu    sync.Mutex
	state State
}

// New creates a streamer
func New(cfg Config) *Streamer {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Banner == "" {
		cfg.Banner = DefaultBanner
	}
	if cfg.Terminate == nil {
		cfg.Terminate = terminate
	}
	return &Streamer{
		out:       cfg.Out,
		logger:    cfg.Logger,
		grace:     cfg.GracePeriod,
		banner:    cfg.Banner,
		terminate: cfg.Terminate,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state
func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Streamer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Stream launches c and relays its stdout until end-of-stream or ctx is done.
// Operator cancellation is not an error. A launch failure is returned as is.
//
// The closing banner is printed as soon as ctx is done; lines that arrive
// after it are dropped. With a zero grace period Stream returns right after
// the termination request and the child is reaped in the background.
func (s *Streamer) Stream(ctx context.Context, c adb.Command) (*Result, error) {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.state = StateRunning
	s.mu.Unlock()
	defer s.setState(StateStopped)

	// childCtx is also cancelled when the console goes away
	childCtx, stopChild := context.WithCancel(ctx)
	defer stopChild()

	sink := &gate{out: s.out}

	var terminations atomic.Int32
	abandon := make(chan struct{})
	cmd := exec.CommandContext(childCtx, c.Path, c.Args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error {
		terminations.Add(1)
		s.logger.Info("requesting log stream termination", map[string]interface{}{
			"pid": cmd.Process.Pid,
		})
		err := s.terminate(cmd.Process)
		if s.grace == 0 && ctx.Err() != nil {
			close(abandon)
		}
		return err
	}
	cmd.WaitDelay = s.grace

	stderr := &stderrLogger{logger: s.logger}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stream output: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start log stream %s: %w", c, err)
	}

	result := &Result{
		Command:   c.String(),
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}
	s.logger.Info("log stream started", map[string]interface{}{
		"pid":     result.PID,
		"command": result.Command,
	})

	announced := make(chan struct{})
	stopAnnounce := context.AfterFunc(ctx, func() {
		defer close(announced)
		sink.close(s.banner)
	})

	relayed := make(chan relayResult, 1)
	go func() {
		n, err := s.relay(stdout, sink)
		relayed <- relayResult{lines: n, err: err}
	}()

	var rr relayResult
	detached := false
	select {
	case rr = <-relayed:
	case <-abandon:
		select {
		case rr = <-relayed:
		default:
			detached = true
		}
	}
	if rr.err != nil {
		stopChild()
	}

	// cancellation counts only if the banner went out
	cancelled := !stopAnnounce()
	if cancelled {
		<-announced
	}

	if detached {
		result.Lines = sink.count()
		result.ExitCode = -1
		result.Reason = ReasonCancelled
		result.StoppedAt = time.Now()
		result.TerminationRequests = int(terminations.Load())
		go func() {
			_ = cmd.Wait()
			stderr.Flush()
		}()
		s.logger.Warn("log stream left to exit on its own", map[string]interface{}{
			"pid":      result.PID,
			"lines":    result.Lines,
			"reason":   string(result.Reason),
			"duration": result.Duration().Round(time.Millisecond).String(),
		})
		return result, nil
	}

	waitErr := cmd.Wait()
	stderr.Flush()
	result.Lines = rr.lines
	result.StoppedAt = time.Now()
	result.TerminationRequests = int(terminations.Load())

	var ws syscall.WaitStatus
	haveStatus := false
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		ws, haveStatus = cmd.ProcessState.Sys().(syscall.WaitStatus)
		if haveStatus && ws.Signaled() {
			result.Signal = signalName(ws.Signal())
		}
	}
	result.Reason = classify(cancelled, ws, haveStatus)

	fields := map[string]interface{}{
		"pid":       result.PID,
		"lines":     result.Lines,
		"exit_code": result.ExitCode,
		"reason":    string(result.Reason),
		"duration":  result.Duration().Round(time.Millisecond).String(),
	}
	if result.Signal != "" {
		fields["signal"] = result.Signal
	}

	if rr.err != nil {
		result.Reason = ReasonError
		s.logger.Error("log stream relay failed", fields)
		return result, rr.err
	}

	switch {
	case result.Reason == ReasonKilled:
		s.logger.Warn("log stream did not exit within grace period, killed", fields)
	case !cancelled && waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay):
		// The bridge exits non-zero when no device is attached; that is
		// reported, not escalated.
		s.logger.Warn("log stream exited with error", fields)
	default:
		s.logger.Info("log stream stopped", fields)
	}
	return result, nil
}

type relayResult struct {
	lines int
	err   error
}

// relay copies stdout to the console one line at a time
func (s *Streamer) relay(r io.Reader, sink *gate) (int, error) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if werr := sink.write(line); werr != nil {
				return sink.count(), fmt.Errorf("failed to write log line: %w", werr)
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			return sink.count(), nil
		}
		return sink.count(), fmt.Errorf("failed to read log stream: %w", err)
	}
}

// gate serializes console writes. Once closed with the banner, later lines
// are dropped so the banner stays the last thing printed.
type gate struct {
	mu     sync.Mutex
	out    io.Writer
	lines  int
	closed bool
}

func (g *gate) write(line []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	if _, err := g.out.Write(line); err != nil {
		return err
	}
	g.lines++
	return nil
}

func (g *gate) close(banner string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	io.WriteString(g.out, banner)
}

func (g *gate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lines
}

// terminate asks the child to exit. Signal delivery failure other than the
// process already being gone falls back to Kill, which is the only portable
// way to stop a process on platforms without SIGTERM.
func terminate(p *os.Process) error {
	err := p.Signal(syscall.SIGTERM)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return p.Kill()
}

// stderrLogger logs each line the child writes to stderr
type stderrLogger struct {
	logger *logging.Logger
	buf    bytes.Buffer
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf.Next(idx+1)), "\r\n")
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs a trailing line without newline
func (w *stderrLogger) Flush() {
	if w.buf.Len() > 0 {
		w.emit(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}

func (w *stderrLogger) emit(line string) {
	if line == "" {
		return
	}
	w.logger.Warn("device bridge stderr", map[string]interface{}{"line": line})
}
