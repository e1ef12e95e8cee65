package streamer

import (
	"syscall"
	"time"
)

// State is the streamer lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// StopReason describes why a stream left the running state
type StopReason string

const (
	ReasonEOF       StopReason = "eof"       // child closed its output
	ReasonCancelled StopReason = "cancelled" // operator interrupt, child exited after SIGTERM
	ReasonKilled    StopReason = "killed"    // grace period expired, child was SIGKILLed
	ReasonError     StopReason = "error"     // read or console write failure
)

// Result is the outcome of one stream session. Set once when the child is reaped.
type Result struct {
	Command   string     `json:"command"`
	PID       int        `json:"pid"`
	Lines     int        `json:"lines"`
	ExitCode  int        `json:"exit_code"`
	Signal    string     `json:"signal,omitempty"`
	Reason    StopReason `json:"reason"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt time.Time  `json:"stopped_at"`

	// TerminationRequests counts graceful termination signals sent to the child
	TerminationRequests int `json:"termination_requests"`
}

// Duration returns how long the child was streaming
func (r *Result) Duration() time.Duration {
	if r.StoppedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.StoppedAt.Sub(r.StartedAt)
}

// classify determines the stop reason from how the stream ended
func classify(cancelled bool, ws syscall.WaitStatus, haveStatus bool) StopReason {
	if haveStatus && ws.Signaled() && ws.Signal() == syscall.SIGKILL {
		return ReasonKilled
	}
	if cancelled {
		return ReasonCancelled
	}
	return ReasonEOF
}

// signalName returns a short name for the signals a stream can die from
func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGPIPE:
		return "SIGPIPE"
	default:
		return sig.String()
	}
}
