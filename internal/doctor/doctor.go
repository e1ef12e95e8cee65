// Package doctor inspects the host for what a log session needs: the device
// bridge executable, its server process and an attached device. It never
// changes device state.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/psantana5/logcheck/internal/adb"
)

// Status of a single check
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one row of the doctor report
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Runner runs a one-shot command
type Runner interface {
	Run(ctx context.Context, c adb.Command) (string, error)
}

// Process is one entry of the host process table
type Process struct {
	PID  int32
	Name string
	Args []string
}

// ProcessLister returns the running processes
type ProcessLister func(ctx context.Context) ([]Process, error)

// Doctor runs the host checks
type Doctor struct {
	bridge    *adb.Bridge
	runner    Runner
	lookPath  func(string) (string, error)
	processes ProcessLister
}

// New creates a doctor using the real PATH and process table
func New(bridge *adb.Bridge, runner Runner) *Doctor {
	return &Doctor{
		bridge:    bridge,
		runner:    runner,
		lookPath:  exec.LookPath,
		processes: listProcesses,
	}
}

// Run executes every check in order. Later checks still run when earlier
// ones fail so the operator sees the whole picture.
func (d *Doctor) Run(ctx context.Context) []Check {
	return []Check{
		d.checkExecutable(),
		d.checkVersion(ctx),
		d.checkServer(ctx),
		d.checkDevices(ctx),
	}
}

// Healthy reports whether no check failed
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

func (d *Doctor) checkExecutable() Check {
	path, err := d.lookPath(d.bridge.Path)
	if err != nil {
		return Check{Name: "adb executable", Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: "adb executable", Status: StatusOK, Detail: path}
}

func (d *Doctor) checkVersion(ctx context.Context) Check {
	out, err := d.runner.Run(ctx, d.bridge.Version())
	if err != nil {
		return Check{Name: "adb version", Status: StatusFail, Detail: err.Error()}
	}
	line := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	return Check{Name: "adb version", Status: StatusOK, Detail: line}
}

func (d *Doctor) checkServer(ctx context.Context) Check {
	procs, err := d.processes(ctx)
	if err != nil {
		return Check{Name: "adb server", Status: StatusWarn, Detail: fmt.Sprintf("cannot list processes: %v", err)}
	}

	want := strings.TrimSuffix(filepath.Base(d.bridge.Path), ".exe")
	for _, p := range procs {
		if strings.TrimSuffix(p.Name, ".exe") == want && isServer(p.Args) {
			return Check{Name: "adb server", Status: StatusOK, Detail: fmt.Sprintf("running (pid %d)", p.PID)}
		}
	}
	return Check{Name: "adb server", Status: StatusWarn, Detail: "not running (started on first command)"}
}

// isServer reports whether an adb command line is the background server
// (adb -L tcp:5037 fork-server server --reply-fd 4) rather than a client call
func isServer(args []string) bool {
	for _, a := range args {
		if a == "fork-server" || a == "server" {
			return true
		}
	}
	return false
}

func (d *Doctor) checkDevices(ctx context.Context) Check {
	out, err := d.runner.Run(ctx, d.bridge.Devices())
	if err != nil {
		return Check{Name: "device", Status: StatusFail, Detail: err.Error()}
	}

	devices := adb.ParseDevices(out)
	if len(devices) == 0 {
		return Check{Name: "device", Status: StatusFail, Detail: "no devices attached"}
	}

	if d.bridge.Serial != "" {
		for _, dev := range devices {
			if dev.Serial == d.bridge.Serial {
				return deviceCheck(dev)
			}
		}
		return Check{Name: "device", Status: StatusFail, Detail: fmt.Sprintf("%s not attached", d.bridge.Serial)}
	}

	if len(devices) > 1 {
		serials := make([]string, 0, len(devices))
		for _, dev := range devices {
			serials = append(serials, dev.Serial)
		}
		return Check{
			Name:   "device",
			Status: StatusWarn,
			Detail: fmt.Sprintf("%d devices attached (%s), set --serial", len(devices), strings.Join(serials, ", ")),
		}
	}
	return deviceCheck(devices[0])
}

func deviceCheck(dev adb.Device) Check {
	if dev.State != "device" {
		return Check{Name: "device", Status: StatusFail, Detail: fmt.Sprintf("%s is %s", dev.Serial, dev.State)}
	}
	return Check{Name: "device", Status: StatusOK, Detail: dev.Serial}
}

func listProcesses(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// process exited between listing and inspection
			continue
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		out = append(out, Process{PID: p.Pid, Name: name, Args: args})
	}
	return out, nil
}
