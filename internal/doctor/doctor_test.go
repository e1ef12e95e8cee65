package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/logcheck/internal/adb"
)

type scriptedRunner map[string]struct {
	out string
	err error
}

func (r scriptedRunner) Run(ctx context.Context, c adb.Command) (string, error) {
	res := r[c.String()]
	return res.out, res.err
}

var adbServer = Process{PID: 101, Name: "adb", Args: []string{"adb", "-L", "tcp:5037", "fork-server", "server", "--reply-fd", "4"}}

func newDoctor(serial string, r Runner, procs []Process) *Doctor {
	d := New(adb.NewBridge("adb", serial), r)
	d.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	d.processes = func(ctx context.Context) ([]Process, error) { return procs, nil }
	return d
}

func byName(checks []Check) map[string]Check {
	m := make(map[string]Check, len(checks))
	for _, c := range checks {
		m[c.Name] = c
	}
	return m
}

func TestDoctorHealthy(t *testing.T) {
	r := scriptedRunner{
		"adb version": {out: "Android Debug Bridge version 1.0.41\nVersion 35.0.2\n"},
		"adb devices": {out: "List of devices attached\nemulator-5554\tdevice\n\n"},
	}
	checks := newDoctor("", r, []Process{
		{PID: 7, Name: "init", Args: []string{"/sbin/init"}},
		{PID: 99, Name: "adb", Args: []string{"adb", "logcat"}},
		adbServer,
	}).Run(context.Background())

	require.Len(t, checks, 4)
	assert.True(t, Healthy(checks))

	m := byName(checks)
	assert.Equal(t, "/usr/bin/adb", m["adb executable"].Detail)
	assert.Equal(t, "Android Debug Bridge version 1.0.41", m["adb version"].Detail)
	assert.Equal(t, "running (pid 101)", m["adb server"].Detail)
	assert.Equal(t, "emulator-5554", m["device"].Detail)
}

func TestDoctorMissingBridge(t *testing.T) {
	notFound := errors.New("exec: \"adb\": executable file not found in $PATH")
	r := scriptedRunner{
		"adb version": {err: notFound},
		"adb devices": {err: notFound},
	}
	d := newDoctor("", r, nil)
	d.lookPath = func(string) (string, error) { return "", notFound }

	checks := d.Run(context.Background())
	assert.False(t, Healthy(checks))

	m := byName(checks)
	assert.Equal(t, StatusFail, m["adb executable"].Status)
	assert.Equal(t, StatusWarn, m["adb server"].Status)
	assert.Equal(t, StatusFail, m["device"].Status)
}

func TestDoctorDeviceStates(t *testing.T) {
	tests := []struct {
		name   string
		serial string
		out    string
		status Status
	}{
		{"none", "", "List of devices attached\n\n", StatusFail},
		{"unauthorized", "", "List of devices attached\nR58M\tunauthorized\n", StatusFail},
		{"several without serial", "", "List of devices attached\nA\tdevice\nB\tdevice\n", StatusWarn},
		{"serial present", "B", "List of devices attached\nA\tdevice\nB\tdevice\n", StatusOK},
		{"serial missing", "C", "List of devices attached\nA\tdevice\n", StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := scriptedRunner{
				"adb version": {out: "Android Debug Bridge version 1.0.41\n"},
				"adb devices": {out: tt.out},
			}
			m := byName(newDoctor(tt.serial, r, nil).Run(context.Background()))
			assert.Equal(t, tt.status, m["device"].Status, m["device"].Detail)
		})
	}
}

func TestDoctorProcessListingError(t *testing.T) {
	r := scriptedRunner{
		"adb version": {out: "v\n"},
		"adb devices": {out: "List of devices attached\nA\tdevice\n"},
	}
	d := newDoctor("", r, nil)
	d.processes = func(ctx context.Context) ([]Process, error) {
		return nil, errors.New("permission denied")
	}

	m := byName(d.Run(context.Background()))
	assert.Equal(t, StatusWarn, m["adb server"].Status)
	assert.Contains(t, m["adb server"].Detail, "permission denied")
}

func TestDoctorServerIgnoresClientInvocations(t *testing.T) {
	r := scriptedRunner{
		"adb version": {out: "v\n"},
		"adb devices": {out: "List of devices attached\nA\tdevice\n"},
	}

	tests := []struct {
		name   string
		procs  []Process
		status Status
	}{
		{"server", []Process{adbServer}, StatusOK},
		{"client only", []Process{{PID: 55, Name: "adb", Args: []string{"adb", "-s", "A", "logcat", "AudioPlayerService:D", "*:S"}}}, StatusWarn},
		{"start-server client", []Process{{PID: 56, Name: "adb", Args: []string{"adb", "start-server"}}}, StatusWarn},
		{"other tool named server", []Process{{PID: 57, Name: "node", Args: []string{"node", "server"}}}, StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := byName(newDoctor("", r, tt.procs).Run(context.Background()))
			assert.Equal(t, tt.status, m["adb server"].Status, m["adb server"].Detail)
		})
	}
}
