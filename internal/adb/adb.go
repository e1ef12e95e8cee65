// Package adb builds argument vectors for the Android device bridge.
//
// Nothing here runs a shell: every invocation is an explicit executable plus
// arguments, so tags and serials are never subject to quoting or expansion.
package adb

import (
	"bufio"
	"strings"
)

// DefaultPath is looked up on PATH when no explicit path is configured
const DefaultPath = "adb"

// Command is an executable plus its arguments
type Command struct {
	Path string
	Args []string
}

// String renders the command for diagnostics only
func (c Command) String() string {
	parts := append([]string{c.Path}, c.Args...)
	return strings.Join(parts, " ")
}

// Bridge builds device-bridge commands for one (optional) device serial
type Bridge struct {
	Path   string
	Serial string
}

// NewBridge returns a bridge for the given executable and serial.
// An empty path falls back to DefaultPath.
func NewBridge(path, serial string) *Bridge {
	if path == "" {
		path = DefaultPath
	}
	return &Bridge{Path: path, Serial: serial}
}

func (b *Bridge) command(args ...string) Command {
	full := make([]string, 0, len(args)+2)
	if b.Serial != "" {
		full = append(full, "-s", b.Serial)
	}
	full = append(full, args...)
	return Command{Path: b.Path, Args: full}
}

// Clear empties the device log buffer: adb logcat -c
func (b *Bridge) Clear() Command {
	return b.command("logcat", "-c")
}

// Stream follows the device log restricted by filter: adb logcat <specs...>
func (b *Bridge) Stream(filter Filter) Command {
	return b.command(append([]string{"logcat"}, filter.Specs()...)...)
}

// Devices lists attached devices. The serial is deliberately not applied.
func (b *Bridge) Devices() Command {
	return Command{Path: b.Path, Args: []string{"devices"}}
}

// Version reports the bridge client version
func (b *Bridge) Version() Command {
	return Command{Path: b.Path, Args: []string{"version"}}
}

// Device is one row of `adb devices` output
type Device struct {
	Serial string
	State  string
}

// ParseDevices parses `adb devices` output. Header, daemon notices and blank
// lines are skipped.
func ParseDevices(output string) []Device {
	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{Serial: fields[0], State: fields[1]})
	}
	return devices
}
