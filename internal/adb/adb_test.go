package adb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeCommands(t *testing.T) {
	b := NewBridge("", "")
	assert.Equal(t, Command{Path: "adb", Args: []string{"logcat", "-c"}}, b.Clear())
	assert.Equal(t,
		Command{Path: "adb", Args: []string{"logcat", "AudioPlayerService:D", "*:S"}},
		b.Stream(DefaultFilter()))
	assert.Equal(t, "adb logcat AudioPlayerService:D *:S", b.Stream(DefaultFilter()).String())
}

func TestBridgeSerial(t *testing.T) {
	b := NewBridge("/opt/platform-tools/adb", "emulator-5554")

	assert.Equal(t,
		[]string{"-s", "emulator-5554", "logcat", "-c"},
		b.Clear().Args)
	assert.Equal(t, "/opt/platform-tools/adb", b.Clear().Path)

	// devices/version are global, never scoped to a serial
	assert.Equal(t, []string{"devices"}, b.Devices().Args)
	assert.Equal(t, []string{"version"}, b.Version().Args)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []string
		wantErr bool
	}{
		{"single", "AudioPlayerService:D", []string{"AudioPlayerService:D", "*:S"}, false},
		{"explicit silence", "AudioPlayerService:D *:S", []string{"AudioPlayerService:D", "*:S"}, false},
		{"comma list", "A:D,B:i", []string{"A:D", "B:I", "*:S"}, false},
		{"empty", "", nil, true},
		{"no priority", "AudioPlayerService", nil, true},
		{"trailing colon", "Tag:", nil, true},
		{"bad priority", "Tag:X", nil, true},
		{"wildcard verbose", "*:V", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidFilter))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Specs())
		})
	}
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, DefaultFilter().Validate())
	assert.Error(t, Filter{}.Validate())
	assert.Error(t, SingleTag("has space", PriorityDebug).Validate())
	assert.Error(t, SingleTag("Tag", Priority("Q")).Validate())
}

func TestParseDevices(t *testing.T) {
	out := "* daemon not running; starting now at tcp:5037\n" +
		"* daemon started successfully\n" +
		"List of devices attached\n" +
		"emulator-5554\tdevice\n" +
		"R58M123ABC\tunauthorized\n" +
		"\n"

	devices := ParseDevices(out)
	require.Len(t, devices, 2)
	assert.Equal(t, Device{Serial: "emulator-5554", State: "device"}, devices[0])
	assert.Equal(t, Device{Serial: "R58M123ABC", State: "unauthorized"}, devices[1])

	assert.Empty(t, ParseDevices("List of devices attached\n\n"))
}
