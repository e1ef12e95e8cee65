//go:build unix && !linux

package streamer

import "syscall"

// sysProcAttr puts the stream child in its own process group.
// No parent-death signal outside Linux: the child may outlive a crashed logcheck.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
