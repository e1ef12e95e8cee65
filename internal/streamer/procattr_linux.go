package streamer

import "syscall"

// sysProcAttr puts the stream child in its own process group so a terminal
// Ctrl+C reaches only logcheck, which then sends the single SIGTERM itself.
// Pdeathsig stops the child if logcheck dies without cleaning up.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
