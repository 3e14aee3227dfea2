//go:build !linux

package sandbox

import (
	"os"
	"syscall"
)

// Process-group isolation is linux-only; other platforms run the program
// directly and kill by pid.
func sysProcAttr(enableNamespaces bool) *syscall.SysProcAttr {
	return nil
}

func killGroup(pid int) {
	if pid <= 0 {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Kill()
	}
}
