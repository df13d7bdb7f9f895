//go:build !windows

package discovery

import "syscall"

// processAlive checks whether a process is still running via signal 0.
// EPERM means the process exists but belongs to another user.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
