//go:build windows

package discovery

import "os"

// processAlive checks whether a process is still running. Windows has no
// signal 0; FindProcess only fails for processes that do not exist.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}
