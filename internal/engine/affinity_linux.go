//go:build linux

package engine

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinCurrentThreadToCPU locks the calling goroutine to its current OS
// thread and pins that thread to cpu, so the send path keeps its cache
// locality at high rates.
func pinCurrentThreadToCPU(cpu int) error {
	runtime.LockOSThread()
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
