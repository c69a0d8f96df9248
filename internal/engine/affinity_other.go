//go:build !linux

package engine

import "errors"

func pinCurrentThreadToCPU(cpu int) error {
	return errors.New("engine: cpu pinning is only supported on linux")
}
