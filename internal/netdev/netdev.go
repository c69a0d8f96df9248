// Package netdev abstracts the link-layer driver behind a small capability
// set: open, get-buf, inject, capture, release, close. The engine is
// written only against the Handle interface; drivers (pcap, raw sockets,
// kernel-bypass rings) are interchangeable behind it.
package netdev

import "errors"

// ErrOpenFailed wraps any driver-level failure to bind a link-layer handle.
var ErrOpenFailed = errors.New("netdev: open failed")

// maxFrame is large enough for any Ethernet frame this engine crafts,
// including IPv4 options and TCP options.
const maxFrame = 65535

// Handle is the abstract link-layer device capability set. Implementations
// must make Inject safe to call concurrently with Capture/Release (the
// send and recv workers never share a call), but need not be safe for
// concurrent Inject calls against each other, nor concurrent Capture
// calls; the engine runs exactly one sender and one receiver per handle.
type Handle interface {
	// GetBuf returns a scratch buffer the caller may fill and pass to
	// Inject. The buffer is owned by the driver until Inject (or the
	// caller discards it); implementations here simply allocate, since a
	// pooled/reused buffer would need the same lifetime contract.
	GetBuf() []byte

	// Inject blocks until buf[:n] has been handed to the kernel/driver for
	// transmission on the link.
	Inject(buf []byte, n int) error

	// Capture returns a driver-owned frame if one was ready within the
	// implementation's poll window, or ok=false if none arrived. It never
	// blocks longer than that poll window.
	Capture() (buf []byte, ok bool, err error)

	// Release returns the last frame returned by Capture to the driver.
	// Safe to call even if the caller has already copied what it needed.
	Release()

	// Close releases the handle and any OS resources it holds.
	Close() error
}
