package packet

import "errors"

// Per-packet decode errors: non-fatal, the caller drops the frame and
// continues.
var (
	ErrShortBuffer = errors.New("packet: short buffer")
	ErrTruncated   = errors.New("packet: truncated")
	ErrBadChecksum = errors.New("packet: bad checksum")
)

// ErrEncodeFailed wraps any per-chain encode error: non-fatal, the caller
// drops the chain and continues.
var ErrEncodeFailed = errors.New("packet: encode failed")
