// Package script defines the thin contract between the engine and the
// operator-supplied probe/analyze logic. The engine is written only
// against this interface; concrete scripts (built-in or third-party
// plugins) implement it.
package script

import (
	"github.com/nordscan/pktizr/internal/packet"
)

// Context carries the state a loaded script needs to build and recognize
// packets: the local/gateway addressing the engine resolved at startup,
// and a fixed source port a script may set in Load (the SYN script does)
// to avoid needing per-flow state. The cookie key is not part of it; the
// built-in scripts hold it on their own struct. A Context is never
// shared between the loop and recv sides; Load is called once per worker.
type Context struct {
	LocalMAC   packet.MAC
	LocalIP    uint32
	GatewayMAC packet.MAC
	SourcePort uint16
}

// Sender is the narrow capability a script needs to inject a reply
// synchronously from its Recv call, bypassing the rate limiter and queue.
// Used for tearing down a half-open TCP handshake.
type Sender interface {
	Send(chain *packet.Chain) error
}

// Script is the host contract every probe/analyze implementation satisfies.
type Script interface {
	// Load returns a fresh, independent context for one worker.
	Load(cfg Context) (*Context, error)

	// Loop builds the outbound chain for one (dst ip, dst port) pair, or
	// nil to skip this slot without consuming a rate-limit token.
	Loop(ctx *Context, dstIP uint32, dstPort uint16) (*packet.Chain, error)

	// Recv inspects one decoded inbound chain. consumed reports whether
	// the packet should count toward pkt_recv; halt asks the engine to
	// stop the scan entirely; the script may call send.Send to inject a
	// synchronous reply.
	Recv(ctx *Context, chain *packet.Chain, send Sender) (consumed, halt bool, err error)

	// Close releases any resources ctx holds.
	Close(ctx *Context) error
}
