package engine

import (
	"github.com/nordscan/pktizr/internal/iprange"
	"github.com/nordscan/pktizr/internal/packet"
	"github.com/nordscan/pktizr/internal/script"
)

// Config is the fully-resolved set of inputs an Engine needs to run one
// scan. cmd/pktizr builds one of these from flags plus the resolved
// interface/gateway addressing.
type Config struct {
	Targets *iprange.Set
	Ports   *iprange.Set

	Rate  uint64 // probes/sec; 0 = unthrottled
	Count uint64 // duplicate probes per (target, port); must be >= 1
	Wait  uint64 // post-scan drain seconds

	// PinSendCPU pins the send worker's OS thread to this CPU when >= 0;
	// -1 (the default) leaves scheduling to the Go runtime.
	PinSendCPU int

	LocalMAC   packet.MAC
	LocalIP    uint32
	GatewayMAC packet.MAC

	Script script.Script
}

// Total returns the Cartesian enumeration size the loop worker walks.
func (c *Config) Total() uint64 {
	return c.Targets.Count() * c.Ports.Count() * c.Count
}
