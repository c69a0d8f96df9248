package resolver

import (
	"encoding/binary"
	"net"
)

// ip4ToUint32 converts a 4-byte IPv4 address to the big-endian uint32 form
// the packet model and range sets use throughout the engine.
func ip4ToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	return binary.BigEndian.Uint32(v4)
}
