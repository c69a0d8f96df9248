//go:build !linux

package resolver

import (
	"errors"
	"net"

	"github.com/nordscan/pktizr/internal/packet"
)

// Bootstrap is only implemented on Linux, where netlink route lookups are
// available. Here it always fails, whether or not overrides are passed.
func Bootstrap(localOverride, gatewayOverride net.IP) (ifaceName string, localMAC packet.MAC, localIP, gatewayIP uint32, err error) {
	return "", packet.MAC{}, 0, 0, errors.New("resolver: bootstrap is only supported on linux")
}
