//go:build linux

package resolver

import (
	"fmt"
	"net"

	nl "github.com/vishvananda/netlink"

	"github.com/nordscan/pktizr/internal/packet"
)

// probeAddr is never dialed or sent to; it only steers the kernel's route
// lookup toward the default route. The lookup goes through netlink, which
// yields the source address, gateway and link index in one call.
var probeAddr = net.IPv4(8, 8, 8, 8)

// Bootstrap resolves the egress interface, local MAC/IP and gateway IP a
// scan needs by asking the kernel for the route it would use to reach
// probeAddr. --local-addr and --gateway-addr override the discovered
// values independently of each other.
func Bootstrap(localOverride, gatewayOverride net.IP) (ifaceName string, localMAC packet.MAC, localIP, gatewayIP uint32, err error) {
	routes, rerr := nl.RouteGet(probeAddr)
	if rerr != nil || len(routes) == 0 {
		return "", packet.MAC{}, 0, 0, fmt.Errorf("resolver: default route lookup failed: %w", rerr)
	}
	route := routes[0]

	link, lerr := nl.LinkByIndex(route.LinkIndex)
	if lerr != nil {
		return "", packet.MAC{}, 0, 0, fmt.Errorf("resolver: link lookup failed: %w", lerr)
	}
	ifaceName = link.Attrs().Name
	if hw := link.Attrs().HardwareAddr; len(hw) >= 6 {
		copy(localMAC[:], hw)
	}

	lip := route.Src
	if localOverride != nil {
		lip = localOverride
	}
	if lip == nil || lip.To4() == nil {
		return "", packet.MAC{}, 0, 0, fmt.Errorf("resolver: no usable local IPv4 address for %s", ifaceName)
	}
	localIP = ip4ToUint32(lip)

	gip := route.Gw
	if gatewayOverride != nil {
		gip = gatewayOverride
	}
	if gip == nil || gip.To4() == nil {
		return "", packet.MAC{}, 0, 0, fmt.Errorf("resolver: no usable gateway IPv4 address for %s", ifaceName)
	}
	gatewayIP = ip4ToUint32(gip)

	return ifaceName, localMAC, localIP, gatewayIP, nil
}
