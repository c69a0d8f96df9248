// Package resolver implements the ARP/gateway bootstrap: given a local
// MAC/IP and a gateway IP, it sends an ARP request and waits for the
// matching reply to learn the gateway's MAC address.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nordscan/pktizr/internal/netdev"
	"github.com/nordscan/pktizr/internal/packet"
)

// ErrArpTimeout is returned when no matching ARP reply arrives within Timeout.
var ErrArpTimeout = errors.New("resolver: arp timeout")

// Timeout is the hard ceiling on gateway resolution.
const Timeout = 5 * time.Second

// pollInterval bounds how often Resolve re-checks netdev.Capture while
// waiting for the reply, independent of the driver's own poll window.
const pollInterval = 10 * time.Millisecond

// Resolve sends a broadcast ARP request for gatewayIP from (localMAC,
// localIP) over dev, then polls dev.Capture until it sees an ARP reply
// whose psrc==gatewayIP and pdst==localIP, or Timeout elapses.
func Resolve(dev netdev.Handle, log *slog.Logger, localMAC packet.MAC, localIP, gatewayIP uint32) (packet.MAC, error) {
	req := packet.New(false,
		packet.Eth{Src: localMAC, Dst: packet.BroadcastMAC},
		packet.ARP{
			HWType:    1,
			ProtoType: packet.EtherTypeIPv4,
			Op:        packet.ARPRequest,
			SrcMAC:    localMAC,
			SrcIP:     localIP,
			DstMAC:    packet.MAC{},
			DstIP:     gatewayIP,
		},
	)

	buf := dev.GetBuf()
	n, err := packet.Pack(buf, req)
	if err != nil {
		return packet.MAC{}, fmt.Errorf("resolver: encode arp request: %w", err)
	}
	if err := dev.Inject(buf, n); err != nil {
		return packet.MAC{}, fmt.Errorf("resolver: inject arp request: %w", err)
	}
	log.Debug("arp request sent", "gateway_ip", gatewayIP)

	deadline := time.Now().Add(Timeout)
	for time.Now().Before(deadline) {
		frame, ok, err := dev.Capture()
		if err != nil {
			log.Debug("arp resolve capture error", "error", err)
			continue
		}
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		mac, matched := matchReply(frame, localIP, gatewayIP)
		dev.Release()
		if matched {
			log.Debug("arp reply matched", "gateway_mac", mac)
			return mac, nil
		}
	}
	return packet.MAC{}, ErrArpTimeout
}

func matchReply(frame []byte, localIP, gatewayIP uint32) (packet.MAC, bool) {
	chain, err := packet.Unpack(frame)
	if err != nil {
		return packet.MAC{}, false
	}
	l := chain.Find(packet.TagARP)
	if l == nil {
		return packet.MAC{}, false
	}
	arp := l.(packet.ARP)
	if arp.Op != packet.ARPReply {
		return packet.MAC{}, false
	}
	if arp.SrcIP != gatewayIP || arp.DstIP != localIP {
		return packet.MAC{}, false
	}
	return arp.SrcMAC, true
}
