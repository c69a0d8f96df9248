package script

import (
	"encoding/binary"
	"time"

	"github.com/nordscan/pktizr/internal/chksum"
	"github.com/nordscan/pktizr/internal/packet"
)

// pingCookiePort is the nominal source port folded into the ICMP cookie,
// the same value the SYN script uses as its source port; ICMP has no real
// port field, so the destination port slot of the cookie tuple is 0.
const pingCookiePort uint16 = 64434

// pingEchoID is fixed for every probe; the cookie carried in Seq is what
// actually distinguishes one probe from another.
const pingEchoID uint16 = 1

// Ping implements stateless ICMP echo host discovery: each echo request
// carries a cookie-derived sequence number and an 8-byte send timestamp,
// and replies are matched by recomputing the cookie for the responder.
type Ping struct {
	Key chksum.Key
}

func (p *Ping) Load(cfg Context) (*Context, error) {
	c := cfg
	return &c, nil
}

func (p *Ping) Loop(ctx *Context, dstIP uint32, dstPort uint16) (*packet.Chain, error) {
	seq := p.Key.Cookie16(ctx.LocalIP, dstIP, pingCookiePort, 0)
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, uint64(time.Now().UnixNano()))

	chain := packet.New(true,
		packet.IP4{TTL: packet.DefaultTTL, Src: ctx.LocalIP, Dst: dstIP},
		packet.ICMP{Type: packet.ICMPEchoRequest, Code: 0, ID: pingEchoID, Seq: seq},
		packet.Raw{Payload: payload},
	)
	return chain.Prepend(packet.Eth{Src: ctx.LocalMAC, Dst: ctx.GatewayMAC}), nil
}

func (p *Ping) Recv(ctx *Context, chain *packet.Chain, send Sender) (consumed, halt bool, err error) {
	ipLayer := chain.Find(packet.TagIP4)
	icmpLayer := chain.Find(packet.TagICMP)
	if ipLayer == nil || icmpLayer == nil {
		return false, false, nil
	}
	ip := ipLayer.(packet.IP4)
	icmp := icmpLayer.(packet.ICMP)
	if icmp.Type != packet.ICMPEchoReply || icmp.ID != pingEchoID {
		return false, false, nil
	}
	want := p.Key.Cookie16(ctx.LocalIP, ip.Src, pingCookiePort, 0)
	if icmp.Seq != want {
		return false, false, nil
	}
	return true, false, nil
}

func (p *Ping) Close(ctx *Context) error { return nil }
