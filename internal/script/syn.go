package script

import (
	"fmt"

	"github.com/nordscan/pktizr/internal/chksum"
	"github.com/nordscan/pktizr/internal/packet"
)

// synSourcePort is the fixed source port the SYN script uses for every
// probe; combined with the cookie-derived sequence number it needs no
// per-flow state to recognize a reply.
const synSourcePort uint16 = 64434

// SYN implements a stateless TCP SYN host-discovery/port-scan: every probe
// encodes its flow cookie as the initial sequence number, and replies are
// recognized by checking the acknowledgment against that cookie.
type SYN struct {
	Key chksum.Key
}

func (s *SYN) Load(cfg Context) (*Context, error) {
	c := cfg
	c.SourcePort = synSourcePort
	return &c, nil
}

func (s *SYN) Loop(ctx *Context, dstIP uint32, dstPort uint16) (*packet.Chain, error) {
	seq := s.Key.Cookie32(ctx.LocalIP, dstIP, ctx.SourcePort, dstPort)
	chain := packet.New(true,
		packet.IP4{ID: uint16(seq), TTL: packet.DefaultTTL, Src: ctx.LocalIP, Dst: dstIP, Flags: packet.IPFlagDF},
		packet.TCP{SPort: ctx.SourcePort, DPort: dstPort, Seq: seq, Flags: packet.TCPFlagSYN, Window: packet.DefaultWindow},
	)
	return chain.Prepend(packet.Eth{Src: ctx.LocalMAC, Dst: ctx.GatewayMAC}), nil
}

func (s *SYN) Recv(ctx *Context, chain *packet.Chain, send Sender) (consumed, halt bool, err error) {
	ipLayer := chain.Find(packet.TagIP4)
	tcpLayer := chain.Find(packet.TagTCP)
	if ipLayer == nil || tcpLayer == nil {
		return false, false, nil
	}
	ip := ipLayer.(packet.IP4)
	tcp := tcpLayer.(packet.TCP)

	if tcp.DPort != ctx.SourcePort || tcp.Flags&packet.TCPFlagACK == 0 || tcp.Flags&packet.TCPFlagRST != 0 {
		return false, false, nil
	}
	want := s.Key.Cookie32(ctx.LocalIP, ip.Src, ctx.SourcePort, tcp.SPort)
	if tcp.AckSeq-1 != want {
		return false, false, nil
	}

	// Port is open. Tear the half-open connection down without tracking
	// state: the RST's own seq is the ACK we just received.
	rst := packet.New(false,
		packet.Eth{Src: ctx.LocalMAC, Dst: ctx.GatewayMAC},
		packet.IP4{TTL: packet.DefaultTTL, Src: ctx.LocalIP, Dst: ip.Src},
		packet.TCP{SPort: ctx.SourcePort, DPort: tcp.SPort, Seq: tcp.AckSeq, Flags: packet.TCPFlagRST},
	)
	if err := send.Send(rst); err != nil {
		return true, false, fmt.Errorf("syn: send rst: %w", err)
	}
	return true, false, nil
}

func (s *SYN) Close(ctx *Context) error { return nil }
