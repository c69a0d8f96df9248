package packet

// EtherType values dispatched by the ETH layer.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

// IP protocol numbers dispatched by the IP4 layer.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// ARP operation codes.
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

// MAC is a 6-byte hardware address.
type MAC [6]byte

// BroadcastMAC is the link-layer broadcast address used for ARP requests.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Eth is the Ethernet II header: 6-byte dst, 6-byte src, 2-byte ethertype.
// The ethertype is derived at encode time from the next layer's tag; the
// field here is only authoritative after Unpack.
type Eth struct {
	Src, Dst  MAC
	EtherType uint16
}

func (Eth) Tag() Tag { return TagETH }

// ARP is an RFC 826 Address Resolution Protocol message, Ethernet/IPv4
// flavor (hwtype=1, prototype=0x0800, hwlen=6, protolen=4).
type ARP struct {
	HWType, ProtoType uint16
	Op                uint16
	SrcMAC            MAC
	SrcIP             uint32
	DstMAC            MAC
	DstIP             uint32
}

func (ARP) Tag() Tag { return TagARP }

// IPv4 flag bits.
const (
	IPFlagDF uint8 = 1 << 1
	IPFlagMF uint8 = 1 << 0
)

// IP4 is an RFC 791 IPv4 header. TotalLength and Checksum are computed by
// the codec and ignored on encode; Options holds any bytes beyond the
// 20-byte fixed header (IHL > 5), preserved opaquely on decode and written
// back verbatim on encode.
type IP4 struct {
	ID          uint16
	TTL         uint8 // default 64
	Protocol    uint8 // filled by codec from the next layer on encode
	Src, Dst    uint32
	Flags       uint8 // IPFlagDF / IPFlagMF
	FragOffset  uint16
	Options     []byte // must be a multiple of 4 bytes if set
	TotalLength uint16 // decode-only: as read from the wire
	Checksum    uint16 // decode-only: as read from the wire
}

func (IP4) Tag() Tag { return TagIP4 }

// DefaultTTL is the default time-to-live a script may use for outbound
// IP4 records.
const DefaultTTL = 64

// ICMP is an RFC 792 ICMP header: type, code, id, seq. Checksum is filled
// by the codec on encode.
type ICMP struct {
	Type, Code uint8
	ID, Seq    uint16
	Checksum   uint16 // decode-only: as read from the wire
}

func (ICMP) Tag() Tag { return TagICMP }

// Common ICMP types used by the built-in scripts.
const (
	ICMPEchoRequest uint8 = 8
	ICMPEchoReply   uint8 = 0
)

// TCP flag bits.
const (
	TCPFlagFIN uint8 = 1 << 0
	TCPFlagSYN uint8 = 1 << 1
	TCPFlagRST uint8 = 1 << 2
	TCPFlagPSH uint8 = 1 << 3
	TCPFlagACK uint8 = 1 << 4
	TCPFlagURG uint8 = 1 << 5
)

// DefaultWindow is the default TCP receive window advertised by outbound
// probes.
const DefaultWindow uint16 = 64240

// TCP is an RFC 793 TCP header. Checksum is filled by the codec on encode
// using the IPv4 pseudo-header drawn from the preceding IP4 record.
// Options holds any bytes beyond the 20-byte fixed header (data offset >
// 5), preserved opaquely on decode.
type TCP struct {
	SPort, DPort   uint16
	Seq, AckSeq    uint32
	Flags          uint8 // TCPFlag*
	Window         uint16
	UrgPtr         uint16
	Options        []byte // must be a multiple of 4 bytes if set
	Checksum       uint16 // decode-only: as read from the wire
	decodedDataOff uint8  // decode-only: data offset in 32-bit words, as read
}

func (TCP) Tag() Tag { return TagTCP }

// DataOffsetWords returns the TCP data offset in 32-bit words that this
// header, with its Options, will encode to.
func (t TCP) DataOffsetWords() uint8 {
	return 5 + uint8(len(t.Options)/4)
}

// DecodedDataOffsetWords returns the data offset as read off the wire by
// Unpack. Zero if t was never decoded.
func (t TCP) DecodedDataOffsetWords() uint8 {
	return t.decodedDataOff
}

// UDP is an RFC 768 UDP header. Length and Checksum are filled by the
// codec on encode.
type UDP struct {
	SPort, DPort uint16
	Length       uint16 // decode-only: as read from the wire
	Checksum     uint16 // decode-only: as read from the wire
}

func (UDP) Tag() Tag { return TagUDP }

// Raw is an opaque trailing payload. It may only appear as the final
// element of a chain; its byte length is authoritative for the preceding
// layer's payload length.
type Raw struct {
	Payload []byte
}

func (Raw) Tag() Tag { return TagRAW }
