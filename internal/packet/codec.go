package packet

import (
	"fmt"

	"github.com/nordscan/pktizr/internal/buf"
	"github.com/nordscan/pktizr/internal/chksum"
)

// Pack serializes chain into dst starting at offset 0, walking outer to
// inner layer by layer. Each layer writes a placeholder
// header, recurses into the next layer, then back-patches its own length
// and checksum fields over the region the recursive call just wrote.
// Returns the total number of bytes written.
func Pack(dst []byte, chain *Chain) (int, error) {
	if chain == nil || len(chain.Layers) == 0 {
		return 0, ErrEmptyChain
	}
	c := buf.NewCursor(dst)
	n, err := packAt(c, chain.Layers, 0)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func packAt(c *buf.Cursor, layers []Layer, idx int) (int, error) {
	if idx >= len(layers) {
		return 0, nil
	}
	start := c.Pos()
	switch l := layers[idx].(type) {
	case Eth:
		return packEth(c, layers, idx, l)
	case *Eth:
		return packEth(c, layers, idx, *l)
	case ARP:
		return packARP(c, layers, idx, l)
	case *ARP:
		return packARP(c, layers, idx, *l)
	case IP4:
		return packIP4(c, layers, idx, l, start)
	case *IP4:
		return packIP4(c, layers, idx, *l, start)
	case ICMP:
		return packICMP(c, layers, idx, l, start)
	case *ICMP:
		return packICMP(c, layers, idx, *l, start)
	case TCP:
		return packTCP(c, layers, idx, l, start)
	case *TCP:
		return packTCP(c, layers, idx, *l, start)
	case UDP:
		return packUDP(c, layers, idx, l, start)
	case *UDP:
		return packUDP(c, layers, idx, *l, start)
	case Raw:
		return packRaw(c, layers, idx, l)
	case *Raw:
		return packRaw(c, layers, idx, *l)
	default:
		return 0, fmt.Errorf("%w: unsupported layer at index %d", ErrEncodeFailed, idx)
	}
}

func nextTag(layers []Layer, idx int) (Tag, bool) {
	if idx+1 >= len(layers) {
		return 0, false
	}
	return layers[idx+1].Tag(), true
}

func packEth(c *buf.Cursor, layers []Layer, idx int, l Eth) (int, error) {
	tag, hasNext := nextTag(layers, idx)
	if !hasNext {
		return 0, fmt.Errorf("%w: ETH must be followed by another layer", ErrEncodeFailed)
	}
	var ethertype uint16
	switch tag {
	case TagIP4:
		ethertype = EtherTypeIPv4
	case TagARP:
		ethertype = EtherTypeARP
	default:
		return 0, fmt.Errorf("%w: ETH may not directly precede %s", ErrEncodeFailed, tag)
	}
	if err := c.WriteBytes(l.Dst[:]); err != nil {
		return 0, err
	}
	if err := c.WriteBytes(l.Src[:]); err != nil {
		return 0, err
	}
	if err := c.WriteU16(ethertype); err != nil {
		return 0, err
	}
	n, err := packAt(c, layers, idx+1)
	if err != nil {
		return 0, err
	}
	return 14 + n, nil
}

func packARP(c *buf.Cursor, layers []Layer, idx int, l ARP) (int, error) {
	if idx != len(layers)-1 {
		return 0, fmt.Errorf("%w: ARP must be the final layer", ErrEncodeFailed)
	}
	if err := c.WriteU16(l.HWType); err != nil {
		return 0, err
	}
	if err := c.WriteU16(l.ProtoType); err != nil {
		return 0, err
	}
	if err := c.WriteU8(6); err != nil { // hwlen
		return 0, err
	}
	if err := c.WriteU8(4); err != nil { // protolen
		return 0, err
	}
	if err := c.WriteU16(l.Op); err != nil {
		return 0, err
	}
	if err := c.WriteBytes(l.SrcMAC[:]); err != nil {
		return 0, err
	}
	if err := c.WriteU32(l.SrcIP); err != nil {
		return 0, err
	}
	if err := c.WriteBytes(l.DstMAC[:]); err != nil {
		return 0, err
	}
	if err := c.WriteU32(l.DstIP); err != nil {
		return 0, err
	}
	return 28, nil
}

func packIP4(c *buf.Cursor, layers []Layer, idx int, l IP4, start int) (int, error) {
	tag, hasNext := nextTag(layers, idx)
	if !hasNext {
		return 0, fmt.Errorf("%w: IP4 must be followed by ICMP, TCP or UDP", ErrEncodeFailed)
	}
	var proto uint8
	switch tag {
	case TagICMP:
		proto = ProtoICMP
	case TagTCP:
		proto = ProtoTCP
	case TagUDP:
		proto = ProtoUDP
	default:
		return 0, fmt.Errorf("%w: IP4 may not directly precede %s", ErrEncodeFailed, tag)
	}
	if len(l.Options)%4 != 0 {
		return 0, fmt.Errorf("%w: IP4 options length must be a multiple of 4", ErrEncodeFailed)
	}
	ihl := 5 + len(l.Options)/4
	if ihl > 15 {
		return 0, fmt.Errorf("%w: IP4 options too long", ErrEncodeFailed)
	}
	headerLen := ihl * 4
	ttl := l.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	if err := c.WriteU8(byte(4<<4 | ihl)); err != nil {
		return 0, err
	}
	if err := c.WriteU8(0); err != nil { // TOS
		return 0, err
	}
	if err := c.WriteU16(0); err != nil { // total length placeholder
		return 0, err
	}
	if err := c.WriteU16(l.ID); err != nil {
		return 0, err
	}
	flagsFrag := uint16(l.Flags&0x7)<<13 | (l.FragOffset & 0x1fff)
	if err := c.WriteU16(flagsFrag); err != nil {
		return 0, err
	}
	if err := c.WriteU8(ttl); err != nil {
		return 0, err
	}
	if err := c.WriteU8(proto); err != nil {
		return 0, err
	}
	if err := c.WriteU16(0); err != nil { // checksum placeholder
		return 0, err
	}
	if err := c.WriteU32(l.Src); err != nil {
		return 0, err
	}
	if err := c.WriteU32(l.Dst); err != nil {
		return 0, err
	}
	if len(l.Options) > 0 {
		if err := c.WriteBytes(l.Options); err != nil {
			return 0, err
		}
	}

	n, err := packAt(c, layers, idx+1)
	if err != nil {
		return 0, err
	}
	total := headerLen + n

	hdr, err := c.Slice(start, start+headerLen)
	if err != nil {
		return 0, err
	}
	binaryPutU16(hdr[2:4], uint16(total))
	binaryPutU16(hdr[10:12], 0)
	cs := chksum.Internet(hdr)
	binaryPutU16(hdr[10:12], cs)

	return total, nil
}

func packICMP(c *buf.Cursor, layers []Layer, idx int, l ICMP, start int) (int, error) {
	if err := c.WriteU8(l.Type); err != nil {
		return 0, err
	}
	if err := c.WriteU8(l.Code); err != nil {
		return 0, err
	}
	if err := c.WriteU16(0); err != nil { // checksum placeholder
		return 0, err
	}
	if err := c.WriteU16(l.ID); err != nil {
		return 0, err
	}
	if err := c.WriteU16(l.Seq); err != nil {
		return 0, err
	}

	n, err := packAt(c, layers, idx+1)
	if err != nil {
		return 0, err
	}
	total := 8 + n

	body, err := c.Slice(start, start+total)
	if err != nil {
		return 0, err
	}
	binaryPutU16(body[2:4], 0)
	cs := chksum.Internet(body)
	binaryPutU16(body[2:4], cs)

	return total, nil
}

func precedingIP4(layers []Layer, idx int) (IP4, error) {
	if idx == 0 {
		return IP4{}, fmt.Errorf("%w: no preceding IP4 layer for pseudo-header", ErrEncodeFailed)
	}
	switch p := layers[idx-1].(type) {
	case IP4:
		return p, nil
	case *IP4:
		return *p, nil
	default:
		return IP4{}, fmt.Errorf("%w: layer preceding TCP/UDP must be IP4", ErrEncodeFailed)
	}
}

func pseudoHeader(src, dst uint32, proto uint8, l4len int) [12]byte {
	var b [12]byte
	binaryPutU32(b[0:4], src)
	binaryPutU32(b[4:8], dst)
	b[8] = 0
	b[9] = proto
	binaryPutU16(b[10:12], uint16(l4len))
	return b
}

func packTCP(c *buf.Cursor, layers []Layer, idx int, l TCP, start int) (int, error) {
	ip, err := precedingIP4(layers, idx)
	if err != nil {
		return 0, err
	}
	if len(l.Options)%4 != 0 {
		return 0, fmt.Errorf("%w: TCP options length must be a multiple of 4", ErrEncodeFailed)
	}
	dataOff := l.DataOffsetWords()
	headerLen := int(dataOff) * 4
	window := l.Window
	if window == 0 {
		window = DefaultWindow
	}

	if err := c.WriteU16(l.SPort); err != nil {
		return 0, err
	}
	if err := c.WriteU16(l.DPort); err != nil {
		return 0, err
	}
	if err := c.WriteU32(l.Seq); err != nil {
		return 0, err
	}
	if err := c.WriteU32(l.AckSeq); err != nil {
		return 0, err
	}
	if err := c.WriteU8(dataOff << 4); err != nil {
		return 0, err
	}
	if err := c.WriteU8(l.Flags); err != nil {
		return 0, err
	}
	if err := c.WriteU16(window); err != nil {
		return 0, err
	}
	if err := c.WriteU16(0); err != nil { // checksum placeholder
		return 0, err
	}
	if err := c.WriteU16(l.UrgPtr); err != nil {
		return 0, err
	}
	if len(l.Options) > 0 {
		if err := c.WriteBytes(l.Options); err != nil {
			return 0, err
		}
	}

	n, err := packAt(c, layers, idx+1)
	if err != nil {
		return 0, err
	}
	total := headerLen + n

	seg, err := c.Slice(start, start+total)
	if err != nil {
		return 0, err
	}
	cs := checksumWithPseudo(ip.Src, ip.Dst, ProtoTCP, seg, 16)
	binaryPutU16(seg[16:18], cs)

	return total, nil
}

func packUDP(c *buf.Cursor, layers []Layer, idx int, l UDP, start int) (int, error) {
	ip, err := precedingIP4(layers, idx)
	if err != nil {
		return 0, err
	}

	if err := c.WriteU16(l.SPort); err != nil {
		return 0, err
	}
	if err := c.WriteU16(l.DPort); err != nil {
		return 0, err
	}
	if err := c.WriteU16(0); err != nil { // length placeholder
		return 0, err
	}
	if err := c.WriteU16(0); err != nil { // checksum placeholder
		return 0, err
	}

	n, err := packAt(c, layers, idx+1)
	if err != nil {
		return 0, err
	}
	total := 8 + n

	seg, err := c.Slice(start, start+total)
	if err != nil {
		return 0, err
	}
	binaryPutU16(seg[4:6], uint16(total))
	cs := checksumWithPseudo(ip.Src, ip.Dst, ProtoUDP, seg, 6)
	binaryPutU16(seg[6:8], cs)

	return total, nil
}

// checksumWithPseudo computes the Internet checksum over a synthetic
// 12-byte IPv4 pseudo-header followed by seg (L4 header + payload), with
// seg's checksum field (at byte offset csOff within seg) zeroed first.
func checksumWithPseudo(src, dst uint32, proto uint8, seg []byte, csOff int) uint16 {
	binaryPutU16(seg[csOff:csOff+2], 0)
	ph := pseudoHeader(src, dst, proto, len(seg))
	combined := make([]byte, 0, 12+len(seg))
	combined = append(combined, ph[:]...)
	combined = append(combined, seg...)
	return chksum.Internet(combined)
}

func packRaw(c *buf.Cursor, layers []Layer, idx int, l Raw) (int, error) {
	if idx != len(layers)-1 {
		return 0, fmt.Errorf("%w: RAW must be the final layer", ErrEncodeFailed)
	}
	if err := c.WriteBytes(l.Payload); err != nil {
		return 0, err
	}
	return len(l.Payload), nil
}

func binaryPutU16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func binaryPutU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
