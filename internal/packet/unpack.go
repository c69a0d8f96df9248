package packet

import (
	"encoding/binary"
	"fmt"

	"github.com/nordscan/pktizr/internal/chksum"
)

// Unpack decodes data as an Ethernet frame, dispatching on ethertype and
// (for IPv4) IP protocol to append one record per recognized layer.
// Trailing bytes after the last recognized header become a RAW record; an
// unrecognized ethertype or protocol halts further dispatch and the
// remainder becomes RAW too.
func Unpack(data []byte) (*Chain, error) {
	if len(data) < 14 {
		return nil, fmt.Errorf("%w: frame shorter than an Ethernet header", ErrTruncated)
	}
	eth := Eth{EtherType: binary.BigEndian.Uint16(data[12:14])}
	copy(eth.Dst[:], data[0:6])
	copy(eth.Src[:], data[6:12])

	layers := []Layer{eth}
	rest := data[14:]

	switch eth.EtherType {
	case EtherTypeARP:
		l, trailing, err := unpackARP(rest)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
		rest = trailing
	case EtherTypeIPv4:
		ls, err := unpackIP4(rest)
		if err != nil {
			return nil, err
		}
		layers = append(layers, ls...)
		rest = nil
	default:
		// Unknown ethertype: remainder is opaque.
	}

	if len(rest) > 0 {
		layers = append(layers, Raw{Payload: append([]byte(nil), rest...)})
	}
	return &Chain{Layers: layers}, nil
}

func unpackARP(b []byte) (ARP, []byte, error) {
	if len(b) < 28 {
		return ARP{}, nil, fmt.Errorf("%w: ARP message", ErrTruncated)
	}
	a := ARP{
		HWType:    binary.BigEndian.Uint16(b[0:2]),
		ProtoType: binary.BigEndian.Uint16(b[2:4]),
		Op:        binary.BigEndian.Uint16(b[6:8]),
		SrcIP:     binary.BigEndian.Uint32(b[14:18]),
		DstIP:     binary.BigEndian.Uint32(b[24:28]),
	}
	copy(a.SrcMAC[:], b[8:14])
	copy(a.DstMAC[:], b[18:24])
	return a, b[28:], nil
}

// unpackIP4 decodes the IPv4 header (including any options) plus whatever
// transport layer its protocol field names, bounding the decoded region to
// the header's declared TotalLength so trailing link-layer padding is not
// misread as payload.
func unpackIP4(b []byte) ([]Layer, error) {
	if len(b) < 20 {
		return nil, fmt.Errorf("%w: IP4 header", ErrTruncated)
	}
	verIHL := b[0]
	if verIHL>>4 != 4 {
		return nil, fmt.Errorf("%w: not an IPv4 header", ErrTruncated)
	}
	ihl := int(verIHL&0x0f) * 4
	if ihl < 20 || len(b) < ihl {
		return nil, fmt.Errorf("%w: IP4 header extends past frame", ErrTruncated)
	}
	totalLen := binary.BigEndian.Uint16(b[2:4])
	flagsFrag := binary.BigEndian.Uint16(b[6:8])

	ip := IP4{
		TotalLength: totalLen,
		ID:          binary.BigEndian.Uint16(b[4:6]),
		Flags:       uint8(flagsFrag >> 13),
		FragOffset:  flagsFrag & 0x1fff,
		TTL:         b[8],
		Protocol:    b[9],
		Checksum:    binary.BigEndian.Uint16(b[10:12]),
		Src:         binary.BigEndian.Uint32(b[12:16]),
		Dst:         binary.BigEndian.Uint32(b[16:20]),
	}
	if ihl > 20 {
		ip.Options = append([]byte(nil), b[20:ihl]...)
	}
	if !chksum.Verify(b[:ihl]) {
		return nil, fmt.Errorf("%w: IP4 header", ErrBadChecksum)
	}

	end := len(b)
	if int(totalLen) > 0 {
		if int(totalLen) > len(b) {
			return nil, fmt.Errorf("%w: IP4 declared length exceeds captured bytes", ErrTruncated)
		}
		end = int(totalLen)
	}
	payload := b[ihl:end]

	layers := []Layer{ip}
	switch ip.Protocol {
	case ProtoICMP:
		l, trailing, err := unpackICMP(payload)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
		if len(trailing) > 0 {
			layers = append(layers, Raw{Payload: append([]byte(nil), trailing...)})
		}
	case ProtoTCP:
		l, trailing, err := unpackTCP(payload)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
		if len(trailing) > 0 {
			layers = append(layers, Raw{Payload: append([]byte(nil), trailing...)})
		}
	case ProtoUDP:
		l, trailing, err := unpackUDP(payload)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
		if len(trailing) > 0 {
			layers = append(layers, Raw{Payload: append([]byte(nil), trailing...)})
		}
	default:
		if len(payload) > 0 {
			layers = append(layers, Raw{Payload: append([]byte(nil), payload...)})
		}
	}
	return layers, nil
}

func unpackICMP(b []byte) (ICMP, []byte, error) {
	if len(b) < 8 {
		return ICMP{}, nil, fmt.Errorf("%w: ICMP header", ErrTruncated)
	}
	ic := ICMP{
		Type:     b[0],
		Code:     b[1],
		Checksum: binary.BigEndian.Uint16(b[2:4]),
		ID:       binary.BigEndian.Uint16(b[4:6]),
		Seq:      binary.BigEndian.Uint16(b[6:8]),
	}
	return ic, b[8:], nil
}

func unpackTCP(b []byte) (TCP, []byte, error) {
	if len(b) < 20 {
		return TCP{}, nil, fmt.Errorf("%w: TCP header", ErrTruncated)
	}
	dataOff := int(b[12]>>4) * 4
	if dataOff < 20 || dataOff > len(b) {
		return TCP{}, nil, fmt.Errorf("%w: TCP data offset extends past segment", ErrTruncated)
	}
	t := TCP{
		SPort:          binary.BigEndian.Uint16(b[0:2]),
		DPort:          binary.BigEndian.Uint16(b[2:4]),
		Seq:            binary.BigEndian.Uint32(b[4:8]),
		AckSeq:         binary.BigEndian.Uint32(b[8:12]),
		Flags:          b[13],
		Window:         binary.BigEndian.Uint16(b[14:16]),
		Checksum:       binary.BigEndian.Uint16(b[16:18]),
		UrgPtr:         binary.BigEndian.Uint16(b[18:20]),
		decodedDataOff: uint8(dataOff / 4),
	}
	if dataOff > 20 {
		t.Options = append([]byte(nil), b[20:dataOff]...)
	}
	return t, b[dataOff:], nil
}

func unpackUDP(b []byte) (UDP, []byte, error) {
	if len(b) < 8 {
		return UDP{}, nil, fmt.Errorf("%w: UDP header", ErrTruncated)
	}
	length := binary.BigEndian.Uint16(b[4:6])
	u := UDP{
		SPort:    binary.BigEndian.Uint16(b[0:2]),
		DPort:    binary.BigEndian.Uint16(b[2:4]),
		Length:   length,
		Checksum: binary.BigEndian.Uint16(b[6:8]),
	}
	end := len(b)
	if int(length) > 0 {
		if int(length) > len(b) {
			return UDP{}, nil, fmt.Errorf("%w: UDP declared length exceeds segment", ErrTruncated)
		}
		end = int(length)
	}
	return u, b[8:end], nil
}
