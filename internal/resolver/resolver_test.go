package resolver

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nordscan/pktizr/internal/packet"
	"github.com/stretchr/testify/require"
)

// fakeHandle is a minimal in-memory netdev.Handle for resolver tests: every
// Inject call is recorded, and Capture replays a queued set of frames.
type fakeHandle struct {
	injected [][]byte
	replies  [][]byte
	pos      int
}

func (f *fakeHandle) GetBuf() []byte { return make([]byte, 128) }

func (f *fakeHandle) Inject(buf []byte, n int) error {
	frame := make([]byte, n)
	copy(frame, buf[:n])
	f.injected = append(f.injected, frame)
	return nil
}

func (f *fakeHandle) Capture() ([]byte, bool, error) {
	if f.pos >= len(f.replies) {
		return nil, false, nil
	}
	frame := f.replies[f.pos]
	f.pos++
	return frame, true, nil
}

func (f *fakeHandle) Release()     {}
func (f *fakeHandle) Close() error { return nil }

func arpReplyFrame(t *testing.T, srcMAC packet.MAC, srcIP, dstIP uint32, dstMAC packet.MAC) []byte {
	t.Helper()
	chain := packet.New(false,
		packet.Eth{Src: srcMAC, Dst: dstMAC},
		packet.ARP{HWType: 1, ProtoType: packet.EtherTypeIPv4, Op: packet.ARPReply, SrcMAC: srcMAC, SrcIP: srcIP, DstMAC: dstMAC, DstIP: dstIP},
	)
	buf := make([]byte, 64)
	n, err := packet.Pack(buf, chain)
	require.NoError(t, err)
	return buf[:n]
}

func TestResolve_MatchingReply(t *testing.T) {
	t.Parallel()
	local := packet.MAC{1, 1, 1, 1, 1, 1}
	gwMAC := packet.MAC{2, 2, 2, 2, 2, 2}
	const localIP, gatewayIP = 0x0A000001, 0x0A0000FE

	dev := &fakeHandle{replies: [][]byte{arpReplyFrame(t, gwMAC, gatewayIP, localIP, local)}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	got, err := Resolve(dev, log, local, localIP, gatewayIP)
	require.NoError(t, err)
	require.Equal(t, gwMAC, got)
	require.Len(t, dev.injected, 1)
}

func TestResolve_IgnoresUnrelatedReplies(t *testing.T) {
	t.Parallel()
	local := packet.MAC{1, 1, 1, 1, 1, 1}
	gwMAC := packet.MAC{2, 2, 2, 2, 2, 2}
	const localIP, gatewayIP = 0x0A000001, 0x0A0000FE

	unrelated := arpReplyFrame(t, packet.MAC{9, 9, 9, 9, 9, 9}, 0x0A0000FF, localIP, local)
	match := arpReplyFrame(t, gwMAC, gatewayIP, localIP, local)
	dev := &fakeHandle{replies: [][]byte{unrelated, match}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	got, err := Resolve(dev, log, local, localIP, gatewayIP)
	require.NoError(t, err)
	require.Equal(t, gwMAC, got)
}

func TestResolve_TimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 5s timeout test in -short mode")
	}
	local := packet.MAC{1, 1, 1, 1, 1, 1}
	dev := &fakeHandle{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	start := time.Now()
	_, err := Resolve(dev, log, local, 1, 2)
	require.ErrorIs(t, err, ErrArpTimeout)
	require.GreaterOrEqual(t, time.Since(start), Timeout)
}
