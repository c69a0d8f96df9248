package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nordscan/pktizr/internal/iprange"
	"github.com/nordscan/pktizr/internal/packet"
	"github.com/nordscan/pktizr/internal/script"
	"github.com/stretchr/testify/require"
)

// fakeDev is an in-memory netdev.Handle that records every injected frame
// and never yields a captured frame, enough to exercise the loop/send
// workers without a real link.
type fakeDev struct {
	mu       sync.Mutex
	injected [][]byte
}

func (f *fakeDev) GetBuf() []byte { return make([]byte, 256) }

func (f *fakeDev) Inject(buf []byte, n int) error {
	frame := make([]byte, n)
	copy(frame, buf[:n])
	f.mu.Lock()
	f.injected = append(f.injected, frame)
	f.mu.Unlock()
	return nil
}

func (f *fakeDev) Capture() ([]byte, bool, error) {
	time.Sleep(time.Millisecond)
	return nil, false, nil
}
func (f *fakeDev) Release()    {}
func (f *fakeDev) Close() error { return nil }

func (f *fakeDev) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.injected)
}

// countingScript produces one UDP probe per (addr, port) and never matches
// anything on recv; used to exercise loop enumeration in isolation from any
// specific built-in script's semantics.
type countingScript struct{}

func (countingScript) Load(cfg script.Context) (*script.Context, error) {
	c := cfg
	return &c, nil
}

func (countingScript) Loop(ctx *script.Context, dstIP uint32, dstPort uint16) (*packet.Chain, error) {
	return packet.New(true,
		packet.Eth{Src: ctx.LocalMAC, Dst: ctx.GatewayMAC},
		packet.IP4{Src: ctx.LocalIP, Dst: dstIP},
		packet.UDP{SPort: 1, DPort: dstPort},
	), nil
}

func (countingScript) Recv(ctx *script.Context, chain *packet.Chain, send script.Sender) (bool, bool, error) {
	return false, false, nil
}

func (countingScript) Close(ctx *script.Context) error { return nil }

func mustTargets(t *testing.T, s string) *iprange.Set {
	t.Helper()
	set, err := iprange.ParseTargets(s)
	require.NoError(t, err)
	return set
}

func mustPorts(t *testing.T, s string) *iprange.Set {
	t.Helper()
	set, err := iprange.ParsePorts(s)
	require.NoError(t, err)
	return set
}

func TestEngine_EnumeratesEachTargetPortCountTimes(t *testing.T) {
	targets := mustTargets(t, "192.0.2.1-192.0.2.3")
	ports := mustPorts(t, "22,80")
	const count = 2

	cfg := Config{
		Targets:    targets,
		Ports:      ports,
		Rate:       0,
		Count:      count,
		Wait:       0,
		Script:     countingScript{},
		PinSendCPU: -1,
	}
	dev := &fakeDev{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(cfg, dev, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))

	want := targets.Count() * ports.Count() * count
	require.Equal(t, want, e.Counters.PktProbe.Load())
	require.Equal(t, int(want), dev.count())
}

func TestEngine_RespectsContextCancellation(t *testing.T) {
	targets := mustTargets(t, "10.0.0.0/16") // large enough that it won't finish quickly at rate=10
	ports := mustPorts(t, "1-100")

	cfg := Config{
		Targets:    targets,
		Ports:      ports,
		Rate:       10,
		Count:      1,
		Wait:       5,
		Script:     countingScript{},
		PinSendCPU: -1,
	}
	dev := &fakeDev{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(cfg, dev, log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop promptly after context cancellation")
	}
}
