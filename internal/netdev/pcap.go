package netdev

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopacket/gopacket/pcap"
)

// pollTimeout bounds how long a single Capture call blocks the recv worker
// waiting on the driver, keeping it responsive to the stop signal it checks
// at the top of its next loop iteration.
const pollTimeout = 50 * time.Millisecond

// PcapHandle is the production Handle backed by libpcap live capture and
// injection on a single activated handle.
type PcapHandle struct {
	log     *slog.Logger
	handle  *pcap.Handle
	packets chan []byte
	done    chan struct{}
}

// Open binds ifName for both capture and injection in promiscuous mode.
// snaplen is large enough to capture a full crafted frame uncut.
func Open(ifName string, log *slog.Logger) (*PcapHandle, error) {
	inactive, err := pcap.NewInactiveHandle(ifName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(maxFrame); err != nil {
		return nil, fmt.Errorf("%w: set snaplen: %w", ErrOpenFailed, err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, fmt.Errorf("%w: set promisc: %w", ErrOpenFailed, err)
	}
	if err := inactive.SetTimeout(pollTimeout); err != nil {
		return nil, fmt.Errorf("%w: set timeout: %w", ErrOpenFailed, err)
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("%w: set immediate mode: %w", ErrOpenFailed, err)
	}

	h, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("%w: activate %s: %w", ErrOpenFailed, ifName, err)
	}

	p := &PcapHandle{
		log:     log,
		handle:  h,
		packets: make(chan []byte, 1024),
		done:    make(chan struct{}),
	}
	go p.readLoop()
	return p, nil
}

// readLoop drains the pcap handle into a buffered channel so Capture can
// be a simple non-blocking poll; the packet model's own Unpack does the
// actual layer decode, so there is no need to route frames through a
// gopacket.PacketSource here.
func (p *PcapHandle) readLoop() {
	for {
		select {
		case <-p.done:
			return
		default:
		}
		data, _, err := p.handle.ReadPacketData()
		if err != nil {
			if err == pcap.NextErrorTimeoutExpired {
				continue
			}
			p.log.Debug("pcap read error", "error", err)
			continue
		}
		buf := make([]byte, len(data))
		copy(buf, data)
		select {
		case p.packets <- buf:
		case <-p.done:
			return
		default:
			p.log.Warn("dropping captured frame, recv side is backed up")
		}
	}
}

func (p *PcapHandle) GetBuf() []byte {
	return make([]byte, maxFrame)
}

func (p *PcapHandle) Inject(buf []byte, n int) error {
	return p.handle.WritePacketData(buf[:n])
}

func (p *PcapHandle) Capture() ([]byte, bool, error) {
	select {
	case buf := <-p.packets:
		return buf, true, nil
	case <-time.After(pollTimeout):
		return nil, false, nil
	}
}

// Release is a no-op: each captured frame is its own allocation, not a
// driver-pooled buffer, so there is nothing to hand back. Kept to satisfy
// the Handle contract, which other drivers (e.g. a ring-buffer backed one)
// would use to recycle slots.
func (p *PcapHandle) Release() {}

func (p *PcapHandle) Close() error {
	close(p.done)
	p.handle.Close()
	return nil
}
