// Package engine implements the stateless scan loop: the loop/send/recv
// worker split, its lifecycle, and progress counters.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nordscan/pktizr/internal/metrics"
	"github.com/nordscan/pktizr/internal/netdev"
	"github.com/nordscan/pktizr/internal/packet"
	"github.com/nordscan/pktizr/internal/queue"
	"github.com/nordscan/pktizr/internal/ratelimit"
	"github.com/nordscan/pktizr/internal/script"
)

// Counters are the monotonic progress counters the status line reads; the
// optional Prometheus counters are incremented alongside them. Each field
// has a single writer, so relaxed atomic loads/stores suffice.
type Counters struct {
	PktSent  atomic.Uint64
	PktProbe atomic.Uint64
	PktRecv  atomic.Uint64
}

// Progress is a point-in-time snapshot of the scan for status reporting.
type Progress struct {
	Sent  uint64
	Probe uint64
	Recv  uint64
	Total uint64
}

// Engine owns the three workers and the resources they share.
type Engine struct {
	cfg     Config
	dev     netdev.Handle
	log     *slog.Logger
	metrics *metrics.Engine

	bucket *ratelimit.Bucket
	q      *queue.Queue

	Counters Counters

	done atomic.Bool // set once every probe is on the wire; gates the post-scan drain
	stop atomic.Bool // set to unwind all three workers

	wg sync.WaitGroup
}

// New constructs an Engine over an already-open netdev handle. cfg.Script
// must be non-nil and loadable twice: the loop and recv workers each get
// an independent context and share no mutable script state.
func New(cfg Config, dev netdev.Handle, log *slog.Logger, m *metrics.Engine) *Engine {
	return &Engine{
		cfg:     cfg,
		dev:     dev,
		log:     log,
		metrics: m,
		bucket:  ratelimit.New(cfg.Rate),
		q:       queue.New(),
	}
}

// Progress returns a snapshot of the scan counters.
func (e *Engine) Progress() Progress {
	return Progress{
		Sent:  e.Counters.PktSent.Load(),
		Probe: e.Counters.PktProbe.Load(),
		Recv:  e.Counters.PktRecv.Load(),
		Total: e.cfg.Total(),
	}
}

// Run starts the loop/send/recv workers, waits for each to signal ready,
// blocks until the scan completes (all probes sent and the post-scan drain
// elapses) or ctx is cancelled, then stops and joins all workers.
func (e *Engine) Run(ctx context.Context) error {
	loopCtx, err := e.cfg.Script.Load(script.Context{LocalMAC: e.cfg.LocalMAC, LocalIP: e.cfg.LocalIP, GatewayMAC: e.cfg.GatewayMAC})
	if err != nil {
		return fmt.Errorf("engine: load loop script context: %w", err)
	}
	recvCtx, err := e.cfg.Script.Load(script.Context{LocalMAC: e.cfg.LocalMAC, LocalIP: e.cfg.LocalIP, GatewayMAC: e.cfg.GatewayMAC})
	if err != nil {
		return fmt.Errorf("engine: load recv script context: %w", err)
	}
	defer e.cfg.Script.Close(loopCtx)
	defer e.cfg.Script.Close(recvCtx)

	ready := make(chan struct{}, 3)
	e.wg.Add(3)
	go e.runLoop(loopCtx, ready)
	go e.runSend(ready)
	go e.runRecv(recvCtx, ready)
	for i := 0; i < 3; i++ {
		<-ready
	}

	go func() {
		<-ctx.Done()
		e.stop.Store(true)
	}()

	// Once every probe is on the wire, drain for Wait seconds to collect
	// late replies, then stop the workers.
	go func() {
		for !e.done.Load() && !e.stop.Load() {
			if e.Counters.PktProbe.Load() >= e.cfg.Total() {
				e.done.Store(true)
				break
			}
			time.Sleep(time.Millisecond)
		}
		if e.stop.Load() {
			return
		}
		select {
		case <-time.After(time.Duration(e.cfg.Wait) * time.Second):
		case <-ctx.Done():
		}
		e.stop.Store(true)
	}()

	e.wg.Wait()
	return nil
}

// directSender lets a script inject a reply synchronously from Recv,
// bypassing the rate limiter and outbound queue.
type directSender struct {
	e *Engine
}

func (s *directSender) Send(chain *packet.Chain) error {
	return s.e.injectChain(chain)
}
