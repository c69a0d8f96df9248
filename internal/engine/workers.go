package engine

import (
	"time"

	"github.com/nordscan/pktizr/internal/packet"
	"github.com/nordscan/pktizr/internal/script"
)

// waitToken blocks until the shared token bucket yields a token or stop
// fires, checking stop at the same ~1ms quantum the bucket itself sleeps
// at so cancellation latency stays bounded.
func (e *Engine) waitToken() bool {
	for {
		if e.bucket.TryTake() {
			return true
		}
		if e.stop.Load() {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// runLoop is the loop worker: it enumerates the Cartesian product of
// targets × ports × count under the shared token bucket and enqueues each
// chain the script builds. The token debited for a slot is refunded when
// the script declines it, so skipped slots cost no send budget.
func (e *Engine) runLoop(ctx *script.Context, ready chan<- struct{}) {
	defer e.wg.Done()
	ready <- struct{}{}

	targets := e.cfg.Targets.Count()
	count := e.cfg.Count
	total := e.cfg.Total()

	for i := uint64(0); i < total; i++ {
		if e.stop.Load() {
			return
		}
		if !e.waitToken() {
			return
		}

		// count consecutive duplicates per slot; within a pass the target
		// ordinal advances first, so every target sees a given port before
		// any target sees the next one.
		slot := i / count
		daddr := e.cfg.Targets.Pick(slot % targets)
		dport := uint16(e.cfg.Ports.Pick(slot / targets))

		chain, err := e.cfg.Script.Loop(ctx, daddr, dport)
		if err != nil {
			e.log.Error("script loop failed", "error", err, "dst_ip", daddr, "dst_port", dport)
			if e.metrics != nil {
				e.metrics.ScriptErrorsTotal.Inc()
			}
			e.bucket.Refund()
			continue
		}
		if chain == nil {
			e.bucket.Refund()
			continue
		}
		chain.Probe = true
		e.q.Enqueue(chain)
	}
}

// runSend is the send worker: it dequeues chains, packs them into a netdev
// scratch buffer and injects them, draining the queue before it finally
// exits once stop fires. The loop side already debited one token per
// enqueued chain, so the drain here runs as fast as the queue fills.
func (e *Engine) runSend(ready chan<- struct{}) {
	defer e.wg.Done()
	if e.cfg.PinSendCPU >= 0 {
		if err := pinCurrentThreadToCPU(e.cfg.PinSendCPU); err != nil {
			e.log.Warn("failed to pin send worker", "cpu", e.cfg.PinSendCPU, "error", err)
		}
	}
	ready <- struct{}{}
	for {
		chain := e.q.Dequeue()
		if chain == nil {
			if e.stop.Load() {
				return
			}
			time.Sleep(time.Millisecond)
			continue
		}
		isProbe := chain.Probe
		if err := e.injectChain(chain); err != nil {
			e.log.Debug("send: encode/inject failed", "error", err)
			if e.metrics != nil {
				e.metrics.EncodeErrorsTotal.Inc()
			}
			continue
		}
		e.Counters.PktSent.Add(1)
		if e.metrics != nil {
			e.metrics.PacketsSentTotal.Inc()
		}
		if isProbe {
			e.Counters.PktProbe.Add(1)
			if e.metrics != nil {
				e.metrics.ProbesSentTotal.Inc()
			}
		}
	}
}

// injectChain packs chain into a netdev scratch buffer and injects it. It
// is used both by the send worker (queued path) and a script's direct
// Send call, which bypasses the queue and rate limiter.
func (e *Engine) injectChain(chain *packet.Chain) error {
	buf := e.dev.GetBuf()
	n, err := packet.Pack(buf, chain)
	if err != nil {
		return err
	}
	return e.dev.Inject(buf, n)
}

// runRecv is the recv worker: captures frames, decodes them, and invokes
// the script's Recv.
func (e *Engine) runRecv(ctx *script.Context, ready chan<- struct{}) {
	defer e.wg.Done()
	ready <- struct{}{}
	sender := &directSender{e: e}

	for {
		if e.stop.Load() {
			return
		}
		buf, ok, err := e.dev.Capture()
		if err != nil {
			e.log.Debug("recv: capture error", "error", err)
			continue
		}
		if !ok {
			continue
		}
		chain, err := packet.Unpack(buf)
		e.dev.Release()
		if err != nil {
			if e.metrics != nil {
				e.metrics.DecodeErrorsTotal.Inc()
			}
			continue
		}

		consumed, halt, err := e.cfg.Script.Recv(ctx, chain, sender)
		if err != nil {
			e.log.Error("script recv failed", "error", err)
			if e.metrics != nil {
				e.metrics.ScriptErrorsTotal.Inc()
			}
			continue
		}
		if consumed {
			e.Counters.PktRecv.Add(1)
			if e.metrics != nil {
				e.metrics.PacketsReceivedTotal.Inc()
			}
		}
		if halt {
			e.stop.Store(true)
			return
		}
	}
}
