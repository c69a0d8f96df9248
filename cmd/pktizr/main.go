package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordscan/pktizr/internal/chksum"
	"github.com/nordscan/pktizr/internal/engine"
	"github.com/nordscan/pktizr/internal/iprange"
	"github.com/nordscan/pktizr/internal/metrics"
	"github.com/nordscan/pktizr/internal/netdev"
	"github.com/nordscan/pktizr/internal/resolver"
	"github.com/nordscan/pktizr/internal/script"
)

func main() {
	scriptName := flag.String("S", "", "Script to run (syn, ping); required")
	flag.StringVar(scriptName, "script", "", "Script to run (syn, ping); required")
	ports := flag.String("p", "1", "Target port set (e.g. 22,80,1000-2000)")
	flag.StringVar(ports, "ports", "1", "Target port set (e.g. 22,80,1000-2000)")
	rate := flag.Uint64("r", 100, "Probes/sec; 0 = unthrottled")
	flag.Uint64Var(rate, "rate", 100, "Probes/sec; 0 = unthrottled")
	seed := flag.Uint64("s", 0, "Cookie key seed; 0 draws from OS entropy")
	flag.Uint64Var(seed, "seed", 0, "Cookie key seed; 0 draws from OS entropy")
	wait := flag.Uint64("w", 5, "Post-scan drain seconds")
	flag.Uint64Var(wait, "wait", 5, "Post-scan drain seconds")
	count := flag.Uint64("c", 1, "Duplicate probes per (target, port)")
	flag.Uint64Var(count, "count", 1, "Duplicate probes per (target, port)")
	localAddr := flag.String("l", "", "Local IPv4 address (overrides discovery)")
	flag.StringVar(localAddr, "local-addr", "", "Local IPv4 address (overrides discovery)")
	gatewayAddr := flag.String("g", "", "Gateway IPv4 address (overrides discovery)")
	flag.StringVar(gatewayAddr, "gateway-addr", "", "Gateway IPv4 address (overrides discovery)")
	quiet := flag.Bool("q", false, "Quiet mode - suppress the status line, only log errors")
	flag.BoolVar(quiet, "quiet", false, "Quiet mode - suppress the status line, only log errors")
	help := flag.Bool("h", false, "Show usage and exit")
	flag.BoolVar(help, "help", false, "Show usage and exit")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9700); empty disables it")
	pinSendCPU := flag.Int("pin-send-cpu", -1, "Pin the send worker to this CPU; -1 disables pinning")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pktizr [flags] <targets>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	targetArgs := flag.Args()
	if len(targetArgs) != 1 || *scriptName == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *count == 0 {
		fmt.Fprintf(os.Stderr, "Error: --count must be at least 1\n")
		os.Exit(1)
	}

	var log *slog.Logger
	if *quiet {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	targets, err := iprange.ParseTargets(targetArgs[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid targets %q: %v\n", targetArgs[0], err)
		os.Exit(1)
	}
	portSet, err := iprange.ParsePorts(*ports)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid ports %q: %v\n", *ports, err)
		os.Exit(1)
	}

	var localOverride, gatewayOverride net.IP
	if *localAddr != "" {
		localOverride = net.ParseIP(*localAddr).To4()
		if localOverride == nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --local-addr %q\n", *localAddr)
			os.Exit(1)
		}
	}
	if *gatewayAddr != "" {
		gatewayOverride = net.ParseIP(*gatewayAddr).To4()
		if gatewayOverride == nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --gateway-addr %q\n", *gatewayAddr)
			os.Exit(1)
		}
	}

	ifaceName, localMAC, localIP, gatewayIP, err := resolver.Bootstrap(localOverride, gatewayOverride)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bootstrap: %v\n", err)
		os.Exit(1)
	}
	log.Info("bootstrapped interface", "iface", ifaceName, "local_ip", localIP, "gateway_ip", gatewayIP)

	dev, err := netdev.Open(ifaceName, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open %s: %v\n", ifaceName, err)
		os.Exit(1)
	}
	defer dev.Close()

	gatewayMAC, err := resolver.Resolve(dev, log, localMAC, localIP, gatewayIP)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolve gateway MAC: %v\n", err)
		os.Exit(1)
	}

	var key chksum.Key
	if *seed != 0 {
		key = chksum.NewKeyFromSeed(*seed)
	} else {
		key, err = chksum.NewRandomKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: generate cookie key: %v\n", err)
			os.Exit(1)
		}
	}

	s, err := buildScript(*scriptName, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	var m *metrics.Engine
	if *metricsAddr != "" {
		m = metrics.NewEngine(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", "error", err)
			}
		}()
		log.Info("serving metrics", "addr", *metricsAddr)
	}

	cfg := engine.Config{
		Targets:    targets,
		Ports:      portSet,
		Rate:       *rate,
		Count:      *count,
		Wait:       *wait,
		PinSendCPU: *pinSendCPU,
		LocalMAC:   localMAC,
		LocalIP:    localIP,
		GatewayMAC: gatewayMAC,
		Script:     s,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
	defer cancel()

	e := engine.New(cfg, dev, log, m)
	start := time.Now()

	statusDone := make(chan struct{})
	if !*quiet {
		go reportStatus(ctx, e, start, statusDone)
	} else {
		close(statusDone)
	}

	if err := e.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
		os.Exit(1)
	}

	cancel()
	<-statusDone
	log.Info("scan complete",
		"elapsed", time.Since(start),
		"probes_sent", e.Counters.PktProbe.Load(),
		"packets_sent", e.Counters.PktSent.Load(),
		"packets_recv", e.Counters.PktRecv.Load(),
	)
}

// buildScript selects one of the built-in reference scripts by name. The
// script interface itself is pluggable; these two are what ship in-tree.
func buildScript(name string, key chksum.Key) (script.Script, error) {
	switch name {
	case "syn":
		return &script.SYN{Key: key}, nil
	case "ping":
		return &script.Ping{Key: key}, nil
	default:
		return nil, fmt.Errorf("unknown script %q (want syn or ping)", name)
	}
}

// reportStatus owns the status line: once a second it rewrites one
// stderr line with probe progress and observed rates until ctx fires.
func reportStatus(ctx context.Context, e *engine.Engine, start time.Time, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "\n")
			return
		case <-tick.C:
		}
		p := e.Progress()
		elapsed := time.Since(start).Seconds()
		var pct, rate float64
		if p.Total > 0 {
			pct = 100 * float64(p.Probe) / float64(p.Total)
		}
		if elapsed > 0 {
			rate = float64(p.Sent) / elapsed
		}
		fmt.Fprintf(os.Stderr, "\rprobes: %d/%d (%5.1f%%)  sent: %d  recv: %d  rate: %.0f pps   ",
			p.Probe, p.Total, pct, p.Sent, p.Recv, rate)
	}
}
