// udp-loadgen is a tiny, dependency-free load generator for the statagg
// daemon. It emits synthetic statsd lines over UDP at a target rate so the
// flush pipeline and the downstream publishers can be exercised without a
// real fleet of clients.
//
// Modes:
//   - mixed: rotate counters, timers, gauges, meters and distinct items
//     across a configurable key space
//   - single: hammer one metric name with one type
//
// Usage examples:
//
//	udp-loadgen -addr=127.0.0.1:8125 -mode=mixed -keys=100 -n=50000 -c=4
//	udp-loadgen -addr=127.0.0.1:8125 -mode=single -key=gorets.requests -type=c -n=10000
//
// Notes:
//   - Several lines are packed per datagram (newline separated) to reduce
//     syscall overhead, matching what real statsd clients do.
//   - Prints a one-line summary with duration and approximate throughput.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

var metricTypes = []string{"c", "ms", "g", "m", "d"}

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:8125", "UDP address of the daemon")
		modeS    = flag.String("mode", "mixed", "Mode: mixed|single")
		key      = flag.String("key", "gorets.requests", "Metric name for single mode")
		typ      = flag.String("type", "c", "Metric type for single mode (c|g|ms|h|m|d)")
		keys     = flag.Int("keys", 100, "Key space size for mixed mode")
		n        = flag.Int("n", 50000, "Total lines to send")
		conc     = flag.Int("c", 4, "Number of concurrent senders")
		perPkt   = flag.Int("per_packet", 8, "Lines packed per datagram")
		interval = flag.Duration("interval", 0, "Optional pause between datagrams per sender")
	)
	flag.Parse()

	if *n <= 0 || *conc <= 0 || *perPkt <= 0 {
		fmt.Fprintln(os.Stderr, "-n, -c and -per_packet must be > 0")
		os.Exit(2)
	}
	if *modeS != "mixed" && *modeS != "single" {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want mixed|single)\n", *modeS)
		os.Exit(2)
	}

	line := func(i int) string {
		if *modeS == "single" {
			if *typ == "d" {
				return fmt.Sprintf("%s:item-%d|d", *key, i)
			}
			return fmt.Sprintf("%s:%d|%s", *key, 1+i%100, *typ)
		}
		k := i % *keys
		switch t := metricTypes[i%len(metricTypes)]; t {
		case "d":
			return fmt.Sprintf("loadgen.metric-%d:item-%d|d", k, i)
		case "g":
			return fmt.Sprintf("loadgen.metric-%d:%d|g", k, i%1000)
		default:
			return fmt.Sprintf("loadgen.metric-%d:%d|%s", k, 1+i%500, t)
		}
	}

	start := time.Now()
	per := *n / *conc
	rem := *n - per**conc

	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, count int) {
			defer wg.Done()
			conn, err := net.Dial("udp", *addr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
				return
			}
			defer conn.Close()

			var pkt []string
			for i := 0; i < count; i++ {
				pkt = append(pkt, line(id*1000000+i))
				if len(pkt) == *perPkt || i == count-1 {
					_, _ = conn.Write([]byte(strings.Join(pkt, "\n")))
					pkt = pkt[:0]
					if *interval > 0 {
						time.Sleep(*interval)
					}
				}
			}
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	fmt.Printf("LoadGen: mode=%s N=%d c=%d Duration=%s Throughput=%.0f lines/s\n",
		*modeS, *n, *conc, elapsed.Truncate(time.Millisecond), float64(*n)/elapsed.Seconds())
}
