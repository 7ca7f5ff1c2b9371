// Command loranode runs a simulated mesh node: identity, a simulated radio
// link, the routing engine, and the tick driver, wired together the way a
// real board would wire the SX1276 driver, NODE_ID, and board pinout at
// build time (spec §6) — except here the knobs are CLI flags and the radio
// is the in-process simulated bus from internal/radio, not real hardware.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kadewit/lorarouting/internal/clock"
	"github.com/kadewit/lorarouting/internal/engine"
	"github.com/kadewit/lorarouting/internal/identity"
	"github.com/kadewit/lorarouting/internal/logging"
	"github.com/kadewit/lorarouting/internal/metrics"
	"github.com/kadewit/lorarouting/internal/radio"
	"github.com/kadewit/lorarouting/internal/routetable"
	"github.com/kadewit/lorarouting/internal/tick"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		nodeID      int
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "loranode",
		Short: "Run a simulated LoRa mesh routing node",
		Long: `loranode runs a single node of a distance-vector routing mesh for
long-range radio nodes (up to ten, identified 0..9). It drives HELLO
discovery, ROUTINGID vector exchange, local Bellman-Ford relaxation, and
aging against an in-process simulated radio bus, since the real SX1276
driver is out of this module's scope (see spec §1).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), nodeID, metricsAddr, logLevel)
		},
	}

	cmd.Flags().IntVar(&nodeID, "node-id", 0, "this node's id (0..9)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func run(ctx context.Context, nodeIDFlag int, metricsAddr, logLevel string) error {
	if nodeIDFlag < 0 || nodeIDFlag >= identity.MaxNodes {
		return fmt.Errorf("--node-id must be in 0..%d", identity.MaxNodes-1)
	}
	ownID := identity.NodeID(nodeIDFlag)

	log, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	macTable := make(map[identity.NodeID]identity.MAC, identity.MaxNodes)
	for i := 0; i < identity.MaxNodes; i++ {
		macTable[identity.NodeID(i)] = identity.MAC{0, 0, 0, 0, 0, byte(i)}
	}
	dir := identity.NewDirectory(macTable, ownID, staticMACSource{mac: macTable[ownID]})

	medium := radio.NewMedium(log)
	link := medium.Join(fmt.Sprintf("node-%d", ownID))

	mx := metrics.New(nil)
	if metricsAddr != "" {
		go serveMetrics(log, metricsAddr)
	}

	sysClock := clock.NewSystem()
	jitter := clock.NewSystemJitter()

	eng := engine.New(dir, routetable.New(), sysClock, link, log, mx)
	driver := tick.New(eng, link, sysClock, jitter, dir, log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("node starting", zap.Uint8("node_id", uint8(ownID)))
	err = driver.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return nil // clean shutdown via signal/context cancellation
	}
	return err
}

func serveMetrics(log *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}

// staticMACSource serves a compiled-in MAC, standing in for the platform
// identity source (spec §1, §6 — out of scope, referenced only by contract).
type staticMACSource struct {
	mac identity.MAC
}

func (s staticMACSource) ReadMAC() (identity.MAC, error) {
	return s.mac, nil
}
