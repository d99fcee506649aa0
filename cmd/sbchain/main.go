// Command sbchain starts a single node of the peer-to-peer ledger. Argument
// parsing is deliberately minimal (spec §1 Non-goal on CLI elaboration): it
// gathers just enough to build a node.Config and start it.
package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/sjpacwa/sbchain-go/log"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/node"
	"github.com/sjpacwa/sbchain-go/params"
)

var (
	hostFlag = cli.StringFlag{
		Name:  "host",
		Value: "127.0.0.1",
		Usage: "address to bind the RPC listener to",
	}
	portFlag = cli.IntFlag{
		Name:  "port",
		Value: 5000,
		Usage: "port to bind the RPC listener to",
	}
	nodeIDFlag = cli.StringFlag{
		Name:  "node-id",
		Usage: "this node's opaque identifier",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Value: "config.ini",
		Usage: "path to the [General] difficulty config file",
	}
	peerFlag = cli.StringSliceFlag{
		Name:  "peer",
		Usage: "initial peer address host:port, may be repeated",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "lower the log level to trace",
	}
	noMineFlag = cli.BoolFlag{
		Name:  "no-mine",
		Usage: "drain queues without searching for proofs",
	}
	benchmarkFlag = cli.BoolFlag{
		Name:  "benchmark",
		Usage: "wait for benchmark_initialize before mining",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "sbchain"
	app.Usage = "a peer-to-peer proof-of-work ledger node"
	app.Flags = []cli.Flag{
		hostFlag, portFlag, nodeIDFlag, configFlag, peerFlag,
		debugFlag, noMineFlag, benchmarkFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.Bool(debugFlag.Name) {
		log.SetRootHandler(log.LvlFilterHandler(log.LvlTrace, log.RootHandler()))
	}

	nodeID := ctx.String(nodeIDFlag.Name)
	if nodeID == "" {
		return cli.NewExitError("missing required flag -node-id", 1)
	}

	cfg, err := params.LoadBlockchainConfig(ctx.String(configFlag.Name))
	if err != nil {
		log.Warn("Falling back to difficulty 0", "err", err)
		cfg = params.NewBlockchainConfig(0)
	}

	peers, err := parsePeers(ctx.StringSlice(peerFlag.Name))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	n := node.New(node.Config{
		NodeID:        nodeID,
		Host:          ctx.String(hostFlag.Name),
		Port:          ctx.Int(portFlag.Name),
		Config:        cfg,
		InitialPeers:  peers,
		BenchmarkMode: ctx.Bool(benchmarkFlag.Name),
		NoMine:        ctx.Bool(noMineFlag.Name),
	})

	if err := n.Start(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	select {}
}

func parsePeers(addrs []string) ([]p2p.Peer, error) {
	peers := make([]p2p.Peer, 0, len(addrs))
	for _, addr := range addrs {
		host, port, err := splitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid -peer %q: %w", addr, err)
		}
		peers = append(peers, p2p.Peer{Host: host, Port: port})
	}
	return peers, nil
}

func splitHostPort(addr string) (string, int, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("expected host:port")
	}
	host := addr[:idx]
	var port int
	if _, err := fmt.Sscanf(addr[idx+1:], "%d", &port); err != nil {
		return "", 0, fmt.Errorf("invalid port: %w", err)
	}
	return host, port, nil
}
