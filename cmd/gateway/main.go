package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/bloXroute-Labs/btcgateway/blockchain"
	"github.com/bloXroute-Labs/btcgateway/config"
	"github.com/bloXroute-Labs/btcgateway/connections"
	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/utils"
)

func main() {
	app := &cli.App{
		Name:  "gateway",
		Usage: "relay blocks and transactions between a Bitcoin node and the BDN",
		Flags: []cli.Flag{
			config.SeenBlocksCapacityFlag,
			config.RecoveryDeadlineFlag,
			config.BlockchainNetworkFlag,
			config.MinTxAgeFlag,
			config.LogLevelFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorf("gateway exited with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.NewBxFromCLI(ctx)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	bridge := blockchain.NewBxBridge()
	node := connections.NewGatewayNode(cfg, bridge, utils.RealClock{})
	protocol := connections.NewBtcBlockchainProtocol(node, blockchain.BtcConverter{})

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go node.HandleBridgeMessages(runCtx, protocol)

	log.Infof("gateway started on %v with seen blocks capacity %v, recovery deadline %v",
		ctx.String(config.BlockchainNetworkFlag.Name), cfg.SeenBlocksCapacity, cfg.RecoveryDeadline)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	log.Info("gateway shutting down")
	return nil
}
