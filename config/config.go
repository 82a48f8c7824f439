package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bloXroute-Labs/btcgateway/messages/btc"
)

// configuration defaults
const (
	DefaultSeenBlocksCapacity     = 1024
	DefaultRecoveryDeadlineMS     = 5000
	DefaultMinTxAgeForCompression = 2 * time.Second
	DefaultBlockchainNetwork      = "mainnet"
	DefaultLogLevel               = "info"
)

// Bx represents the gateway configuration
type Bx struct {
	SeenBlocksCapacity     int
	RecoveryDeadline       time.Duration
	NetworkMagic           uint32
	MinTxAgeForCompression time.Duration
	LogLevel               string
}

// NewDefaultBx returns a configuration with all defaults applied. Mostly
// useful for tests.
func NewDefaultBx() *Bx {
	return &Bx{
		SeenBlocksCapacity:     DefaultSeenBlocksCapacity,
		RecoveryDeadline:       DefaultRecoveryDeadlineMS * time.Millisecond,
		NetworkMagic:           btc.MainnetMagic,
		MinTxAgeForCompression: DefaultMinTxAgeForCompression,
		LogLevel:               DefaultLogLevel,
	}
}

// NewBxFromCLI builds the configuration from parsed CLI flags
func NewBxFromCLI(ctx *cli.Context) (*Bx, error) {
	magic, err := networkMagic(ctx.String(BlockchainNetworkFlag.Name))
	if err != nil {
		return nil, err
	}

	return &Bx{
		SeenBlocksCapacity:     ctx.Int(SeenBlocksCapacityFlag.Name),
		RecoveryDeadline:       time.Duration(ctx.Int(RecoveryDeadlineFlag.Name)) * time.Millisecond,
		NetworkMagic:           magic,
		MinTxAgeForCompression: ctx.Duration(MinTxAgeFlag.Name),
		LogLevel:               ctx.String(LogLevelFlag.Name),
	}, nil
}

func networkMagic(network string) (uint32, error) {
	switch network {
	case "mainnet":
		return btc.MainnetMagic, nil
	case "testnet":
		return btc.TestnetMagic, nil
	case "regtest":
		return btc.RegtestMagic, nil
	default:
		return 0, errors.Errorf("unknown blockchain network %q", network)
	}
}
