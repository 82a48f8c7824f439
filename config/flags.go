package config

import (
	"github.com/urfave/cli/v2"
)

// CLI flag definitions for the gateway
var (
	// SeenBlocksCapacityFlag bounds the recently seen blocks dedup set
	SeenBlocksCapacityFlag = &cli.IntFlag{
		Name:  "seen-blocks-capacity",
		Usage: "number of recently seen block hashes retained for dedup",
		Value: DefaultSeenBlocksCapacity,
	}

	// RecoveryDeadlineFlag bounds how long a partial block reconstruction is kept
	RecoveryDeadlineFlag = &cli.IntFlag{
		Name:  "recovery-deadline-ms",
		Usage: "milliseconds after which a partial block reconstruction is abandoned",
		Value: DefaultRecoveryDeadlineMS,
	}

	// BlockchainNetworkFlag selects the Bitcoin network magic
	BlockchainNetworkFlag = &cli.StringFlag{
		Name:  "blockchain-network",
		Usage: "blockchain network to connect to (mainnet, testnet, regtest)",
		Value: DefaultBlockchainNetwork,
	}

	// MinTxAgeFlag bounds which transactions are eligible for block compression
	MinTxAgeFlag = &cli.DurationFlag{
		Name:  "min-tx-age",
		Usage: "minimum age of a stored transaction before blocks compress it by short ID",
		Value: DefaultMinTxAgeForCompression,
	}

	// LogLevelFlag sets the log verbosity
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (trace, debug, info, warn, error)",
		Value: DefaultLogLevel,
	}
)
