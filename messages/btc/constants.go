package btc

// Bitcoin wire protocol framing constants
const (
	// BtcHdrCommonOff is the length of the common Bitcoin message envelope
	BtcHdrCommonOff = 24

	// BtcHeaderMinusChecksum is the offset of the checksum within the envelope
	BtcHeaderMinusChecksum = 20

	// BtcMagicNumberLen is the length of the network magic prefix
	BtcMagicNumberLen = 4

	// BtcCommandLen is the length of the zero-padded ASCII command field
	BtcCommandLen = 12

	// BtcBlockHeaderLen is the length of a serialized block header
	BtcBlockHeaderLen = 80

	// BtcShortNonceLen is the length of the compact block short ID nonce
	BtcShortNonceLen = 8

	// BtcShortIDLen is the length of a compact block short transaction ID
	BtcShortIDLen = 6

	// BtcChecksumLen is the length of the truncated double-SHA256 checksum
	BtcChecksumLen = 4
)

// Bitcoin network magic numbers
const (
	MainnetMagic uint32 = 0xD9B4BEF9
	TestnetMagic uint32 = 0x0709110B
	RegtestMagic uint32 = 0xDAB5BFFA
)

// Bitcoin message commands handled or emitted by the gateway
const (
	BlockCmd        = "block"
	CompactBlockCmd = "cmpctblock"
	BlockTxsCmd     = "blocktxn"
	GetBlockTxsCmd  = "getblocktxn"
	TxCmd           = "tx"
)
