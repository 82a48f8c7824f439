package types

// ShortID represents the compressed transaction ID assigned within the BDN
type ShortID uint32

// ShortIDList represents a list of BDN short IDs
type ShortIDList []ShortID

// ShortIDEmpty is the default, unassigned short ID
const ShortIDEmpty = 0
