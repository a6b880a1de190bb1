package format

import "strings"

// ChainType tags the chain family an address belongs to.
type ChainType string

const (
	ChainEthereum  ChainType = "Ethereum"
	ChainSolana    ChainType = "Solana"
	ChainSubstrate ChainType = "Substrate"
	ChainUnknown   ChainType = "Unknown"
)

// ClassifyAddress guesses the chain family from the address syntax alone.
// No checksum or charset validation is done.
func ClassifyAddress(addr string) ChainType {
	if strings.HasPrefix(addr, "0x") {
		return ChainEthereum
	}
	if n := len(addr); n == 43 || n == 44 {
		return ChainSolana
	}
	return ChainSubstrate
}
