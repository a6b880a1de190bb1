package decoder

import (
	"github.com/ethereum/go-ethereum/common"
)

// AccountKind is the variant of a multi-chain account identifier.
type AccountKind int

const (
	AccountUnknown AccountKind = iota
	AccountEthereum
	AccountSubstrate
	AccountSolana
)

func (k AccountKind) String() string {
	switch k {
	case AccountEthereum:
		return "Ethereum"
	case AccountSubstrate:
		return "Substrate"
	case AccountSolana:
		return "Solana"
	default:
		return "Unknown"
	}
}

// accountPriority is the order in which variants are tried.
var accountPriority = []AccountKind{AccountEthereum, AccountSubstrate, AccountSolana}

// ChainAccount is a resolved account identifier.
type ChainAccount struct {
	Kind    AccountKind
	Address string
}

// Display renders the address, or "Unknown" when none could be resolved.
func (a ChainAccount) Display() string {
	if a.Address == "" {
		return AccountUnknown.String()
	}
	return a.Address
}

// ResolveAccount picks the first variant present in priority order. A bare
// string is taken as the address of an untagged account.
func ResolveAccount(raw any) ChainAccount {
	if s, ok := raw.(string); ok {
		return ChainAccount{Kind: AccountUnknown, Address: s}
	}
	for _, kind := range accountPriority {
		inner, ok := variant(raw, kind.String())
		if !ok || inner == nil {
			continue
		}
		addr, err := displayText(inner)
		if err != nil || addr == "" {
			continue
		}
		if kind == AccountEthereum && common.IsHexAddress(addr) {
			addr = common.HexToAddress(addr).Hex()
		}
		return ChainAccount{Kind: kind, Address: addr}
	}
	return ChainAccount{Kind: AccountUnknown}
}
