package format

import (
	"strings"
	"testing"
)

func TestClassifyAddress(t *testing.T) {
	cases := map[string]ChainType{
		"0xabc":                                      ChainEthereum,
		"0x52908400098527886E0F7030069857D2E4169EE7": ChainEthereum,
		strings.Repeat("A", 44):                      ChainSolana,
		strings.Repeat("B", 43):                      ChainSolana,
		"5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY": ChainSubstrate,
		"":      ChainSubstrate,
		"short": ChainSubstrate,
	}
	for addr, want := range cases {
		if got := ClassifyAddress(addr); got != want {
			t.Fatalf("ClassifyAddress(%q) = %s, want %s", addr, got, want)
		}
	}
}
