package decoder

import "strings"

// Kind enumerates the event kinds the decoder has a rule for.
type Kind int

const (
	KindUnknown Kind = iota
	KindIssuerCreated
	KindSchemaCreated
	KindAttestationCreated
	KindAttestationUpdated
	KindAlgorithmAdded
	KindAlgoResult
	KindTransfer
	KindReserved
	KindUnreserved
	KindExtrinsicFailed

	kindCount
)

// dispatch keys use the lowercased section.
var kindByKey = map[string]Kind{
	"issuersmodule.IssuerCreated":          KindIssuerCreated,
	"credentialsmodule.SchemaCreated":      KindSchemaCreated,
	"credentialsmodule.AttestationCreated": KindAttestationCreated,
	"credentialsmodule.AttestationUpdated": KindAttestationUpdated,
	"algorithmsmodule.AlgorithmAdded":      KindAlgorithmAdded,
	"algorithmsmodule.AlgoResult":          KindAlgoResult,
	"balances.Transfer":                    KindTransfer,
	"balances.Reserved":                    KindReserved,
	"balances.Unreserved":                  KindUnreserved,
	"system.ExtrinsicFailed":               KindExtrinsicFailed,
}

// DispatchKey builds the decoder lookup key for a section and method.
func DispatchKey(section, method string) string {
	return strings.ToLower(section) + "." + method
}

// KindOf returns the kind decoded for section.method, or KindUnknown.
func KindOf(section, method string) Kind {
	return kindByKey[DispatchKey(section, method)]
}

func (k Kind) String() string {
	if k <= KindUnknown || k >= kindCount {
		return "Unknown"
	}
	return rules[k].name
}

// Arity is the number of parameters produced for the kind.
func (k Kind) Arity() int {
	if k <= KindUnknown || k >= kindCount {
		return 0
	}
	if k == KindExtrinsicFailed {
		return 2
	}
	return len(rules[k].fields)
}
