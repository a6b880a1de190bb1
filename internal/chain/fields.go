package chain

import (
	"fmt"
	"strings"
)

// FieldNames maps "section.method" to the names of an event's positional
// fields. Keys are matched case-insensitively.
type FieldNames map[string][]string

// defaultEventFields follows the field order of the runtime's event declarations.
var defaultEventFields = FieldNames{
	"issuersModule.IssuerCreated":          {"hash_", "issuerName", "controllersIdentified"},
	"credentialsModule.SchemaCreated":      {"schemaHash", "schema", "issuerHash"},
	"credentialsModule.AttestationCreated": {"issuerHash", "accountId", "schemaHash", "attestationIndex", "attestation"},
	"credentialsModule.AttestationUpdated": {"issuerHash", "accountId", "schemaHash", "attestationIndex", "attestation"},
	"algorithmsModule.AlgorithmAdded":      {"algorithmId", "schemaHashes"},
	"algorithmsModule.AlgoResult":          {"result", "issuerHash", "accountId"},
	"balances.Transfer":                    {"from", "to", "amount"},
	"balances.Reserved":                    {"who", "amount"},
	"balances.Unreserved":                  {"who", "amount"},
	"system.ExtrinsicFailed":               {"dispatchError", "dispatchInfo"},
}

// DefaultEventFields returns a copy of the built-in field table.
func DefaultEventFields() FieldNames {
	out := make(FieldNames, len(defaultEventFields))
	for k, v := range defaultEventFields {
		out[strings.ToLower(k)] = append([]string(nil), v...)
	}
	return out
}

// ParseFieldOverrides reads "section.method" -> "a,b,c" entries.
func ParseFieldOverrides(raw map[string]string) (FieldNames, error) {
	out := make(FieldNames, len(raw))
	for event, list := range raw {
		if !strings.Contains(event, ".") {
			return nil, fmt.Errorf("event field override %q: expected section.method", event)
		}
		var names []string
		for _, name := range strings.Split(list, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("event field override %q: no field names", event)
		}
		out[strings.ToLower(event)] = names
	}
	return out, nil
}

// Merge returns the default table with overrides applied.
func (f FieldNames) Merge(overrides FieldNames) FieldNames {
	out := make(FieldNames, len(f)+len(overrides))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Name positional data. Unknown events get "0", "1", ... keys; extra values
// beyond the known names are dropped.
func (f FieldNames) Name(fullName string, data []any) map[string]any {
	names, ok := f[strings.ToLower(fullName)]
	out := make(map[string]any, len(data))
	for i, v := range data {
		switch {
		case ok && i < len(names):
			out[names[i]] = v
		case !ok:
			out[fmt.Sprint(i)] = v
		}
	}
	return out
}
