package decoder

type transform int

const (
	asText transform = iota
	asBalance
	asList
	asJSON
	asAccount
)

type field struct {
	param       string
	key         string
	description string
	transform   transform
}

type rule struct {
	name    string
	section string
	fields  []field
}

var attestationFields = []field{
	{"Issuer Hash", "issuerHash", "Hash of the issuer creating the attestation", asText},
	{"Attested To", "accountId", "Address receiving the attestation", asAccount},
	{"Schema", "schemaHash", "Schema hash for the attestation", asText},
	{"Attestation Index", "attestationIndex", "Attestation Index for the account of this schema", asText},
	{"Attestation", "attestation", "Attestation data", asJSON},
}

func reserveFields(description string) []field {
	return []field{
		{"Who", "who", "Account with funds reserved", asText},
		{"Amount", "amount", description, asBalance},
	}
}

// rules is indexed by Kind. KindExtrinsicFailed has no field list; it is
// decoded by decodeExtrinsicFailed.
var rules = [kindCount]rule{
	KindIssuerCreated: {
		name:    "IssuerCreated",
		section: "Issuers",
		fields: []field{
			{"Hash", "hash_", "Unique hash identifying the issuer", asText},
			{"Name", "issuerName", "Name of the issuer entity", asText},
			{"Controllers", "controllersIdentified", "Controller accounts that manages the issuer", asList},
		},
	},
	KindSchemaCreated: {
		name:    "SchemaCreated",
		section: "Credentials",
		fields: []field{
			{"Schema Hash", "schemaHash", "Unique hash identifying the schema", asText},
			{"Schema", "schema", "Schema structure created on-chain", asJSON},
			{"Issuer Hash", "issuerHash", "Hash of the issuer creating the schema", asText},
		},
	},
	KindAttestationCreated: {
		name:    "AttestationCreated",
		section: "Credentials",
		fields:  attestationFields,
	},
	KindAttestationUpdated: {
		name:    "AttestationUpdated",
		section: "Credentials",
		fields:  attestationFields,
	},
	KindAlgorithmAdded: {
		name:    "AlgorithmAdded",
		section: "Algorithms",
		fields: []field{
			{"Algorithm ID", "algorithmId", "Unique identifier for the algorithm", asText},
			{"Schemas", "schemaHashes", "Schema hashes associated with the algorithm", asList},
		},
	},
	KindAlgoResult: {
		name:    "AlgoResult",
		section: "Algorithms",
		fields: []field{
			{"Algorithm Result", "result", "Result of the reputation algorithm.", asText},
			{"Issuer Hash", "issuerHash", "The hash of the issuer who created the attestations used by the algorithm.", asText},
			{"Account Id", "accountId", "User's Account ID for whom the reputation is calculated.", asAccount},
		},
	},
	KindTransfer: {
		name:    "Transfer",
		section: "Balances",
		fields: []field{
			{"From", "from", "Sender wallet address", asText},
			{"To", "to", "Receiver wallet address", asText},
			{"Amount", "amount", "Amount transferred", asBalance},
		},
	},
	KindReserved: {
		name:    "Reserved",
		section: "Balances",
		fields:  reserveFields("Amount reserved"),
	},
	KindUnreserved: {
		name:    "Unreserved",
		section: "Balances",
		fields:  reserveFields("Amount unreserved"),
	},
	KindExtrinsicFailed: {
		name:    "ExtrinsicFailed",
		section: "System",
	},
}
