package pipeline

// supportedEvents is matched case-sensitively against "section.method" as the
// chain delivers it. The decoder keys the same events by lowercased section.
var supportedEvents = []string{
	"issuersModule.IssuerCreated",
	"credentialsModule.SchemaCreated",
	"credentialsModule.AttestationCreated",
	"credentialsModule.AttestationUpdated",
	"algorithmsModule.AlgorithmAdded",
	"algorithmsModule.AlgoResult",
	"balances.Transfer",
	"balances.Reserved",
	"balances.Unreserved",
	"system.ExtrinsicFailed",
}

var supportedSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(supportedEvents))
	for _, name := range supportedEvents {
		set[name] = struct{}{}
	}
	return set
}()

// IsSupported reports whether a fully-qualified event name is whitelisted.
func IsSupported(name string) bool {
	_, ok := supportedSet[name]
	return ok
}

// SupportedEvents returns a copy of the whitelist.
func SupportedEvents() []string {
	out := make([]string, len(supportedEvents))
	copy(out, supportedEvents)
	return out
}
