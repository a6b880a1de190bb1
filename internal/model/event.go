package model

// RawChainEvent is an event as delivered by the chain adapter. Data values are
// JSON-shaped: string, json.Number, float64, bool, nil, map[string]any or []any.
type RawChainEvent struct {
	Section string         `json:"section"`
	Method  string         `json:"method"`
	Data    map[string]any `json:"data"`
}

// FullName returns the fully-qualified "section.method" name as delivered by the chain.
func (e RawChainEvent) FullName() string {
	return e.Section + "." + e.Method
}

// EventParameter is one named, display-ready value of a decoded event.
// Value holds either a string or a primitive number.
type EventParameter struct {
	Name        string `json:"name"`
	Value       any    `json:"value"`
	Description string `json:"description"`
}

// DecodedEvent is the structured form of a supported chain event.
type DecodedEvent struct {
	Name       string           `json:"name"`
	Section    string           `json:"section"`
	Parameters []EventParameter `json:"parameters"`
}

// Param returns the value of the first parameter with the given name.
func (e DecodedEvent) Param(name string) (any, bool) {
	return findParam(e.Parameters, name)
}

// FormattedEventWithSigner is a decoded event attributed to its extrinsic signer.
type FormattedEventWithSigner struct {
	DecodedEvent
	Signer string `json:"signer"`
	Index  int    `json:"index"`
}

// BlockchainEvent is the record handed to the analytics dispatcher.
type BlockchainEvent struct {
	BlockHash   string           `json:"blockHash"`
	BlockNumber uint64           `json:"blockNumber"`
	EventIndex  int              `json:"eventIndex"`
	Timestamp   int64            `json:"timestamp"`
	Type        string           `json:"type"`
	EventName   string           `json:"eventName"`
	Signer      string           `json:"signer"`
	Parameters  []EventParameter `json:"parameters"`
}

// Param returns the value of the first parameter with the given name.
func (e BlockchainEvent) Param(name string) (any, bool) {
	return findParam(e.Parameters, name)
}

func findParam(params []EventParameter, name string) (any, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}
