package model

import "fmt"

// PhaseKind identifies the block-relative context in which an event was emitted.
type PhaseKind int

const (
	PhaseInitialization PhaseKind = iota
	PhaseApplyExtrinsic
	PhaseFinalization
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseInitialization:
		return "initialization"
	case PhaseApplyExtrinsic:
		return "applyExtrinsic"
	case PhaseFinalization:
		return "finalization"
	default:
		return fmt.Sprintf("phase(%d)", int(k))
	}
}

// Phase is the phase of an event. ExtrinsicIndex is only meaningful for PhaseApplyExtrinsic.
type Phase struct {
	Kind           PhaseKind `json:"kind"`
	ExtrinsicIndex int       `json:"extrinsicIndex,omitempty"`
}

// ApplyExtrinsic returns the phase of an event caused by extrinsic i.
func ApplyExtrinsic(i int) Phase {
	return Phase{Kind: PhaseApplyExtrinsic, ExtrinsicIndex: i}
}

// EventRecord pairs an event with its phase.
type EventRecord struct {
	Event RawChainEvent `json:"event"`
	Phase Phase         `json:"phase"`
}

// Extrinsic carries the parts of an extrinsic the pipeline needs. Signer is
// empty for unsigned extrinsics.
type Extrinsic struct {
	Signer string `json:"signer,omitempty"`
}

// BlockRef identifies a finalized block.
type BlockRef struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash"`
}

// Block is a finalized block's ordered events and extrinsics.
type Block struct {
	Number     uint64        `json:"number"`
	Hash       string        `json:"hash"`
	Events     []EventRecord `json:"events"`
	Extrinsics []Extrinsic   `json:"extrinsics"`
}

// ModuleError is the raw pallet error carried by a dispatch error.
type ModuleError struct {
	Index uint8 `json:"index"`
	Error uint8 `json:"error"`
}

// MetaError is a module error resolved against runtime metadata.
type MetaError struct {
	Section string   `json:"section"`
	Method  string   `json:"method"`
	Docs    []string `json:"docs"`
}
