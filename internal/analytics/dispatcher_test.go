package analytics

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"trueAnalytics/internal/model"
)

type sinkCall struct {
	method string
	id     string
	label  string
	props  map[string]any
	counts map[string]float64
	sets   map[string][]string
}

type recordingSink struct {
	calls  []sinkCall
	failOn string
}

func (s *recordingSink) record(c sinkCall) error {
	s.calls = append(s.calls, c)
	if s.failOn == c.method {
		return errors.New("sink unavailable")
	}
	return nil
}

func (s *recordingSink) Track(_ context.Context, distinctID, label string, props map[string]any) error {
	return s.record(sinkCall{method: "track", id: distinctID, label: label, props: props})
}

func (s *recordingSink) SetOnce(_ context.Context, entityID string, props map[string]any) error {
	return s.record(sinkCall{method: "set_once", id: entityID, props: props})
}

func (s *recordingSink) Set(_ context.Context, entityID string, props map[string]any) error {
	return s.record(sinkCall{method: "set", id: entityID, props: props})
}

func (s *recordingSink) Increment(_ context.Context, entityID string, counters map[string]float64) error {
	return s.record(sinkCall{method: "increment", id: entityID, counts: counters})
}

func (s *recordingSink) Union(_ context.Context, entityID string, sets map[string][]string) error {
	return s.record(sinkCall{method: "union", id: entityID, sets: sets})
}

func (s *recordingSink) methods() []string {
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.method)
	}
	return out
}

type fakeIssuers struct {
	names map[string]string
	err   error
}

func (f fakeIssuers) IssuerName(_ context.Context, hash string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.names[hash], nil
}

const recipient = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func attestationEvent(name string) model.BlockchainEvent {
	return model.BlockchainEvent{
		BlockHash:   "0xblock",
		BlockNumber: 42,
		EventIndex:  3,
		Timestamp:   1700000000123,
		Type:        "Credentials",
		EventName:   name,
		Signer:      "5Signer",
		Parameters: []model.EventParameter{
			{Name: "Issuer Hash", Value: "0xissuer"},
			{Name: "Attested To", Value: recipient},
			{Name: "Schema", Value: "0xschema"},
			{Name: "Attestation Index", Value: "0"},
			{Name: "Attestation", Value: `["0x01"]`},
		},
	}
}

func TestDispatchAttestationCreated(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, fakeIssuers{names: map[string]string{"0xissuer": "portalx"}}, nil)

	d.Dispatch(context.Background(), attestationEvent("AttestationCreated"))

	want := []string{"track", "set_once", "set", "increment", "union"}
	if !reflect.DeepEqual(sink.methods(), want) {
		t.Fatalf("calls %v, want %v", sink.methods(), want)
	}

	track := sink.calls[0]
	if track.label != "Attestation Created" || track.id != "5Signer" {
		t.Fatalf("unexpected track call %+v", track)
	}
	if track.props["issuerName"] != "portalx" || track.props["chainType"] != "Substrate" || track.props["schemaName"] != "0xschema" {
		t.Fatalf("unexpected track props %+v", track.props)
	}
	if track.props["blockHash"] != "0xblock" || track.props["signer"] != "5Signer" || track.props["$insert_id"] == "" {
		t.Fatalf("missing common props %+v", track.props)
	}

	for _, c := range sink.calls[1:] {
		if c.id != recipient {
			t.Fatalf("profile call %s keyed by %q", c.method, c.id)
		}
	}
	if got := sink.calls[1].props["First Attestation Date"]; got != "2023-11-14T22:13:20.123Z" {
		t.Fatalf("unexpected date %v", got)
	}
	if got := sink.calls[2].props["Last Issuer"]; got != "portalx" {
		t.Fatalf("unexpected last issuer %v", got)
	}
	wantCounts := map[string]float64{
		"Attestation Count":          1,
		"Attestations On Substrate":  1,
		"Attestations From 0xissuer": 1,
	}
	if !reflect.DeepEqual(sink.calls[3].counts, wantCounts) {
		t.Fatalf("unexpected counters %+v", sink.calls[3].counts)
	}
	wantSets := map[string][]string{
		"Associated Issuers": {"0xissuer"},
		"Associated Schemas": {"0xschema"},
	}
	if !reflect.DeepEqual(sink.calls[4].sets, wantSets) {
		t.Fatalf("unexpected union %+v", sink.calls[4].sets)
	}
}

func TestDispatchAttestationWithoutRecipientOnlyTracks(t *testing.T) {
	event := attestationEvent("AttestationCreated")
	event.Parameters[1].Value = "Unknown"

	sink := &recordingSink{}
	NewDispatcher(sink, nil, nil).Dispatch(context.Background(), event)

	if !reflect.DeepEqual(sink.methods(), []string{"track"}) {
		t.Fatalf("unexpected calls %v", sink.methods())
	}
	if sink.calls[0].props["chainType"] != "Unknown" {
		t.Fatalf("unexpected chain type %v", sink.calls[0].props["chainType"])
	}
}

func TestDispatchAttestationUpdated(t *testing.T) {
	sink := &recordingSink{}
	NewDispatcher(sink, nil, nil).Dispatch(context.Background(), attestationEvent("AttestationUpdated"))

	if !reflect.DeepEqual(sink.methods(), []string{"track", "set", "increment"}) {
		t.Fatalf("unexpected calls %v", sink.methods())
	}
	if sink.calls[0].label != "Attestation Updated" {
		t.Fatalf("unexpected label %q", sink.calls[0].label)
	}
	if sink.calls[0].props["issuerName"] != "0xissuer" {
		t.Fatalf("issuer name should fall back to hash, got %v", sink.calls[0].props["issuerName"])
	}
	if sink.calls[2].counts["Attestation Updates Count"] != 1 {
		t.Fatalf("unexpected counters %+v", sink.calls[2].counts)
	}
}

func TestDispatchIssuerLookupFailureFallsBackToHash(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &recordingSink{}
	d := NewDispatcher(sink, fakeIssuers{err: errors.New("storage unavailable")}, zap.New(core))

	d.Dispatch(context.Background(), attestationEvent("AttestationCreated"))

	if sink.calls[0].props["issuerName"] != "0xissuer" {
		t.Fatalf("expected hash fallback, got %v", sink.calls[0].props["issuerName"])
	}
	if len(sink.calls) != 5 {
		t.Fatalf("enrichment failure must not block dispatch, got %v", sink.methods())
	}
	if logs.FilterMessage("issuer name lookup failed").Len() != 1 {
		t.Fatalf("expected lookup failure to be logged")
	}
}

func TestDispatchStopsAtFirstFailingCall(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := &recordingSink{failOn: "set_once"}
	d := NewDispatcher(sink, nil, zap.New(core))

	d.Dispatch(context.Background(), attestationEvent("AttestationCreated"))
	if !reflect.DeepEqual(sink.methods(), []string{"track", "set_once"}) {
		t.Fatalf("unexpected calls %v", sink.methods())
	}
	if logs.FilterMessage("dispatch event failed").Len() != 1 {
		t.Fatalf("expected sink failure to be logged")
	}

	d.Dispatch(context.Background(), model.BlockchainEvent{
		EventName:  "Transfer",
		Parameters: []model.EventParameter{{Name: "From", Value: "5Alice"}, {Name: "To", Value: "5Bob"}, {Name: "Amount", Value: 1.5}},
	})
	last := sink.calls[len(sink.calls)-1]
	if last.method != "track" || last.label != "Token Transaction" {
		t.Fatalf("next event was not dispatched: %+v", last)
	}
}

func TestDispatchIssuerCreated(t *testing.T) {
	sink := &recordingSink{}
	NewDispatcher(sink, nil, nil).Dispatch(context.Background(), model.BlockchainEvent{
		EventName:  "IssuerCreated",
		Parameters: []model.EventParameter{
			{Name: "Hash", Value: "0xabc"},
			{Name: "Name", Value: "portalx"},
			{Name: "Controllers", Value: "5Alice, 5Bob"},
		},
	})

	if !reflect.DeepEqual(sink.methods(), []string{"track", "set"}) {
		t.Fatalf("unexpected calls %v", sink.methods())
	}
	set := sink.calls[1]
	if set.id != "issuer:0xabc" || set.props["User Type"] != "Issuer" || set.props["Creation Date"] != "1970-01-01T00:00:00.000Z" {
		t.Fatalf("unexpected issuer profile %+v", set)
	}
}

func TestDispatchTrackOnlyRoutes(t *testing.T) {
	cases := []struct {
		event model.BlockchainEvent
		label string
		check func(props map[string]any) bool
	}{
		{
			event: model.BlockchainEvent{EventName: "SchemaCreated", Parameters: []model.EventParameter{
				{Name: "Schema Hash", Value: "0xdef"}, {Name: "Schema", Value: `[["score","U32"]]`}, {Name: "Issuer Hash", Value: "0xabc"},
			}},
			label: "Schema Created",
			check: func(p map[string]any) bool { return p["schemaHash"] == "0xdef" && p["issuerHash"] == "0xabc" },
		},
		{
			event: model.BlockchainEvent{EventName: "AlgorithmAdded", Parameters: []model.EventParameter{
				{Name: "Algorithm ID", Value: "7"}, {Name: "Schemas", Value: "0x01, 0x02"},
			}},
			label: "Algorithm Added",
			check: func(p map[string]any) bool { return reflect.DeepEqual(p["schemas"], []string{"0x01", "0x02"}) },
		},
		{
			event: model.BlockchainEvent{EventName: "AlgoResult", Parameters: []model.EventParameter{
				{Name: "Algorithm Result", Value: "42"}, {Name: "Issuer Hash", Value: "0xabc"}, {Name: "Account Id", Value: "5Alice"},
			}},
			label: "Reputation Score Updated",
			check: func(p map[string]any) bool { return p["result"] == "42" && p["attestedTo"] == "5Alice" },
		},
		{
			event: model.BlockchainEvent{EventName: "Unreserved", Parameters: []model.EventParameter{
				{Name: "Who", Value: "5Alice"}, {Name: "Amount", Value: 2.0},
			}},
			label: "Token Transaction",
			check: func(p map[string]any) bool { return p["type"] == "Unreserved" && p["from"] == "5Alice" && p["to"] == nil },
		},
		{
			event: model.BlockchainEvent{EventName: "ExtrinsicFailed", Parameters: []model.EventParameter{
				{Name: "Error", Value: "Token.FundsUnavailable"}, {Name: "Details", Value: "{}"},
			}},
			label: "Blockchain Event: ExtrinsicFailed",
			check: func(p map[string]any) bool {
				params, _ := p["parameters"].(map[string]any)
				return params["Error"] == "Token.FundsUnavailable" && params["Details"] == "{}"
			},
		},
	}

	for _, tc := range cases {
		sink := &recordingSink{}
		NewDispatcher(sink, nil, nil).Dispatch(context.Background(), tc.event)
		if len(sink.calls) != 1 || sink.calls[0].method != "track" {
			t.Fatalf("%s: unexpected calls %v", tc.event.EventName, sink.methods())
		}
		if sink.calls[0].label != tc.label {
			t.Fatalf("%s: label %q, want %q", tc.event.EventName, sink.calls[0].label, tc.label)
		}
		if !tc.check(sink.calls[0].props) {
			t.Fatalf("%s: unexpected props %+v", tc.event.EventName, sink.calls[0].props)
		}
	}
}

func TestGenericRouteNormalizesParameterNames(t *testing.T) {
	sink := &recordingSink{}
	NewDispatcher(sink, nil, nil).Dispatch(context.Background(), model.BlockchainEvent{
		EventName:  "SomethingNew",
		Parameters: []model.EventParameter{{Name: "Attested  To\tAccount", Value: "x"}},
	})
	params := sink.calls[0].props["parameters"].(map[string]any)
	if params["Attested_To_Account"] != "x" {
		t.Fatalf("unexpected flattened params %+v", params)
	}
}

func TestInsertIDIsDeterministic(t *testing.T) {
	a := model.BlockchainEvent{BlockHash: "0x01", EventIndex: 2}
	if InsertID(a) != InsertID(a) {
		t.Fatalf("insert id must be stable")
	}
	b := a
	b.EventIndex = 3
	if InsertID(a) == InsertID(b) {
		t.Fatalf("insert id must differ per event index")
	}
	if len(InsertID(a)) != 36 {
		t.Fatalf("unexpected insert id %q", InsertID(a))
	}
}
