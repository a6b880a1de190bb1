package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukex/mixpanel"

	"trueAnalytics/internal/analytics"
)

func TestJSONLAppendsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "calls.jsonl")
	s := NewJSONL(path)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	if err := s.Track(ctx, "5Signer", "Token Transaction", map[string]any{"amount": 1.5}); err != nil {
		t.Fatalf("track: %v", err)
	}
	if err := s.Increment(ctx, "5Alice", map[string]float64{"Attestation Count": 1}); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := s.Union(ctx, "5Alice", map[string][]string{"Associated Issuers": {"0xabc"}}); err != nil {
		t.Fatalf("union: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Op != OpTrack || records[0].Label != "Token Transaction" || records[0].ID != "5Signer" {
		t.Fatalf("unexpected track record %+v", records[0])
	}
	if records[1].Counters["Attestation Count"] != 1 {
		t.Fatalf("unexpected increment record %+v", records[1])
	}
	if records[2].Op != OpUnion || records[2].Sets["Associated Issuers"][0] != "0xabc" {
		t.Fatalf("unexpected union record %+v", records[2])
	}
	if !records[0].RecordedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected recorded time %v", records[0].RecordedAt)
	}
}

func TestJSONLRequiresPath(t *testing.T) {
	if err := NewJSONL("").Set(context.Background(), "x", nil); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Track(context.Context, string, string, map[string]any) error {
	s.calls++
	return s.err
}

func (s *countingSink) SetOnce(context.Context, string, map[string]any) error {
	s.calls++
	return s.err
}

func (s *countingSink) Set(context.Context, string, map[string]any) error {
	s.calls++
	return s.err
}

func (s *countingSink) Increment(context.Context, string, map[string]float64) error {
	s.calls++
	return s.err
}

func (s *countingSink) Union(context.Context, string, map[string][]string) error {
	s.calls++
	return s.err
}

func TestFanoutCallsEverySink(t *testing.T) {
	failing := &countingSink{err: errors.New("mixpanel down")}
	healthy := &countingSink{}
	var f analytics.Sink = Fanout{failing, healthy}

	err := f.Set(context.Background(), "5Alice", map[string]any{"User Type": "Issuer"})
	if err == nil || !strings.Contains(err.Error(), "mixpanel down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if failing.calls != 1 || healthy.calls != 1 {
		t.Fatalf("every sink must be called, got %d and %d", failing.calls, healthy.calls)
	}

	if err := (Fanout{healthy}).Track(context.Background(), "x", "y", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type fakeMixpanel struct {
	tracked []string
	events  []*mixpanel.Event
	updates []*mixpanel.Update
	ids     []string
	err     error
}

func (f *fakeMixpanel) Track(distinctID, eventName string, e *mixpanel.Event) error {
	f.ids = append(f.ids, distinctID)
	f.tracked = append(f.tracked, eventName)
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeMixpanel) Update(distinctID string, u *mixpanel.Update) error {
	f.ids = append(f.ids, distinctID)
	f.updates = append(f.updates, u)
	return f.err
}

func TestMixpanelOperations(t *testing.T) {
	fake := &fakeMixpanel{}
	m := &Mixpanel{client: fake}
	ctx := context.Background()

	if err := m.Track(ctx, "5Signer", "Attestation Created", map[string]any{"timestamp": int64(1700000000123)}); err != nil {
		t.Fatalf("track: %v", err)
	}
	if fake.events[0].Timestamp == nil || fake.events[0].Timestamp.UnixMilli() != 1700000000123 {
		t.Fatalf("event time not propagated: %+v", fake.events[0])
	}

	_ = m.SetOnce(ctx, "5Alice", map[string]any{"User Type": "Attestation Recipient"})
	_ = m.Set(ctx, "5Alice", map[string]any{"Last Issuer": "portalx"})
	_ = m.Increment(ctx, "5Alice", map[string]float64{"Attestation Count": 1})
	_ = m.Union(ctx, "5Alice", map[string][]string{"Associated Issuers": {"0xabc"}})

	want := []string{"$set_once", "$set", "$add", "$union"}
	if len(fake.updates) != len(want) {
		t.Fatalf("expected %d updates, got %d", len(want), len(fake.updates))
	}
	for i, op := range want {
		if fake.updates[i].Operation != op {
			t.Fatalf("update %d: operation %q, want %q", i, fake.updates[i].Operation, op)
		}
	}
	if fake.updates[2].Properties["Attestation Count"] != 1.0 {
		t.Fatalf("unexpected increment props %+v", fake.updates[2].Properties)
	}
}

func TestMixpanelWrapsErrors(t *testing.T) {
	m := &Mixpanel{client: &fakeMixpanel{err: errors.New("429")}}
	if err := m.Set(context.Background(), "5Alice", nil); err == nil || !strings.Contains(err.Error(), "$set") {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Mixpanel{client: &fakeMixpanel{}}).Track(ctx, "x", "y", nil); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestNewMixpanelRequiresToken(t *testing.T) {
	if _, err := NewMixpanel("", "", 0); err == nil {
		t.Fatalf("expected error for missing token")
	}
}
