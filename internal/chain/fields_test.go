package chain

import "testing"

func TestFieldNamesName(t *testing.T) {
	fields := DefaultEventFields()

	got := fields.Name("balances.Reserved", []any{"5Alice", "10", "extra"})
	if len(got) != 2 || got["who"] != "5Alice" || got["amount"] != "10" {
		t.Fatalf("unexpected named data %+v", got)
	}

	got = fields.Name("staking.Rewarded", []any{"5Alice"})
	if got["0"] != "5Alice" {
		t.Fatalf("unexpected positional data %+v", got)
	}
}

func TestParseFieldOverrides(t *testing.T) {
	overrides, err := ParseFieldOverrides(map[string]string{"balances.Transfer": "sender, receiver ,value"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := DefaultEventFields().Merge(overrides)
	got := fields.Name("balances.Transfer", []any{"a", "b", "1"})
	if got["sender"] != "a" || got["receiver"] != "b" || got["value"] != "1" {
		t.Fatalf("override not applied: %+v", got)
	}
	if defaults := DefaultEventFields()["balances.transfer"]; len(defaults) != 3 || defaults[0] != "from" {
		t.Fatalf("defaults must not be mutated")
	}

	if _, err := ParseFieldOverrides(map[string]string{"Transfer": "a"}); err == nil {
		t.Fatalf("expected error for unqualified event")
	}
	if _, err := ParseFieldOverrides(map[string]string{"balances.Transfer": " , "}); err == nil {
		t.Fatalf("expected error for empty names")
	}
}
