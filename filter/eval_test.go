package filter

import "testing"

func mustParse(t *testing.T, s string) Node {
	t.Helper()
	n, err := Parse(s)
	if err != nil {
		t.Fatalf("parse(%q): %v", s, err)
	}
	return n
}

func TestMatchesCaseInsensitiveKeysAndValues(t *testing.T) {
	record := map[string]any{
		"UserName": "JDoe",
		"Active":   true,
	}
	node := mustParse(t, `username eq "jdoe"`)
	if !Matches(node, record) {
		t.Errorf("expected case-insensitive key and value match")
	}
}

func TestMatchesStringOperators(t *testing.T) {
	record := map[string]any{"displayName": "Jane Doe"}
	tests := []struct {
		filter string
		want   bool
	}{
		{`displayName co "DOE"`, true},
		{`displayName sw "jane"`, true},
		{`displayName ew "DOE"`, true},
		{`displayName eq "jane doe"`, true},
		{`displayName ne "jane doe"`, false},
	}
	for _, tt := range tests {
		node := mustParse(t, tt.filter)
		if got := Matches(node, record); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestMatchesPresent(t *testing.T) {
	present := map[string]any{"externalId": "abc"}
	absent := map[string]any{}

	node := mustParse(t, `externalId pr`)
	if !Matches(node, present) {
		t.Errorf("expected present to match")
	}
	if Matches(node, absent) {
		t.Errorf("expected absent to not match")
	}
}

func TestMatchesListSubField(t *testing.T) {
	record := map[string]any{
		"emails": []any{
			map[string]any{"value": "a@example.com", "type": "work"},
			map[string]any{"value": "b@example.com", "type": "home"},
		},
	}
	node := mustParse(t, `emails.value eq "b@example.com"`)
	if !Matches(node, record) {
		t.Errorf("expected list sub-field match")
	}
	node2 := mustParse(t, `emails eq "a@example.com"`)
	if !Matches(node2, record) {
		t.Errorf("expected default 'value' sub-field match")
	}
}

func TestMatchesValuePathNamespace(t *testing.T) {
	record := map[string]any{
		"members": []any{
			map[string]any{"value": "u1", "display": "Alice"},
			map[string]any{"value": "u2", "display": "Bob"},
		},
	}
	node := mustParse(t, `members[value eq "u2"]`)
	if !Matches(node, record) {
		t.Errorf("expected namespaced match on u2")
	}
	node2 := mustParse(t, `members[display eq "carol"]`)
	if Matches(node2, record) {
		t.Errorf("expected no match for carol")
	}
}

func TestMatchesOrderingOperators(t *testing.T) {
	record := map[string]any{"age": float64(30)}
	tests := []struct {
		filter string
		want   bool
	}{
		{`age gt 21`, true},
		{`age ge 30`, true},
		{`age lt 21`, false},
		{`age le 30`, true},
	}
	for _, tt := range tests {
		node := mustParse(t, tt.filter)
		if got := Matches(node, record); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestMatchesLogicalAndNegate(t *testing.T) {
	record := map[string]any{"userName": "jdoe", "active": true}
	node := mustParse(t, `userName eq "jdoe" and active eq true`)
	if !Matches(node, record) {
		t.Errorf("expected and-match")
	}
	node2 := mustParse(t, `not (userName eq "jdoe")`)
	if Matches(node2, record) {
		t.Errorf("expected negated match to be false")
	}
}
