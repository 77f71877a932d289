package filter

import "testing"

func TestParseSimpleCompare(t *testing.T) {
	node, err := Parse(`userName eq "jdoe"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cmp, ok := node.(Compare)
	if !ok {
		t.Fatalf("got %T, want Compare", node)
	}
	if cmp.Attr != "userName" || cmp.Op != "eq" || cmp.Value != "jdoe" {
		t.Errorf("got %+v", cmp)
	}
}

func TestParsePresent(t *testing.T) {
	node, err := Parse(`active pr`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cmp := node.(Compare)
	if cmp.Op != "pr" || cmp.Value != nil {
		t.Errorf("got %+v", cmp)
	}
}

func TestParseLogicalPrecedence(t *testing.T) {
	// "and" binds tighter than "or": a or b and c == a or (b and c)
	node, err := Parse(`userName eq "a" or displayName eq "b" and active eq true`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	top, ok := node.(Logical)
	if !ok || top.Op != "or" {
		t.Fatalf("got %+v", node)
	}
	right, ok := top.Right.(Logical)
	if !ok || right.Op != "and" {
		t.Fatalf("right operand not an and-node: %+v", top.Right)
	}
}

func TestParseNegateAndParens(t *testing.T) {
	node, err := Parse(`not (userName eq "a" and active eq true)`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	neg, ok := node.(Negate)
	if !ok {
		t.Fatalf("got %T, want Negate", node)
	}
	if _, ok := neg.Inner.(Logical); !ok {
		t.Fatalf("inner not Logical: %+v", neg.Inner)
	}
}

func TestParseValuePath(t *testing.T) {
	node, err := Parse(`members[value eq "123"]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cmp, ok := node.(Compare)
	if !ok {
		t.Fatalf("got %T, want Compare", node)
	}
	if cmp.Namespace != "members" || cmp.Attr != "value" || cmp.Value != "123" {
		t.Errorf("got %+v", cmp)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`userName eq`,           // missing operand
		`userName bogus "x"`,    // unknown operator
		`userName eq "unterminated`, // unterminated string
		`userName eq "a" )`,     // trailing junk
	}
	for _, in := range tests {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", in)
		}
	}
}

func TestParseNumericLiteral(t *testing.T) {
	node, err := Parse(`age gt 21`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cmp := node.(Compare)
	f, ok := cmp.Value.(float64)
	if !ok || f != 21 {
		t.Errorf("got %+v (%T)", cmp.Value, cmp.Value)
	}
}
