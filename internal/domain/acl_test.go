package domain

import "testing"

func TestExpressionMatches(t *testing.T) {
	cases := []struct {
		name       string
		expr       string
		shortNames []string
		groups     []string
		want       bool
	}{
		{"wildcard matches anyone", "*", nil, nil, true},
		{"person matches exact handle", "person:alice", []string{"alice"}, nil, true},
		{"person does not match other handle", "person:alice", []string{"bob"}, nil, false},
		{"position matches exact group", "position:rangers", nil, []string{"rangers"}, true},
		{"position does not match other group", "position:rangers", nil, []string{"staff"}, false},
		{"unknown expression never matches", "nonsense", []string{"alice"}, []string{"alice"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ExpressionMatches(c.expr, c.shortNames, c.groups)
			if got != c.want {
				t.Fatalf("ExpressionMatches(%q) = %v, want %v", c.expr, got, c.want)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	exprs := []string{"person:alice", "position:staff"}

	if !MatchesAny(exprs, []string{"alice"}, nil) {
		t.Fatal("expected alice to match via person:alice")
	}
	if !MatchesAny(exprs, nil, []string{"staff"}) {
		t.Fatal("expected staff group to match via position:staff")
	}
	if MatchesAny(exprs, []string{"bob"}, []string{"rangers"}) {
		t.Fatal("expected bob/rangers to match nothing")
	}
	if MatchesAny(nil, []string{"alice"}, nil) {
		t.Fatal("expected empty expression list to match nothing")
	}
}
