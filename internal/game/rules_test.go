package game

import (
	"errors"
	"math"
	"testing"
)

func TestStrictRule(t *testing.T) {
	cases := []struct {
		name  string
		votes map[string]int
		want  bool
	}{
		{"unanimous", map[string]int{"A": 5, "B": 5, "C": 5}, true},
		{"split", map[string]int{"A": 5, "B": 8}, false},
		{"single voter", map[string]int{"A": 13}, true},
		{"one outlier", map[string]int{"A": 3, "B": 3, "C": 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := StrictRule{}.EvaluateFeature(tc.votes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v for %v, got %v", tc.want, tc.votes, got)
			}
		})
	}
}

func TestAverageRule(t *testing.T) {
	cases := []struct {
		name  string
		votes map[string]int
		want  bool
	}{
		{"mean 4", map[string]int{"A": 3, "B": 5, "C": 4}, true},
		{"mean 27.5", map[string]int{"A": 25, "B": 30}, false},
		{"lower bound", map[string]int{"A": 1, "B": 1}, true},
		{"upper bound", map[string]int{"A": 20, "B": 20}, true},
		{"below range", map[string]int{"A": 0, "B": 1}, false},
		{"spread ignored", map[string]int{"A": 0, "B": 40}, true},
		{"just above", map[string]int{"A": 20, "B": 21}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AverageRule{}.EvaluateFeature(tc.votes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v for %v (mean %.2f), got %v", tc.want, tc.votes, Mean(tc.votes), got)
			}
		})
	}
}

func TestRulesRejectEmptyVotes(t *testing.T) {
	for _, r := range []Rule{StrictRule{}, AverageRule{}} {
		if _, err := r.EvaluateFeature(map[string]int{}); !errors.Is(err, ErrIncompleteVotes) {
			t.Fatalf("%s: expected ErrIncompleteVotes, got %v", r.Name(), err)
		}
	}
}

func TestMeanDoesNotWrap(t *testing.T) {
	votes := map[string]int{"A": math.MaxInt64, "B": math.MaxInt64, "C": 12}
	if m := Mean(votes); m < 6e18 {
		t.Fatalf("mean of two max ints and 12 should stay huge, got %v", m)
	}
	if ok, _ := (AverageRule{}).EvaluateFeature(votes); ok {
		t.Fatal("huge mean should be rejected")
	}
}

func TestParseRule(t *testing.T) {
	cases := map[string]RuleName{
		"StrictRule":         RuleStrict,
		"Strict (Unanimity)": RuleStrict,
		"AverageRule":        RuleAverage,
		" average ":          RuleAverage,
	}
	for tag, want := range cases {
		r, err := ParseRule(tag)
		if err != nil {
			t.Fatalf("should parse %q: %v", tag, err)
		}
		if r.Name() != want {
			t.Fatalf("%q: expected %s, got %s", tag, want, r.Name())
		}
	}
	if _, err := ParseRule("MedianRule"); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
}

func TestEvaluateRequiresEveryFeature(t *testing.T) {
	features := []string{"login", "search", "billing"}
	l := NewLedger(features)
	for _, p := range []string{"A", "B"} {
		l.Record(p, "login", 5)
		l.Record(p, "billing", 3)
	}
	l.Record("A", "search", 5)
	l.Record("B", "search", 8)

	v, err := Evaluate(StrictRule{}, l, features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Accepted {
		t.Fatal("one rejected feature should reject the round")
	}
	if v.Rejected != "search" {
		t.Fatalf("expected search to be the rejected feature, got %q", v.Rejected)
	}
	if _, evaluated := v.Features["billing"]; evaluated {
		t.Fatal("evaluation should stop at the first rejected feature")
	}
	if v.Estimations != nil {
		t.Fatal("rejected verdict should not carry estimations")
	}

	ok, err := ValidVotes(StrictRule{}, l, features)
	if err != nil || ok {
		t.Fatalf("expected ValidVotes false, got %v, %v", ok, err)
	}
}

func TestEvaluateAcceptedCarriesMeans(t *testing.T) {
	features := []string{"login", "search"}
	l := NewLedger(features)
	l.Record("A", "login", 4)
	l.Record("B", "login", 6)
	l.Record("A", "search", 13)
	l.Record("B", "search", 8)

	v, err := Evaluate(AverageRule{}, l, features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Accepted {
		t.Fatalf("expected acceptance, got %+v", v)
	}
	if v.Estimations["login"] != 5 || v.Estimations["search"] != 10.5 {
		t.Fatalf("unexpected estimations %v", v.Estimations)
	}
}
