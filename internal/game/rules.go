package game

import (
	"fmt"
	"strings"
)

type RuleName string

const (
	RuleStrict  RuleName = "StrictRule"
	RuleAverage RuleName = "AverageRule"
)

// Bounds of the acceptable mean under AverageRule, both inclusive.
const (
	AverageMin = 1.0
	AverageMax = 20.0
)

// Rule decides whether the votes cast for a single feature are accepted.
type Rule interface {
	Name() RuleName
	EvaluateFeature(votes map[string]int) (bool, error)
}

// StrictRule accepts a feature only when every player picked the same card.
type StrictRule struct{}

func (StrictRule) Name() RuleName { return RuleStrict }

func (StrictRule) EvaluateFeature(votes map[string]int) (bool, error) {
	if len(votes) == 0 {
		return false, ErrIncompleteVotes
	}
	distinct := make(map[int]struct{}, len(votes))
	for _, v := range votes {
		distinct[v] = struct{}{}
	}
	return len(distinct) == 1, nil
}

// AverageRule accepts a feature when the mean vote lies in
// [AverageMin, AverageMax]. The spread of the votes is not considered.
type AverageRule struct{}

func (AverageRule) Name() RuleName { return RuleAverage }

func (AverageRule) EvaluateFeature(votes map[string]int) (bool, error) {
	if len(votes) == 0 {
		return false, ErrIncompleteVotes
	}
	m := Mean(votes)
	return m >= AverageMin && m <= AverageMax, nil
}

func Mean(votes map[string]int) float64 {
	if len(votes) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range votes {
		sum += float64(v)
	}
	return sum / float64(len(votes))
}

// ParseRule maps a persisted tag or a picker label to a rule.
func ParseRule(tag string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "strictrule", "strict", "strict (unanimity)":
		return StrictRule{}, nil
	case "averagerule", "average":
		return AverageRule{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRule, tag)
}

// RuleLabels are the choices shown by rule pickers, in display order.
var RuleLabels = []string{"Strict (Unanimity)", "Average"}

// Evaluate runs rule over every feature that has votes in the ledger, in
// the given order. The first rejected feature ends the evaluation; on full
// acceptance the verdict carries the mean vote of each feature.
func Evaluate(rule Rule, l *Ledger, features []string) (Verdict, error) {
	v := Verdict{Features: make(map[string]bool, len(features))}
	means := make(map[string]float64, len(features))
	for _, f := range features {
		votes, err := l.VotesFor(f)
		if err != nil {
			return Verdict{}, err
		}
		if len(votes) == 0 {
			continue
		}
		ok, err := rule.EvaluateFeature(votes)
		if err != nil {
			return Verdict{}, fmt.Errorf("evaluate %q: %w", f, err)
		}
		v.Features[f] = ok
		if !ok {
			v.Rejected = f
			return v, nil
		}
		means[f] = Mean(votes)
	}
	v.Accepted = true
	v.Estimations = means
	return v, nil
}

// ValidVotes reports whether rule accepts every feature in the ledger.
func ValidVotes(rule Rule, l *Ledger, features []string) (bool, error) {
	v, err := Evaluate(rule, l, features)
	if err != nil {
		return false, err
	}
	return v.Accepted, nil
}
