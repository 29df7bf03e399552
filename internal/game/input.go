package game

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxVote is the highest estimate accepted, the largest numeric card of Deck.
const MaxVote = 100

// ParseVote turns raw card or keyboard input into an estimate.
func ParseVote(raw string) (int, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, &ParseError{Raw: raw, Reason: "empty input"}
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, &ParseError{Raw: raw, Reason: "not a number"}
	}
	if v < 0 {
		return 0, &ParseError{Raw: raw, Reason: "estimate must not be negative"}
	}
	if v > MaxVote {
		return 0, &ParseError{Raw: raw, Reason: fmt.Sprintf("estimate must not exceed %d", MaxVote)}
	}
	return v, nil
}

// ParsePlayers splits a comma separated list of names. expected <= 0 skips
// the count check.
func ParsePlayers(input string, expected int) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: no players entered", ErrPrecondition)
	}
	parts := strings.Split(input, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, strings.TrimSpace(p))
	}
	if expected > 0 && len(names) != expected {
		return nil, fmt.Errorf("entered %d players, but expected %d", len(names), expected)
	}
	if err := checkNames("player", names); err != nil {
		return nil, err
	}
	return names, nil
}

// ParseFeatures reads a JSON array of labels or feature objects.
func ParseFeatures(input string) ([]Feature, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: no features entered", ErrPrecondition)
	}
	var features []Feature
	if err := json.Unmarshal([]byte(input), &features); err != nil {
		return nil, fmt.Errorf("features must be a JSON array: %w", err)
	}
	if err := checkFeatures(features); err != nil {
		return nil, err
	}
	return features, nil
}

func checkNames(kind string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: no %ss", ErrPrecondition, kind)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: empty %s name", ErrPrecondition, kind)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("%w: duplicate %s %q", ErrPrecondition, kind, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func checkFeatures(features []Feature) error {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	return checkNames("feature", names)
}
