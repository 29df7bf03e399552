package game

import (
	"encoding/json"
	"errors"
	"strings"
)

type RoundStatus string

const (
	StatusCollecting RoundStatus = "Collecting"
	StatusEvaluating RoundStatus = "Evaluating"
	StatusAccepted   RoundStatus = "Accepted"
	StatusRejected   RoundStatus = "Rejected"
)

// Deck is the card set offered on the voting screen. The last two cards
// are not numbers and never make it into the ledger.
var Deck = []string{"0", "1", "2", "3", "5", "8", "13", "20", "40", "100", "☕", "?"}

// Feature is one backlog item. On the wire it is either a bare label or an
// object carrying a description.
type Feature struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (f Feature) String() string { return f.Name }

func (f Feature) MarshalJSON() ([]byte, error) {
	if f.Description == "" {
		return json.Marshal(f.Name)
	}
	type plain Feature
	return json.Marshal(plain(f))
}

func (f *Feature) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err == nil {
		*f = Feature{Name: strings.TrimSpace(label)}
		return nil
	}
	type plain Feature
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return errors.New("feature must be a string or an object with a name")
	}
	p.Name = strings.TrimSpace(p.Name)
	*f = Feature(p)
	return nil
}

// VoteRecord is one ledger entry.
type VoteRecord struct {
	Player  string `json:"player"`
	Feature string `json:"feature"`
	Vote    int    `json:"vote"`
}

// Turn is the next (player, feature) slot waiting for a vote.
type Turn struct {
	Player  string `json:"player"`
	Feature string `json:"feature"`
}

// Verdict is the outcome of evaluating one complete round.
type Verdict struct {
	Accepted    bool               `json:"accepted"`
	Rejected    string             `json:"rejected,omitempty"` // first feature that failed
	Features    map[string]bool    `json:"features"`
	Estimations map[string]float64 `json:"estimations,omitempty"`
}

type RoundResult struct {
	Round   int         `json:"round"`
	Status  RoundStatus `json:"status"`
	Verdict Verdict     `json:"verdict"`
}

// Message is the line shown to players after a call that left the session
// in status.
func (st RoundStatus) Message() string {
	switch st {
	case StatusRejected:
		return "Feature not approved, vote again."
	case StatusAccepted:
		return "Voting process is complete."
	}
	return ""
}
