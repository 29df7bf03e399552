package game

import (
	"fmt"
	"sort"
)

type ledgerKey struct {
	player  string
	feature string
}

// Ledger holds the current round's votes, at most one per (player, feature).
type Ledger struct {
	features map[string]struct{}
	votes    map[ledgerKey]int
}

func NewLedger(features []string) *Ledger {
	l := &Ledger{
		features: make(map[string]struct{}, len(features)),
		votes:    make(map[ledgerKey]int),
	}
	for _, f := range features {
		l.features[f] = struct{}{}
	}
	return l
}

// Record inserts the vote, replacing any earlier vote for the same pair.
func (l *Ledger) Record(player, feature string, vote int) {
	l.votes[ledgerKey{player, feature}] = vote
}

// VotesFor projects the ledger onto one feature: player -> vote.
func (l *Ledger) VotesFor(feature string) (map[string]int, error) {
	if _, ok := l.features[feature]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	out := make(map[string]int)
	for k, v := range l.votes {
		if k.feature == feature {
			out[k.player] = v
		}
	}
	return out, nil
}

func (l *Ledger) Vote(player, feature string) (int, bool) {
	v, ok := l.votes[ledgerKey{player, feature}]
	return v, ok
}

func (l *Ledger) IsComplete(players, features []string) bool {
	for _, f := range features {
		for _, p := range players {
			if _, ok := l.votes[ledgerKey{p, f}]; !ok {
				return false
			}
		}
	}
	return true
}

func (l *Ledger) Len() int { return len(l.votes) }

func (l *Ledger) Clear() {
	l.votes = make(map[ledgerKey]int)
}

// Entries lists the votes ordered by feature, then player.
func (l *Ledger) Entries() []VoteRecord {
	out := make([]VoteRecord, 0, len(l.votes))
	for k, v := range l.votes {
		out = append(out, VoteRecord{Player: k.player, Feature: k.feature, Vote: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Feature != out[j].Feature {
			return out[i].Feature < out[j].Feature
		}
		return out[i].Player < out[j].Player
	})
	return out
}
