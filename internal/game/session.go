package game

import (
	"fmt"
)

// Session drives one estimation: it collects votes round after round until
// the rule accepts every feature in the same round. It is not safe for
// concurrent use; RoomManager serializes access for the network transports.
type Session struct {
	players  []string
	features []Feature
	names    []string
	rule     Rule

	ledger      *Ledger
	status      RoundStatus
	round       int
	history     []RoundResult
	estimations map[string]float64
}

func NewSession(players []string, features []Feature, rule Rule) (*Session, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no players", ErrPrecondition)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no features", ErrPrecondition)
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: no rule selected", ErrPrecondition)
	}
	if err := checkNames("player", players); err != nil {
		return nil, err
	}
	if err := checkFeatures(features); err != nil {
		return nil, err
	}
	s := &Session{
		players:  append([]string(nil), players...),
		features: append([]Feature(nil), features...),
		rule:     rule,
		status:   StatusCollecting,
		round:    1,
	}
	s.names = make([]string, len(features))
	for i, f := range features {
		s.names[i] = f.Name
	}
	s.ledger = NewLedger(s.names)
	return s, nil
}

func (s *Session) Players() []string { return append([]string(nil), s.players...) }
func (s *Session) Features() []Feature { return append([]Feature(nil), s.features...) }
func (s *Session) FeatureNames() []string { return append([]string(nil), s.names...) }
func (s *Session) Rule() Rule { return s.rule }
func (s *Session) RoundStatus() RoundStatus { return s.status }
func (s *Session) Round() int { return s.round }
func (s *Session) VoteCount() int { return s.ledger.Len() }
func (s *Session) ExpectedVotes() int { return len(s.players) * len(s.features) }
func (s *Session) Votes() []VoteRecord { return s.ledger.Entries() }

func (s *Session) History() []RoundResult {
	return append([]RoundResult(nil), s.history...)
}

// LastResult returns the most recently evaluated round, if any.
func (s *Session) LastResult() (RoundResult, bool) {
	if len(s.history) == 0 {
		return RoundResult{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *Session) VotesFor(feature string) (map[string]int, error) {
	return s.ledger.VotesFor(feature)
}

// NextTurn returns the first slot without a vote, walking features in order
// and players in registration order within each feature.
func (s *Session) NextTurn() (Turn, bool) {
	if s.status == StatusAccepted {
		return Turn{}, false
	}
	for _, f := range s.names {
		for _, p := range s.players {
			if _, ok := s.ledger.Vote(p, f); !ok {
				return Turn{Player: p, Feature: f}, true
			}
		}
	}
	return Turn{}, false
}

// SubmitVote records raw for (player, feature). Completing the round
// triggers evaluation; the returned status is the state after the call.
func (s *Session) SubmitVote(player, feature, raw string) (RoundStatus, error) {
	if s.status == StatusAccepted {
		return s.status, ErrSessionClosed
	}
	if !s.hasPlayer(player) {
		return s.status, fmt.Errorf("%w: %q", ErrUnknownPlayer, player)
	}
	if !s.hasFeature(feature) {
		return s.status, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	vote, err := ParseVote(raw)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Player, pe.Feature = player, feature
		}
		return s.status, err
	}
	s.status = StatusCollecting
	s.ledger.Record(player, feature, vote)
	return s.evaluateIfComplete()
}

// ResetRound drops every vote of the current round. Once the session is
// accepted it has no effect.
func (s *Session) ResetRound() {
	if s.status == StatusAccepted {
		return
	}
	s.ledger.Clear()
	s.status = StatusCollecting
}

// FinalEstimations returns the mean vote per feature of the accepted round.
func (s *Session) FinalEstimations() (map[string]float64, error) {
	if s.status != StatusAccepted {
		return nil, ErrNotAccepted
	}
	out := make(map[string]float64, len(s.estimations))
	for k, v := range s.estimations {
		out[k] = v
	}
	return out, nil
}

func (s *Session) evaluateIfComplete() (RoundStatus, error) {
	if !s.ledger.IsComplete(s.players, s.names) {
		return s.status, nil
	}
	s.status = StatusEvaluating
	verdict, err := Evaluate(s.rule, s.ledger, s.names)
	if err != nil {
		s.status = StatusCollecting
		return s.status, err
	}
	if verdict.Accepted {
		s.status = StatusAccepted
		s.estimations = verdict.Estimations
	} else {
		s.status = StatusRejected
		s.ledger.Clear()
	}
	s.history = append(s.history, RoundResult{Round: s.round, Status: s.status, Verdict: verdict})
	if s.status == StatusRejected {
		s.round++
	}
	return s.status, nil
}

func (s *Session) hasPlayer(name string) bool {
	for _, p := range s.players {
		if p == name {
			return true
		}
	}
	return false
}

func (s *Session) hasFeature(name string) bool {
	for _, f := range s.names {
		if f == name {
			return true
		}
	}
	return false
}
