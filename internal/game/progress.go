package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// SessionFile is the saved form of a session: configuration plus the votes
// of the round in progress.
type SessionFile struct {
	Players  []string  `json:"players"`
	Features []Feature `json:"features"`
	Rules    RuleName  `json:"rules"`
	Votes    VoteList  `json:"votes,omitempty"`
}

// VoteList is written as an array of records. It is also read from the
// older shape {feature: {player: vote}}.
type VoteList []VoteRecord

func (vl *VoteList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*vl = nil
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var byFeature map[string]map[string]int
		if err := json.Unmarshal(b, &byFeature); err != nil {
			return err
		}
		out := make([]VoteRecord, 0)
		for f, votes := range byFeature {
			for p, v := range votes {
				out = append(out, VoteRecord{Player: p, Feature: f, Vote: v})
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Feature != out[j].Feature {
				return out[i].Feature < out[j].Feature
			}
			return out[i].Player < out[j].Player
		})
		*vl = out
		return nil
	}
	var records []VoteRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return err
	}
	*vl = records
	return nil
}

func (s *Session) SessionFile() SessionFile {
	return SessionFile{
		Players:  s.Players(),
		Features: s.Features(),
		Rules:    s.rule.Name(),
		Votes:    VoteList(s.ledger.Entries()),
	}
}

// Restore builds a session from a saved file. A file whose votes already
// fill the round is evaluated right away.
func (sf SessionFile) Restore() (*Session, error) {
	rule, err := ParseRule(string(sf.Rules))
	if err != nil {
		return nil, err
	}
	s, err := NewSession(sf.Players, sf.Features, rule)
	if err != nil {
		return nil, err
	}
	for _, v := range sf.Votes {
		if !s.hasPlayer(v.Player) {
			return nil, fmt.Errorf("vote for %q: %w: %q", v.Feature, ErrUnknownPlayer, v.Player)
		}
		if !s.hasFeature(v.Feature) {
			return nil, fmt.Errorf("vote by %q: %w: %q", v.Player, ErrUnknownFeature, v.Feature)
		}
		if _, err := ParseVote(strconv.Itoa(v.Vote)); err != nil {
			pe := err.(*ParseError)
			pe.Player, pe.Feature = v.Player, v.Feature
			return nil, pe
		}
		s.ledger.Record(v.Player, v.Feature, v.Vote)
	}
	if _, err := s.evaluateIfComplete(); err != nil {
		return nil, err
	}
	return s, nil
}

func WriteSession(w io.Writer, s *Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.SessionFile())
}

// ReadSession decodes and validates a session file. Every failure wraps
// ErrMalformedSessionFile.
func ReadSession(r io.Reader) (*Session, error) {
	var sf SessionFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSessionFile, err)
	}
	s, err := sf.Restore()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSessionFile, err)
	}
	return s, nil
}

func SaveSession(path string, s *Session) error {
	if path == "" {
		return errors.New("session file path is required")
	}
	var buf bytes.Buffer
	if err := WriteSession(&buf, s); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func LoadSession(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()
	return ReadSession(f)
}
