package game

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVote          = errors.New("invalid vote")
	ErrIncompleteVotes      = errors.New("no votes recorded for feature")
	ErrPrecondition         = errors.New("session is not configured")
	ErrUnknownPlayer        = errors.New("unknown player")
	ErrUnknownFeature       = errors.New("unknown feature")
	ErrUnknownRule          = errors.New("unknown rule")
	ErrNotAccepted          = errors.New("round not accepted")
	ErrSessionClosed        = errors.New("session already accepted")
	ErrSessionNotFound      = errors.New("session not found")
	ErrMalformedSessionFile = errors.New("malformed session file")
	ErrMalformedExportPath  = errors.New("malformed export path")
	ErrUnauthorized         = errors.New("unauthorized")
)

// ParseError reports raw vote text that is not a usable estimate. The slot
// it was meant for stays empty.
type ParseError struct {
	Player  string
	Feature string
	Raw     string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Player == "" {
		return fmt.Sprintf("invalid vote %q: %s", e.Raw, e.Reason)
	}
	return fmt.Sprintf("invalid vote %q from %s for %s: %s", e.Raw, e.Player, e.Feature, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrInvalidVote }

// Code maps an error to the short identifier the transports send to
// clients next to the message.
func Code(err error) string {
	var pe *ParseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return "invalid_vote"
	case errors.Is(err, ErrMalformedSessionFile):
		return "malformed_session_file"
	case errors.Is(err, ErrMalformedExportPath):
		return "malformed_export_path"
	case errors.Is(err, ErrPrecondition):
		return "precondition_failed"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, ErrUnknownFeature):
		return "unknown_feature"
	case errors.Is(err, ErrUnknownRule):
		return "unknown_rule"
	case errors.Is(err, ErrNotAccepted):
		return "not_accepted"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrIncompleteVotes):
		return "incomplete_votes"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "internal"
}
