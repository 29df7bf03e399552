package game

import (
	"crypto/subtle"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room wraps a session served over the network. Calls that touch the
// session go through Do, one at a time.
type Room struct {
	ID        string
	Code      string
	CreatedAt time.Time
	HostToken string

	mu      sync.Mutex
	session *Session
}

// State is the view of a room handed to presentation layers. Vote values
// are not included while a round is being collected.
type State struct {
	SessionCode string             `json:"sessionCode"`
	Players     []string           `json:"players"`
	Features    []Feature          `json:"features"`
	Rules       RuleName           `json:"rules"`
	Status      RoundStatus        `json:"status"`
	Round       int                `json:"round"`
	VoteCount   int                `json:"voteCount"`
	Expected    int                `json:"expected"`
	Next        *Turn              `json:"next,omitempty"`
	LastResult  *RoundResult       `json:"lastResult,omitempty"`
	Estimations map[string]float64 `json:"estimations,omitempty"`
}

type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	active string // most recently created room, for single-session mode
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// CreateSession configures a new session and registers it under a fresh
// join code.
func (rm *RoomManager) CreateSession(players []string, features []Feature, rule Rule) (*Room, error) {
	s, err := NewSession(players, features, rule)
	if err != nil {
		return nil, err
	}
	return rm.Adopt(s), nil
}

// Adopt registers an already built session, e.g. one read from a file.
func (rm *RoomManager) Adopt(s *Session) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	code := randomCode(5)
	for rm.rooms[code] != nil {
		code = randomCode(5)
	}
	r := &Room{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedAt: time.Now().UTC(),
		HostToken: uuid.NewString(),
		session:   s,
	}
	rm.rooms[code] = r
	rm.active = code
	return r
}

func (rm *RoomManager) Get(code string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r := rm.rooms[code]
	if r == nil {
		return nil, ErrSessionNotFound
	}
	return r, nil
}

func (rm *RoomManager) Active() (string, *Room) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	if rm.active == "" {
		return "", nil
	}
	return rm.active, rm.rooms[rm.active]
}

// Close tears a room down. Its session is discarded.
func (rm *RoomManager) Close(code string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.rooms[code] == nil {
		return ErrSessionNotFound
	}
	delete(rm.rooms, code)
	if rm.active == code {
		rm.active = ""
	}
	return nil
}

func (rm *RoomManager) Len() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// Authorize checks the host token handed out when the room was created.
func (r *Room) Authorize(token string) error {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(r.HostToken)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Do runs fn with exclusive access to the room's session.
func (r *Room) Do(fn func(s *Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.session)
}

// Apply is Do followed by a snapshot of the state fn left behind, taken
// under the same lock.
func (r *Room) Apply(fn func(s *Session) error) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := fn(r.session)
	return r.stateLocked(), err
}

func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Room) stateLocked() State {
	s := r.session
	st := State{
		SessionCode: r.Code,
		Players:     s.Players(),
		Features:    s.Features(),
		Rules:       s.Rule().Name(),
		Status:      s.RoundStatus(),
		Round:       s.Round(),
		VoteCount:   s.VoteCount(),
		Expected:    s.ExpectedVotes(),
	}
	if t, ok := s.NextTurn(); ok {
		st.Next = &t
	}
	if res, ok := s.LastResult(); ok {
		st.LastResult = &res
	}
	if est, err := s.FinalEstimations(); err == nil {
		st.Estimations = est
	}
	return st
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
