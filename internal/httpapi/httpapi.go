// Package httpapi exposes planning poker sessions over a JSON REST API.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/planningpoker/internal/config"
	"github.com/kiliankoe/planningpoker/internal/game"
)

// HostTokenHeader carries the token returned when a session is created.
// Closing, resetting and exporting a session require it.
const HostTokenHeader = "X-Host-Token"

type Handler struct {
	rooms    *game.RoomManager
	cfg      config.Config
	onChange func(code string, st game.State)
}

func New(rooms *game.RoomManager, cfg config.Config) *Handler {
	return &Handler{rooms: rooms, cfg: cfg}
}

// OnChange registers fn to be called after every request that changed a
// session.
func (h *Handler) OnChange(fn func(code string, st game.State)) { h.onChange = fn }

func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api/sessions")

	host := []gin.HandlerFunc{}
	if h.cfg.HostAuth() {
		host = append(host, gin.BasicAuth(gin.Accounts{h.cfg.HostUser: h.cfg.HostPass}))
	}

	api.GET("/active", h.active)
	api.POST("", append(host, h.create)...)
	api.POST("/load", append(host, h.load)...)
	api.GET("/:code", h.state)
	api.DELETE("/:code", h.close)
	api.POST("/:code/votes", h.vote)
	api.POST("/:code/reset", h.reset)
	api.GET("/:code/estimations", h.estimations)
	api.GET("/:code/progress", h.progress)
	api.POST("/:code/export", h.export)
}

type voteRequest struct {
	Player  string          `json:"player"`
	Feature string          `json:"feature"`
	Vote    json.RawMessage `json:"vote"`
}

// raw returns the vote as typed by the player. Both "5" and 5 are accepted.
func (v voteRequest) raw() string {
	var s string
	if err := json.Unmarshal(v.Vote, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v.Vote))
}

type exportRequest struct {
	Filename string `json:"filename"`
}

func (h *Handler) active(c *gin.Context) {
	if code, room := h.rooms.Active(); room != nil {
		c.JSON(http.StatusOK, gin.H{"sessionCode": code})
		return
	}
	c.Status(http.StatusNotFound)
}

func (h *Handler) create(c *gin.Context) {
	var req game.SessionFile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_config", "message": err.Error()})
		return
	}
	s, err := req.Restore()
	if err != nil {
		writeError(c, err)
		return
	}
	h.adopt(c, s)
}

func (h *Handler) load(c *gin.Context) {
	s, err := game.ReadSession(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	h.adopt(c, s)
}

func (h *Handler) adopt(c *gin.Context, s *game.Session) {
	if h.cfg.SingleSession {
		if code, room := h.rooms.Active(); room != nil {
			_ = h.rooms.Close(code)
			log.Info().Str("code", code).Msg("replaced active session")
		}
	}
	room := h.rooms.Adopt(s)
	st := room.State()
	log.Info().Str("code", room.Code).Str("room", room.ID).Strs("players", st.Players).Int("features", len(st.Features)).Str("rules", string(st.Rules)).Msg("session configured")
	h.changed(room.Code, st)
	c.JSON(http.StatusCreated, gin.H{"sessionCode": room.Code, "hostToken": room.HostToken, "state": st})
}

func (h *Handler) state(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, room.State())
}

func (h *Handler) close(c *gin.Context) {
	room, ok := h.hostRoom(c)
	if !ok {
		return
	}
	if err := h.rooms.Close(room.Code); err != nil {
		writeError(c, err)
		return
	}
	log.Info().Str("code", room.Code).Str("room", room.ID).Msg("session closed")
	c.Status(http.StatusNoContent)
}

func (h *Handler) vote(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_vote", "message": err.Error()})
		return
	}
	var status game.RoundStatus
	st, err := room.Apply(func(s *game.Session) error {
		var err error
		status, err = s.SubmitVote(req.Player, req.Feature, req.raw())
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if status == game.StatusRejected || status == game.StatusAccepted {
		log.Info().Str("code", room.Code).Int("round", st.Round).Str("status", string(status)).Msg("round evaluated")
	}
	h.changed(room.Code, st)
	c.JSON(http.StatusOK, gin.H{"status": status, "message": status.Message(), "state": st})
}

func (h *Handler) reset(c *gin.Context) {
	room, ok := h.hostRoom(c)
	if !ok {
		return
	}
	st, _ := room.Apply(func(s *game.Session) error {
		s.ResetRound()
		return nil
	})
	h.changed(room.Code, st)
	c.JSON(http.StatusOK, st)
}

func (h *Handler) estimations(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	var est map[string]float64
	err := room.Do(func(s *game.Session) error {
		var err error
		est, err = s.FinalEstimations()
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (h *Handler) progress(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := room.Do(func(s *game.Session) error { return game.WriteSession(&buf, s) }); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="planning-poker-%s.json"`, room.Code))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (h *Handler) export(c *gin.Context) {
	room, ok := h.hostRoom(c)
	if !ok {
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Filename)
	if name == "" {
		name = "estimations-" + room.Code
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		writeError(c, fmt.Errorf("%w: %q must be a plain file name", game.ErrMalformedExportPath, req.Filename))
		return
	}
	var written string
	err := room.Do(func(s *game.Session) error {
		var err error
		written, err = game.ExportEstimations(s, filepath.Join(h.cfg.ExportDir, name))
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("code", room.Code).Msg("failed to export estimations")
		writeError(c, err)
		return
	}
	log.Info().Str("code", room.Code).Str("file", written).Msg("exported estimations")
	c.JSON(http.StatusOK, gin.H{"path": written})
}

func (h *Handler) room(c *gin.Context) (*game.Room, bool) {
	room, err := h.rooms.Get(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return room, true
}

func (h *Handler) hostRoom(c *gin.Context) (*game.Room, bool) {
	room, ok := h.room(c)
	if !ok {
		return nil, false
	}
	if err := room.Authorize(c.GetHeader(HostTokenHeader)); err != nil {
		log.Warn().Str("code", room.Code).Str("path", c.FullPath()).Msg("host token rejected")
		writeError(c, err)
		return nil, false
	}
	return room, true
}

func (h *Handler) changed(code string, st game.State) {
	if h.onChange != nil {
		h.onChange(code, st)
	}
}

func writeError(c *gin.Context, err error) {
	code := game.Code(err)
	c.JSON(statusFor(err), gin.H{"error": code, "message": err.Error()})
}

func statusFor(err error) int {
	var pe *game.ParseError
	switch {
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotAccepted), errors.Is(err, game.ErrSessionClosed):
		return http.StatusConflict
	case game.Code(err) == "internal":
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
