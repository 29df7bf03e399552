package ws

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/planningpoker/internal/config"
	"github.com/kiliankoe/planningpoker/internal/game"
)

// ConnCtx remembers which session a board connection is attached to.
type ConnCtx struct {
	Code string
}

// Server pushes session state to the shared board. Every event maps to
// one synchronous call on the session; there is no per-player channel.
type Server struct {
	RM        *game.RoomManager
	config    config.Config
	broadcast func(room, event string, v any)
}

func New(rm *game.RoomManager, cfg config.Config) *Server {
	return &Server{RM: rm, config: cfg}
}

type votePayload struct {
	Player  string `json:"player"`
	Feature string `json:"feature"`
	Vote    string `json:"vote"`
}

type watchPayload struct {
	SessionCode string `json:"sessionCode"`
}

// hostPayload is a session file plus the host credentials, which are only
// checked when HOST_USER and HOST_PASS are set.
type hostPayload struct {
	game.SessionFile
	User string `json:"user"`
	Pass string `json:"pass"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.broadcast = func(room, event string, v any) {
		io.BroadcastToRoom("/", room, event, v)
	}

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "session:create", srv.create)
	io.OnEvent("/", "session:load", srv.load)
	io.OnEvent("/", "session:watch", srv.watch)
	io.OnEvent("/", "vote:submit", srv.vote)
	io.OnEvent("/", "round:reset", srv.reset)

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket server stopped")
		}
	}()

	// Mount to router
	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// session:create
func (srv *Server) create(s socketio.Conn, payload hostPayload) map[string]any {
	if err := srv.checkHost(payload); err != nil {
		return srv.err(s, err)
	}
	sess, err := payload.Restore()
	if err != nil {
		return srv.err(s, err)
	}
	return srv.attach(s, sess)
}

// session:load
func (srv *Server) load(s socketio.Conn, payload hostPayload) map[string]any {
	if err := srv.checkHost(payload); err != nil {
		return srv.err(s, err)
	}
	sess, err := payload.Restore()
	if err != nil {
		return srv.err(s, wrapMalformed(err))
	}
	return srv.attach(s, sess)
}

// session:watch
func (srv *Server) watch(s socketio.Conn, payload watchPayload) map[string]any {
	room, err := srv.RM.Get(payload.SessionCode)
	if err != nil {
		return srv.err(s, err)
	}
	s.SetContext(&ConnCtx{Code: room.Code})
	s.Join(room.Code)
	log.Info().Str("sid", s.ID()).Str("code", room.Code).Msg("session:watch")
	s.Emit("session:state", room.State())
	return map[string]any{"ok": true}
}

// vote:submit
func (srv *Server) vote(s socketio.Conn, payload votePayload) map[string]any {
	room, err := srv.roomOf(s)
	if err != nil {
		return srv.err(s, err)
	}
	var status game.RoundStatus
	st, err := room.Apply(func(sess *game.Session) error {
		var err error
		status, err = sess.SubmitVote(payload.Player, payload.Feature, payload.Vote)
		return err
	})
	if err != nil {
		return srv.err(s, err)
	}
	log.Info().Str("code", room.Code).Str("player", payload.Player).Str("feature", payload.Feature).Msg("vote:submit")
	srv.Broadcast(room.Code, st)
	return map[string]any{"status": status, "message": status.Message()}
}

// round:reset, host only
func (srv *Server) reset(s socketio.Conn, payload tokenPayload) map[string]any {
	room, err := srv.roomOf(s)
	if err != nil {
		return srv.err(s, err)
	}
	if err := room.Authorize(payload.Token); err != nil {
		return srv.err(s, err)
	}
	st, _ := room.Apply(func(sess *game.Session) error {
		sess.ResetRound()
		return nil
	})
	log.Info().Str("code", room.Code).Str("room", room.ID).Msg("round:reset")
	srv.Broadcast(room.Code, st)
	return map[string]any{"ok": true}
}

func (srv *Server) checkHost(p hostPayload) error {
	if !srv.config.HostAuth() {
		return nil
	}
	user := subtle.ConstantTimeCompare([]byte(p.User), []byte(srv.config.HostUser))
	pass := subtle.ConstantTimeCompare([]byte(p.Pass), []byte(srv.config.HostPass))
	if user&pass != 1 {
		return game.ErrUnauthorized
	}
	return nil
}

// Broadcast sends st to every board watching code. A finished round also
// gets a round:verdict event carrying the evaluated result.
func (srv *Server) Broadcast(code string, st game.State) {
	if srv.broadcast == nil {
		return
	}
	srv.broadcast(code, "session:state", st)
	if st.LastResult == nil {
		return
	}
	if st.Status == game.StatusRejected || st.Status == game.StatusAccepted {
		srv.broadcast(code, "round:verdict", map[string]any{
			"round":       st.LastResult.Round,
			"status":      st.Status,
			"message":     st.Status.Message(),
			"verdict":     st.LastResult.Verdict,
			"estimations": st.Estimations,
		})
	}
}

func (srv *Server) attach(s socketio.Conn, sess *game.Session) map[string]any {
	if srv.config.SingleSession {
		if code, room := srv.RM.Active(); room != nil {
			_ = srv.RM.Close(code)
		}
	}
	room := srv.RM.Adopt(sess)
	s.SetContext(&ConnCtx{Code: room.Code})
	s.Join(room.Code)
	log.Info().Str("sid", s.ID()).Str("code", room.Code).Str("room", room.ID).Msg("session attached")
	st := room.State()
	s.Emit("session:state", st)
	return map[string]any{"sessionCode": room.Code, "hostToken": room.HostToken}
}

func (srv *Server) roomOf(s socketio.Conn) (*game.Room, error) {
	ctx, _ := s.Context().(*ConnCtx)
	if ctx == nil || ctx.Code == "" {
		return nil, game.ErrSessionNotFound
	}
	return srv.RM.Get(ctx.Code)
}

func (srv *Server) err(s socketio.Conn, err error) map[string]any {
	code := game.Code(err)
	s.Emit("error", map[string]any{"code": code, "message": err.Error()})
	return map[string]any{"error": code, "message": err.Error()}
}

func wrapMalformed(err error) error {
	return fmt.Errorf("%w: %v", game.ErrMalformedSessionFile, err)
}
