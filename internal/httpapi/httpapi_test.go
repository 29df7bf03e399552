package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/planningpoker/internal/config"
	"github.com/kiliankoe/planningpoker/internal/game"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine  *gin.Engine
	rooms   *game.RoomManager
	changes []game.State
	tokens  map[string]string
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	ts := &testServer{engine: gin.New(), rooms: game.NewRoomManager(), tokens: map[string]string{}}
	h := New(ts.rooms, cfg)
	h.OnChange(func(code string, st game.State) { ts.changes = append(ts.changes, st) })
	h.Register(ts.engine)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doAs(t, "", method, path, body)
}

// doAs sends the request with token in the host token header.
func (ts *testServer) doAs(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(HostTokenHeader, token)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type createResponse struct {
	SessionCode string     `json:"sessionCode"`
	HostToken   string     `json:"hostToken"`
	State       game.State `json:"state"`
}

type voteResponse struct {
	Status  game.RoundStatus `json:"status"`
	Message string           `json:"message"`
	State   game.State       `json:"state"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (ts *testServer) create(t *testing.T, rules string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/sessions",
		`{"players":["A","B"],"features":["login"],"rules":"`+rules+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[createResponse](t, w)
	require.NotEmpty(t, res.HostToken)
	ts.tokens[res.SessionCode] = res.HostToken
	return res.SessionCode
}

func TestStrictScenarioOverHTTP(t *testing.T) {
	ts := newTestServer(t, config.Config{ExportDir: t.TempDir()})
	code := ts.create(t, "StrictRule")

	w := ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, game.StatusCollecting, decode[voteResponse](t, w).Status)

	w = ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"B","feature":"login","vote":8}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[voteResponse](t, w)
	assert.Equal(t, game.StatusRejected, res.Status)
	assert.Equal(t, "Feature not approved, vote again.", res.Message)
	assert.Zero(t, res.State.VoteCount)
	assert.Equal(t, 2, res.State.Round)

	ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"5"}`)
	w = ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"B","feature":"login","vote":"5"}`)
	assert.Equal(t, game.StatusAccepted, decode[voteResponse](t, w).Status)

	w = ts.do(t, http.MethodGet, "/api/sessions/"+code+"/estimations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]float64{"login": 5}, decode[map[string]float64](t, w))

	assert.Len(t, ts.changes, 5)
}

func TestVoteErrors(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	code := ts.create(t, "AverageRule")

	w := ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"?"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid_vote", decode[errorResponse](t, w).Error)

	w = ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"Z","feature":"login","vote":"3"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_player", decode[errorResponse](t, w).Error)

	w = ts.do(t, http.MethodPost, "/api/sessions/NOPE/votes", `{"player":"A","feature":"login","vote":"3"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/sessions/"+code+"/estimations", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "not_accepted", decode[errorResponse](t, w).Error)

	st := decode[game.State](t, ts.do(t, http.MethodGet, "/api/sessions/"+code, ""))
	assert.Zero(t, st.VoteCount)
}

func TestCreatePreconditions(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	w := ts.do(t, http.MethodPost, "/api/sessions", `{"players":[],"features":["login"],"rules":"StrictRule"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "precondition_failed", decode[errorResponse](t, w).Error)

	w = ts.do(t, http.MethodPost, "/api/sessions", `{"players":["A"],"features":["login"],"rules":"Mode"}`)
	assert.Equal(t, "unknown_rule", decode[errorResponse](t, w).Error)

	assert.Zero(t, ts.rooms.Len())
}

func TestHostAuth(t *testing.T) {
	ts := newTestServer(t, config.Config{HostUser: "scrum", HostPass: "master"})

	w := ts.do(t, http.MethodPost, "/api/sessions", `{"players":["A"],"features":["login"],"rules":"StrictRule"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"players":["A"],"features":["login"],"rules":"StrictRule"}`))
	req.SetBasicAuth("scrum", "master")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSingleSessionReplacesActive(t *testing.T) {
	ts := newTestServer(t, config.Config{SingleSession: true})
	first := ts.create(t, "StrictRule")
	second := ts.create(t, "StrictRule")

	assert.Equal(t, 1, ts.rooms.Len())
	w := ts.do(t, http.MethodGet, "/api/sessions/"+first, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/sessions/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, second, decode[map[string]string](t, w)["sessionCode"])
}

func TestProgressDownloadAndLoad(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	code := ts.create(t, "StrictRule")
	ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"3"}`)

	w := ts.do(t, http.MethodGet, "/api/sessions/"+code+"/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), code)
	saved := w.Body.String()
	assert.Contains(t, saved, `"rules": "StrictRule"`)

	w = ts.do(t, http.MethodPost, "/api/sessions/load", saved)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[createResponse](t, w).State
	assert.Equal(t, 1, st.VoteCount)
	require.NotNil(t, st.Next)
	assert.Equal(t, game.Turn{Player: "B", Feature: "login"}, *st.Next)

	w = ts.do(t, http.MethodPost, "/api/sessions/load", `{"players":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed_session_file", decode[errorResponse](t, w).Error)
}

func TestExportEndpoint(t *testing.T) {
	dir := t.TempDir()
	ts := newTestServer(t, config.Config{ExportDir: dir})
	code := ts.create(t, "AverageRule")

	token := ts.tokens[code]
	w := ts.doAs(t, token, http.MethodPost, "/api/sessions/"+code+"/export", `{"filename":"sprint"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"4"}`)
	ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"B","feature":"login","vote":"6"}`)

	w = ts.doAs(t, token, http.MethodPost, "/api/sessions/"+code+"/export", `{"filename":"../escape"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed_export_path", decode[errorResponse](t, w).Error)

	w = ts.doAs(t, token, http.MethodPost, "/api/sessions/"+code+"/export", `{"filename":"sprint"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	path := decode[map[string]string](t, w)["path"]
	assert.Equal(t, filepath.Join(dir, "sprint.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"login": 5}`, string(b))
}

func TestResetAndClose(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	code := ts.create(t, "StrictRule")
	ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"3"}`)

	token := ts.tokens[code]
	w := ts.doAs(t, token, http.MethodPost, "/api/sessions/"+code+"/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[game.State](t, w).VoteCount)

	w = ts.doAs(t, token, http.MethodDelete, "/api/sessions/"+code, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/sessions/"+code, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHostOperationsRequireToken(t *testing.T) {
	ts := newTestServer(t, config.Config{ExportDir: t.TempDir()})
	code := ts.create(t, "StrictRule")
	ts.do(t, http.MethodPost, "/api/sessions/"+code+"/votes", `{"player":"A","feature":"login","vote":"3"}`)

	for _, token := range []string{"", "not-the-token"} {
		for _, req := range []struct{ method, path, body string }{
			{http.MethodPost, "/api/sessions/" + code + "/reset", ""},
			{http.MethodPost, "/api/sessions/" + code + "/export", `{"filename":"sprint"}`},
			{http.MethodDelete, "/api/sessions/" + code, ""},
		} {
			w := ts.doAs(t, token, req.method, req.path, req.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code, req.path)
			assert.Equal(t, "unauthorized", decode[errorResponse](t, w).Error)
		}
	}

	st := decode[game.State](t, ts.do(t, http.MethodGet, "/api/sessions/"+code, ""))
	assert.Equal(t, 1, st.VoteCount, "refused reset must not clear votes")
	assert.Equal(t, 1, ts.rooms.Len(), "refused close must keep the session")
}
