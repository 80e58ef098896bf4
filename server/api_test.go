package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*testEnv, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t, nil)
	api := NewAPI(env.rooms, env.hub, env.metrics)
	srv := httptest.NewServer(api.Routes(nil, nil))
	t.Cleanup(srv.Close)
	return env, srv
}

func postJSON(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAPI_CreateRoom(t *testing.T) {
	_, srv := newTestAPI(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "ok", body: map[string]any{"roomName": "arena", "roomCode": "1234"}, wantStatus: http.StatusOK},
		{name: "numeric code", body: map[string]any{"roomName": "numeric", "roomCode": 4321}, wantStatus: http.StatusOK},
		{name: "duplicate", body: map[string]any{"roomName": "arena", "roomCode": "1234"}, wantStatus: http.StatusBadRequest, wantError: ErrRoomExists.Message},
		{name: "bad code", body: map[string]any{"roomName": "x", "roomCode": "12"}, wantStatus: http.StatusBadRequest, wantError: ErrInvalidRoom.Message},
		{name: "missing name", body: map[string]any{"roomCode": "1234"}, wantStatus: http.StatusBadRequest, wantError: ErrInvalidRoom.Message},
		{name: "not an object", body: "nope", wantStatus: http.StatusBadRequest, wantError: ErrInvalidRoom.Message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := postJSON(t, srv.URL+"/createRoom", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantError == "" {
				assert.Equal(t, true, out["success"])
				return
			}
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tt.wantError, out["error"])
		})
	}
}

func TestAPI_Login(t *testing.T) {
	env, srv := newTestAPI(t)
	require.NoError(t, env.rooms.CreateRoom(arenaName, arenaCode))
	env.join(t, arenaName, arenaCode, "alice")

	tests := []struct {
		name      string
		body      map[string]any
		wantError string
	}{
		{name: "ok", body: map[string]any{"username": "bob", "roomName": arenaName, "roomCode": arenaCode}},
		{name: "numeric code", body: map[string]any{"username": "bob", "roomName": arenaName, "roomCode": 1234}},
		{name: "not found", body: map[string]any{"username": "bob", "roomName": "nope", "roomCode": arenaCode}, wantError: ErrRoomNotFound.Message},
		{name: "bad code", body: map[string]any{"username": "bob", "roomName": arenaName, "roomCode": "9999"}, wantError: ErrBadCredentials.Message},
		{name: "name taken", body: map[string]any{"username": "alice", "roomName": arenaName, "roomCode": arenaCode}, wantError: ErrNameTaken.Message},
		{name: "short name", body: map[string]any{"username": "bo", "roomName": arenaName, "roomCode": arenaCode}, wantError: ErrInvalidLogin.Message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := postJSON(t, srv.URL+"/login", tt.body)
			if tt.wantError == "" {
				assert.Equal(t, http.StatusOK, status)
				assert.Equal(t, true, out["success"])
				return
			}
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantError, out["error"])
		})
	}

	// login 只校验，不会占用名额
	assert.Equal(t, []RoomInfo{{Name: arenaName, Players: 1}}, env.rooms.Stats())
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	env, srv := newTestAPI(t)
	require.NoError(t, env.rooms.CreateRoom(arenaName, arenaCode))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, map[string]any{"ok": true}, health)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var m struct {
		Metrics     map[string]any `json:"metrics"`
		Rooms       []RoomInfo     `json:"rooms"`
		Connections int            `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&m))
	assert.EqualValues(t, 1, m.Metrics["rooms_created"])
	assert.Equal(t, []RoomInfo{{Name: arenaName}}, m.Rooms)
	assert.Zero(t, m.Connections)
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	_, srv := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/createRoom")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI_CORS(t *testing.T) {
	_, srv := newTestAPI(t)

	t.Run("preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/createRoom", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "content-type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type")
	})

	t.Run("actual request", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/createRoom", "application/json", bytes.NewReader([]byte(`{"roomName":"cors","roomCode":"1234"}`)))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("error response", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/login", "application/json", bytes.NewReader([]byte(`{}`)))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
