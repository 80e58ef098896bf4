package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// API 进入房间之前的 HTTP 接口与监控
type API struct {
	rooms   *RoomManager
	hub     *Hub
	metrics *Metrics
}

func NewAPI(rooms *RoomManager, hub *Hub, metrics *Metrics) *API {
	return &API{rooms: rooms, hub: hub, metrics: metrics}
}

// Routes 注册 HTTP 路由；ws 与 static 为 nil 时不挂载
func (a *API) Routes(ws http.Handler, static http.Handler) http.Handler {
	mux := http.NewServeMux()

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return recoverer(accessLog(h))
	}
	mux.HandleFunc("POST /createRoom", wrap(a.HandleCreateRoom))
	mux.HandleFunc("POST /login", wrap(a.HandleLogin))
	mux.HandleFunc("GET /health", wrap(a.HandleHealth))
	mux.HandleFunc("GET /metrics", wrap(a.HandleMetrics))

	// 升级需要原始 ResponseWriter（Hijacker），不包日志中间件
	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
	if static != nil {
		mux.Handle("GET /", static)
	}
	return withCORS(mux)
}

// withCORS 允许任意来源的浏览器客户端调用，预检请求直接返回 204
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRoomRequest struct {
	RoomName Text `json:"roomName"`
	RoomCode Text `json:"roomCode"`
}

type loginRequest struct {
	Username Text `json:"username"`
	RoomName Text `json:"roomName"`
	RoomCode Text `json:"roomCode"`
}

// HandleCreateRoom POST /createRoom {roomName, roomCode}
func (a *API) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, ErrInvalidRoom)
		return
	}
	if err := a.rooms.CreateRoom(string(req.RoomName), string(req.RoomCode)); err != nil {
		failure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleLogin POST /login {username, roomName, roomCode}，只校验不占位
func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, ErrInvalidLogin)
		return
	}
	err := a.rooms.ValidateEntry(string(req.RoomName), string(req.RoomCode), string(req.Username))
	if err != nil {
		failure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleMetrics 输出进程指标与各房间摘要
func (a *API) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":     a.metrics.Snapshot(),
		"rooms":       a.rooms.Stats(),
		"connections": a.hub.Count(),
	})
}

// failure 所有分类错误都以 400 返回，错误文案直接展示给玩家
func failure(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   MessageOf(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		Log.Errorf("encode response: %v", err)
	}
}

func accessLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		Log.Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	}
}

func recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				Log.Errorw("panic in handler", "error", err, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "internal error"})
			}
		}()
		next(w, r)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
