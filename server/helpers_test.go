package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConn 记录所有发出的帧
type fakeConn struct {
	mu     sync.Mutex
	codec  Codec
	frames [][]byte
	limit  int // >0 时模拟有界队列
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{codec: JSONCodec} }

func (c *fakeConn) Codec() Codec { return c.codec }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.limit > 0 && len(c.frames) >= c.limit {
		return ErrSendQueueFull
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// events 解码所有 JSON 帧
func (c *fakeConn) events(t *testing.T) []frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0, len(c.frames))
	for _, b := range c.frames {
		var f frame
		require.NoError(t, json.Unmarshal(b, &f))
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) named(t *testing.T, event string) []frame {
	t.Helper()
	var out []frame
	for _, f := range c.events(t) {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) last(t *testing.T, event string) frame {
	t.Helper()
	fs := c.named(t, event)
	require.NotEmpty(t, fs, "no %q frame", event)
	return fs[len(fs)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// fakeTimer 手动触发的定时器
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) all() []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]*fakeTimer(nil), ft.timers...)
}

// fireDue 触发所有未停止的定时器
func (ft *fakeTimers) fireDue() int {
	n := 0
	for _, t := range ft.all() {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.f()
		n++
	}
	return n
}

// forceFireAll 连已停止的也触发，模拟 Stop 与触发竞争
func (ft *fakeTimers) forceFireAll() {
	for _, t := range ft.all() {
		t.fired = true
		t.f()
	}
}

// fixedSpawn 依次返回给定坐标，用完后重复最后一个
func fixedSpawn(points ...[2]float64) SpawnPolicy {
	var mu sync.Mutex
	i := 0
	return func() (float64, float64) {
		mu.Lock()
		defer mu.Unlock()
		p := points[i]
		if i < len(points)-1 {
			i++
		}
		return p[0], p[1]
	}
}

type testEnv struct {
	metrics *Metrics
	hub     *Hub
	rooms   *RoomManager
	gw      *Gateway
	loop    *Loop
	timers  *fakeTimers
}

func newTestEnv(t *testing.T, spawn SpawnPolicy) *testEnv {
	t.Helper()
	if spawn == nil {
		spawn = RandomSpawn
	}
	env := &testEnv{metrics: &Metrics{}, timers: &fakeTimers{}}
	env.hub = NewHub(env.metrics)
	env.rooms = NewRoomManager(env.hub,
		WithMetrics(env.metrics),
		WithSpawnPolicy(spawn),
		WithAfterFunc(env.timers.AfterFunc),
	)
	env.gw = NewGateway(env.rooms, env.hub, env.metrics)
	env.loop = NewLoop(env.rooms, env.metrics)
	return env
}

// connect 建立一个假连接
func (e *testEnv) connect() (PlayerID, *fakeConn) {
	c := newFakeConn()
	return e.gw.Connect(c), c
}

// send 以 JSON 信封投递一条入站消息
func (e *testEnv) send(t *testing.T, id PlayerID, event string, data any) {
	t.Helper()
	raw := map[string]any{"event": event}
	if data != nil {
		raw["data"] = data
	}
	b, err := json.Marshal(raw)
	require.NoError(t, err)
	in, err := JSONCodec.Decode(b)
	require.NoError(t, err)
	e.gw.Dispatch(id, in)
}

func (e *testEnv) join(t *testing.T, room, code, username string) (PlayerID, *fakeConn) {
	t.Helper()
	id, c := e.connect()
	e.send(t, id, EventJoinRoom, map[string]any{"username": username, "roomName": room, "roomCode": code})
	require.Empty(t, c.named(t, EventErrorMsg), "join %s failed", username)
	return id, c
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}
