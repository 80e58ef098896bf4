package server

import (
	"regexp"
	"sort"
	"sync"
	"unicode/utf8"
)

var roomCodeRe = regexp.MustCompile(`^\d{4}$`)

// RoomManager 管理多个房间的生命周期，并维护连接到房间的索引。
// 加锁顺序固定为 manager → room。
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[PlayerID]*Room

	deps roomDeps
}

// Option RoomManager 的可选项
type Option func(*RoomManager)

// WithSpawnPolicy 替换出生点策略
func WithSpawnPolicy(p SpawnPolicy) Option {
	return func(m *RoomManager) { m.deps.spawn = p }
}

// WithAfterFunc 替换复活定时器实现
func WithAfterFunc(f AfterFunc) Option {
	return func(m *RoomManager) { m.deps.after = f }
}

// WithMetrics 共享指标
func WithMetrics(mt *Metrics) Option {
	return func(m *RoomManager) { m.deps.metrics = mt }
}

// NewRoomManager pub 为 nil 时事件被丢弃
func NewRoomManager(pub Publisher, opts ...Option) *RoomManager {
	if pub == nil {
		pub = nopPublisher{}
	}
	m := &RoomManager{
		rooms:  make(map[string]*Room),
		byConn: make(map[PlayerID]*Room),
		deps:   roomDeps{pub: pub, spawn: RandomSpawn, after: realAfterFunc, metrics: &Metrics{}},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRoom 新建空房间
func (m *RoomManager) CreateRoom(name, code string) error {
	if name == "" || !roomCodeRe.MatchString(code) {
		return ErrInvalidRoom
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[name]; ok {
		return ErrRoomExists
	}
	m.rooms[name] = newRoom(name, code, m.deps)
	m.deps.metrics.IncRoomsCreated()
	Log.Infof("room created: %s", name)
	return nil
}

// ValidateEntry 只读预检，不保留任何名额
func (m *RoomManager) ValidateEntry(name, code, username string) error {
	if name == "" || code == "" || utf8.RuneCountInString(username) < MinUsernameLen {
		return ErrInvalidLogin
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	return r.CheckEntry(code, username)
}

// Join 把连接加入房间；同一连接同时只能在一个房间
func (m *RoomManager) Join(id PlayerID, name, code, username string) (*Room, error) {
	if name == "" || code == "" {
		return nil, ErrInvalidLogin
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byConn[id]; ok {
		return nil, ErrAlreadyJoined
	}
	r, ok := m.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, err := r.Join(id, code, username); err != nil {
		return nil, err
	}
	m.byConn[id] = r
	Log.Infof("player joined: room=%s user=%s conn=%s", name, username, id)
	return r, nil
}

// Leave 连接断开：移除玩家，房间空了就销毁。
// 整个过程持有管理器锁，其他请求看不到“已空但未销毁”的房间。
func (m *RoomManager) Leave(id PlayerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byConn[id]
	if !ok {
		return
	}
	delete(m.byConn, id)

	if r.Remove(id) {
		m.removeIfEmptyLocked(r.Name)
	}
	Log.Infof("player left: room=%s conn=%s", r.Name, id)
}

// RemoveRoomIfEmpty 房间唯一的销毁路径
func (m *RoomManager) RemoveRoomIfEmpty(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeIfEmptyLocked(name)
}

func (m *RoomManager) removeIfEmptyLocked(name string) bool {
	r, ok := m.rooms[name]
	if !ok || !r.closeIfEmpty() {
		return false
	}
	delete(m.rooms, name)
	m.deps.metrics.IncRoomsDestroyed()
	Log.Infof("room destroyed: %s", name)
	return true
}

// RoomOf 连接当前所在的房间
func (m *RoomManager) RoomOf(id PlayerID) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byConn[id]
	return r, ok
}

// Rooms 当前活跃房间的快照，供 Tick 循环遍历
func (m *RoomManager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

// RoomInfo 监控用的房间摘要
type RoomInfo struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
	Bullets int    `json:"bullets"`
}

// Stats 按房间名排序
func (m *RoomManager) Stats() []RoomInfo {
	rooms := m.Rooms()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomInfo{Name: r.Name, Players: r.Len(), Bullets: r.BulletCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
