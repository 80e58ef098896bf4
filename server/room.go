package server

import (
	"math"
	"slices"
	"sync"
	"unicode/utf8"
)

// Publisher 把事件投递给指定连接，由会话网关实现。
// 房间在持锁状态下调用，实现不得阻塞，也不得回调房间。
type Publisher interface {
	Publish(ids []PlayerID, event string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish([]PlayerID, string, any) {}

// roomDeps 由 RoomManager 注入房间的协作者
type roomDeps struct {
	pub     Publisher
	spawn   SpawnPolicy
	after   AfterFunc
	metrics *Metrics
}

// Room 房间世界：权威状态维护在内存，所有变更在 mu 下串行执行
type Room struct {
	Name string
	code string

	mu      sync.Mutex
	players map[PlayerID]*Player
	order   []PlayerID // 加入顺序，即命中判定顺序
	engine  ProjectileEngine
	respawn *RespawnScheduler
	closed  bool // 已被 RoomManager 销毁

	pub     Publisher
	spawn   SpawnPolicy
	metrics *Metrics
}

func newRoom(name, code string, deps roomDeps) *Room {
	r := &Room{
		Name:    name,
		code:    code,
		players: make(map[PlayerID]*Player),
		pub:     deps.pub,
		spawn:   deps.spawn,
		metrics: deps.metrics,
	}
	r.respawn = newRespawnScheduler(&r.mu, deps.after)
	return r
}

// CheckEntry 只读校验：房间码、用户名是否可用
func (r *Room) CheckEntry(code, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkEntryLocked(code, username)
}

func (r *Room) checkEntryLocked(code, username string) error {
	if r.closed {
		return ErrRoomNotFound
	}
	if r.code != code {
		return ErrBadCredentials
	}
	for _, id := range r.order {
		if r.players[id].Username == username {
			return ErrNameTaken
		}
	}
	return nil
}

// Join 在房间锁内重新校验后加入玩家，并向房间广播 playersUpdate，
// 向加入者发送 registered 与完整 gameState
func (r *Room) Join(id PlayerID, code, username string) (PlayerState, error) {
	if utf8.RuneCountInString(username) < MinUsernameLen {
		return PlayerState{}, ErrInvalidLogin
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkEntryLocked(code, username); err != nil {
		return PlayerState{}, err
	}

	x, y := r.spawn()
	p := newPlayer(id, username, x, y)
	r.players[id] = p
	r.order = append(r.order, id)

	r.pub.Publish(r.order, EventPlayersUpdate, r.playersLocked())
	self := []PlayerID{id}
	r.pub.Publish(self, EventRegistered, id)
	r.pub.Publish(self, EventGameState, r.snapshotLocked())
	return p.State(), nil
}

// ApplyMove 应用移动意图；未知或已死亡的玩家忽略，返回是否生效
func (r *Room) ApplyMove(id PlayerID, in MoveInput) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok || p.Dead {
		return false
	}
	if v, ok := finite(in.X); ok {
		p.X = clamp(v, 0, MapWidth)
	}
	if v, ok := finite(in.Y); ok {
		p.Y = clamp(v, 0, MapHeight)
	}
	if v, ok := finite(in.Angle); ok {
		p.Angle = v
	}
	if in.IsShooting {
		r.engine.Spawn(id, p.X, p.Y, p.Angle)
		r.metrics.IncBulletsFired()
	}

	r.pub.Publish(r.order, EventPlayersUpdate, r.playersLocked())
	return true
}

func finite(o OptFloat) (float64, bool) {
	if !o.Valid || math.IsNaN(o.V) || math.IsInf(o.V, 0) {
		return 0, false
	}
	return o.V, true
}

// RespawnNow 主动复活：取消挂起的定时器并立即复活，存活玩家为 no-op
func (r *Room) RespawnNow(id PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok || !p.Dead {
		return false
	}
	r.respawn.Cancel(p)
	r.reviveLocked(p)
	r.metrics.IncRequestRespawns()
	return true
}

// onRespawnTimer 定时器回调，RespawnScheduler 已持有房间锁
func (r *Room) onRespawnTimer(p *Player) {
	if r.closed || r.players[p.ID] != p || !p.Dead {
		return
	}
	r.reviveLocked(p)
	r.metrics.IncTimerRespawns()
}

func (r *Room) reviveLocked(p *Player) {
	x, y := r.spawn()
	p.revive(x, y)
	r.pub.Publish([]PlayerID{p.ID}, EventRespawn, RespawnPayload{X: p.X, Y: p.Y, HP: p.HP})
	r.pub.Publish(r.order, EventPlayersUpdate, r.playersLocked())
}

// Chat 房间内广播聊天，超长截断
func (r *Room) Chat(id PlayerID, msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return false
	}
	if utf8.RuneCountInString(msg) > MaxChatLen {
		msg = string([]rune(msg)[:MaxChatLen])
	}
	r.pub.Publish(r.order, EventChatMessage, ChatPayload{Username: p.Username, Message: msg})
	return true
}

// Remove 移除玩家并取消其复活定时器（幂等），返回房间是否已空
func (r *Room) Remove(id PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return len(r.players) == 0
	}
	r.respawn.Cancel(p)
	delete(r.players, id)
	r.order = slices.DeleteFunc(r.order, func(pid PlayerID) bool { return pid == id })

	if len(r.players) > 0 {
		r.pub.Publish(r.order, EventPlayersUpdate, r.playersLocked())
	}
	return len(r.players) == 0
}

// Step 单帧推进：子弹结算、死亡通知与复活定时，然后广播完整快照
func (r *Room) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	hits, evicted := r.engine.Step(r.orderedLocked())
	for _, h := range hits {
		r.metrics.IncHits()
		if !h.Killed {
			continue
		}
		r.metrics.IncKills()
		Log.Infof("player killed: room=%s victim=%s by=%s", r.Name, h.Victim.Username, h.Owner)
		r.pub.Publish([]PlayerID{h.Victim.ID}, EventDead, nil)
		r.respawn.Arm(h.Victim, RespawnDelay, r.onRespawnTimer)
	}
	if evicted > 0 {
		r.metrics.AddEvicted(evicted)
	}

	if len(r.order) > 0 {
		r.pub.Publish(r.order, EventGameState, r.snapshotLocked())
	}
}

// Snapshot 当前房间的完整快照
func (r *Room) Snapshot() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Players 脱敏后的玩家表
func (r *Room) Players() map[PlayerID]PlayerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersLocked()
}

// Len 当前玩家数
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// BulletCount 当前子弹数
func (r *Room) BulletCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Len()
}

// closeIfEmpty 由 RoomManager 在持有管理器锁时调用
func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) > 0 {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) orderedLocked() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Room) playersLocked() map[PlayerID]PlayerState {
	out := make(map[PlayerID]PlayerState, len(r.players))
	for id, p := range r.players {
		out[id] = p.State()
	}
	return out
}

func (r *Room) snapshotLocked() GameState {
	return GameState{Players: r.playersLocked(), Bullets: r.engine.Bullets()}
}
