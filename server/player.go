package server

// PlayerID 连接标识，一个连接至多对应一个房间内的一个玩家
type PlayerID string

// PlayerState 为广播给客户端的脱敏状态
type PlayerState struct {
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	HP       int     `json:"hp"`
	Dead     bool    `json:"dead"`
}

// Player 房间内的玩家实体（服务端权威状态）
type Player struct {
	ID       PlayerID
	Username string
	X        float64
	Y        float64
	Angle    float64
	HP       int
	Dead     bool

	respawn *respawnHandle // 已挂起的复活定时器，nil 表示没有
}

func newPlayer(id PlayerID, username string, x, y float64) *Player {
	return &Player{ID: id, Username: username, X: x, Y: y, HP: MaxHP}
}

// State 返回对外可见的视图，不含定时器等内部字段
func (p *Player) State() PlayerState {
	return PlayerState{
		Username: p.Username,
		X:        p.X,
		Y:        p.Y,
		Angle:    p.Angle,
		HP:       p.HP,
		Dead:     p.Dead,
	}
}

// applyDamage 扣血，返回本次是否由生转死
func (p *Player) applyDamage(dmg int) bool {
	p.HP -= dmg
	if p.HP > 0 {
		return false
	}
	p.HP = 0
	if p.Dead {
		return false
	}
	p.Dead = true
	return true
}

// revive 复活：满血并移动到新出生点
func (p *Player) revive(x, y float64) {
	p.Dead = false
	p.HP = MaxHP
	p.X = x
	p.Y = y
}
