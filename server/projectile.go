package server

import "math"

// Bullet 子弹：位置、单位方向向量与发射者（用于排除自伤）
type Bullet struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	DX      float64  `json:"dx"`
	DY      float64  `json:"dy"`
	OwnerID PlayerID `json:"ownerId"`
}

// Hit 一次命中结果
type Hit struct {
	Victim *Player
	Owner  PlayerID
	Killed bool // 本次命中导致死亡
}

// ProjectileEngine 单房间的子弹推进与命中判定，由房间锁串行化
type ProjectileEngine struct {
	bullets []Bullet
}

// Spawn 在 (x,y) 沿 angle 前方 BulletOffset 处生成一颗子弹
func (e *ProjectileEngine) Spawn(owner PlayerID, x, y, angle float64) {
	dx, dy := math.Cos(angle), math.Sin(angle)
	e.bullets = append(e.bullets, Bullet{
		X:       x + dx*BulletOffset,
		Y:       y + dy*BulletOffset,
		DX:      dx,
		DY:      dy,
		OwnerID: owner,
	})
}

// Step 推进一帧：移动、越界移除、命中结算，最后执行数量上限。
// players 的顺序即命中判定顺序，每颗子弹只结算第一个命中的玩家。
func (e *ProjectileEngine) Step(players []*Player) (hits []Hit, evicted int) {
	kept := e.bullets[:0]
	for _, b := range e.bullets {
		b.X += b.DX * BulletSpeed
		b.Y += b.DY * BulletSpeed

		if outOfBounds(b.X, b.Y) {
			continue
		}
		if victim := firstHit(b, players); victim != nil {
			hits = append(hits, Hit{
				Victim: victim,
				Owner:  b.OwnerID,
				Killed: victim.applyDamage(BulletDamage),
			})
			continue
		}
		kept = append(kept, b)
	}
	clear(e.bullets[len(kept):])
	e.bullets = kept

	if n := len(e.bullets) - MaxBullets; n > 0 {
		e.bullets = append(e.bullets[:0], e.bullets[n:]...)
		evicted = n
	}
	return hits, evicted
}

// Bullets 返回当前子弹的副本，供快照使用
func (e *ProjectileEngine) Bullets() []Bullet {
	out := make([]Bullet, len(e.bullets))
	copy(out, e.bullets)
	return out
}

// Len 当前存活子弹数
func (e *ProjectileEngine) Len() int { return len(e.bullets) }

func firstHit(b Bullet, players []*Player) *Player {
	for _, p := range players {
		if p.Dead || p.ID == b.OwnerID {
			continue
		}
		dx, dy := b.X-p.X, b.Y-p.Y
		if dx*dx+dy*dy < HitRadius*HitRadius {
			return p
		}
	}
	return nil
}

func outOfBounds(x, y float64) bool {
	return x < 0 || x > MapWidth || y < 0 || y > MapHeight
}

// clamp 将 v 限制在 [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
