package server

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectileEngine_SpawnOffset(t *testing.T) {
	var e ProjectileEngine
	e.Spawn("a", 100, 100, 0)
	e.Spawn("a", 100, 100, math.Pi/2)

	bs := e.Bullets()
	require.Len(t, bs, 2)
	assert.InDelta(t, 118, bs[0].X, 1e-9)
	assert.InDelta(t, 100, bs[0].Y, 1e-9)
	assert.InDelta(t, 1, bs[0].DX, 1e-9)
	assert.InDelta(t, 100, bs[1].X, 1e-9)
	assert.InDelta(t, 118, bs[1].Y, 1e-9)
	assert.Equal(t, PlayerID("a"), bs[1].OwnerID)
}

func TestProjectileEngine_Advance(t *testing.T) {
	var e ProjectileEngine
	e.Spawn("a", 100, 100, 0)

	hits, evicted := e.Step(nil)
	assert.Empty(t, hits)
	assert.Zero(t, evicted)
	require.Equal(t, 1, e.Len())
	assert.InDelta(t, 130, e.Bullets()[0].X, 1e-9)
}

func TestProjectileEngine_OutOfBounds(t *testing.T) {
	tests := []struct {
		name  string
		x, y  float64
		angle float64
	}{
		{name: "right edge", x: 790, y: 300, angle: 0},
		{name: "left edge", x: 10, y: 300, angle: math.Pi},
		{name: "top edge", x: 400, y: 5, angle: -math.Pi / 2},
		{name: "bottom edge", x: 400, y: 595, angle: math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ProjectileEngine
			e.Spawn("a", tt.x, tt.y, tt.angle)
			e.Step(nil)
			assert.Zero(t, e.Len())
		})
	}
}

func TestProjectileEngine_OwnerImmune(t *testing.T) {
	owner := newPlayer("a", "alice", 100, 100)
	var e ProjectileEngine
	// 子弹生成在自己身上
	e.bullets = append(e.bullets, Bullet{X: 88, Y: 100, DX: 1, OwnerID: "a"})

	hits, _ := e.Step([]*Player{owner})
	assert.Empty(t, hits)
	assert.Equal(t, MaxHP, owner.HP)
	assert.Equal(t, 1, e.Len())
}

func TestProjectileEngine_FirstHitInOrder(t *testing.T) {
	p1 := newPlayer("p1", "first", 130, 100)
	p2 := newPlayer("p2", "second", 131, 100)
	var e ProjectileEngine
	e.Spawn("a", 100, 100, 0) // 推进后位于 (130,100)，两人都在半径内

	hits, _ := e.Step([]*Player{p1, p2})
	require.Len(t, hits, 1)
	assert.Same(t, p1, hits[0].Victim)
	assert.Equal(t, MaxHP-BulletDamage, p1.HP)
	assert.Equal(t, MaxHP, p2.HP)
	assert.Zero(t, e.Len())
}

func TestProjectileEngine_DeadPlayersSkipped(t *testing.T) {
	dead := newPlayer("d", "ghost", 130, 100)
	dead.HP, dead.Dead = 0, true
	alive := newPlayer("b", "bob", 135, 100)
	var e ProjectileEngine
	e.Spawn("a", 100, 100, 0)

	hits, _ := e.Step([]*Player{dead, alive})
	require.Len(t, hits, 1)
	assert.Same(t, alive, hits[0].Victim)
	assert.Equal(t, 0, dead.HP)
}

func TestProjectileEngine_HitRadiusIsStrict(t *testing.T) {
	p := newPlayer("b", "bob", 150, 100)
	var e ProjectileEngine
	e.Spawn("a", 100, 100, 0) // 推进后距离正好 20

	hits, _ := e.Step([]*Player{p})
	assert.Empty(t, hits)
	assert.Equal(t, 1, e.Len())
}

func TestProjectileEngine_Kill(t *testing.T) {
	p := newPlayer("b", "bob", 130, 100)
	p.HP = BulletDamage
	var e ProjectileEngine
	e.Spawn("a", 100, 100, 0)
	e.Spawn("a", 100, 100, 0)

	hits, _ := e.Step([]*Player{p})
	// 第二颗子弹跳过已死亡的玩家，继续飞行
	require.Len(t, hits, 1)
	assert.True(t, hits[0].Killed)
	assert.True(t, p.Dead)
	assert.Equal(t, 0, p.HP)
	assert.Equal(t, 1, e.Len())
}

func TestProjectileEngine_CapEvictsOldest(t *testing.T) {
	var e ProjectileEngine
	for i := 0; i < MaxBullets+5; i++ {
		e.Spawn(PlayerID("p"), 400, float64(100+i%300), 0)
	}
	first := e.Bullets()[5]

	_, evicted := e.Step(nil)
	assert.Equal(t, 5, evicted)
	require.Equal(t, MaxBullets, e.Len())
	assert.InDelta(t, first.Y, e.Bullets()[0].Y, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 800))
	assert.Equal(t, 800.0, clamp(801, 0, 800))
	assert.Equal(t, 12.5, clamp(12.5, 0, 800))
}
