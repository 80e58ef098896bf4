package server

import (
	"sync/atomic"
)

// Metrics 记录进程运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount       int64 // 统计的 Tick 次数
	TotalTickNs     int64 // Tick 累计耗时（纳秒）
	LateTicks       int64 // 超出 Tick 间隔、紧接着执行下一帧的次数
	BulletsFired    int64
	BulletsEvicted  int64 // 因数量上限被丢弃的子弹
	Hits            int64
	Kills           int64
	TimerRespawns   int64 // 定时器触发的复活
	RequestRespawns int64 // 客户端主动请求的复活
	RoomsCreated    int64
	RoomsDestroyed  int64
	SlowConsumers   int64 // 发送队列满被断开的连接
	RateLimited     int64 // 因入站限流被忽略的消息
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}
func (m *Metrics) IncLateTick() { atomic.AddInt64(&m.LateTicks, 1) }
func (m *Metrics) IncBulletsFired() { atomic.AddInt64(&m.BulletsFired, 1) }
func (m *Metrics) AddEvicted(n int) { atomic.AddInt64(&m.BulletsEvicted, int64(n)) }
func (m *Metrics) IncHits() { atomic.AddInt64(&m.Hits, 1) }
func (m *Metrics) IncKills() { atomic.AddInt64(&m.Kills, 1) }
func (m *Metrics) IncTimerRespawns() { atomic.AddInt64(&m.TimerRespawns, 1) }
func (m *Metrics) IncRequestRespawns() { atomic.AddInt64(&m.RequestRespawns, 1) }
func (m *Metrics) IncRoomsCreated() { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *Metrics) IncRoomsDestroyed() { atomic.AddInt64(&m.RoomsDestroyed, 1) }
func (m *Metrics) IncSlowConsumers() { atomic.AddInt64(&m.SlowConsumers, 1) }
func (m *Metrics) IncRateLimited() { atomic.AddInt64(&m.RateLimited, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":       tick,
		"avg_tick_ms":      avgMs,
		"late_ticks":       atomic.LoadInt64(&m.LateTicks),
		"bullets_fired":    atomic.LoadInt64(&m.BulletsFired),
		"bullets_evicted":  atomic.LoadInt64(&m.BulletsEvicted),
		"hits":             atomic.LoadInt64(&m.Hits),
		"kills":            atomic.LoadInt64(&m.Kills),
		"timer_respawns":   atomic.LoadInt64(&m.TimerRespawns),
		"request_respawns": atomic.LoadInt64(&m.RequestRespawns),
		"rooms_created":    atomic.LoadInt64(&m.RoomsCreated),
		"rooms_destroyed":  atomic.LoadInt64(&m.RoomsDestroyed),
		"slow_consumers":   atomic.LoadInt64(&m.SlowConsumers),
		"rate_limited":     atomic.LoadInt64(&m.RateLimited),
	}
}
