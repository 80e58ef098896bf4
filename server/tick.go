package server

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 世界推进频率（30 TPS）
	TicksPerSecond = 30
)

var tickInterval = time.Second / TicksPerSecond // ~33.3ms

// Loop 进程级 Tick 循环：每帧依次推进所有活跃房间
type Loop struct {
	rooms    *RoomManager
	interval time.Duration
	metrics  *Metrics
}

func NewLoop(rooms *RoomManager, metrics *Metrics) *Loop {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Loop{rooms: rooms, interval: tickInterval, metrics: metrics}
}

// Step 推进一帧：子弹结算 → 广播快照
func (l *Loop) Step() {
	for _, r := range l.rooms.Rooms() {
		r.Step()
	}
}

// Run 阻塞直到 ctx 结束。
// 每帧结束后睡掉剩余时间；超时的帧不补睡，紧接着执行下一帧，不丢帧。
func (l *Loop) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		start := time.Now()
		l.Step()
		elapsed := time.Since(start)
		l.metrics.AddTick(elapsed.Nanoseconds())

		remain := l.interval - elapsed
		if remain <= 0 {
			l.metrics.IncLateTick()
			Log.Debugf("tick overrun: %v", elapsed)
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		timer.Reset(remain)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}
