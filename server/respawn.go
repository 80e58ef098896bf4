package server

import (
	"sync"
	"time"
)

// Timer 可取消的一次性定时器
type Timer interface {
	Stop() bool
}

// AfterFunc 与 time.AfterFunc 同签名，测试中可替换为手动触发的实现
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// respawnHandle 对应一次 Arm；只有仍挂在玩家身上的句柄触发才生效
type respawnHandle struct {
	timer Timer
}

// RespawnScheduler 为死亡玩家安排延迟复活。
// 回调在定时器协程中执行，先重新获取房间锁，再校验句柄仍是玩家当前的句柄，
// 因此取消（同样在房间锁内）与触发对同一次 Arm 互斥。
type RespawnScheduler struct {
	lock  sync.Locker
	after AfterFunc
}

func newRespawnScheduler(lock sync.Locker, after AfterFunc) *RespawnScheduler {
	if after == nil {
		after = realAfterFunc
	}
	return &RespawnScheduler{lock: lock, after: after}
}

// Arm 调用方必须持有房间锁。已存在的定时器会先被取消。
func (s *RespawnScheduler) Arm(p *Player, delay time.Duration, onFire func(*Player)) {
	s.Cancel(p)
	h := &respawnHandle{}
	p.respawn = h
	h.timer = s.after(delay, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if p.respawn != h {
			return
		}
		p.respawn = nil
		onFire(p)
	})
}

// Cancel 调用方必须持有房间锁；返回是否确实取消了一个挂起的定时器
func (s *RespawnScheduler) Cancel(p *Player) bool {
	h := p.respawn
	if h == nil {
		return false
	}
	p.respawn = nil
	if h.timer != nil {
		h.timer.Stop()
	}
	return true
}

// Pending 玩家是否有挂起的复活定时器（调用方持有房间锁）
func (s *RespawnScheduler) Pending(p *Player) bool {
	return p.respawn != nil
}
