package server

import "time"

// 地图与战斗参数（固定常量，不开放配置）
const (
	MapWidth  = 800.0
	MapHeight = 600.0

	BulletSpeed  = 12.0 // 每 Tick 前进距离
	BulletOffset = 18.0 // 子弹生成点位于枪口前方
	HitRadius    = 20.0
	BulletDamage = 25
	MaxBullets   = 1000 // 单房间子弹上限，超出丢弃最旧的

	MaxHP        = 100
	RespawnDelay = 4000 * time.Millisecond

	MinUsernameLen = 3
	MaxChatLen     = 500
)
