package server

import (
	"math"
	"math/rand/v2"
)

// spawnMargin 出生点与地图边缘保持的距离
const spawnMargin = 80.0

// SpawnPolicy 生成一个地图内的出生坐标
type SpawnPolicy func() (x, y float64)

// RandomSpawn 默认出生策略：x∈[80,720)，y∈[80,520)，取整
func RandomSpawn() (float64, float64) {
	x := math.Floor(spawnMargin + rand.Float64()*(MapWidth-2*spawnMargin))
	y := math.Floor(spawnMargin + rand.Float64()*(MapHeight-2*spawnMargin))
	return x, y
}
