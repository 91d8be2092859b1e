package services

import (
	"fmt"
	"time"

	"learning-gamification-system/models"
	"learning-gamification-system/utils"

	"gorm.io/gorm"
)

// DefaultLevelCacheTTL bounds how long an edited threshold table can keep
// serving stale levels.
const DefaultLevelCacheTTL = 5 * time.Minute

const levelTableCacheKey = "level_configs"

// LevelService owns the level curve. The curve is driven entirely by the
// level_configs table — there is no formula fallback; a level missing from
// the table is unreachable and caps progression.
type LevelService struct {
	DB    *gorm.DB
	cache *utils.TTLCache[map[int]int64]
}

func NewLevelService(db *gorm.DB) *LevelService {
	return &LevelService{
		DB:    db,
		cache: utils.NewTTLCache[map[int]int64](DefaultLevelCacheTTL),
	}
}

// thresholds returns level → XP cost to advance *to* that level, read
// through the cache.
func (s *LevelService) thresholds() (map[int]int64, error) {
	if table, ok := s.cache.Get(levelTableCacheKey); ok {
		return table, nil
	}

	var configs []models.LevelConfig
	if err := s.DB.Order("level ASC").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("load level configs: %w", err)
	}

	table := make(map[int]int64, len(configs))
	for _, cfg := range configs {
		table[cfg.Level] = cfg.XPRequired
	}
	s.cache.Set(levelTableCacheKey, table)
	return table, nil
}

// LevelFromXP maps cumulative XP to a level by walking the threshold
// table: starting at level 0, keep paying cost(level+1) while the running
// total can afford it. Monotonic in totalXP for a given table snapshot.
func (s *LevelService) LevelFromXP(totalXP int64) (int, error) {
	table, err := s.thresholds()
	if err != nil {
		return 0, err
	}

	level := 0
	remaining := totalXP
	for {
		cost, ok := table[level+1]
		if !ok || remaining < cost {
			return level, nil
		}
		remaining -= cost
		level++
	}
}

// InvalidateCache drops the cached table so the next call re-reads the DB.
// Called by the admin route after threshold edits.
func (s *LevelService) InvalidateCache() {
	s.cache.Invalidate(levelTableCacheKey)
}
