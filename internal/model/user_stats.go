package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserStats 积分流水等数据的物化汇总，可随时从源数据重建
// swagger:model UserStats
type UserStats struct {
	UUIDBase
	UserID                string                      `gorm:"size:36;not null;uniqueIndex" json:"userId"`
	TotalPoints           int                         `gorm:"index" json:"totalPoints"`
	AvailablePoints       int                         `json:"availablePoints"`
	SpentPoints           int                         `json:"spentPoints"`
	ExpiredPoints         int                         `json:"expiredPoints"`
	CurrentLevel          int                         `gorm:"not null" json:"currentLevel"`
	BadgesCount           int                         `json:"badgesCount"`
	AchievementsCount     int                         `json:"achievementsCount"`
	CoursesCompleted      int                         `json:"coursesCompleted"`
	AssessmentsCompleted  int                         `json:"assessmentsCompleted"`
	CurrentStreak         int                         `json:"currentStreak"`
	LongestStreak         int                         `json:"longestStreak"`
	LastActivityAt        *time.Time                  `json:"lastActivityAt,omitempty"`
	TotalTimeSpentMinutes int                         `json:"totalTimeSpentMinutes"`
	ActiveBadges          datatypes.JSONSlice[string] `json:"activeBadges"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// SeedMarker 记录已执行的默认数据初始化版本
type SeedMarker struct {
	Name      string    `gorm:"primaryKey;size:50" json:"name"`
	Version   int       `gorm:"not null" json:"version"`
	AppliedAt time.Time `json:"appliedAt"`
}

func (SeedMarker) TableName() string {
	return "seed_markers"
}
