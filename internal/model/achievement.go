package model

import (
	"time"

	"gorm.io/datatypes"
)

type AchievementType string

const (
	AchievementCourseStreak      AchievementType = "course_streak"
	AchievementAssessmentScore   AchievementType = "assessment_score"
	AchievementContentCompletion AchievementType = "content_completion"
	AchievementLoginStreak       AchievementType = "login_streak"
	AchievementSpecial           AchievementType = "special"
)

type TriggerType string

const (
	TriggerAutomatic TriggerType = "automatic"
	TriggerManual    TriggerType = "manual"
)

// Achievement 成就定义。TriggerCriteria 是自由格式的匹配条件，
// 例如 {"type":"course_completion","count":5} 或 {"perfectScore":true}
// swagger:model Achievement
type Achievement struct {
	UUIDBase
	Name            string            `gorm:"size:100;not null" json:"name"`
	Description     string            `gorm:"type:text" json:"description"`
	Type            AchievementType   `gorm:"size:30;not null;index" json:"type"`
	TriggerType     TriggerType       `gorm:"size:20;not null;default:'automatic'" json:"triggerType"`
	Icon            string            `gorm:"size:255" json:"icon"`
	PointValue      int               `json:"pointValue"`
	TriggerCriteria datatypes.JSONMap `json:"triggerCriteria"`
	BadgeID         *string           `gorm:"size:36" json:"badgeId,omitempty"`
	IsActive        bool              `gorm:"index" json:"isActive"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// swagger:model UserAchievement
type UserAchievement struct {
	UUIDBase
	UserID        string            `gorm:"size:36;not null;uniqueIndex:idx_user_achievement" json:"userId"`
	AchievementID string            `gorm:"size:36;not null;uniqueIndex:idx_user_achievement" json:"achievementId"`
	Progress      int               `json:"progress"`
	UnlockedAt    *time.Time        `json:"unlockedAt,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`

	Achievement *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
