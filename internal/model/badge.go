package model

import "time"

type BadgeCategory string

const (
	BadgeCourseCompletion BadgeCategory = "course_completion"
	BadgeAssessment       BadgeCategory = "assessment"
	BadgeAchievement      BadgeCategory = "achievement"
	BadgeParticipation    BadgeCategory = "participation"
	BadgeStreak           BadgeCategory = "streak"
)

type BadgeTier string

const (
	TierBronze   BadgeTier = "bronze"
	TierSilver   BadgeTier = "silver"
	TierGold     BadgeTier = "gold"
	TierPlatinum BadgeTier = "platinum"
)

// swagger:model Badge
type Badge struct {
	UUIDBase
	Name        string        `gorm:"size:100;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Category    BadgeCategory `gorm:"size:30;not null;index" json:"category"`
	Tier        BadgeTier     `gorm:"size:20;not null" json:"tier"`
	Icon        string        `gorm:"size:255" json:"icon"`
	PointValue  int           `json:"pointValue"`
	Criteria    string        `gorm:"type:text" json:"criteria"`
	IsActive    bool          `gorm:"index" json:"isActive"`
}

func (Badge) TableName() string {
	return "badges"
}

// swagger:model UserBadge
type UserBadge struct {
	UUIDBase
	UserID      string    `gorm:"size:36;not null;uniqueIndex:idx_user_badge" json:"userId"`
	BadgeID     string    `gorm:"size:36;not null;uniqueIndex:idx_user_badge" json:"badgeId"`
	AwardedAt   time.Time `json:"awardedAt"`
	AwardReason string    `gorm:"size:255" json:"awardReason"`
	IsDisplayed bool      `json:"isDisplayed"`

	Badge *Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
