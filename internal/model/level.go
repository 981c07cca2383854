package model

import "gorm.io/datatypes"

// swagger:model Level
type Level struct {
	UUIDBase
	Number         int                         `gorm:"not null;uniqueIndex" json:"number"`
	Name           string                      `gorm:"size:100;not null" json:"name"`
	Description    string                      `gorm:"type:text" json:"description"`
	PointsRequired int                         `gorm:"not null" json:"pointsRequired"`
	Icon           string                      `gorm:"size:255" json:"icon"`
	Perks          datatypes.JSONSlice[string] `json:"perks"`
	IsActive       bool                        `json:"isActive"`
}

func (Level) TableName() string {
	return "levels"
}
