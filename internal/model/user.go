package model

import (
	"time"
)

type UserRole string

const (
	Learner    UserRole = "learner"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// swagger:model User
type User struct {
	UUIDBase
	Name      string     `gorm:"size:100" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;not null;default:'learner'" json:"role"`
	Disabled  bool       `json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// BasicUserInfo 供排行榜等场景展示的用户信息
type BasicUserInfo struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}
