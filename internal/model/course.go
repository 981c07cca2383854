package model

import "gorm.io/datatypes"

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

// CourseLevel 课程/认证所属的领导力等级
type CourseLevel string

const (
	LeaderI   CourseLevel = "Leader I"
	LeaderII  CourseLevel = "Leader II"
	LeaderIII CourseLevel = "Leader III"
)

type College string

const (
	CollegeBusinessGrowth        College = "Business & Growth"
	CollegeTechnologyInnovation  College = "Technology & Innovation"
	CollegeOperationalExcellence College = "Operational Excellence"
	CollegeGovernanceRisk        College = "Governance & Risk"
	CollegeCustomerDelight       College = "Customer Delight"
	CollegeLeadership            College = "Leadership"
)

// swagger:model Course
type Course struct {
	UUIDBase
	Title                string                      `gorm:"size:255;not null" json:"title"`
	Description          string                      `gorm:"type:text" json:"description"`
	Status               CourseStatus                `gorm:"size:20;index;not null;default:'draft'" json:"status"`
	Level                CourseLevel                 `gorm:"size:20;index" json:"level"`
	College              College                     `gorm:"size:50;index" json:"college"`
	TotalPoints          int                         `json:"totalPoints"`
	TotalDurationMinutes int                         `json:"totalDurationMinutes"`
	Tags                 datatypes.JSONSlice[string] `json:"tags"`
}

func (Course) TableName() string {
	return "courses"
}

func ValidCourseLevel(l CourseLevel) bool {
	switch l {
	case LeaderI, LeaderII, LeaderIII:
		return true
	}
	return false
}

func ValidCollege(c College) bool {
	switch c {
	case CollegeBusinessGrowth, CollegeTechnologyInnovation, CollegeOperationalExcellence,
		CollegeGovernanceRisk, CollegeCustomerDelight, CollegeLeadership:
		return true
	}
	return false
}
