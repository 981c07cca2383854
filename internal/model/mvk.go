package model

// RequirementType 决定 ItemID 指向的实体类型
type RequirementType string

const (
	RequirementCourse     RequirementType = "course"
	RequirementAssessment RequirementType = "assessment"
	RequirementCapstone   RequirementType = "capstone"
)

// swagger:model MVKRequirement
type MVKRequirement struct {
	UUIDBase
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Level       CourseLevel     `gorm:"size:20;index" json:"level"`
	College     College         `gorm:"size:50;index" json:"college"`
	Type        RequirementType `gorm:"size:20;not null;index:idx_requirement_target" json:"type"`
	ItemID      string          `gorm:"size:36;not null;index:idx_requirement_target" json:"itemId"`
	IsRequired  bool            `json:"isRequired"`
	SortOrder   int             `gorm:"column:sort_order" json:"order"`
	MinScore    int             `json:"minScore"`
}

func (MVKRequirement) TableName() string {
	return "mvk_requirements"
}

// swagger:model MVKCertification
type MVKCertification struct {
	UUIDBase
	Title                        string      `gorm:"size:255;not null" json:"title"`
	Description                  string      `gorm:"type:text" json:"description"`
	Level                        CourseLevel `gorm:"size:20;index" json:"level"`
	College                      College     `gorm:"size:50;index" json:"college"`
	RequiredCompletionPercentage int         `json:"requiredCompletionPercentage"`
	IsActive                     bool        `gorm:"index" json:"isActive"`

	RequirementIDs []string         `gorm:"-" json:"requirementIds"`
	Requirements   []MVKRequirement `gorm:"-" json:"requirements,omitempty"`
}

func (MVKCertification) TableName() string {
	return "mvk_certifications"
}

// CertificationRequirement 认证与要求的有序关联
type CertificationRequirement struct {
	CertificationID string `gorm:"primaryKey;size:36" json:"certificationId"`
	RequirementID   string `gorm:"primaryKey;size:36;index" json:"requirementId"`
	Position        int    `gorm:"not null" json:"position"`
}

func (CertificationRequirement) TableName() string {
	return "certification_requirements"
}
