package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Trạng thái vòng đời khóa học
const (
	CourseStatusDraft      = "draft"
	CourseStatusGenerating = "generating"
	CourseStatusPublished  = "published"
	CourseStatusFailed     = "failed"
)

type Course struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Slug             string         `gorm:"size:300;index" json:"slug"`
	Description      string         `gorm:"type:text" json:"description"`
	BriefDescription string         `gorm:"type:text" json:"brief_description"`
	TargetAudience   string         `gorm:"size:500" json:"target_audience"`
	Prerequisites    string         `gorm:"type:text" json:"prerequisites"`
	DifficultyLevel  string         `gorm:"size:50" json:"difficulty_level"` // beginner | intermediate | advanced
	EstimatedHours   float64        `json:"estimated_hours"`
	Status           string         `gorm:"size:50;default:'draft'" json:"status"` // draft | generating | published | failed
	LearningOutcomes datatypes.JSON `json:"learning_outcomes"`
	Highlights       datatypes.JSON `json:"highlights"`
	CreatedBy        uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Chapters []Chapter `gorm:"constraint:OnDelete:CASCADE;" json:"chapters,omitempty"`
}

// JSONStrings đóng gói slice chuỗi thành cột JSON
func JSONStrings(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

// StringsFromJSON giải mã cột JSON về slice chuỗi
func StringsFromJSON(data datatypes.JSON) []string {
	if len(data) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return []string{}
	}
	return items
}
