package models

import (
	"time"

	"gorm.io/datatypes"
)

type Chapter struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CourseID           uint           `gorm:"not null;index;uniqueIndex:idx_course_chapter_number,priority:1" json:"course_id"`
	ChapterNumber      int            `gorm:"not null;uniqueIndex:idx_course_chapter_number,priority:2" json:"chapter_number"` // liên tục từ 1 trong mỗi khóa học
	Title              string         `gorm:"size:255;not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	EstimatedHours     float64        `json:"estimated_hours"`
	DifficultyLevel    string         `gorm:"size:50" json:"difficulty_level"`
	LearningObjectives datatypes.JSON `json:"learning_objectives"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Sections []Section `gorm:"constraint:OnDelete:CASCADE;" json:"sections,omitempty"`
}
