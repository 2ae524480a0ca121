package models

import "time"

type Section struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ChapterID        uint      `gorm:"not null;index" json:"chapter_id"`
	SectionNumber    string    `gorm:"size:20" json:"section_number"` // ví dụ "1.1", "1.2"
	Title            string    `gorm:"size:255;not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	Content          string    `gorm:"type:text" json:"content"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	KnowledgePoints []KnowledgePoint `gorm:"constraint:OnDelete:CASCADE;" json:"knowledge_points,omitempty"`
}
