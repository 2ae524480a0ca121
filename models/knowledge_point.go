package models

import (
	"time"

	"gorm.io/datatypes"
)

type KnowledgePoint struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SectionID   uint   `gorm:"not null;index" json:"section_id"`
	PointID     string `gorm:"size:50" json:"point_id"` // ví dụ "1.1.1"
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	PointType   string `gorm:"size:50;default:'concept'" json:"point_type"` // concept | method | tool | case
	// Danh sách point_id tiên quyết, chỉ mang tính tham chiếu mềm (không ràng buộc FK)
	Prerequisites datatypes.JSON `json:"prerequisites"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
