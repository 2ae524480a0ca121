package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trạng thái xử lý tài liệu
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusProcessed  = "processed"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User             User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Filename         string    `gorm:"size:255;not null" json:"filename"`
	FileType         string    `gorm:"size:50" json:"file_type"` // pdf | docx | doc | xlsx | xls | txt | md
	FilePath         string    `gorm:"type:text" json:"file_path"`
	FileSize         int64     `json:"file_size"` // bytes
	ContentHash      string    `gorm:"size:64" json:"content_hash"` // SHA-256
	RawContent       string    `gorm:"type:text" json:"-"`
	ProcessedContent string    `gorm:"type:text" json:"-"`
	DocMetadata      datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	Status           string         `gorm:"size:50;default:'uploaded'" json:"status"` // uploaded | processing | processed | failed
	ErrorMessage     string         `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount       int            `gorm:"default:0" json:"retry_count"`
	MaxRetries       int            `gorm:"default:3" json:"max_retries"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}
