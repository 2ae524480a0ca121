package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-course-backend/logger"
	"github.com/vnkhanh/e-course-backend/models"
	"github.com/vnkhanh/e-course-backend/utils"
)

// ProcessDocument trích xuất nội dung một tài liệu đã upload, chạy trong
// goroutine riêng sau khi controller trả response.
// Trạng thái: processing → processed | failed (kèm ErrorMessage).
func ProcessDocument(db *gorm.DB, docID uint, data []byte) {
	now := time.Now()
	if err := db.Model(&models.Document{}).Where("id = ?", docID).Updates(map[string]interface{}{
		"status":                models.DocumentStatusProcessing,
		"error_message":         "",
		"processing_started_at": &now,
	}).Error; err != nil {
		logger.L().Error("không chuyển được tài liệu sang processing",
			zap.Uint("document_id", docID), zap.Error(err))
		return
	}

	var doc models.Document
	if err := db.First(&doc, docID).Error; err != nil {
		logger.L().Error("không đọc được tài liệu để xử lý",
			zap.Uint("document_id", docID), zap.Error(err))
		return
	}

	extracted, err := ExtractContent(data, doc.FileType)
	if err != nil {
		failDocument(db, docID, err)
		return
	}
	if extracted.Text == "" {
		failDocument(db, docID, fmt.Errorf("tài liệu không có nội dung văn bản"))
		return
	}

	hash := sha256.Sum256(data)
	metaJSON, _ := json.Marshal(extracted.Metadata)

	done := time.Now()
	err = db.Model(&models.Document{}).Where("id = ?", docID).Updates(map[string]interface{}{
		"status":                  models.DocumentStatusProcessed,
		"raw_content":             extracted.Text,
		"processed_content":       PreCleanText(extracted.Text),
		"content_hash":            hex.EncodeToString(hash[:]),
		"metadata":                metaJSON,
		"processing_completed_at": &done,
	}).Error
	if err != nil {
		logger.L().Error("không lưu được kết quả trích xuất",
			zap.Uint("document_id", docID), zap.Error(err))
		return
	}

	logger.L().Info("tài liệu xử lý xong",
		zap.Uint("document_id", docID),
		zap.String("file_type", doc.FileType),
		zap.Duration("elapsed", done.Sub(now)))
}

func failDocument(db *gorm.DB, docID uint, cause error) {
	done := time.Now()
	if err := db.Model(&models.Document{}).Where("id = ?", docID).Updates(map[string]interface{}{
		"status":                  models.DocumentStatusFailed,
		"error_message":           cause.Error(),
		"processing_completed_at": &done,
	}).Error; err != nil {
		logger.L().Error("không đánh dấu được tài liệu failed",
			zap.Uint("document_id", docID), zap.Error(err))
	}
	logger.L().Warn("trích xuất tài liệu thất bại",
		zap.Uint("document_id", docID), zap.Error(cause))
}

// RetryDocument xử lý lại một tài liệu failed. Dữ liệu file được tải lại
// từ storage theo FilePath. Trả ValidationError khi tài liệu chưa failed
// hoặc đã hết lượt thử lại.
func RetryDocument(db *gorm.DB, docID uint) (*models.Document, error) {
	var doc models.Document
	if err := db.First(&doc, docID).Error; err != nil {
		return nil, err
	}

	if doc.Status != models.DocumentStatusFailed {
		return nil, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("chỉ thử lại được tài liệu failed (hiện tại: %s)", doc.Status),
		}
	}
	if doc.RetryCount >= doc.MaxRetries {
		return nil, &ValidationError{
			Field:   "retry_count",
			Message: fmt.Sprintf("đã hết %d lượt thử lại", doc.MaxRetries),
		}
	}

	data, err := utils.DownloadFileFromSupabase(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("không tải lại được file từ storage: %w", err)
	}

	if err := db.Model(&doc).Update("retry_count", doc.RetryCount+1).Error; err != nil {
		return nil, err
	}
	doc.RetryCount++

	go ProcessDocument(db, doc.ID, data)

	return &doc, nil
}

// DocumentStats gom số liệu tổng quan cho màn hình quản lý tài liệu
type DocumentStats struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"by_status"`
	TypeDistribution map[string]int64 `json:"type_distribution"`
	TotalSizeBytes   int64            `json:"total_size_bytes"`
}

func GetDocumentStats(db *gorm.DB) (*DocumentStats, error) {
	stats := &DocumentStats{
		ByStatus:         make(map[string]int64),
		TypeDistribution: make(map[string]int64),
	}

	if err := db.Model(&models.Document{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		Key   string
		Count int64
	}

	var byStatus []countRow
	if err := db.Model(&models.Document{}).
		Select("status AS key, COUNT(*) AS count").Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Key] = row.Count
	}

	var byType []countRow
	if err := db.Model(&models.Document{}).
		Select("file_type AS key, COUNT(*) AS count").Group("file_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		stats.TypeDistribution[row.Key] = row.Count
	}

	if err := db.Model(&models.Document{}).
		Select("COALESCE(SUM(file_size), 0)").Scan(&stats.TotalSizeBytes).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
