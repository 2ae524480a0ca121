package utils

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-course-backend/config"
	"github.com/vnkhanh/e-course-backend/logger"
	"github.com/vnkhanh/e-course-backend/models"
)

// SweepStuckProcessingDocuments đánh dấu failed các tài liệu kẹt ở trạng thái
// processing quá thời hạn cho phép. Trả về số tài liệu bị quét.
func SweepStuckProcessingDocuments(db *gorm.DB, timeout time.Duration) (int64, error) {
	deadline := time.Now().Add(-timeout)

	result := db.Model(&models.Document{}).
		Where("status = ? AND processing_started_at < ?", models.DocumentStatusProcessing, deadline).
		Updates(map[string]interface{}{
			"status":        models.DocumentStatusFailed,
			"error_message": fmt.Sprintf("xử lý quá %s, hệ thống tự đánh dấu thất bại", timeout),
		})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// StartCleanupJob chạy job quét tài liệu kẹt định kỳ
func StartCleanupJob(interval, stuckTimeout time.Duration) {
	sweep := func() {
		count, err := SweepStuckProcessingDocuments(config.DB, stuckTimeout)
		if err != nil {
			logger.L().Error("lỗi khi quét tài liệu kẹt processing", zap.Error(err))
			return
		}
		if count > 0 {
			logger.L().Warn("đã quét tài liệu kẹt processing", zap.Int64("count", count))
		}
	}

	// Chạy quét ngay lần đầu khi khởi động
	sweep()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			sweep()
		}
	}()

	logger.L().Info("cleanup job đã khởi động",
		zap.Duration("interval", interval),
		zap.Duration("stuck_timeout", stuckTimeout))
}
