package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-course-backend/config"
	"github.com/vnkhanh/e-course-backend/models"
	"github.com/vnkhanh/e-course-backend/services"
	"github.com/vnkhanh/e-course-backend/utils"
)

func UploadDocument(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	userIDStr := c.GetString("user_id")

	// Convert user_id từ string -> uuid.UUID
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có file đính kèm"})
		return
	}
	if file.Size > config.C.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File vượt quá giới hạn " + strconv.FormatInt(config.C.MaxUploadSize/(1024*1024), 10) + "MB",
		})
		return
	}

	fileType, err := utils.FileTypeFromExt(filepath.Ext(file.Filename), config.C.AllowedExtensions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Đọc toàn bộ dữ liệu một lần: vừa upload storage vừa trích xuất nền
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không đọc được file"})
		return
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không đọc được file"})
		return
	}

	objectID := uuid.New()
	publicURL, err := utils.UploadFileToSupabase(file, objectID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi upload Supabase", "details": err.Error()})
		return
	}

	doc := models.Document{
		UserID:   uid,
		Filename: file.Filename,
		FileType: fileType,
		FilePath: publicURL,
		FileSize: file.Size,
		Status:   models.DocumentStatusUploaded,
	}
	if err := db.Create(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không lưu được tài liệu", "details": err.Error()})
		return
	}

	// Trích xuất chạy nền, client theo dõi qua trạng thái tài liệu
	go services.ProcessDocument(db, doc.ID, data)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Tải lên thành công, đang trích xuất nội dung",
		"tai_lieu": doc,
	})
}

func GetDocuments(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	query := db.Model(&models.Document{})

	// Lấy userID và role từ context
	userIDStr := c.GetString("user_id")
	role := c.GetString("role")

	// Phân quyền: giảng viên chỉ thấy tài liệu của mình, admin thấy tất cả
	if role == string(models.RoleLecturer) {
		uid, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
			return
		}
		query = query.Where("user_id = ?", uid)
	}

	// lọc theo trạng thái
	if status := c.Query("status"); status != "" {
		switch status {
		case models.DocumentStatusUploaded, models.DocumentStatusProcessing,
			models.DocumentStatusProcessed, models.DocumentStatusFailed:
			query = query.Where("status = ?", status)
		}
	}

	// tìm kiếm theo tên file
	if search := c.Query("search"); search != "" {
		query = query.Where("filename ILIKE ?", "%"+search+"%")
	}

	// phân trang
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đếm tổng số tài liệu"})
		return
	}

	var documents []models.Document
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&documents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách tài liệu"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  documents,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func GetDocumentStats(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	stats, err := services.GetDocumentStats(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy thống kê tài liệu"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func GetDocumentDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var doc models.Document
	if err := db.First(&doc, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy tài liệu"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// RetryDocument xử lý lại một tài liệu trích xuất thất bại, bị chặn khi đã
// hết lượt thử lại (max_retries)
func RetryDocument(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id không hợp lệ"})
		return
	}

	doc, err := services.RetryDocument(db, uint(id))
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case services.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy tài liệu"})
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thử lại được", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Đang xử lý lại tài liệu",
		"tai_lieu": doc,
	})
}

// SweepDocuments cho admin quét ngay các tài liệu kẹt processing,
// không cần chờ chu kỳ cleanup job
func SweepDocuments(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)

	count, err := utils.SweepStuckProcessingDocuments(db, config.C.DocStuckTimeout)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không quét được tài liệu kẹt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Đã quét tài liệu kẹt processing",
		"count":   count,
	})
}

// DeleteDocument mặc định xóa mềm; ?force=true xóa hẳn bản ghi và file storage
func DeleteDocument(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")
	force := c.Query("force") == "true"

	// Xóa mềm rồi thì chỉ còn tìm thấy qua Unscoped (cho nhánh force)
	var doc models.Document
	if err := db.Unscoped().First(&doc, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy tài liệu"})
		return
	}
	if doc.DeletedAt.Valid && !force {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy tài liệu"})
		return
	}

	if force {
		if err := utils.DeleteFileFromSupabase(doc.FilePath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không xóa được file storage", "details": err.Error()})
			return
		}
		if err := db.Unscoped().Delete(&doc).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không xóa được tài liệu"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Đã xóa vĩnh viễn tài liệu"})
		return
	}

	if err := db.Delete(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không xóa được tài liệu"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa tài liệu"})
}
