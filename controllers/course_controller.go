package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-course-backend/models"
	"github.com/vnkhanh/e-course-backend/services"
)

type GenerateCourseInput struct {
	DocumentIDs  []uint                `json:"document_ids"`
	CourseConfig services.CourseConfig `json:"course_config"`
}

// GenerateCourse nhận danh sách tài liệu + cấu hình, tạo bản ghi khóa học
// rồi trả về ngay course_id và task_id; pipeline sinh nội dung chạy nền,
// client mở websocket /ws/course-generation/:task_id để theo dõi.
func GenerateCourse(gen *services.CourseGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetString("user_id")
		uid, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
			return
		}

		var input GenerateCourseInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		courseID, taskID, err := gen.StartGeneration(c.Request.Context(), uid, input.DocumentIDs, input.CourseConfig)
		if err != nil {
			var vErr *services.ValidationError
			switch {
			case errors.As(err, &vErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			case services.IsNotFound(err):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Không khởi động được pipeline", "details": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Đã bắt đầu sinh khóa học",
			"course_id": courseID,
			"task_id":   taskID,
		})
	}
}

func GetCourses(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	query := db.Model(&models.Course{})

	userIDStr := c.GetString("user_id")
	role := c.GetString("role")

	// Giảng viên chỉ thấy khóa học của mình
	if role == string(models.RoleLecturer) {
		uid, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id không hợp lệ"})
			return
		}
		query = query.Where("created_by = ?", uid)
	}

	if status := c.Query("status"); status != "" {
		switch status {
		case models.CourseStatusDraft, models.CourseStatusGenerating,
			models.CourseStatusPublished, models.CourseStatusFailed:
			query = query.Where("status = ?", status)
		}
	}

	if search := c.Query("search"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đếm tổng số khóa học"})
		return
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&courses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể lấy danh sách khóa học"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  courses,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetCourseDetail trả về cây khóa học đầy đủ: chương → tiểu mục → điểm kiến
// thức, mỗi tầng sắp theo số thứ tự của nó
func GetCourseDetail(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var course models.Course
	err := db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("chapter_number ASC")
		}).
		// id tăng theo thứ tự ghi nên trùng với thứ tự số của section_number/point_id
		Preload("Chapters.Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Chapters.Sections.KnowledgePoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy khóa học"})
		return
	}

	c.JSON(http.StatusOK, course)
}

type UpdateCourseInput struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	BriefDescription *string  `json:"brief_description"`
	TargetAudience   *string  `json:"target_audience"`
	Prerequisites    *string  `json:"prerequisites"`
	DifficultyLevel  *string  `json:"difficulty_level"`
	EstimatedHours   *float64 `json:"estimated_hours"`
	Status           *string  `json:"status"`
	LearningOutcomes []string `json:"learning_outcomes"`
	Highlights       []string `json:"highlights"`
}

func UpdateCourse(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var course models.Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy khóa học"})
		return
	}

	var input UpdateCourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
		updates["slug"] = slug.Make(*input.Title)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.BriefDescription != nil {
		updates["brief_description"] = *input.BriefDescription
	}
	if input.TargetAudience != nil {
		updates["target_audience"] = *input.TargetAudience
	}
	if input.Prerequisites != nil {
		updates["prerequisites"] = *input.Prerequisites
	}
	if input.DifficultyLevel != nil {
		updates["difficulty_level"] = services.NormalizeDifficulty(*input.DifficultyLevel, course.DifficultyLevel)
	}
	if input.EstimatedHours != nil {
		updates["estimated_hours"] = *input.EstimatedHours
	}
	if input.Status != nil {
		switch *input.Status {
		case models.CourseStatusDraft, models.CourseStatusPublished, models.CourseStatusFailed:
			updates["status"] = *input.Status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Trạng thái không hợp lệ"})
			return
		}
	}
	if input.LearningOutcomes != nil {
		updates["learning_outcomes"] = models.JSONStrings(input.LearningOutcomes)
	}
	if input.Highlights != nil {
		updates["highlights"] = models.JSONStrings(input.Highlights)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có trường nào để cập nhật"})
		return
	}

	if err := db.Model(&course).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được khóa học"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cập nhật thành công", "khoa_hoc": course})
}

type UpdateChapterInput struct {
	Title              *string  `json:"title"`
	Description        *string  `json:"description"`
	EstimatedHours     *float64 `json:"estimated_hours"`
	DifficultyLevel    *string  `json:"difficulty_level"`
	LearningObjectives []string `json:"learning_objectives"`
}

func UpdateChapter(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var chapter models.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chương"})
		return
	}

	var input UpdateChapterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.EstimatedHours != nil {
		updates["estimated_hours"] = *input.EstimatedHours
	}
	if input.DifficultyLevel != nil {
		updates["difficulty_level"] = services.NormalizeDifficulty(*input.DifficultyLevel, chapter.DifficultyLevel)
	}
	if input.LearningObjectives != nil {
		updates["learning_objectives"] = models.JSONStrings(input.LearningObjectives)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có trường nào để cập nhật"})
		return
	}

	if err := db.Model(&chapter).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được chương"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cập nhật thành công", "chuong": chapter})
}

type UpdateSectionInput struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	Content          *string `json:"content"`
	EstimatedMinutes *int    `json:"estimated_minutes"`
}

func UpdateSection(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var section models.Section
	if err := db.First(&section, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy tiểu mục"})
		return
	}

	var input UpdateSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.EstimatedMinutes != nil {
		updates["estimated_minutes"] = *input.EstimatedMinutes
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có trường nào để cập nhật"})
		return
	}

	if err := db.Model(&section).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được tiểu mục"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cập nhật thành công", "tieu_muc": section})
}

type UpdateKnowledgePointInput struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	PointType     *string  `json:"point_type"`
	Prerequisites []string `json:"prerequisites"`
}

func UpdateKnowledgePoint(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var point models.KnowledgePoint
	if err := db.First(&point, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy điểm kiến thức"})
		return
	}

	var input UpdateKnowledgePointInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.PointType != nil {
		switch *input.PointType {
		case "concept", "method", "tool", "case":
			updates["point_type"] = *input.PointType
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "point_type phải là concept, method, tool hoặc case"})
			return
		}
	}
	// Tham chiếu mềm: không kiểm tra point_id tiên quyết có tồn tại hay không
	if input.Prerequisites != nil {
		updates["prerequisites"] = models.JSONStrings(input.Prerequisites)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không có trường nào để cập nhật"})
		return
	}

	if err := db.Model(&point).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được điểm kiến thức"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cập nhật thành công", "diem_kien_thuc": point})
}

// DeleteCourse xóa khóa học cùng toàn bộ chương, tiểu mục và điểm kiến thức
// (cascade theo ràng buộc FK)
func DeleteCourse(c *gin.Context) {
	db := c.MustGet("db").(*gorm.DB)
	id := c.Param("id")

	var course models.Course
	if err := db.First(&course, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy khóa học"})
		return
	}

	if err := db.Delete(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không xóa được khóa học"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa khóa học"})
}
