package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vnkhanh/e-course-backend/models"
)

// CourseStore là phần persistence mà pipeline cần, tách interface để test
// orchestrator bằng store giả.
type CourseStore interface {
	// ProcessedDocuments lấy các tài liệu theo id, yêu cầu tất cả tồn tại
	// và đã xử lý xong
	ProcessedDocuments(ctx context.Context, ids []uint) ([]models.Document, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, courseID uint, fields map[string]interface{}) error
	// SaveChapters ghi khung chương một lượt trước khi sinh nội dung
	SaveChapters(ctx context.Context, courseID uint, chapters []models.Chapter) ([]models.Chapter, error)
	// SaveChapterSections ghi tiểu mục + điểm kiến thức của một chương
	SaveChapterSections(ctx context.Context, chapterID uint, sections []models.Section) error
	SetCourseStatus(ctx context.Context, courseID uint, status string) error
}

type gormCourseStore struct {
	db *gorm.DB
}

func NewCourseStore(db *gorm.DB) CourseStore {
	return &gormCourseStore{db: db}
}

func (s *gormCourseStore) ProcessedDocuments(ctx context.Context, ids []uint) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var docs []models.Document
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("không đọc được tài liệu: %w", err)
	}

	found := make(map[uint]models.Document, len(docs))
	for _, d := range docs {
		found[d.ID] = d
	}

	ordered := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("tài liệu %d: %w", id, gorm.ErrRecordNotFound)
		}
		if doc.Status != models.DocumentStatusProcessed {
			return nil, &ValidationError{
				Field:   "document_ids",
				Message: fmt.Sprintf("tài liệu %d chưa xử lý xong (trạng thái %s)", id, doc.Status),
			}
		}
		ordered = append(ordered, doc)
	}
	return ordered, nil
}

func (s *gormCourseStore) CreateCourse(ctx context.Context, course *models.Course) error {
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("không tạo được khóa học: %w", err)
	}
	return nil
}

func (s *gormCourseStore) UpdateCourse(ctx context.Context, courseID uint, fields map[string]interface{}) error {
	err := s.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", courseID).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("không cập nhật được khóa học %d: %w", courseID, err)
	}
	return nil
}

func (s *gormCourseStore) SaveChapters(ctx context.Context, courseID uint, chapters []models.Chapter) ([]models.Chapter, error) {
	for i := range chapters {
		chapters[i].CourseID = courseID
	}
	if err := s.db.WithContext(ctx).Create(&chapters).Error; err != nil {
		return nil, fmt.Errorf("không lưu được khung chương: %w", err)
	}
	return chapters, nil
}

func (s *gormCourseStore) SaveChapterSections(ctx context.Context, chapterID uint, sections []models.Section) error {
	if len(sections) == 0 {
		return nil
	}
	for i := range sections {
		sections[i].ChapterID = chapterID
	}
	// Create lồng: gorm tự ghi cả knowledge points của từng section
	if err := s.db.WithContext(ctx).Create(&sections).Error; err != nil {
		return fmt.Errorf("không lưu được nội dung chương (chapter %d): %w", chapterID, err)
	}
	return nil
}

func (s *gormCourseStore) SetCourseStatus(ctx context.Context, courseID uint, status string) error {
	return s.UpdateCourse(ctx, courseID, map[string]interface{}{"status": status})
}

// IsNotFound nhận diện lỗi không tìm thấy bản ghi từ store
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
