package services

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vnkhanh/e-course-backend/models"
)

// testDB mở Postgres theo TEST_POSTGRES_DSN, không có thì skip
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN chưa đặt, bỏ qua test cần Postgres")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.Course{},
		&models.Chapter{},
		&models.Section{},
		&models.KnowledgePoint{},
	))

	t.Cleanup(func() {
		db.Exec("DELETE FROM knowledge_points")
		db.Exec("DELETE FROM sections")
		db.Exec("DELETE FROM chapters")
		db.Exec("DELETE FROM courses")
		db.Unscoped().Where("1 = 1").Delete(&models.Document{})
		db.Exec("DELETE FROM users")
	})
	return db
}

func testUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		FullName: "Giảng viên test",
		Email:    uuid.NewString() + "@test.local",
		Password: "x",
		Role:     models.RoleLecturer,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestCourseStoreRoundTrip(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db)
	store := NewCourseStore(db)
	ctx := context.Background()

	course := &models.Course{
		Title:     "Go cơ bản",
		Status:    models.CourseStatusDraft,
		CreatedBy: user.ID,
	}
	require.NoError(t, store.CreateCourse(ctx, course))
	require.NotZero(t, course.ID)

	chapters, err := store.SaveChapters(ctx, course.ID, []models.Chapter{
		{ChapterNumber: 1, Title: "Nhập môn"},
		{ChapterNumber: 2, Title: "Nâng cao"},
	})
	require.NoError(t, err)
	require.Len(t, chapters, 2)

	sections := []models.Section{
		{
			SectionNumber: "1.1",
			Title:         "Cài đặt",
			Content:       "Nội dung",
			KnowledgePoints: []models.KnowledgePoint{
				{PointID: "1.1.1", Title: "Tải Go", PointType: "tool", Prerequisites: models.JSONStrings(nil)},
			},
		},
	}
	require.NoError(t, store.SaveChapterSections(ctx, chapters[0].ID, sections))

	require.NoError(t, store.SetCourseStatus(ctx, course.ID, models.CourseStatusPublished))

	// đọc lại cả cây
	var got models.Course
	require.NoError(t, db.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB { return db.Order("chapter_number ASC") }).
		Preload("Chapters.Sections").
		Preload("Chapters.Sections.KnowledgePoints").
		First(&got, course.ID).Error)

	assert.Equal(t, models.CourseStatusPublished, got.Status)
	require.Len(t, got.Chapters, 2)
	require.Len(t, got.Chapters[0].Sections, 1)
	assert.Equal(t, "1.1", got.Chapters[0].Sections[0].SectionNumber)
	require.Len(t, got.Chapters[0].Sections[0].KnowledgePoints, 1)
	assert.Equal(t, "1.1.1", got.Chapters[0].Sections[0].KnowledgePoints[0].PointID)
}

func TestProcessedDocumentsGuards(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db)
	store := NewCourseStore(db)
	ctx := context.Background()

	processed := models.Document{
		UserID: user.ID, Filename: "a.txt", FileType: "txt",
		Status: models.DocumentStatusProcessed, ProcessedContent: "nội dung",
	}
	pending := models.Document{
		UserID: user.ID, Filename: "b.txt", FileType: "txt",
		Status: models.DocumentStatusProcessing,
	}
	require.NoError(t, db.Create(&processed).Error)
	require.NoError(t, db.Create(&pending).Error)

	// id không tồn tại -> NotFound
	_, err := store.ProcessedDocuments(ctx, []uint{processed.ID, 999999})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	// tài liệu chưa xử lý xong -> ValidationError
	_, err = store.ProcessedDocuments(ctx, []uint{pending.ID})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// tài liệu đã xóa mềm coi như không tồn tại
	require.NoError(t, db.Delete(&processed).Error)
	_, err = store.ProcessedDocuments(ctx, []uint{processed.ID})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	// danh sách rỗng là hợp lệ (sinh khóa học từ cấu hình)
	docs, err := store.ProcessedDocuments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteCourseCascades(t *testing.T) {
	db := testDB(t)
	user := testUser(t, db)
	store := NewCourseStore(db)
	ctx := context.Background()

	course := &models.Course{Title: "Xóa", Status: models.CourseStatusDraft, CreatedBy: user.ID}
	require.NoError(t, store.CreateCourse(ctx, course))
	chapters, err := store.SaveChapters(ctx, course.ID, []models.Chapter{{ChapterNumber: 1, Title: "C1"}})
	require.NoError(t, err)
	require.NoError(t, store.SaveChapterSections(ctx, chapters[0].ID, []models.Section{
		{SectionNumber: "1.1", Title: "S1", KnowledgePoints: []models.KnowledgePoint{
			{PointID: "1.1.1", Title: "P1", Prerequisites: models.JSONStrings(nil)},
		}},
	}))

	require.NoError(t, db.Delete(&models.Course{}, course.ID).Error)

	var chapterCount, sectionCount, pointCount int64
	db.Model(&models.Chapter{}).Where("course_id = ?", course.ID).Count(&chapterCount)
	db.Model(&models.Section{}).Count(&sectionCount)
	db.Model(&models.KnowledgePoint{}).Count(&pointCount)
	assert.Zero(t, chapterCount)
	assert.Zero(t, sectionCount)
	assert.Zero(t, pointCount)
}
