package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/vnkhanh/e-course-backend/logger"
	"github.com/vnkhanh/e-course-backend/models"
)

// ProgressNotifier đẩy sự kiện tiến trình ra kênh theo dõi (ws.Hub cài sẵn)
type ProgressNotifier interface {
	SendProgress(taskID, step string, progress int, message string)
	SendCompletion(taskID string, courseID uint, success bool, message string)
	SendError(taskID, step, message string)
}

// CourseConfig là cấu hình sinh khóa học do người dùng gửi lên.
// Trường bỏ trống sẽ nhận giá trị mặc định trong ApplyDefaults.
type CourseConfig struct {
	Name     string `json:"name"`     // tên khóa học, mặc định "Khóa học mới"
	Type     string `json:"type"`     // loại khóa học, mặc định "Tổng quát"
	Audience string `json:"audience"` // đối tượng học viên
	Level    string `json:"level"`    // beginner | intermediate | advanced, mặc định intermediate
	Duration string `json:"duration"` // thời lượng mong muốn, ví dụ "16 giờ"
	Chapters int    `json:"chapters"` // số chương tối đa, mặc định theo cấu hình server
}

const maxConfigChapters = 20

func (c *CourseConfig) ApplyDefaults(defaultChapters int) {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "Khóa học mới"
	}
	if strings.TrimSpace(c.Type) == "" {
		c.Type = "Tổng quát"
	}
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "intermediate"
	}
	if c.Chapters == 0 {
		if defaultChapters > 0 {
			c.Chapters = defaultChapters
		} else {
			c.Chapters = 8
		}
	}
}

func (c *CourseConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "beginner", "intermediate", "advanced":
	default:
		return &ValidationError{Field: "level", Message: "phải là beginner, intermediate hoặc advanced"}
	}
	if c.Chapters < 1 || c.Chapters > maxConfigChapters {
		return &ValidationError{
			Field:   "chapters",
			Message: fmt.Sprintf("phải trong khoảng 1..%d", maxConfigChapters),
		}
	}
	return nil
}

// GeneratorConfig là tham số vận hành của pipeline
type GeneratorConfig struct {
	MaxRetries  int // số lần gọi lại model mỗi stage
	PoolSize    int // số call model đồng thời trong một run
	MaxChapters int // mặc định cho CourseConfig.Chapters
}

// CourseGenerator điều phối pipeline sinh khóa học.
// StartGeneration trả về ngay, phần nặng chạy trong goroutine riêng.
type CourseGenerator struct {
	store    CourseStore
	gen      TextGenerator
	notifier ProgressNotifier
	cfg      GeneratorConfig
}

func NewCourseGenerator(store CourseStore, gen TextGenerator, notifier ProgressNotifier, cfg GeneratorConfig) *CourseGenerator {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 2
	}
	if cfg.MaxChapters < 1 {
		cfg.MaxChapters = 8
	}
	return &CourseGenerator{store: store, gen: gen, notifier: notifier, cfg: cfg}
}

// StartGeneration kiểm tra input, tạo bản ghi khóa học rồi chạy pipeline nền.
// Trả về course_id và task_id ("task-<course_id>") để client mở websocket theo dõi.
func (g *CourseGenerator) StartGeneration(ctx context.Context, userID uuid.UUID, documentIDs []uint, cfg CourseConfig) (uint, string, error) {
	cfg.ApplyDefaults(g.cfg.MaxChapters)
	if err := cfg.Validate(); err != nil {
		return 0, "", err
	}

	docs, err := g.store.ProcessedDocuments(ctx, documentIDs)
	if err != nil {
		return 0, "", err
	}

	course := &models.Course{
		Title:           cfg.Name,
		Slug:            slug.Make(cfg.Name),
		TargetAudience:  cfg.Audience,
		DifficultyLevel: NormalizeDifficulty(cfg.Level, "intermediate"),
		Status:          models.CourseStatusDraft,
		CreatedBy:       userID,
	}
	if err := g.store.CreateCourse(ctx, course); err != nil {
		return 0, "", err
	}

	taskID := fmt.Sprintf("task-%d", course.ID)

	go g.run(course, docs, cfg, taskID)

	return course.ID, taskID, nil
}

// tracker giữ phần trăm không bao giờ tụt xuống trong một run
type progressTracker struct {
	notifier ProgressNotifier
	taskID   string
	last     int
}

func (p *progressTracker) send(step string, percent int, message string) {
	if percent < p.last {
		percent = p.last
	}
	p.last = percent
	p.notifier.SendProgress(p.taskID, step, percent, message)
}

// run là thân pipeline. Mọi panic đều được chặn tại đây: khóa học chuyển
// failed và phát đúng một sự kiện completion thất bại.
func (g *CourseGenerator) run(course *models.Course, docs []models.Document, cfg CourseConfig, taskID string) {
	ctx := context.Background()
	started := time.Now()

	pool := NewCallPool(g.cfg.PoolSize)
	defer pool.Close()
	stages := NewStages(g.gen, pool, g.cfg.MaxRetries)

	progress := &progressTracker{notifier: g.notifier, taskID: taskID}

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("pipeline panic",
				zap.String("task_id", taskID),
				zap.Uint("course_id", course.ID),
				zap.Any("panic", r))
			g.failCourse(ctx, course.ID, taskID, fmt.Sprintf("lỗi không phục hồi được: %v", r))
		}
	}()

	if err := g.runPipeline(ctx, stages, progress, course, docs, cfg, taskID); err != nil {
		logger.L().Error("pipeline dừng",
			zap.String("task_id", taskID),
			zap.Uint("course_id", course.ID),
			zap.Error(err))
		g.failCourse(ctx, course.ID, taskID, err.Error())
		return
	}

	logger.L().Info("pipeline hoàn tất",
		zap.String("task_id", taskID),
		zap.Uint("course_id", course.ID),
		zap.Duration("elapsed", time.Since(started)))
}

func (g *CourseGenerator) failCourse(ctx context.Context, courseID uint, taskID, message string) {
	if err := g.store.SetCourseStatus(ctx, courseID, models.CourseStatusFailed); err != nil {
		logger.L().Error("không đánh dấu được khóa học failed",
			zap.Uint("course_id", courseID), zap.Error(err))
	}
	g.notifier.SendCompletion(taskID, courseID, false, "Sinh khóa học thất bại: "+message)
}

// runPipeline chạy lần lượt các stage. Stage hỏng được thay bằng fallback và
// pipeline đi tiếp; chỉ lỗi persistence của khung chương mới dừng run.
func (g *CourseGenerator) runPipeline(ctx context.Context, stages *Stages, progress *progressTracker,
	course *models.Course, docs []models.Document, cfg CourseConfig, taskID string) error {

	// Khởi tạo
	progress.send("initializing", 5, "Khởi tạo pipeline sinh khóa học")
	if err := g.store.SetCourseStatus(ctx, course.ID, models.CourseStatusGenerating); err != nil {
		return err
	}

	// Chuẩn bị nguồn
	progress.send("preparing", 10, "Chuẩn bị nội dung nguồn")
	sourceText := buildSourceText(docs, cfg)

	// Giới thiệu khóa học
	progress.send("introduction", 20, "Đang sinh giới thiệu khóa học")
	if intro, err := stages.GenerateIntroduction(ctx, sourceText, cfg.Type); err != nil {
		logger.L().Warn("stage giới thiệu hỏng", zap.String("task_id", taskID), zap.Error(err))
		g.notifier.SendError(taskID, "introduction", "Không sinh được giới thiệu, dùng thông tin mặc định")
	} else {
		ApplyIntroduction(course, intro)
		course.Slug = slug.Make(course.Title)
		if err := g.store.UpdateCourse(ctx, course.ID, map[string]interface{}{
			"title":             course.Title,
			"slug":              course.Slug,
			"description":       course.Description,
			"brief_description": course.BriefDescription,
			"target_audience":   course.TargetAudience,
			"prerequisites":     course.Prerequisites,
			"difficulty_level":  course.DifficultyLevel,
			"estimated_hours":   course.EstimatedHours,
			"learning_outcomes": course.LearningOutcomes,
			"highlights":        course.Highlights,
		}); err != nil {
			logger.L().Warn("không lưu được giới thiệu", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	progress.send("introduction", 30, "Đã có giới thiệu khóa học")

	// Mục tiêu học tập
	progress.send("objectives", 40, "Đang sinh mục tiêu học tập")
	if objectives, err := stages.GenerateObjectives(ctx, sourceText, cfg.Level); err != nil {
		logger.L().Warn("stage mục tiêu hỏng", zap.String("task_id", taskID), zap.Error(err))
		g.notifier.SendError(taskID, "objectives", "Không sinh được mục tiêu học tập")
	} else {
		ApplyObjectives(course, objectives)
		if err := g.store.UpdateCourse(ctx, course.ID, map[string]interface{}{
			"learning_outcomes": course.LearningOutcomes,
		}); err != nil {
			logger.L().Warn("không lưu được mục tiêu", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	progress.send("objectives", 50, "Đã có mục tiêu học tập")

	// Khung chương
	progress.send("structure", 60, "Đang thiết kế khung chương")
	outline, err := stages.GenerateStructure(ctx, sourceText, cfg.Chapters)
	if err != nil {
		logger.L().Warn("stage khung chương hỏng", zap.String("task_id", taskID), zap.Error(err))
		g.notifier.SendError(taskID, "structure", "Không sinh được khung chương, dùng khung mặc định")
		outline = FallbackOutline(course.Title)
	}
	if outline.EstimatedHours > 0 {
		if err := g.store.UpdateCourse(ctx, course.ID, map[string]interface{}{
			"estimated_hours": outline.EstimatedHours,
		}); err != nil {
			logger.L().Warn("không lưu được tổng giờ học", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	progress.send("structure", 70, "Đã có khung chương")

	// Khung chương phải nằm trong DB trước khi sinh nội dung từng chương
	chapters, err := g.store.SaveChapters(ctx, course.ID, ChaptersFromOutline(outline))
	if err != nil {
		return err
	}

	// Nội dung từng chương, tuần tự theo thứ tự chương
	progress.send("content", 75, "Bắt đầu sinh nội dung các chương")
	total := len(chapters)
	for i, chapter := range chapters {
		msg := fmt.Sprintf("Đang sinh nội dung chương %d/%d: %s", i+1, total, chapter.Title)
		progress.send("content", progress.last, msg)

		var sections []models.Section
		content, err := stages.GenerateChapterContent(ctx, sourceText, outline.Chapters[i], chapter.ChapterNumber)
		if err != nil {
			logger.L().Warn("stage nội dung chương hỏng",
				zap.String("task_id", taskID),
				zap.Int("chapter", chapter.ChapterNumber),
				zap.Error(err))
			g.notifier.SendError(taskID, "content",
				fmt.Sprintf("Chương %d không sinh được nội dung, dùng tiểu mục giữ chỗ", chapter.ChapterNumber))
			sections = []models.Section{FallbackSection(chapter.ChapterNumber)}
		} else {
			sections = BuildChapterTree(chapter.ChapterNumber, content)
		}

		if err := g.store.SaveChapterSections(ctx, chapter.ID, sections); err != nil {
			logger.L().Error("không lưu được nội dung chương",
				zap.String("task_id", taskID),
				zap.Int("chapter", chapter.ChapterNumber),
				zap.Error(err))
			g.notifier.SendError(taskID, "content",
				fmt.Sprintf("Chương %d không lưu được nội dung", chapter.ChapterNumber))
		}

		progress.send("content", 75+(20*(i+1))/total,
			fmt.Sprintf("Đã xong chương %d/%d", i+1, total))
	}

	// Hoàn tất
	progress.send("finalizing", 100, "Đang hoàn tất khóa học")
	if err := g.store.SetCourseStatus(ctx, course.ID, models.CourseStatusPublished); err != nil {
		return err
	}
	g.notifier.SendCompletion(taskID, course.ID, true, "Sinh khóa học thành công")
	return nil
}

// buildSourceText ghép nội dung các tài liệu đã xử lý; không có tài liệu thì
// dựng mô tả từ cấu hình để model vẫn có ngữ cảnh
func buildSourceText(docs []models.Document, cfg CourseConfig) string {
	var parts []string
	for _, d := range docs {
		content := strings.TrimSpace(d.ProcessedContent)
		if content == "" {
			content = strings.TrimSpace(d.RawContent)
		}
		if content != "" {
			parts = append(parts, content)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}

	desc := fmt.Sprintf("Khóa học %q thuộc loại %s, trình độ %s.", cfg.Name, cfg.Type, cfg.Level)
	if cfg.Audience != "" {
		desc += fmt.Sprintf(" Dành cho %s.", cfg.Audience)
	}
	if cfg.Duration != "" {
		desc += fmt.Sprintf(" Thời lượng dự kiến %s.", cfg.Duration)
	}
	return desc
}
