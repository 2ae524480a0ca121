package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Giới hạn ký tự nguồn đưa vào prompt cho từng stage
const (
	introSourceLimit     = 3000
	objectiveSourceLimit = 2500
	structureSourceLimit = 4000
	contentSourceLimit   = 2000
)

// Phản hồi ngắn hơn ngưỡng này coi như model trả rỗng
const minUsableResponse = 10

// Kết quả stage giới thiệu khóa học
type CourseIntro struct {
	Title             string   `json:"title"`
	BriefDescription  string   `json:"brief_description"`
	TargetAudience    string   `json:"target_audience"`
	Prerequisites     string   `json:"prerequisites"`
	LearningOutcomes  []string `json:"learning_outcomes"`
	CourseHighlights  []string `json:"course_highlights"`
	DifficultyLevel   string   `json:"difficulty_level"`
	EstimatedDuration string   `json:"estimated_duration"`
}

type ObjectiveItem struct {
	Objective        string `json:"objective"`
	AssessmentMethod string `json:"assessment_method"`
	BloomLevel       string `json:"bloom_level"`
}

// Kết quả stage mục tiêu học tập (theo nguyên tắc SMART)
type LearningObjectives struct {
	OverallObjectives     []string        `json:"overall_objectives"`
	KnowledgeObjectives   []ObjectiveItem `json:"knowledge_objectives"`
	SkillObjectives       []ObjectiveItem `json:"skill_objectives"`
	ApplicationObjectives []string        `json:"application_objectives"`
}

// Một chương trong khung khóa học (chưa có nội dung chi tiết)
type ChapterOutline struct {
	ChapterID          int      `json:"chapter_id"`
	ChapterTitle       string   `json:"chapter_title"`
	ChapterDescription string   `json:"chapter_description"`
	EstimatedHours     float64  `json:"estimated_hours"`
	DifficultyLevel    string   `json:"difficulty_level"`
	LearningObjectives []string `json:"learning_objectives"`
}

type CourseOutline struct {
	TotalChapters  int              `json:"total_chapters"`
	EstimatedHours float64          `json:"estimated_hours"`
	Chapters       []ChapterOutline `json:"chapters"`
}

type PointPlan struct {
	PointID          string   `json:"point_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	PointType        string   `json:"point_type"` // concept | method | tool | case
	EstimatedMinutes int      `json:"estimated_minutes"`
	Prerequisites    []string `json:"prerequisites"`
}

type SectionPlan struct {
	SectionNumber    string      `json:"section_number"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Content          string      `json:"content"`
	EstimatedMinutes int         `json:"estimated_minutes"`
	KnowledgePoints  []PointPlan `json:"knowledge_points"`
}

// Nội dung chi tiết của một chương
type ChapterContent struct {
	ChapterID int           `json:"chapter_id"`
	Sections  []SectionPlan `json:"sections"`
}

// Stages gom các bước gọi model của pipeline sinh khóa học.
// Mọi lần gọi đều đi qua pool và retry chung.
type Stages struct {
	gen     TextGenerator
	pool    *CallPool
	retries int
	backoff time.Duration // bước backoff cơ sở, nhân đôi sau mỗi lần hỏng
}

func NewStages(gen TextGenerator, pool *CallPool, retries int) *Stages {
	if retries < 1 {
		retries = 1
	}
	return &Stages{gen: gen, pool: pool, retries: retries, backoff: time.Second}
}

// generate gọi model qua pool, retry với backoff 1s/2s/4s.
// Lỗi transport và phản hồi quá ngắn đều tính là một lần hỏng.
func (s *Stages) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		resp, err := s.pool.Do(ctx, func(ctx context.Context) (string, error) {
			return s.gen.GenerateText(ctx, prompt)
		})
		if err == nil {
			if len(strings.TrimSpace(resp)) < minUsableResponse {
				lastErr = ErrEmptyResponse
			} else {
				return resp, nil
			}
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < s.retries-1 {
			time.Sleep(time.Duration(1<<attempt) * s.backoff)
		}
	}
	return "", fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
}

// parseWithRepair parse phản hồi, hỏng thì nhờ model sửa đúng một lần
func (s *Stages) parseWithRepair(ctx context.Context, raw, schemaHint string, out interface{}) error {
	firstErr := ParseModelJSON(raw, out)
	if firstErr == nil {
		return nil
	}

	fixPrompt := fmt.Sprintf(`Chuỗi dưới đây đáng lẽ là JSON hợp lệ theo cấu trúc:
%s

Hãy sửa lại thành JSON hợp lệ, giữ nguyên toàn bộ nội dung.
Chỉ trả về JSON, không thêm bất kỳ văn bản nào khác.

Chuỗi cần sửa:
%s`, schemaHint, raw)

	fixed, err := s.pool.Do(ctx, func(ctx context.Context) (string, error) {
		return s.gen.GenerateText(ctx, fixPrompt)
	})
	if err != nil {
		return firstErr
	}
	if err := ParseModelJSON(fixed, out); err != nil {
		return firstErr
	}
	return nil
}

// GenerateIntroduction sinh phần giới thiệu khóa học từ nội dung tài liệu
func (s *Stages) GenerateIntroduction(ctx context.Context, sourceText, courseType string) (*CourseIntro, error) {
	schema := `{
  "title": "Tên khóa học",
  "brief_description": "Mô tả ngắn gọn 100-150 từ",
  "target_audience": "Đối tượng học viên",
  "prerequisites": "Kiến thức cần có trước",
  "learning_outcomes": ["Kết quả học tập 1", "Kết quả học tập 2"],
  "course_highlights": ["Điểm nổi bật 1", "Điểm nổi bật 2"],
  "difficulty_level": "beginner|intermediate|advanced",
  "estimated_duration": "Thời lượng dự kiến"
}`

	prompt := fmt.Sprintf(`Bạn là chuyên gia thiết kế khóa học với 20 năm kinh nghiệm giảng dạy.
Dựa trên nội dung tài liệu sau, hãy tạo phần giới thiệu cho một khóa học chất lượng.

Nội dung tài liệu:
%s

Loại khóa học: %s

Yêu cầu:
1. Mô tả ngắn (100-150 từ): khái quát chính xác nội dung và chủ đề cốt lõi
2. Đối tượng học viên: xác định rõ nhóm người học mục tiêu
3. Kết quả học tập: liệt kê 3-5 kết quả cụ thể
4. Điểm nổi bật: nêu bật đặc sắc và tính sáng tạo của khóa học

Trả về JSON hợp lệ đúng cấu trúc:
%s

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.`,
		truncateRunes(sourceText, introSourceLimit), courseType, schema)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var intro CourseIntro
	if err := s.parseWithRepair(ctx, raw, schema, &intro); err != nil {
		return nil, err
	}
	return &intro, nil
}

// GenerateObjectives sinh mục tiêu học tập theo nguyên tắc SMART
func (s *Stages) GenerateObjectives(ctx context.Context, sourceText, courseLevel string) (*LearningObjectives, error) {
	schema := `{
  "overall_objectives": ["Mục tiêu tổng quát 1"],
  "knowledge_objectives": [
    {"objective": "Mục tiêu kiến thức", "assessment_method": "Cách đánh giá", "bloom_level": "Mức Bloom"}
  ],
  "skill_objectives": [
    {"objective": "Mục tiêu kỹ năng", "assessment_method": "Cách đánh giá", "bloom_level": "Mức Bloom"}
  ],
  "application_objectives": ["Mục tiêu ứng dụng 1"]
}`

	prompt := fmt.Sprintf(`Bạn là chuyên gia thiết kế giảng dạy, thành thạo xây dựng mục tiêu học tập theo nguyên tắc SMART.
Dựa trên nội dung tài liệu sau, hãy xây dựng mục tiêu học tập rõ ràng cho khóa học.

Nội dung tài liệu:
%s

Trình độ khóa học: %s

Nguyên tắc SMART:
- Specific (cụ thể), Measurable (đo được), Achievable (khả thi), Relevant (liên quan), Time-bound (có thời hạn)

Yêu cầu:
1. Mục tiêu tổng quát (1-2 mục)
2. Mục tiêu kiến thức (3-4 mục): dùng động từ nhận thức như "hiểu", "nắm vững", "phân tích"
3. Mục tiêu kỹ năng (3-5 mục): dùng cách diễn đạt "có thể", "biết sử dụng", "hoàn thành được"
4. Mục tiêu ứng dụng (2-3 mục): nhấn mạnh khả năng giải quyết vấn đề thực tế

Trả về JSON hợp lệ đúng cấu trúc:
%s

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.`,
		truncateRunes(sourceText, objectiveSourceLimit), courseLevel, schema)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var objectives LearningObjectives
	if err := s.parseWithRepair(ctx, raw, schema, &objectives); err != nil {
		return nil, err
	}
	return &objectives, nil
}

// GenerateStructure sinh khung chương của khóa học (chưa có tiểu mục)
func (s *Stages) GenerateStructure(ctx context.Context, sourceText string, maxChapters int) (*CourseOutline, error) {
	schema := `{
  "total_chapters": 5,
  "estimated_hours": 20,
  "chapters": [
    {
      "chapter_id": 1,
      "chapter_title": "Tên chương",
      "chapter_description": "Mô tả chương 50-100 từ",
      "estimated_hours": 4,
      "difficulty_level": "beginner|intermediate|advanced",
      "learning_objectives": ["Mục tiêu 1", "Mục tiêu 2"]
    }
  ]
}`

	prompt := fmt.Sprintf(`Bạn là kiến trúc sư khóa học giàu kinh nghiệm, giỏi tổ chức nội dung phức tạp thành hệ thống chương mạch lạc.
Dựa trên nội dung tài liệu sau, hãy thiết kế khung chương cho khóa học.

Nội dung tài liệu:
%s

Yêu cầu thiết kế:
1. Số chương: 3-%d chương chính
2. Chỉ cần cấu trúc mức chương, không cần nội dung tiểu mục chi tiết
3. Thứ tự logic: từ cơ bản đến nâng cao
4. Cân bằng nội dung: khối lượng các chương tương đối đồng đều

Mỗi chương cần có: tên chương, mô tả (50-100 từ), số giờ học dự kiến, độ khó, 3-5 mục tiêu học tập.

Trả về JSON hợp lệ đúng cấu trúc:
%s

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.`,
		truncateRunes(sourceText, structureSourceLimit), maxChapters, schema)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var outline CourseOutline
	if err := s.parseWithRepair(ctx, raw, schema, &outline); err != nil {
		return nil, err
	}
	if len(outline.Chapters) == 0 {
		return nil, fmt.Errorf("khung khóa học không có chương nào")
	}
	return &outline, nil
}

// GenerateChapterContent sinh tiểu mục và điểm kiến thức cho một chương
func (s *Stages) GenerateChapterContent(ctx context.Context, sourceText string, chapter ChapterOutline, chapterNumber int) (*ChapterContent, error) {
	schema := fmt.Sprintf(`{
  "chapter_id": %d,
  "sections": [
    {
      "section_number": "%d.1",
      "title": "Tên tiểu mục",
      "description": "Tóm tắt tiểu mục",
      "content": "Nội dung giảng dạy chi tiết của tiểu mục",
      "estimated_minutes": 30,
      "knowledge_points": [
        {
          "point_id": "%d.1.1",
          "title": "Tên điểm kiến thức",
          "description": "Mô tả điểm kiến thức",
          "point_type": "concept|method|tool|case",
          "estimated_minutes": 10,
          "prerequisites": []
        }
      ]
    }
  ]
}`, chapterNumber, chapterNumber, chapterNumber)

	prompt := fmt.Sprintf(`Bạn là nhà thiết kế nội dung khóa học chuyên nghiệp. Hãy xuất JSON đúng định dạng yêu cầu.
Hãy sinh cấu trúc nội dung giảng dạy chi tiết cho chương %d.

Nội dung tài liệu: %s

Thông tin chương:
- Tiêu đề: %s
- Mô tả: %s
- Mục tiêu học tập: %s

Yêu cầu:
1. Sinh 3-4 tiểu mục (section)
2. Mỗi tiểu mục có 2-3 điểm kiến thức
3. "description" là tóm tắt ngắn, "content" là nội dung giảng dạy chi tiết, hai trường khác nhau
4. Định dạng ID điểm kiến thức: %d.1.1, %d.1.2, ...
5. Xuất JSON đúng cấu trúc, không thêm chữ nào ngoài JSON

Trả về JSON hợp lệ đúng cấu trúc:
%s

Chỉ trả về JSON hợp lệ, không thêm bất kỳ văn bản nào khác.`,
		chapterNumber,
		truncateRunes(sourceText, contentSourceLimit),
		chapter.ChapterTitle,
		chapter.ChapterDescription,
		strings.Join(chapter.LearningObjectives, ", "),
		chapterNumber, chapterNumber, schema)

	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var content ChapterContent
	if err := s.parseWithRepair(ctx, raw, schema, &content); err != nil {
		return nil, err
	}
	if len(content.Sections) == 0 {
		return nil, fmt.Errorf("chương %d không có tiểu mục nào", chapterNumber)
	}
	return &content, nil
}
