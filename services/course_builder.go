package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vnkhanh/e-course-backend/models"
)

// Builder dựng cây khóa học từ kết quả các stage. Mã đánh số dạng chấm
// (1.2, 1.2.3) luôn được sinh lại tại đây theo thứ tự phần tử, không tin
// số do model trả về.

// ChaptersFromOutline chuyển khung chương thành models, đánh lại
// chapter_number liên tục từ 1
func ChaptersFromOutline(outline *CourseOutline) []models.Chapter {
	chapters := make([]models.Chapter, 0, len(outline.Chapters))
	for i, ch := range outline.Chapters {
		title := strings.TrimSpace(ch.ChapterTitle)
		if title == "" {
			title = fmt.Sprintf("Chương %d", i+1)
		}
		chapters = append(chapters, models.Chapter{
			ChapterNumber:      i + 1,
			Title:              title,
			Description:        ch.ChapterDescription,
			EstimatedHours:     ch.EstimatedHours,
			DifficultyLevel:    NormalizeDifficulty(ch.DifficultyLevel, ""),
			LearningObjectives: models.JSONStrings(ch.LearningObjectives),
		})
	}
	return chapters
}

// BuildChapterTree chuyển nội dung chương thành sections + knowledge points.
// Tiểu mục thiếu tiêu đề nhận tên mặc định, danh sách điểm kiến thức nil
// thành slice rỗng.
func BuildChapterTree(chapterNumber int, content *ChapterContent) []models.Section {
	sections := make([]models.Section, 0, len(content.Sections))
	for i, sec := range content.Sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = fmt.Sprintf("Tiểu mục %d.%d", chapterNumber, i+1)
		}

		points := make([]models.KnowledgePoint, 0, len(sec.KnowledgePoints))
		for j, p := range sec.KnowledgePoints {
			pointTitle := strings.TrimSpace(p.Title)
			if pointTitle == "" {
				pointTitle = fmt.Sprintf("Điểm kiến thức %d.%d.%d", chapterNumber, i+1, j+1)
			}
			points = append(points, models.KnowledgePoint{
				PointID:       fmt.Sprintf("%d.%d.%d", chapterNumber, i+1, j+1),
				Title:         pointTitle,
				Description:   p.Description,
				PointType:     normalizePointType(p.PointType),
				Prerequisites: models.JSONStrings(p.Prerequisites),
			})
		}

		sections = append(sections, models.Section{
			SectionNumber:    fmt.Sprintf("%d.%d", chapterNumber, i+1),
			Title:            title,
			Description:      sec.Description,
			Content:          sec.Content,
			EstimatedMinutes: sec.EstimatedMinutes,
			KnowledgePoints:  points,
		})
	}
	return sections
}

// FallbackOutline tạo khung một chương duy nhất khi stage cấu trúc hỏng
func FallbackOutline(courseTitle string) *CourseOutline {
	return &CourseOutline{
		TotalChapters:  1,
		EstimatedHours: 2,
		Chapters: []ChapterOutline{
			{
				ChapterID:          1,
				ChapterTitle:       "Nội dung chính",
				ChapterDescription: fmt.Sprintf("Nội dung tổng hợp của khóa học %s.", courseTitle),
				EstimatedHours:     2,
				DifficultyLevel:    "intermediate",
				LearningObjectives: []string{"Nắm được nội dung chính của khóa học"},
			},
		},
	}
}

// FallbackSection tạo tiểu mục giữ chỗ khi stage nội dung của một chương hỏng
func FallbackSection(chapterNumber int) models.Section {
	return models.Section{
		SectionNumber:    fmt.Sprintf("%d.1", chapterNumber),
		Title:            "Nội dung đang được biên soạn",
		Description:      "Tiểu mục giữ chỗ do chưa sinh được nội dung chi tiết.",
		Content:          "Nội dung của chương này chưa sinh tự động được. Vui lòng tạo lại khóa học hoặc bổ sung nội dung thủ công.",
		EstimatedMinutes: 0,
		KnowledgePoints:  []models.KnowledgePoint{},
	}
}

// ApplyIntroduction ghi kết quả stage giới thiệu vào course, bỏ qua trường rỗng
func ApplyIntroduction(course *models.Course, intro *CourseIntro) {
	if t := strings.TrimSpace(intro.Title); t != "" {
		course.Title = t
	}
	if intro.BriefDescription != "" {
		course.BriefDescription = intro.BriefDescription
		if course.Description == "" {
			course.Description = intro.BriefDescription
		}
	}
	if intro.TargetAudience != "" {
		course.TargetAudience = intro.TargetAudience
	}
	if intro.Prerequisites != "" {
		course.Prerequisites = intro.Prerequisites
	}
	if len(intro.LearningOutcomes) > 0 {
		course.LearningOutcomes = models.JSONStrings(intro.LearningOutcomes)
	}
	if len(intro.CourseHighlights) > 0 {
		course.Highlights = models.JSONStrings(intro.CourseHighlights)
	}
	course.DifficultyLevel = NormalizeDifficulty(intro.DifficultyLevel, course.DifficultyLevel)
	if course.EstimatedHours == 0 {
		course.EstimatedHours = parseHours(intro.EstimatedDuration)
	}
}

// ApplyObjectives gộp mục tiêu tổng quát vào learning_outcomes (bỏ trùng)
func ApplyObjectives(course *models.Course, objectives *LearningObjectives) {
	if len(objectives.OverallObjectives) == 0 {
		return
	}
	existing := models.StringsFromJSON(course.LearningOutcomes)
	seen := make(map[string]bool, len(existing))
	for _, o := range existing {
		seen[o] = true
	}
	for _, o := range objectives.OverallObjectives {
		o = strings.TrimSpace(o)
		if o != "" && !seen[o] {
			existing = append(existing, o)
			seen[o] = true
		}
	}
	course.LearningOutcomes = models.JSONStrings(existing)
}

// NormalizeDifficulty đưa mức độ khó về beginner|intermediate|advanced
func NormalizeDifficulty(level, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "beginner", "basic", "cơ bản", "dễ":
		return "beginner"
	case "intermediate", "trung cấp", "trung bình":
		return "intermediate"
	case "advanced", "nâng cao", "khó":
		return "advanced"
	}
	if fallback != "" {
		return fallback
	}
	return "intermediate"
}

func normalizePointType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "concept", "method", "tool", "case":
		return strings.ToLower(strings.TrimSpace(t))
	}
	return "concept"
}

// parseHours lấy số đầu tiên trong chuỗi thời lượng kiểu "20 giờ", "1.5h"
func parseHours(s string) float64 {
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			start = i
			break
		}
	}
	if start == -1 {
		return 0
	}
	end := start
	for end < len(s) && ((s[end] >= '0' && s[end] <= '9') || s[end] == '.') {
		end++
	}
	v, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0
	}
	return v
}
