package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-course-backend/models"
)

func TestChaptersFromOutlineRenumbers(t *testing.T) {
	// chapter_id model trả về lộn xộn, builder đánh lại liên tục từ 1
	outline := &CourseOutline{
		Chapters: []ChapterOutline{
			{ChapterID: 7, ChapterTitle: "Mở đầu", DifficultyLevel: "beginner"},
			{ChapterID: 2, ChapterTitle: "Nâng cao", DifficultyLevel: "advanced"},
			{ChapterID: 0, ChapterTitle: ""},
		},
	}

	chapters := ChaptersFromOutline(outline)
	require.Len(t, chapters, 3)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.ChapterNumber)
	}
	assert.Equal(t, "Mở đầu", chapters[0].Title)
	assert.Equal(t, "beginner", chapters[0].DifficultyLevel)
	// thiếu tiêu đề thì nhận tên mặc định theo số chương
	assert.Equal(t, "Chương 3", chapters[2].Title)
	assert.Equal(t, "intermediate", chapters[2].DifficultyLevel)
}

func TestBuildChapterTreeDottedIDs(t *testing.T) {
	content := &ChapterContent{
		Sections: []SectionPlan{
			{
				Title: "Biến và kiểu dữ liệu",
				KnowledgePoints: []PointPlan{
					{Title: "Khai báo biến", PointType: "concept"},
					{Title: "Kiểu số", PointType: "method"},
				},
			},
			{
				Title: "Hàm",
				KnowledgePoints: []PointPlan{
					{Title: "Định nghĩa hàm"},
				},
			},
		},
	}

	sections := BuildChapterTree(2, content)
	require.Len(t, sections, 2)

	for i, sec := range sections {
		assert.Equal(t, fmt.Sprintf("2.%d", i+1), sec.SectionNumber)
		for j, p := range sec.KnowledgePoints {
			assert.Equal(t, fmt.Sprintf("2.%d.%d", i+1, j+1), p.PointID)
		}
	}
	// point_type không hợp lệ hoặc rỗng về concept
	assert.Equal(t, "concept", sections[1].KnowledgePoints[0].PointType)
	assert.Equal(t, "method", sections[0].KnowledgePoints[1].PointType)
}

func TestBuildChapterTreeMissingFields(t *testing.T) {
	content := &ChapterContent{
		Sections: []SectionPlan{
			{Title: "", KnowledgePoints: nil},
		},
	}

	sections := BuildChapterTree(3, content)
	require.Len(t, sections, 1)
	assert.Equal(t, "Tiểu mục 3.1", sections[0].Title)
	assert.NotNil(t, sections[0].KnowledgePoints)
	assert.Empty(t, sections[0].KnowledgePoints)
}

func TestBuildChapterTreeIgnoresModelNumbering(t *testing.T) {
	// model trả section_number/point_id sai, builder vẫn sinh lại theo thứ tự
	content := &ChapterContent{
		Sections: []SectionPlan{
			{
				SectionNumber: "9.9",
				Title:         "Tiểu mục",
				KnowledgePoints: []PointPlan{
					{PointID: "9.9.9", Title: "Điểm"},
				},
			},
		},
	}

	sections := BuildChapterTree(1, content)
	assert.Equal(t, "1.1", sections[0].SectionNumber)
	assert.Equal(t, "1.1.1", sections[0].KnowledgePoints[0].PointID)
}

func TestFallbackOutline(t *testing.T) {
	outline := FallbackOutline("Go cơ bản")
	require.Len(t, outline.Chapters, 1)
	assert.Equal(t, 1, outline.Chapters[0].ChapterID)
	assert.Contains(t, outline.Chapters[0].ChapterDescription, "Go cơ bản")
}

func TestFallbackSection(t *testing.T) {
	sec := FallbackSection(4)
	assert.Equal(t, "4.1", sec.SectionNumber)
	assert.NotEmpty(t, sec.Content)
	assert.Empty(t, sec.KnowledgePoints)
}

func TestApplyIntroductionKeepsExistingOnEmpty(t *testing.T) {
	course := &models.Course{Title: "Tên cũ", DifficultyLevel: "beginner"}
	ApplyIntroduction(course, &CourseIntro{
		Title:            "  ",
		BriefDescription: "Mô tả ngắn",
	})
	assert.Equal(t, "Tên cũ", course.Title)
	assert.Equal(t, "Mô tả ngắn", course.BriefDescription)
	assert.Equal(t, "Mô tả ngắn", course.Description)
	assert.Equal(t, "beginner", course.DifficultyLevel)
}

func TestApplyObjectivesMergesAndDedups(t *testing.T) {
	course := &models.Course{
		LearningOutcomes: models.JSONStrings([]string{"Hiểu Go", "Viết được CLI"}),
	}
	ApplyObjectives(course, &LearningObjectives{
		OverallObjectives: []string{"Hiểu Go", "Triển khai được service", " "},
	})

	got := models.StringsFromJSON(course.LearningOutcomes)
	assert.Equal(t, []string{"Hiểu Go", "Viết được CLI", "Triển khai được service"}, got)
}

func TestNormalizeDifficulty(t *testing.T) {
	assert.Equal(t, "beginner", NormalizeDifficulty("Cơ bản", ""))
	assert.Equal(t, "advanced", NormalizeDifficulty("ADVANCED", ""))
	assert.Equal(t, "beginner", NormalizeDifficulty("không rõ", "beginner"))
	assert.Equal(t, "intermediate", NormalizeDifficulty("", ""))
}

func TestParseHours(t *testing.T) {
	assert.Equal(t, 20.0, parseHours("20 giờ"))
	assert.Equal(t, 1.5, parseHours("khoảng 1.5h"))
	assert.Equal(t, 0.0, parseHours("chưa rõ"))
}
