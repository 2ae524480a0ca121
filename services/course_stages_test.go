package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator trả lời theo hàm script, đếm số lần gọi
type fakeGenerator struct {
	calls int32
	fn    func(call int32, prompt string) (string, error)
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	return f.fn(n, prompt)
}

func newTestStages(gen TextGenerator, retries int) *Stages {
	s := NewStages(gen, NewCallPool(1), retries)
	s.backoff = time.Millisecond
	return s
}

const validIntroJSON = `{
  "title": "Go cơ bản",
  "brief_description": "Khóa học nhập môn Go.",
  "target_audience": "Sinh viên CNTT",
  "prerequisites": "Biết lập trình cơ bản",
  "learning_outcomes": ["Hiểu cú pháp Go"],
  "course_highlights": ["Nhiều bài tập"],
  "difficulty_level": "beginner",
  "estimated_duration": "16 giờ"
}`

func TestGenerateRetriesOnShortResponse(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		if call < 3 {
			return "...", nil // dưới ngưỡng 10 ký tự, coi như rỗng
		}
		return validIntroJSON, nil
	}}
	stages := newTestStages(gen, 3)

	intro, err := stages.GenerateIntroduction(context.Background(), "nguồn", "Tổng quát")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&gen.calls))
	assert.Equal(t, "Go cơ bản", intro.Title)
}

func TestGenerateRetriesOnTransportError(t *testing.T) {
	transportErr := errors.New("tạm thời mất kết nối")
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		if call == 1 {
			return "", transportErr
		}
		return validIntroJSON, nil
	}}
	stages := newTestStages(gen, 3)

	_, err := stages.GenerateIntroduction(context.Background(), "nguồn", "Tổng quát")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gen.calls))
}

func TestGenerateMaxRetriesExceeded(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		return "", nil
	}}
	stages := newTestStages(gen, 3)

	_, err := stages.GenerateIntroduction(context.Background(), "nguồn", "Tổng quát")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, int32(3), atomic.LoadInt32(&gen.calls))
}

func TestParseWithRepairSecondRoundTrip(t *testing.T) {
	// Phản hồi đầu hỏng đến mức sửa tại chỗ không cứu được,
	// lần gọi thứ hai là prompt nhờ model tự sửa
	var sawFixPrompt atomic.Bool
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		if strings.Contains(prompt, "Chuỗi cần sửa") {
			sawFixPrompt.Store(true)
			return validIntroJSON, nil
		}
		return `đây không phải JSON nhưng vẫn đủ dài để không bị coi là rỗng`, nil
	}}
	stages := newTestStages(gen, 1)

	intro, err := stages.GenerateIntroduction(context.Background(), "nguồn", "Tổng quát")
	require.NoError(t, err)
	assert.True(t, sawFixPrompt.Load())
	assert.Equal(t, "Go cơ bản", intro.Title)
}

func TestGenerateStructureRejectsEmptyOutline(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		return `{"total_chapters": 0, "estimated_hours": 0, "chapters": []}`, nil
	}}
	stages := newTestStages(gen, 1)

	_, err := stages.GenerateStructure(context.Background(), "nguồn", 5)
	require.Error(t, err)
}

func TestGenerateChapterContentParses(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		return `{
  "chapter_id": 2,
  "sections": [
    {
      "section_number": "2.1",
      "title": "Goroutine",
      "description": "Tóm tắt",
      "content": "Nội dung chi tiết",
      "estimated_minutes": 30,
      "knowledge_points": [
        {"point_id": "2.1.1", "title": "go keyword", "description": "", "point_type": "concept", "estimated_minutes": 10, "prerequisites": []}
      ]
    }
  ]
}`, nil
	}}
	stages := newTestStages(gen, 1)

	chapter := ChapterOutline{ChapterTitle: "Đồng thời", LearningObjectives: []string{"Hiểu goroutine"}}
	content, err := stages.GenerateChapterContent(context.Background(), "nguồn", chapter, 2)
	require.NoError(t, err)
	require.Len(t, content.Sections, 1)
	assert.Equal(t, "Goroutine", content.Sections[0].Title)
	assert.NotEqual(t, content.Sections[0].Description, content.Sections[0].Content)
}

func TestGenerateSourceTruncation(t *testing.T) {
	long := strings.Repeat("a", introSourceLimit+500)
	var prompts []string
	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return validIntroJSON, nil
	}}
	stages := newTestStages(gen, 1)

	_, err := stages.GenerateIntroduction(context.Background(), long, "Tổng quát")
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	// prompt chỉ chứa phần nguồn đã cắt, không chứa chuỗi dài nguyên vẹn
	assert.Contains(t, prompts[0], strings.Repeat("a", introSourceLimit))
	assert.NotContains(t, prompts[0], strings.Repeat("a", introSourceLimit+1))
}

func TestGenerateContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeGenerator{fn: func(call int32, prompt string) (string, error) {
		return "", errors.New("không tới được đây")
	}}
	stages := newTestStages(gen, 3)

	_, err := stages.generate(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
