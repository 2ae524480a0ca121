package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanModelJSON(t *testing.T) {
	raw := "```json\n{\"title\": \"Go\"}\n```"
	assert.Equal(t, `{"title": "Go"}`, CleanModelJSON(raw))

	raw = "```\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, CleanModelJSON(raw))

	// không có fence thì giữ nguyên
	assert.Equal(t, `{"a": 1}`, CleanModelJSON(`{"a": 1}`))
}

func TestExtractJSON(t *testing.T) {
	raw := `Đây là kết quả: {"title": "Go cơ bản", "nested": {"x": 1}} mong hữu ích.`
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `{"title": "Go cơ bản", "nested": {"x": 1}}`, got)
}

func TestExtractJSONBraceInString(t *testing.T) {
	// Ngoặc nằm trong chuỗi không được tính vào depth
	raw := `{"note": "dùng {x} làm placeholder"} phần thừa`
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `{"note": "dùng {x} làm placeholder"}`, got)
}

func TestExtractJSONArray(t *testing.T) {
	got, ok := ExtractJSON(`kết quả: [1, 2, 3]`)
	require.True(t, ok)
	assert.Equal(t, `[1, 2, 3]`, got)
}

func TestExtractJSONMissing(t *testing.T) {
	_, ok := ExtractJSON("không có gì ở đây")
	assert.False(t, ok)
}

func TestFixJSONDefectsMissingComma(t *testing.T) {
	var out map[string]interface{}
	fixed := FixJSONDefects(`{"a": "x" "b": "y"}`)
	require.NoError(t, json.Unmarshal([]byte(fixed), &out))
	assert.Equal(t, "x", out["a"])
	assert.Equal(t, "y", out["b"])
}

func TestFixJSONDefectsMissingCommaAfterBracket(t *testing.T) {
	// lỗi quen thuộc: thiếu dấu phẩy giữa "}" và key tiếp theo
	var out map[string]interface{}
	fixed := FixJSONDefects(`{"a": {"x": 1} "b": 2}`)
	require.NoError(t, json.Unmarshal([]byte(fixed), &out))
	assert.Equal(t, float64(2), out["b"])
}

func TestFixJSONDefectsTrailingComma(t *testing.T) {
	var out map[string]interface{}
	fixed := FixJSONDefects(`{"a": [1, 2,], "b": 3,}`)
	require.NoError(t, json.Unmarshal([]byte(fixed), &out))
	assert.Equal(t, float64(3), out["b"])
}

func TestFixJSONDefectsValidUnchanged(t *testing.T) {
	valid := `{"a": [1, 2], "b": {"c": "d, e"}}`
	assert.Equal(t, valid, FixJSONDefects(valid))
}

func TestParseModelJSONIdempotent(t *testing.T) {
	raw := "```json\n{\"title\": \"Go\", \"items\": [\"a\", \"b\"]}\n```"

	var first, second map[string]interface{}
	require.NoError(t, ParseModelJSON(raw, &first))
	require.NoError(t, ParseModelJSON(raw, &second))
	assert.Equal(t, first, second)
}

func TestParseModelJSONFromNoise(t *testing.T) {
	raw := `Model nói dài dòng trước. {"title": "Go" "level": "beginner",} Rồi nói thêm sau.`
	var out struct {
		Title string `json:"title"`
		Level string `json:"level"`
	}
	require.NoError(t, ParseModelJSON(raw, &out))
	assert.Equal(t, "Go", out.Title)
	assert.Equal(t, "beginner", out.Level)
}

func TestParseModelJSONErrorPreviewBounded(t *testing.T) {
	raw := strings.Repeat("hỏng ", 200)
	var out map[string]interface{}
	err := ParseModelJSON(raw, &out)
	require.Error(t, err)

	var pErr *ParseError
	require.ErrorAs(t, err, &pErr)
	assert.LessOrEqual(t, len([]rune(pErr.Preview)), parseErrorPreviewLimit)
}

func TestTruncateRunesUTF8Safe(t *testing.T) {
	s := strings.Repeat("ế", 50)
	got := truncateRunes(s, 10)
	assert.Equal(t, strings.Repeat("ế", 10), got)

	assert.Equal(t, "ngắn", truncateRunes("ngắn", 100))
}
