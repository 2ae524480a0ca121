package services

import (
	"errors"
	"fmt"
)

// Lỗi dùng chung cho pipeline sinh nội dung
var (
	// Model trả về rỗng hoặc quá ngắn để dùng được
	ErrEmptyResponse = errors.New("model trả về nội dung rỗng")
	// Đã hết số lần gọi lại cho một stage
	ErrMaxRetries = errors.New("đã hết số lần gọi lại model")
)

const parseErrorPreviewLimit = 200

// ParseError: mọi tầng sửa JSON đều thất bại.
// Preview giữ tối đa 200 ký tự đầu của phản hồi thô để debug, không log toàn bộ.
type ParseError struct {
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("không parse được JSON từ model: %v (đầu phản hồi: %q)", e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(raw string, err error) *ParseError {
	return &ParseError{Preview: truncateRunes(raw, parseErrorPreviewLimit), Err: err}
}

// ValidationError: input của caller không hợp lệ, trả thẳng 400
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// truncateRunes cắt chuỗi theo số rune, an toàn với tiếng Việt/UTF-8
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
