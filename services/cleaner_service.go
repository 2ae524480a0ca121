package services

import (
	"regexp"
	"strings"
)

// PreCleanText xử lý thô văn bản trích xuất trước khi lưu và đưa vào
// pipeline sinh khóa học: loại mục lục, số trang, dòng rác, khoảng trắng
func PreCleanText(text string) string {
	cleaned := text

	// Xoá các dòng chứa "Mục lục" hoặc "Table of Contents"
	reTOC := regexp.MustCompile(`(?im)^(.*mục lục.*|.*table of contents.*)$`)
	cleaned = reTOC.ReplaceAllString(cleaned, "")

	// Xoá các dòng chỉ chứa "Trang X" hoặc "Page X"
	rePageNumber := regexp.MustCompile(`(?im)^\s*(trang|page)[^\S\n]*\d+\s*$`)
	cleaned = rePageNumber.ReplaceAllString(cleaned, "")

	// Xoá dòng chỉ có số, ký tự đặc biệt hoặc khoảng trắng
	reSpecialLines := regexp.MustCompile(`(?m)^[\s\W\d]*$`)
	cleaned = reSpecialLines.ReplaceAllString(cleaned, "")

	// Gom nhiều dòng trống liên tiếp
	reMultiNewLine := regexp.MustCompile(`\n{2,}`)
	cleaned = reMultiNewLine.ReplaceAllString(cleaned, "\n")

	return strings.TrimSpace(cleaned)
}
