package utils

import (
	"fmt"
	"strings"
)

// FileTypeFromExt ánh xạ phần mở rộng file sang loại tài liệu, đối chiếu
// với danh sách cho phép trong cấu hình (pdf, docx, doc, xlsx, xls, txt, md)
func FileTypeFromExt(ext string, allowed []string) (string, error) {
	fileType := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if fileType == "" {
		return "", fmt.Errorf("file không có phần mở rộng")
	}
	for _, a := range allowed {
		if fileType == strings.ToLower(strings.TrimSpace(a)) {
			return fileType, nil
		}
	}
	return "", fmt.Errorf("định dạng file không hỗ trợ: .%s (cho phép: %s)",
		fileType, strings.Join(allowed, ", "))
}
