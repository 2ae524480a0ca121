package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// ExtractedContent là kết quả trích xuất nội dung từ một tài liệu
type ExtractedContent struct {
	Text     string
	Metadata map[string]interface{}
}

// ExtractContent trích xuất văn bản từ dữ liệu file theo loại tài liệu.
// Loại file đã được kiểm tra ở tầng upload nên ở đây chỉ cần switch.
func ExtractContent(data []byte, fileType string) (*ExtractedContent, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return extractPDF(data)
	case "docx", "doc":
		return extractDOCX(data)
	case "xlsx", "xls":
		return extractXLSX(data)
	case "md":
		return extractMarkdown(data)
	case "txt":
		return extractPlainText(data)
	default:
		return nil, fmt.Errorf("loại tài liệu không hỗ trợ: %s", fileType)
	}
}

func extractPDF(data []byte) (*ExtractedContent, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("không thể tạo reader PDF: %w", err)
	}

	var textBuilder bytes.Buffer
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(content)
		textBuilder.WriteString("\n")
	}

	text := strings.TrimSpace(textBuilder.String())
	return &ExtractedContent{
		Text: text,
		Metadata: map[string]interface{}{
			"pages":      pages,
			"word_count": len(strings.Fields(text)),
		},
	}, nil
}

// extractDOCX đọc word/document.xml trong file zip (.docx là file zip!)
// và gom nội dung các tag <w:t>
func extractDOCX(data []byte) (*ExtractedContent, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("không mở được file DOCX: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("file DOCX không có word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	paragraphs := 0
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "t": // <w:t>
				var text string
				if err := decoder.DecodeElement(&text, &se); err == nil {
					buf.WriteString(text + " ")
				}
			case "p": // <w:p>
				paragraphs++
				buf.WriteString("\n")
			}
		}
	}

	text := strings.TrimSpace(buf.String())
	return &ExtractedContent{
		Text: text,
		Metadata: map[string]interface{}{
			"paragraphs": paragraphs,
			"word_count": len(strings.Fields(text)),
		},
	}, nil
}

// extractXLSX chuyển từng sheet thành văn bản mô tả: tên sheet, dòng tiêu đề
// rồi dữ liệu từng dòng, các ô cách nhau bằng " | "
func extractXLSX(data []byte) (*ExtractedContent, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("không mở được file Excel: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	sheets := f.GetSheetList()
	totalRows := 0
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		buf.WriteString(fmt.Sprintf("Bảng: %s\n", sheet))
		for i, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if line == "" {
				continue
			}
			if i == 0 {
				buf.WriteString("Cột: " + line + "\n")
			} else {
				buf.WriteString(line + "\n")
			}
			totalRows++
		}
		buf.WriteString("\n")
	}

	text := strings.TrimSpace(buf.String())
	return &ExtractedContent{
		Text: text,
		Metadata: map[string]interface{}{
			"sheets":     len(sheets),
			"rows":       totalRows,
			"word_count": len(strings.Fields(text)),
		},
	}, nil
}

// extractMarkdown giữ nguyên nội dung, đếm số heading làm metadata
func extractMarkdown(data []byte) (*ExtractedContent, error) {
	text := string(data)
	headings := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings++
		}
	}
	return &ExtractedContent{
		Text: strings.TrimSpace(text),
		Metadata: map[string]interface{}{
			"headings":   headings,
			"word_count": len(strings.Fields(text)),
		},
	}, nil
}

func extractPlainText(data []byte) (*ExtractedContent, error) {
	text := strings.TrimSpace(string(data))
	return &ExtractedContent{
		Text: text,
		Metadata: map[string]interface{}{
			"word_count": len(strings.Fields(text)),
		},
	}, nil
}
