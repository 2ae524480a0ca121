package services

import (
	"encoding/json"
	"strings"
)

// Tầng sửa phản hồi JSON của model: model hay trả JSON bọc trong markdown,
// thiếu dấu phẩy giữa các phần tử hoặc thừa dấu phẩy cuối. Sửa tại chỗ
// trước, chỉ khi hết cách mới nhờ model sửa (xem parseWithRepair).

// CleanModelJSON bỏ code fence markdown quanh JSON
func CleanModelJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.Trim(clean, "`")
	clean = strings.TrimPrefix(strings.TrimSpace(clean), "json")
	return strings.TrimSpace(clean)
}

// ExtractJSON tìm khối {...} hoặc [...] cân bằng đầu tiên trong văn bản.
// Duyệt có nhận biết chuỗi để ngoặc nằm trong string không làm sai depth.
func ExtractJSON(raw string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if raw[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// FixJSONDefects sửa hai lỗi quen thuộc của model:
// thiếu dấu phẩy giữa hai giá trị liền nhau và dấu phẩy thừa trước } hoặc ].
// Chạy lại trên JSON hợp lệ không làm thay đổi kết quả parse.
func FixJSONDefects(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false
	var lastSig byte // ký tự có nghĩa gần nhất đã ghi, ngoài chuỗi

	isValueEnd := func(c byte) bool {
		return c == '"' || c == '}' || c == ']' ||
			(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	isValueStart := func(c byte) bool {
		return c == '"' || c == '{' || c == '['
	}
	_ = isValueStart

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
				lastSig = '"'
			}
			continue
		}

		switch {
		case c == '"':
			if isValueEnd(lastSig) {
				b.WriteByte(',')
			}
			b.WriteByte(c)
			inString = true
		case c == '{' || c == '[':
			if isValueEnd(lastSig) {
				b.WriteByte(',')
			}
			b.WriteByte(c)
			lastSig = c
		case c == ',':
			// Bỏ dấu phẩy thừa trước } hoặc ]
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			b.WriteByte(c)
			lastSig = c
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			lastSig = c
		}
	}

	return b.String()
}

// ParseModelJSON parse phản hồi model vào out, sửa tại chỗ khi cần.
// Thứ tự: bỏ fence -> parse thẳng -> cắt khối JSON -> sửa lỗi quen thuộc.
// Thất bại hết thì trả *ParseError kèm đoạn đầu phản hồi.
func ParseModelJSON(raw string, out interface{}) error {
	clean := CleanModelJSON(raw)

	if err := json.Unmarshal([]byte(clean), out); err == nil {
		return nil
	}

	candidate := clean
	if extracted, ok := ExtractJSON(clean); ok {
		candidate = extracted
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		}
	}

	fixed := FixJSONDefects(candidate)
	err := json.Unmarshal([]byte(fixed), out)
	if err == nil {
		return nil
	}

	return newParseError(raw, err)
}
