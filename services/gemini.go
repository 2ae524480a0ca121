package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TextGenerator trừu tượng hóa việc gọi model sinh văn bản (mock được trong test)
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiClient gọi Gemini qua API key, mỗi lần gọi tạo client riêng
type GeminiClient struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{APIKey: apiKey, Model: model, Timeout: timeout}
}

// GenerateText xử lý prompt và trả kết quả từ Gemini
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", fmt.Errorf("không thể tạo Gemini client: %v", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	// Temperature thấp để output ổn định, đủ token cho JSON dài
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(2000)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("lỗi Gemini xử lý: %v", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini không trả kết quả hợp lệ")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}
