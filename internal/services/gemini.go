package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"linkedin-autopilot-go/internal/debug"
	"linkedin-autopilot-go/internal/logger"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiService posts generateContent requests to the Gemini REST API.
// Response fields are picked by the callers with gjson.
type GeminiService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGeminiService(apiKey, baseURL string, timeout time.Duration) *GeminiService {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// GenerateContent sends payload to models/<model>:generateContent and returns the raw body.
func (s *GeminiService) GenerateContent(ctx context.Context, model string, payload any) ([]byte, error) {
	op := logger.Get().StartOperation("gemini_generate_content")
	op.WithVendor("gemini", model)

	body, err := json.Marshal(payload)
	if err != nil {
		op.Fail("Failed to marshal request", err)
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}
	op.WithContext("http_request_payload_size", len(body))

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		op.Fail("Failed to create HTTP request", err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	debug.Printf("Gemini API Request - URL: %s, payload %d bytes", url, len(body))

	resp, err := s.client.Do(req)
	if err != nil {
		op.Fail("HTTP request failed", err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()
	op.WithStatus(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		op.Fail("Failed to read response", err)
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode >= 400 {
		op.WithContext("http_response_body", Snippet(respBody, 500))
		err := fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, Snippet(respBody, 500))
		op.Fail(fmt.Sprintf("Gemini API Error - Status: %d", resp.StatusCode), err)
		return nil, err
	}

	op.WithContext("http_response_size", len(respBody))
	op.Complete("Gemini generateContent completed")
	return respBody, nil
}

// Snippet returns at most n bytes of body for diagnostics.
func Snippet(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
