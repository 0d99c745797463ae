package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
)

func init() {
	logger.Init("imagegen-test", "").SetOutput(io.Discard)
}

func imageConfig(provider, baseURL string) config.ImageConfig {
	return config.ImageConfig{
		Provider:       provider,
		Model:          "img-model",
		APIKey:         "key",
		BaseURL:        baseURL,
		AspectRatio:    "1:1",
		Size:           "1024x1024",
		TimeoutSeconds: 5,
	}
}

func geminiServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		genCfg, _ := req["generation_config"].(map[string]any)
		if genCfg == nil || genCfg["image_config"].(map[string]any)["aspect_ratio"] != "1:1" {
			t.Errorf("unexpected request %v", req)
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiGenerateDecodesInlineData(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := geminiServer(t, `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"`+encoded+`"}}]}}]}`)

	img, err := NewGeminiGenerator(imageConfig(config.ProviderGemini, srv.URL)).Generate(context.Background(), "a robot")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(img.Data) != "png-bytes" || img.FinishReason != "STOP" || img.MimeType != "image/png" {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestGeminiNoImage(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[{"finishReason":"NO_IMAGE"}]}`)

	img, err := NewGeminiGenerator(imageConfig(config.ProviderGemini, srv.URL)).Generate(context.Background(), "x")
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if img.FinishReason != models.FinishReasonNoImage {
		t.Fatalf("unexpected finish reason %q", img.FinishReason)
	}
}

func TestGeminiMissingInlineData(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":"only text"}]}}]}`)

	_, err := NewGeminiGenerator(imageConfig(config.ProviderGemini, srv.URL)).Generate(context.Background(), "x")
	if err == nil || errors.Is(err, ErrNoImage) || !strings.Contains(err.Error(), "inlineData") {
		t.Fatalf("expected missing field error, got %v", err)
	}
}

func TestGeminiHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	img, err := NewGeminiGenerator(imageConfig(config.ProviderGemini, srv.URL)).Generate(context.Background(), "x")
	if err == nil || img.FinishReason != models.FinishReasonError {
		t.Fatalf("expected error result, got %+v %v", img, err)
	}
}

func TestOpenAIGenerateB64AndURL(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("b64-image"))
	var srv *httptest.Server
	mode := "b64"
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/img.png" {
			io.WriteString(w, "url-image")
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/images/generations") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "img-model" || req["size"] != "1024x1024" || req["n"] != float64(1) {
			t.Errorf("unexpected request %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		switch mode {
		case "b64":
			io.WriteString(w, `{"created":1,"data":[{"b64_json":"`+encoded+`"}]}`)
		case "url":
			io.WriteString(w, `{"created":1,"data":[{"url":"`+srv.URL+`/files/img.png"}]}`)
		default:
			io.WriteString(w, `{"created":1,"data":[]}`)
		}
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(imageConfig(config.ProviderOpenAI, srv.URL+"/"))

	img, err := gen.Generate(context.Background(), "x")
	if err != nil || string(img.Data) != "b64-image" {
		t.Fatalf("b64: %q %v", img.Data, err)
	}

	mode = "url"
	img, err = gen.Generate(context.Background(), "x")
	if err != nil || string(img.Data) != "url-image" {
		t.Fatalf("url: %q %v", img.Data, err)
	}

	mode = "empty"
	if _, err := gen.Generate(context.Background(), "x"); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestNewRejectsUnsupportedProvider(t *testing.T) {
	if _, err := New(imageConfig(config.ProviderAnthropic, "")); !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("expected ErrMissingConfig, got %v", err)
	}
	gen, err := New(imageConfig(config.ProviderOpenAI, ""))
	if err != nil || gen.Provider() != config.ProviderOpenAI {
		t.Fatalf("unexpected generator %v %v", gen, err)
	}
}
