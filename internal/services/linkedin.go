package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/debug"
	"linkedin-autopilot-go/internal/logger"
)

const (
	feedshareImageRecipe = "urn:li:digitalmediaRecipe:feedshare-image"
	ugcShareContentKey   = "com.linkedin.ugc.ShareContent"
	memberVisibilityKey  = "com.linkedin.ugc.MemberNetworkVisibility"

	// UnknownPostID is reported when the create call succeeds without an x-restli-id header.
	UnknownPostID = "unknown"
)

type LinkedInService struct {
	baseURL      string
	client       *http.Client
	uploadClient *http.Client
}

type UploadSlot struct {
	UploadURL string
	AssetURN  string
}

type UGCPost struct {
	Author          string                     `json:"author"`
	LifecycleState  string                     `json:"lifecycleState"`
	SpecificContent map[string]UGCShareContent `json:"specificContent"`
	Visibility      map[string]string          `json:"visibility"`
}

type UGCShareContent struct {
	ShareCommentary    UGCText    `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []UGCMedia `json:"media,omitempty"`
}

type UGCText struct {
	Text string `json:"text"`
}

type UGCMedia struct {
	Status string   `json:"status"`
	Media  string   `json:"media"`
	Title  *UGCText `json:"title,omitempty"`
}

// NewUGCPost builds a published, public share. assetURN may be empty for a text-only post.
func NewUGCPost(author, text, assetURN, title string) *UGCPost {
	share := UGCShareContent{
		ShareCommentary:    UGCText{Text: text},
		ShareMediaCategory: "NONE",
	}
	if assetURN != "" {
		share.ShareMediaCategory = "IMAGE"
		media := UGCMedia{Status: "READY", Media: assetURN}
		if title != "" {
			media.Title = &UGCText{Text: title}
		}
		share.Media = []UGCMedia{media}
	}
	return &UGCPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]UGCShareContent{ugcShareContentKey: share},
		Visibility:      map[string]string{memberVisibilityKey: "PUBLIC"},
	}
}

func (p *UGCPost) HasMedia() bool {
	return len(p.SpecificContent[ugcShareContentKey].Media) > 0
}

func NewLinkedInService(ctx context.Context, cfg config.LinkedInConfig) *LinkedInService {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})

	client := oauth2.NewClient(ctx, tokenSource)
	client.Timeout = config.Timeout(cfg.TimeoutSeconds)

	uploadClient := oauth2.NewClient(ctx, tokenSource)
	uploadClient.Timeout = config.Timeout(cfg.UploadTimeoutSeconds)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	debug.Printf("LinkedIn Service Initialized - Base URL: %s", baseURL)

	return &LinkedInService{
		baseURL:      baseURL,
		client:       client,
		uploadClient: uploadClient,
	}
}

// RegisterUpload reserves an upload slot for a feed image owned by owner.
func (s *LinkedInService) RegisterUpload(ctx context.Context, owner string) (*UploadSlot, error) {
	op := logger.Get().StartOperation("linkedin_register_upload")
	op.WithVendor("linkedin", "")

	payload := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{feedshareImageRecipe},
			"owner":   owner,
			"serviceRelationships": []map[string]string{
				{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
			},
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		op.Fail("Failed to marshal register request", err)
		return nil, fmt.Errorf("failed to marshal register request: %w", err)
	}

	resp, err := s.makeRequest(ctx, http.MethodPost, "/assets?action=registerUpload", jsonData)
	if err != nil {
		op.Fail("LinkedIn register request failed", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		op.Fail("Failed to read register response", err)
		return nil, fmt.Errorf("failed to read register response: %w", err)
	}

	uploadURL := gjson.GetBytes(body, `value.uploadMechanism.com\.linkedin\.digitalmedia\.uploading\.MediaUploadHttpRequest.uploadUrl`).String()
	assetURN := gjson.GetBytes(body, "value.asset").String()
	if uploadURL == "" || assetURN == "" {
		err := fmt.Errorf("register response missing uploadUrl or asset: %s", Snippet(body, 300))
		op.Fail("Malformed register response", err)
		return nil, err
	}

	op.WithLinkedIn(assetURN, "")
	op.Complete(fmt.Sprintf("Upload registered: %s", assetURN))
	return &UploadSlot{UploadURL: uploadURL, AssetURN: assetURN}, nil
}

// UploadImage PUTs the binary to the slot's upload URL.
func (s *LinkedInService) UploadImage(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	op := logger.Get().StartOperation("linkedin_upload_image")
	op.WithContext("image_bytes", len(data))
	op.WithContext("content_type", contentType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		op.Fail("Failed to create upload request", err)
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.uploadClient.Do(req)
	if err != nil {
		op.Fail("Upload request failed", err)
		return fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()
	op.WithStatus(resp.StatusCode)

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("image upload failed with status %d: %s", resp.StatusCode, Snippet(bodyBytes, 300))
		op.Fail("LinkedIn upload error", err)
		return err
	}

	op.Complete("Image binary uploaded")
	return nil
}

// CreatePost publishes post and returns the id from the x-restli-id header.
func (s *LinkedInService) CreatePost(ctx context.Context, post *UGCPost) (string, error) {
	op := logger.Get().StartOperation("linkedin_create_post")

	if post == nil || post.Author == "" {
		err := errors.New("post author is required")
		op.Fail("Invalid post", err)
		return "", err
	}
	op.WithContext("has_image", post.HasMedia())

	jsonData, err := json.Marshal(post)
	if err != nil {
		op.Fail("Failed to marshal post", err)
		return "", fmt.Errorf("failed to marshal post: %w", err)
	}

	resp, err := s.makeRequest(ctx, http.MethodPost, "/ugcPosts", jsonData)
	if err != nil {
		op.Fail("LinkedIn API request failed", err)
		return "", err
	}
	defer resp.Body.Close()

	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		postID = UnknownPostID
	}

	op.WithLinkedIn("", postID)
	op.WithStatus(resp.StatusCode)
	op.Complete(fmt.Sprintf("Created LinkedIn post (ID: %s)", postID))
	return postID, nil
}

func (s *LinkedInService) makeRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	url := s.baseURL + endpoint

	op := logger.Get().StartOperation("linkedin_http_request")
	op.WithContext("http_method", method)
	op.WithContext("http_endpoint", endpoint)
	if body != nil {
		op.WithContext("http_request_payload_size", len(body))
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		op.Fail("Failed to create HTTP request", err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	debug.Printf("LinkedIn API Request - Method: %s, URL: %s, Payload: %s", method, url, string(body))

	resp, err := s.client.Do(req)
	if err != nil {
		op.Fail("HTTP request failed", err)
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	op.WithStatus(resp.StatusCode)

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		op.WithContext("http_response_body", Snippet(bodyBytes, 500))
		op.Fail(fmt.Sprintf("LinkedIn API Error - Status: %d", resp.StatusCode), fmt.Errorf("%s", Snippet(bodyBytes, 500)))
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, Snippet(bodyBytes, 500))
	}

	op.Complete(fmt.Sprintf("HTTP %s request to %s completed", method, endpoint))
	return resp, nil
}
