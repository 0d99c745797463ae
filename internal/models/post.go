package models

import "time"

// Post is the shared record every stage reads and rewrites (linkedin_post.json).
type Post struct {
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	ImagePrompt    string         `json:"image_prompt"`
	ImagePath      *string        `json:"image_path,omitempty"`
	ImageGenerated *bool          `json:"image_generated,omitempty"`
	Sources        []SearchSource `json:"sources,omitempty"`
	GeneratedAt    string         `json:"generated_at,omitempty"`
}

// SearchSource is one search hit that was fed to the model.
type SearchSource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Age         string `json:"age,omitempty"`
}

// ThemeSnapshot is written by the theme reader (used_themes.json).
type ThemeSnapshot struct {
	Themes    []string  `json:"themes"`
	Limit     int       `json:"limit"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ImageResult is the image stage summary (image_result.json).
type ImageResult struct {
	Success      bool    `json:"success"`
	ImagePath    *string `json:"image_path"`
	FinishReason string  `json:"finish_reason"`
	Error        string  `json:"error,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	DriveFileID  string  `json:"drive_file_id,omitempty"`
}

// PublishResult is the publisher summary (publish_result.json); the theme
// recorder reads it and fills SheetsUpdated.
type PublishResult struct {
	Success       bool   `json:"success"`
	Published     bool   `json:"published"`
	HasImage      bool   `json:"has_image"`
	Title         string `json:"title,omitempty"`
	PostID        string `json:"post_id,omitempty"`
	AssetURN      string `json:"asset_urn,omitempty"`
	PublishedAt   string `json:"published_at,omitempty"`
	PublishedDay  string `json:"published_day,omitempty"`
	SheetsUpdated *bool  `json:"sheets_updated,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Publication is one ledger row.
type Publication struct {
	RunID       string
	Title       string
	PostID      string
	AssetURN    string
	HasImage    bool
	PublishedAt time.Time
}

const (
	FinishReasonStop    = "STOP"
	FinishReasonNoImage = "NO_IMAGE"
	FinishReasonError   = "ERROR"
)

func StringPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }
