package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const FileName = "configuration.json"

// ErrMissingConfig marks absent credentials or identifiers. Stages treat it as fatal.
var ErrMissingConfig = errors.New("missing configuration")

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	WorkDir       string  `json:"work_dir"`
	LogsDir       string  `json:"logs_dir"`
	LogSampleRate float64 `json:"log_sample_rate"`
	Locale        string  `json:"locale"`
	PersonaPath   string  `json:"persona_path"`
	StripMarkdown *bool   `json:"strip_markdown,omitempty"`

	GoogleCredentialsPath string `json:"google_credentials_path"`
	GoogleCredentialsJSON string `json:"-"`

	SheetsConfig   SheetsConfig   `json:"sheets_config"`
	SearchConfig   SearchConfig   `json:"search_config"`
	LLMConfig      LLMConfig      `json:"llm_config"`
	ImageConfig    ImageConfig    `json:"image_config"`
	LinkedInConfig LinkedInConfig `json:"linkedin_config"`
	LedgerConfig   LedgerConfig   `json:"ledger_config"`
	ScheduleConfig ScheduleConfig `json:"schedule_config"`
}

type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
	Column        string `json:"column"`
	TokenFile     string `json:"token_file"`
	ThemeLimit    int    `json:"theme_limit"`
}

type SearchConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Count          int    `json:"count"`
	Freshness      string `json:"freshness"`
	MaxResults     int    `json:"max_results"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// LLMConfig temperatures are pointers so an explicit 0 survives defaulting.
type LLMConfig struct {
	Provider               string   `json:"provider"`
	Model                  string   `json:"model"`
	APIKey                 string   `json:"api_key"`
	BaseURL                string   `json:"base_url"`
	TimeoutSeconds         int      `json:"timeout_seconds"`
	ContentTemperature     *float64 `json:"content_temperature,omitempty"`
	ImagePromptTemperature *float64 `json:"image_prompt_temperature,omitempty"`
	MaxTokens              int      `json:"max_tokens"`
}

const (
	defaultContentTemperature     = 0.4
	defaultImagePromptTemperature = 0.6
)

func (c LLMConfig) PostTemperature() float64 {
	if c.ContentTemperature == nil {
		return defaultContentTemperature
	}
	return *c.ContentTemperature
}

func (c LLMConfig) ImageTemperature() float64 {
	if c.ImagePromptTemperature == nil {
		return defaultImagePromptTemperature
	}
	return *c.ImagePromptTemperature
}

func Float(v float64) *float64 { return &v }

type ImageConfig struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	AspectRatio    string `json:"aspect_ratio"`
	Size           string `json:"size"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxWidth       int    `json:"max_width"`
	MaxHeight      int    `json:"max_height"`
	DriveFolderID  string `json:"drive_folder_id"`
}

type LinkedInConfig struct {
	AccessToken          string `json:"access_token"`
	PersonURN            string `json:"person_urn"`
	BaseURL              string `json:"base_url"`
	TimeoutSeconds       int    `json:"timeout_seconds"`
	UploadTimeoutSeconds int    `json:"upload_timeout_seconds"`
}

type LedgerConfig struct {
	Disabled    bool   `json:"disabled"`
	DatabaseURL string `json:"database_url"`
	AuthToken   string `json:"auth_token"`
	SQLitePath  string `json:"sqlite_path"`
}

type ScheduleConfig struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

// Default returns a Config populated with the values every stage falls back to.
func Default() *Config {
	strip := true
	return &Config{
		WorkDir:       ".",
		LogsDir:       "logs",
		LogSampleRate: 1.0,
		Locale:        "en_US",
		StripMarkdown: &strip,
		SheetsConfig: SheetsConfig{
			SheetName:  "Sheet1",
			Column:     "A",
			TokenFile:  "token.json",
			ThemeLimit: 20,
		},
		SearchConfig: SearchConfig{
			BaseURL:        "https://api.search.brave.com/res/v1",
			Count:          10,
			Freshness:      "pw",
			MaxResults:     15,
			TimeoutSeconds: 30,
		},
		LLMConfig: LLMConfig{
			Provider:               ProviderGemini,
			TimeoutSeconds:         60,
			ContentTemperature:     Float(defaultContentTemperature),
			ImagePromptTemperature: Float(defaultImagePromptTemperature),
			MaxTokens:              2048,
		},
		ImageConfig: ImageConfig{
			Provider:       ProviderGemini,
			AspectRatio:    "1:1",
			Size:           "1024x1024",
			TimeoutSeconds: 60,
			MaxWidth:       1200,
			MaxHeight:      1200,
		},
		LinkedInConfig: LinkedInConfig{
			BaseURL:              "https://api.linkedin.com/v2",
			TimeoutSeconds:       30,
			UploadTimeoutSeconds: 60,
		},
		LedgerConfig: LedgerConfig{
			SQLitePath: filepath.Join("data", "pipeline.db"),
		},
		ScheduleConfig: ScheduleConfig{
			Timezone: "UTC",
		},
	}
}

// Load reads configuration.json when one can be found and then applies
// environment overrides. A missing file is not an error: every value can
// come from the environment.
func Load() (*Config, error) {
	cfg := Default()

	if configPath := locateConfigFile(); configPath != "" {
		configData, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %s: %w", configPath, err)
		}
		if err := json.Unmarshal(configData, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.resolvePaths()

	return cfg, nil
}

func locateConfigFile() string {
	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(filepath.Dir(execPath), FileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.WorkDir, "PIPELINE_WORK_DIR")
	setString(&c.Locale, "PIPELINE_LOCALE")
	setString(&c.PersonaPath, "PERSONA_PATH")

	setString(&c.SearchConfig.APIKey, "BRAVE_SEARCH_API_KEY")

	setString(&c.LLMConfig.Provider, "LLM_PROVIDER")
	setString(&c.LLMConfig.Model, "LLM_MODEL")
	setString(&c.ImageConfig.Provider, "IMAGE_PROVIDER")
	setString(&c.ImageConfig.Model, "IMAGE_MODEL")
	setString(&c.ImageConfig.DriveFolderID, "DRIVE_FOLDER_ID")

	if c.LLMConfig.APIKey == "" {
		c.LLMConfig.APIKey = apiKeyFor(c.LLMConfig.Provider)
	}
	if c.ImageConfig.APIKey == "" {
		c.ImageConfig.APIKey = apiKeyFor(c.ImageConfig.Provider)
	}

	setString(&c.LinkedInConfig.AccessToken, "LINKEDIN_ACCESS_TOKEN")
	setString(&c.LinkedInConfig.PersonURN, "LINKEDIN_PERSON_URN")

	// Service account JSON text, the usual form in CI secrets.
	c.GoogleCredentialsJSON = strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
	setString(&c.SheetsConfig.TokenFile, "GOOGLE_SHEETS_TOKEN_FILE")
	setString(&c.SheetsConfig.SpreadsheetID, "SPREADSHEET_ID")
	if v := os.Getenv("THEME_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SheetsConfig.ThemeLimit = n
		}
	}

	setString(&c.LedgerConfig.DatabaseURL, "TURSO_DATABASE_URL")
	setString(&c.LedgerConfig.AuthToken, "TURSO_AUTH_TOKEN")

	setString(&c.ScheduleConfig.Cron, "PIPELINE_CRON")
	setString(&c.ScheduleConfig.Timezone, "PIPELINE_TIMEZONE")
}

func apiKeyFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("GOOGLE_API_KEY")
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.WorkDir == "" {
		c.WorkDir = d.WorkDir
	}
	if c.LogSampleRate == 0 {
		c.LogSampleRate = d.LogSampleRate
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.StripMarkdown == nil {
		c.StripMarkdown = d.StripMarkdown
	}
	if c.SheetsConfig.SheetName == "" {
		c.SheetsConfig.SheetName = d.SheetsConfig.SheetName
	}
	if c.SheetsConfig.Column == "" {
		c.SheetsConfig.Column = d.SheetsConfig.Column
	}
	if c.SheetsConfig.ThemeLimit == 0 {
		c.SheetsConfig.ThemeLimit = d.SheetsConfig.ThemeLimit
	}
	if c.SearchConfig.BaseURL == "" {
		c.SearchConfig.BaseURL = d.SearchConfig.BaseURL
	}
	if c.SearchConfig.Count == 0 {
		c.SearchConfig.Count = d.SearchConfig.Count
	}
	if c.SearchConfig.MaxResults == 0 {
		c.SearchConfig.MaxResults = d.SearchConfig.MaxResults
	}
	if c.SearchConfig.TimeoutSeconds == 0 {
		c.SearchConfig.TimeoutSeconds = d.SearchConfig.TimeoutSeconds
	}
	if c.LLMConfig.Provider == "" {
		c.LLMConfig.Provider = d.LLMConfig.Provider
	}
	if c.LLMConfig.Model == "" {
		c.LLMConfig.Model = DefaultLLMModel(c.LLMConfig.Provider)
	}
	if c.LLMConfig.TimeoutSeconds == 0 {
		c.LLMConfig.TimeoutSeconds = d.LLMConfig.TimeoutSeconds
	}
	if c.LLMConfig.ContentTemperature == nil {
		c.LLMConfig.ContentTemperature = d.LLMConfig.ContentTemperature
	}
	if c.LLMConfig.ImagePromptTemperature == nil {
		c.LLMConfig.ImagePromptTemperature = d.LLMConfig.ImagePromptTemperature
	}
	if c.LLMConfig.MaxTokens == 0 {
		c.LLMConfig.MaxTokens = d.LLMConfig.MaxTokens
	}
	if c.ImageConfig.Provider == "" {
		c.ImageConfig.Provider = d.ImageConfig.Provider
	}
	if c.ImageConfig.Model == "" {
		c.ImageConfig.Model = DefaultImageModel(c.ImageConfig.Provider)
	}
	if c.ImageConfig.AspectRatio == "" {
		c.ImageConfig.AspectRatio = d.ImageConfig.AspectRatio
	}
	if c.ImageConfig.Size == "" {
		c.ImageConfig.Size = d.ImageConfig.Size
	}
	if c.ImageConfig.TimeoutSeconds == 0 {
		c.ImageConfig.TimeoutSeconds = d.ImageConfig.TimeoutSeconds
	}
	if c.ImageConfig.MaxWidth == 0 {
		c.ImageConfig.MaxWidth = d.ImageConfig.MaxWidth
	}
	if c.ImageConfig.MaxHeight == 0 {
		c.ImageConfig.MaxHeight = d.ImageConfig.MaxHeight
	}
	if c.LinkedInConfig.BaseURL == "" {
		c.LinkedInConfig.BaseURL = d.LinkedInConfig.BaseURL
	}
	if c.LinkedInConfig.TimeoutSeconds == 0 {
		c.LinkedInConfig.TimeoutSeconds = d.LinkedInConfig.TimeoutSeconds
	}
	if c.LinkedInConfig.UploadTimeoutSeconds == 0 {
		c.LinkedInConfig.UploadTimeoutSeconds = d.LinkedInConfig.UploadTimeoutSeconds
	}
	if c.LedgerConfig.SQLitePath == "" {
		c.LedgerConfig.SQLitePath = d.LedgerConfig.SQLitePath
	}
	if c.ScheduleConfig.Timezone == "" {
		c.ScheduleConfig.Timezone = d.ScheduleConfig.Timezone
	}
	if c.GoogleCredentialsPath != "" && !filepath.IsAbs(c.GoogleCredentialsPath) {
		if abs, err := filepath.Abs(c.GoogleCredentialsPath); err == nil {
			c.GoogleCredentialsPath = abs
		}
	}
}

// resolvePaths anchors relative run-time paths in the work directory, the
// same place the stage files live.
func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.LogsDir, &c.SheetsConfig.TokenFile, &c.LedgerConfig.SQLitePath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = c.Path(*p)
		}
	}
}

func DefaultLLMModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	default:
		return "gemini-2.0-flash-exp"
	}
}

func DefaultImageModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-image-1"
	default:
		return "gemini-2.5-flash-image"
	}
}

// Path resolves a pipeline file name inside the work directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.WorkDir, name)
}

func (c *Config) StripsMarkdown() bool {
	return c.StripMarkdown == nil || *c.StripMarkdown
}

func Timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// ValidateContent checks what the content stage needs before any vendor call.
func (c *Config) ValidateContent() error {
	if err := validateProvider("llm", c.LLMConfig.Provider); err != nil {
		return err
	}
	if c.LLMConfig.APIKey == "" {
		return fmt.Errorf("%w: api key for llm provider %s not found in environment", ErrMissingConfig, c.LLMConfig.Provider)
	}
	if c.SearchConfig.APIKey == "" {
		return fmt.Errorf("%w: BRAVE_SEARCH_API_KEY not found in environment", ErrMissingConfig)
	}
	return nil
}

func (c *Config) ValidateImage() error {
	if c.ImageConfig.Provider != ProviderGemini && c.ImageConfig.Provider != ProviderOpenAI {
		return fmt.Errorf("%w: image provider %q not supported", ErrMissingConfig, c.ImageConfig.Provider)
	}
	if c.ImageConfig.APIKey == "" {
		return fmt.Errorf("%w: api key for image provider %s not found in environment", ErrMissingConfig, c.ImageConfig.Provider)
	}
	return nil
}

func (c *Config) ValidatePublish() error {
	if c.LinkedInConfig.AccessToken == "" {
		return fmt.Errorf("%w: LINKEDIN_ACCESS_TOKEN not found in environment", ErrMissingConfig)
	}
	if c.LinkedInConfig.PersonURN == "" {
		return fmt.Errorf("%w: LINKEDIN_PERSON_URN not found in environment", ErrMissingConfig)
	}
	return nil
}

func validateProvider(kind, provider string) error {
	switch provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return nil
	}
	return fmt.Errorf("%w: %s provider %q not supported", ErrMissingConfig, kind, provider)
}

func CreateDefaultConfig() error {
	defaultConfig := Default()
	defaultConfig.SheetsConfig.SpreadsheetID = "your-spreadsheet-id"
	defaultConfig.LinkedInConfig.PersonURN = "urn:li:person:YOUR_PERSON_URN_HERE"
	defaultConfig.LLMConfig.Model = DefaultLLMModel(defaultConfig.LLMConfig.Provider)
	defaultConfig.ImageConfig.Model = DefaultImageModel(defaultConfig.ImageConfig.Provider)

	configData, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(FileName, configData, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Println("Created default configuration.json file")
	fmt.Println("Secrets are read from the environment; edit the file for ids and tuning")

	return nil
}
