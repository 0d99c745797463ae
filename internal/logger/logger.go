package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WideEvent represents a comprehensive log event with all context
type WideEvent struct {
	// Core fields
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"` // info, warn, error, debug
	Message   string `json:"message"`
	Service   string `json:"service,omitempty"`
	Version   string `json:"version,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Operation string `json:"operation,omitempty"` // e.g. "fetch_themes", "linkedin_register_upload"

	// Performance
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Outcome
	Outcome    string `json:"outcome,omitempty"` // success, error, partial
	StatusCode int    `json:"status_code,omitempty"`

	// Vendor context
	Vendor string `json:"vendor,omitempty"`
	Model  string `json:"model,omitempty"`

	// Post context
	PostTitle        string `json:"post_title,omitempty"`
	PostContentChars int    `json:"post_content_chars,omitempty"`

	// Image context
	ImageProvider     string `json:"image_provider,omitempty"`
	ImagePath         string `json:"image_path,omitempty"`
	ImageBytes        int64  `json:"image_bytes,omitempty"`
	ImageFinishReason string `json:"image_finish_reason,omitempty"`

	// LinkedIn context
	AssetURN string `json:"asset_urn,omitempty"`
	PostID   string `json:"post_id,omitempty"`

	// Sheets context
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	ThemeCount    int    `json:"theme_count,omitempty"`

	// Error context
	Error *ErrorContext `json:"error,omitempty"`

	// Additional context (flexible)
	Context map[string]any `json:"context,omitempty"`
}

// ErrorContext provides detailed error information
type ErrorContext struct {
	Type      string `json:"type,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Retriable bool   `json:"retriable,omitempty"`
}

// Logger handles structured logging with wide events
type Logger struct {
	service         string
	version         string
	runID           string
	stage           string
	sampleRate      float64 // 0.0 to 1.0, percentage of successful events to log
	slowThresholdMs int64   // Always log operations slower than this
	out             io.Writer
	logFile         *os.File
	logFilePath     string
	mu              sync.Mutex
}

// NewLogger creates a logger writing JSON lines to stdout and, when logsDir
// is not empty, to a per-run file inside it.
func NewLogger(service, logsDir string) *Logger {
	l := &Logger{
		service:         service,
		runID:           uuid.NewString(),
		sampleRate:      1.0,
		slowThresholdMs: 5000,
		out:             os.Stdout,
	}

	if logsDir != "" {
		l.initLogFile(logsDir)
	}

	return l
}

// initLogFile creates a unique log file for this run
func (l *Logger) initLogFile(logsDir string) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		log.Printf("WARNING: Failed to create logs directory: %v", err)
		return
	}

	now := time.Now()
	timestamp := now.Format("2006-01-02T15-04-05")
	// Nanoseconds keep names unique when several stages start in the same second
	logFileName := fmt.Sprintf("run-%s-%09d.log", timestamp, now.Nanosecond())
	logFilePath := filepath.Join(logsDir, logFileName)

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("WARNING: Failed to open log file %s: %v", logFilePath, err)
		return
	}

	l.logFile = logFile
	l.logFilePath = logFilePath

	fmt.Fprintf(logFile, "=== Log run %s started at %s ===\n", l.runID, now.Format(time.RFC3339Nano))
}

// SetSampleRate sets the sampling rate for successful operations (0.0 to 1.0)
func (l *Logger) SetSampleRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	l.sampleRate = rate
}

// SetSlowThreshold sets the threshold in milliseconds for always logging slow operations
func (l *Logger) SetSlowThreshold(ms int64) {
	l.slowThresholdMs = ms
}

// SetStage tags every following event with the pipeline stage name.
func (l *Logger) SetStage(stage string) {
	l.mu.Lock()
	l.stage = stage
	l.mu.Unlock()
}

// SetOutput redirects the stdout stream; tests point it at a buffer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.out = w
	l.mu.Unlock()
}

func (l *Logger) RunID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runID
}

// NewRun starts a new run id for the following events. Long-lived processes
// call it once per pipeline run.
func (l *Logger) NewRun() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = uuid.NewString()
	if l.logFile != nil {
		fmt.Fprintf(l.logFile, "=== Log run %s started at %s ===\n", l.runID, time.Now().Format(time.RFC3339Nano))
	}
	return l.runID
}

// GetLogFilePath returns the path to the current log file
func (l *Logger) GetLogFilePath() string {
	return l.logFilePath
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		fmt.Fprintf(l.logFile, "=== Log run %s ended at %s ===\n", l.runID, time.Now().Format(time.RFC3339Nano))
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

// shouldSample determines if an event should be logged based on tail sampling rules
func (l *Logger) shouldSample(event *WideEvent) bool {
	if event.Level == "error" || event.Error != nil {
		return true
	}

	if event.DurationMs > 0 && event.DurationMs > l.slowThresholdMs {
		return true
	}

	if event.Level == "warn" {
		return true
	}

	if event.Outcome == "success" {
		return l.randomSample()
	}

	return true
}

// randomSample returns true based on the sample rate
func (l *Logger) randomSample() bool {
	if l.sampleRate >= 1.0 {
		return true
	}
	if l.sampleRate <= 0.0 {
		return false
	}
	now := time.Now().UnixNano()
	return (now % 1000) < int64(l.sampleRate*1000)
}

// emit logs the event if it passes sampling
func (l *Logger) emit(event *WideEvent) {
	if !l.shouldSample(event) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Service == "" {
		event.Service = l.service
	}
	if event.Version == "" {
		event.Version = l.version
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}
	if event.Stage == "" {
		event.Stage = l.stage
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	jsonBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("LOGGER ERROR: Failed to marshal event: %v", err)
		return
	}

	jsonLine := string(jsonBytes) + "\n"
	fmt.Fprint(l.out, jsonLine)

	if l.logFile != nil {
		if _, writeErr := l.logFile.WriteString(jsonLine); writeErr != nil {
			fmt.Fprintf(os.Stderr, "LOGGER ERROR: Failed to write to log file: %v\n", writeErr)
		} else {
			l.logFile.Sync()
		}
	}
}

// Info logs an informational event
func (l *Logger) Info(event *WideEvent) {
	event.Level = "info"
	if event.Outcome == "" {
		event.Outcome = "success"
	}
	l.emit(event)
}

// Warn logs a warning event
func (l *Logger) Warn(event *WideEvent) {
	event.Level = "warn"
	l.emit(event)
}

// Error logs an error event
func (l *Logger) Error(event *WideEvent) {
	event.Level = "error"
	event.Outcome = "error"
	l.emit(event)
}

// Debug logs a debug event
func (l *Logger) Debug(event *WideEvent) {
	event.Level = "debug"
	l.emit(event)
}

// StartOperation creates a new event and starts timing
func (l *Logger) StartOperation(operation string) *OperationTracker {
	return &OperationTracker{
		logger: l,
		event: &WideEvent{
			Operation: operation,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		},
		startTime: time.Now(),
	}
}

// OperationTracker tracks an operation and emits a wide event when completed
type OperationTracker struct {
	logger    *Logger
	event     *WideEvent
	startTime time.Time
}

// WithVendor names the external API the operation talks to
func (ot *OperationTracker) WithVendor(vendor, model string) *OperationTracker {
	ot.event.Vendor = vendor
	ot.event.Model = model
	return ot
}

// WithPost adds post context
func (ot *OperationTracker) WithPost(title string, contentChars int) *OperationTracker {
	ot.event.PostTitle = title
	ot.event.PostContentChars = contentChars
	return ot
}

// WithImage adds image generation context
func (ot *OperationTracker) WithImage(provider, path string, size int64, finishReason string) *OperationTracker {
	ot.event.ImageProvider = provider
	ot.event.ImagePath = path
	ot.event.ImageBytes = size
	ot.event.ImageFinishReason = finishReason
	return ot
}

// WithLinkedIn adds LinkedIn context
func (ot *OperationTracker) WithLinkedIn(assetURN, postID string) *OperationTracker {
	ot.event.AssetURN = assetURN
	ot.event.PostID = postID
	return ot
}

// WithSheets adds spreadsheet context
func (ot *OperationTracker) WithSheets(spreadsheetID string, themeCount int) *OperationTracker {
	ot.event.SpreadsheetID = spreadsheetID
	ot.event.ThemeCount = themeCount
	return ot
}

// WithStatus records the HTTP status code of a vendor call
func (ot *OperationTracker) WithStatus(code int) *OperationTracker {
	ot.event.StatusCode = code
	return ot
}

// WithError adds error context
func (ot *OperationTracker) WithError(err error) *OperationTracker {
	if err != nil {
		ot.event.Error = &ErrorContext{
			Type:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		}
		ot.event.Outcome = "error"
	}
	return ot
}

// WithContext adds arbitrary context
func (ot *OperationTracker) WithContext(key string, value any) *OperationTracker {
	if ot.event.Context == nil {
		ot.event.Context = make(map[string]any)
	}
	ot.event.Context[key] = value
	return ot
}

// Complete finishes the operation and logs the event
func (ot *OperationTracker) Complete(message string) {
	ot.event.DurationMs = time.Since(ot.startTime).Milliseconds()
	ot.event.Message = message
	if ot.event.Outcome == "" {
		ot.event.Outcome = "success"
	}
	ot.logger.Info(ot.event)
}

// Fail finishes the operation with an error
func (ot *OperationTracker) Fail(message string, err error) {
	ot.event.DurationMs = time.Since(ot.startTime).Milliseconds()
	ot.event.Message = message
	ot.WithError(err)
	ot.logger.Error(ot.event)
}

// Warn logs a warning event during the operation
func (ot *OperationTracker) Warn(event *WideEvent) {
	ot.event.DurationMs = time.Since(ot.startTime).Milliseconds()
	if event.Message != "" {
		ot.event.Message = event.Message
	}
	if event.Error != nil {
		ot.event.Error = event.Error
	}
	if event.Context != nil {
		if ot.event.Context == nil {
			ot.event.Context = make(map[string]any)
		}
		for k, v := range event.Context {
			ot.event.Context[k] = v
		}
	}
	if ot.event.Outcome == "" {
		ot.event.Outcome = "partial"
	}
	ot.logger.Warn(ot.event)
}

// Global logger instance
var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// Init initializes the global logger
func Init(service, logsDir string) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger != nil {
		defaultLogger.Close()
	}
	defaultLogger = NewLogger(service, logsDir)
	return defaultLogger
}

// Get returns the global logger instance. Without Init it logs to stdout only.
func Get() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger("linkedin-autopilot-go", "")
	}
	return defaultLogger
}

// Close closes the global logger's log file
func Close() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}
