package drive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"linkedin-autopilot-go/internal/logger"
)

func init() {
	logger.Init("drive-test", "").SetOutput(io.Discard)
}

type fakeUploader struct {
	name   string
	folder string
	err    error
}

func (f *fakeUploader) UploadFile(_ context.Context, folderID, name, _ string, _ []byte) (string, error) {
	f.folder, f.name = folderID, name
	if f.err != nil {
		return "", f.err
	}
	return "file-123", nil
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if got := ArchiveName("My Post: AI / Agents", at); got != "2026-03-02-my-post-ai-agents.png" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestArchiveNameTruncatesByRune(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	got := ArchiveName(strings.Repeat("жизнь ", 15), at)
	if !utf8.ValidString(got) {
		t.Fatalf("invalid UTF-8 name %q", got)
	}
	slug := strings.TrimSuffix(strings.TrimPrefix(got, "2026-03-02-"), ".png")
	if n := utf8.RuneCountInString(slug); n == 0 || n > 60 {
		t.Fatalf("unexpected slug length %d in %q", n, got)
	}
	if strings.HasSuffix(slug, "-") {
		t.Fatalf("slug should not end with a dash: %q", slug)
	}
}

func TestArchiveImage(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	up := &fakeUploader{}

	id, err := ArchiveImage(context.Background(), up, "folder-1", "Title", []byte("png"), at)
	if err != nil || id != "file-123" {
		t.Fatalf("ArchiveImage: %q %v", id, err)
	}
	if up.folder != "folder-1" || up.name != "2026-03-02-title.png" {
		t.Fatalf("unexpected upload %+v", up)
	}

	if _, err := ArchiveImage(context.Background(), up, "", "Title", []byte("png"), at); err == nil {
		t.Fatal("expected error without folder")
	}

	up.err = errors.New("quota")
	if _, err := ArchiveImage(context.Background(), up, "folder-1", "Title", []byte("png"), at); err == nil {
		t.Fatal("expected upload error")
	}
}
