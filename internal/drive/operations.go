package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkedin-autopilot-go/internal/debug"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/utils"
)

// Uploader stores a file in a Drive folder and returns its id.
type Uploader interface {
	UploadFile(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error)
}

const maxSlugRunes = 60

// ArchiveName builds the Drive file name for a post image, e.g. 2026-03-02-my-post-title.png.
func ArchiveName(title string, at time.Time) string {
	slug := strings.ReplaceAll(utils.NormalizeTheme(title), " ", "-")
	if slug == "" {
		slug = "post"
	}
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = strings.TrimRight(string(runes[:maxSlugRunes]), "-")
	}
	return fmt.Sprintf("%s-%s.png", at.Format("2006-01-02"), slug)
}

// ArchiveImage copies the generated image to folderID. Callers treat a
// failure as a warning; the local file stays the source for publishing.
func ArchiveImage(ctx context.Context, uploader Uploader, folderID, title string, data []byte, at time.Time) (string, error) {
	op := logger.Get().StartOperation("drive_archive_image")
	op.WithContext("folder_id", folderID)

	if folderID == "" {
		err := fmt.Errorf("no drive folder configured")
		op.Fail("Skipping archive", err)
		return "", err
	}
	if len(data) == 0 {
		err := fmt.Errorf("image is empty")
		op.Fail("Skipping archive", err)
		return "", err
	}

	name := ArchiveName(title, at)
	debug.Printf("Archiving %s (%d bytes) to Drive folder %s", name, len(data), folderID)

	fileID, err := uploader.UploadFile(ctx, folderID, name, "image/png", data)
	if err != nil {
		op.Fail("Failed to upload image to Drive", err)
		return "", err
	}

	op.WithContext("drive_file_id", fileID)
	op.WithImage("", name, int64(len(data)), "")
	op.Complete(fmt.Sprintf("Archived image to Drive as %s", name))
	return fileID, nil
}
