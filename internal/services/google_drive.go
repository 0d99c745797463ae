package services

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"linkedin-autopilot-go/internal/config"
)

type GoogleDriveService struct {
	service *drive.Service
}

func NewGoogleDriveService(ctx context.Context, cfg *config.Config) (*GoogleDriveService, error) {
	credentials, err := googleCredentials(ctx, cfg, drive.DriveFileScope)
	if err != nil {
		return nil, err
	}

	service, err := drive.NewService(ctx, option.WithCredentials(credentials))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GoogleDriveService{
		service: service,
	}, nil
}

func NewGoogleDriveServiceWithOptions(ctx context.Context, opts ...option.ClientOption) (*GoogleDriveService, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &GoogleDriveService{service: service}, nil
}

// UploadFile stores data as a new file inside folderID and returns the file id.
func (s *GoogleDriveService) UploadFile(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	file := &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}

	created, err := s.service.Files.Create(file).
		Media(bytes.NewReader(data)).
		SupportsAllDrives(true).
		Fields("id, name").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	log.Printf("Uploaded %s to Drive folder %s (ID: %s)", name, folderID, created.Id)
	return created.Id, nil
}
