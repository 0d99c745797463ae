// Package linkedin runs the publish flow: optional image upload, then the post.
package linkedin

import (
	"context"
	"fmt"
	"log"

	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/services"
	"linkedin-autopilot-go/internal/utils"
)

// API is the subset of the LinkedIn REST surface the publisher uses.
type API interface {
	RegisterUpload(ctx context.Context, owner string) (*services.UploadSlot, error)
	UploadImage(ctx context.Context, uploadURL string, data []byte, contentType string) error
	CreatePost(ctx context.Context, post *services.UGCPost) (string, error)
}

type Result struct {
	PostID   string
	AssetURN string
	HasImage bool
	// ImageError is why an offered image was dropped; the post still went out.
	ImageError error
}

// UploadImage registers an upload slot for owner and PUTs data into it.
func UploadImage(ctx context.Context, api API, owner string, data []byte) (string, error) {
	contentType, ok := utils.DetectImageType(data)
	if !ok {
		return "", fmt.Errorf("image data is not a supported image (%s)", contentType)
	}

	slot, err := api.RegisterUpload(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("failed to register upload: %w", err)
	}

	if err := api.UploadImage(ctx, slot.UploadURL, data, contentType); err != nil {
		return "", fmt.Errorf("failed to upload image binary: %w", err)
	}

	return slot.AssetURN, nil
}

// Publish posts text as author. When image is non-empty it is uploaded
// first; any upload problem drops the image and the post goes out text-only.
// Only a failed create call is returned as an error.
func Publish(ctx context.Context, api API, author, text, title string, image []byte) (Result, error) {
	op := logger.Get().StartOperation("linkedin_publish")
	op.WithPost(title, len(text))

	var result Result
	if len(image) > 0 {
		assetURN, err := UploadImage(ctx, api, author, image)
		if err != nil {
			result.ImageError = err
			log.Printf("Image upload failed, publishing text-only: %v", err)
			op.WithContext("image_fallback", err.Error())
		} else {
			result.AssetURN = assetURN
			result.HasImage = true
		}
	}

	postID, err := api.CreatePost(ctx, services.NewUGCPost(author, text, result.AssetURN, title))
	if err != nil {
		op.WithLinkedIn(result.AssetURN, "")
		op.Fail("Failed to publish post", err)
		return result, fmt.Errorf("failed to create post: %w", err)
	}
	result.PostID = postID

	op.WithLinkedIn(result.AssetURN, postID)
	op.WithContext("has_image", result.HasImage)
	if result.ImageError != nil {
		op.Warn(&logger.WideEvent{Message: "Post published without image"})
	} else {
		op.Complete(fmt.Sprintf("Post published (ID: %s)", postID))
	}
	return result, nil
}
