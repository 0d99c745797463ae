package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"linkedin-autopilot-go/internal/content"
	"linkedin-autopilot-go/internal/drive"
	"linkedin-autopilot-go/internal/imagegen"
	"linkedin-autopilot-go/internal/linkedin"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
	"linkedin-autopilot-go/internal/utils"
)

// FetchThemes reads the recent themes and writes used_themes.json. Sheet
// failures produce an empty list, not an error.
func (p *Processor) FetchThemes(ctx context.Context) error {
	limit := p.cfg.SheetsConfig.ThemeLimit
	used := p.recentThemes(ctx)

	snapshot := models.ThemeSnapshot{
		Themes:    used,
		Limit:     limit,
		FetchedAt: p.now().UTC(),
	}
	if err := utils.WriteJSON(p.path(UsedThemesFile), snapshot); err != nil {
		return err
	}

	log.Printf("Retrieved %d used themes", len(used))
	for i, theme := range used {
		log.Printf("  %d. %s", i+1, theme)
	}
	return nil
}

func (p *Processor) usedThemes(ctx context.Context) []string {
	var snapshot models.ThemeSnapshot
	err := utils.ReadJSON(p.path(UsedThemesFile), &snapshot)
	if err == nil {
		return snapshot.Themes
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: ignoring unreadable %s: %v", UsedThemesFile, err)
	}
	return p.recentThemes(ctx)
}

// recentThemes reads the theme sheet. When the sheet yields nothing, the
// titles of recent publications from the ledger are used instead, oldest first.
func (p *Processor) recentThemes(ctx context.Context) []string {
	limit := p.cfg.SheetsConfig.ThemeLimit
	used := p.themeHistory().FetchRecent(ctx, limit)
	if len(used) > 0 || limit <= 0 {
		return used
	}

	ledger := p.publicationLedger()
	if ledger == nil {
		return used
	}
	pubs, err := ledger.RecentPublications(ctx, limit)
	if err != nil {
		log.Printf("Warning: could not read publication ledger: %v", err)
		return used
	}

	titles := make([]string, 0, len(pubs))
	for i := len(pubs) - 1; i >= 0; i-- {
		if pubs[i].Title != "" {
			titles = append(titles, pubs[i].Title)
		}
	}
	if len(titles) > 0 {
		log.Printf("Theme sheet returned no themes, using %d titles from the publication ledger", len(titles))
	}
	return titles
}

// GenerateContent researches, writes the post and its image prompt to linkedin_post.json.
func (p *Processor) GenerateContent(ctx context.Context) error {
	if err := p.cfg.ValidateContent(); err != nil {
		return err
	}

	gen, err := p.contentGenerator()
	if err != nil {
		return err
	}

	used := p.usedThemes(ctx)
	sources := gen.Research(ctx)

	draft, parsed, err := gen.GeneratePost(ctx, sources, used)
	if err != nil {
		return err
	}
	if !parsed {
		log.Printf("Warning: Could not parse JSON from model response. Using fallback structure.")
	}
	log.Printf("Post generated: %s (%d chars)", draft.Title, len(draft.Content))

	imagePrompt, err := gen.GenerateImagePrompt(ctx, draft.Content)
	if err != nil {
		return err
	}

	post := models.Post{
		Title:       draft.Title,
		Content:     draft.Content,
		ImagePrompt: imagePrompt,
		Sources:     sources,
		GeneratedAt: p.now().UTC().Format(time.RFC3339),
	}
	if err := utils.WriteJSON(p.path(PostFile), post); err != nil {
		return err
	}

	log.Printf("Output saved to %s", p.path(PostFile))
	return nil
}

func (p *Processor) readPost() (*models.Post, error) {
	var post models.Post
	if err := utils.ReadJSON(p.path(PostFile), &post); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found, run %s first", ErrMissingInput, PostFile, StageGenerateContent)
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	return &post, nil
}

// GenerateImage renders the post's image prompt. Vendor failures are
// recorded as image_generated=false and do not fail the stage.
func (p *Processor) GenerateImage(ctx context.Context) error {
	post, err := p.readPost()
	if err != nil {
		return err
	}
	if post.ImagePrompt == "" {
		return fmt.Errorf("%w: no image_prompt found in %s", ErrMissingInput, PostFile)
	}
	if err := p.cfg.ValidateImage(); err != nil {
		return err
	}

	gen, err := p.imageGenerator()
	if err != nil {
		return err
	}

	op := logger.Get().StartOperation("image_stage")
	op.WithPost(post.Title, len(post.Content))

	result := models.ImageResult{Provider: gen.Provider()}
	imagePath := p.path(ImageFile)

	img, genErr := gen.Generate(ctx, post.ImagePrompt)
	var size int64
	if genErr == nil {
		size, genErr = p.imageService.SaveImage(img.Data, imagePath)
	}

	if genErr != nil {
		result.Success = false
		result.FinishReason = failureReason(img, genErr)
		result.Error = genErr.Error()
		post.ImagePath = nil
		post.ImageGenerated = models.BoolPtr(false)
		// a previous run's image must not be published with this post
		if rmErr := os.Remove(imagePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Printf("Warning: could not remove stale %s: %v", imagePath, rmErr)
		}
		log.Printf("Image generation failed, proceeding without image: %v", genErr)
	} else {
		result.Success = true
		result.FinishReason = img.FinishReason
		result.ImagePath = models.StringPtr(imagePath)
		post.ImagePath = models.StringPtr(imagePath)
		post.ImageGenerated = models.BoolPtr(true)

		if uploader := p.driveUploader(ctx); uploader != nil {
			if data, err := os.ReadFile(imagePath); err == nil {
				if id, err := drive.ArchiveImage(ctx, uploader, p.cfg.ImageConfig.DriveFolderID, post.Title, data, p.now()); err == nil {
					result.DriveFileID = id
				}
			}
		}
	}

	if err := utils.WriteJSON(p.path(PostFile), post); err != nil {
		op.Fail("Failed to update post file", err)
		return err
	}
	if err := utils.WriteJSON(p.path(ImageResultFile), result); err != nil {
		op.Fail("Failed to write image result", err)
		return err
	}

	op.WithImage(result.Provider, imagePath, size, result.FinishReason)
	if result.Success {
		op.Complete("Image generated and saved")
	} else {
		op.Warn(&logger.WideEvent{Message: "Image generation failed, post continues without image"})
	}
	return nil
}

func failureReason(img imagegen.Image, err error) string {
	if errors.Is(err, imagegen.ErrNoImage) {
		if img.FinishReason != "" {
			return img.FinishReason
		}
		return models.FinishReasonNoImage
	}
	if img.FinishReason != "" && img.FinishReason != models.FinishReasonStop {
		return img.FinishReason
	}
	return models.FinishReasonError
}

// postImage returns the image bytes to attach, or nil for a text-only post.
func (p *Processor) postImage(post *models.Post) []byte {
	if post.ImageGenerated != nil && !*post.ImageGenerated {
		log.Printf("Image generation reported failure, will post text only")
		return nil
	}

	path := p.path(ImageFile)
	if post.ImagePath != nil && *post.ImagePath != "" {
		path = *post.ImagePath
	}
	if !utils.FileHasContent(path) {
		log.Printf("No image file found at %s, will post text only", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: Failed to load image file: %v", err)
		return nil
	}
	log.Printf("Image file detected: %s (%d bytes)", path, len(data))
	return data
}

// Publish posts the content with its image. A failed create call writes
// the result file and returns an error.
func (p *Processor) Publish(ctx context.Context) error {
	post, err := p.readPost()
	if err != nil {
		return err
	}
	if post.Content == "" {
		return fmt.Errorf("%w: no content found in %s", ErrMissingInput, PostFile)
	}
	if err := p.cfg.ValidatePublish(); err != nil {
		return err
	}

	image := p.postImage(post)
	author := p.cfg.LinkedInConfig.PersonURN

	res, pubErr := linkedin.Publish(ctx, p.linkedInAPI(ctx), author, post.Content, post.Title, image)
	if pubErr != nil {
		failed := models.PublishResult{
			Success:   false,
			Published: false,
			Title:     post.Title,
			AssetURN:  res.AssetURN,
			Error:     "Failed to publish post to LinkedIn: " + pubErr.Error(),
		}
		if err := utils.WriteJSON(p.path(PublishResultFile), failed); err != nil {
			log.Printf("Warning: could not write %s: %v", PublishResultFile, err)
		}
		return pubErr
	}

	now := p.now()
	result := models.PublishResult{
		Success:      true,
		Published:    true,
		HasImage:     res.HasImage,
		Title:        post.Title,
		PostID:       res.PostID,
		AssetURN:     res.AssetURN,
		PublishedAt:  now.UTC().Format(time.RFC3339),
		PublishedDay: content.LocalizedDate(now, p.cfg.Locale),
	}

	if ledger := p.publicationLedger(); ledger != nil {
		entry := models.Publication{
			RunID:       logger.Get().RunID(),
			Title:       post.Title,
			PostID:      res.PostID,
			AssetURN:    res.AssetURN,
			HasImage:    res.HasImage,
			PublishedAt: now,
		}
		if err := ledger.RecordPublication(ctx, entry); err != nil {
			log.Printf("Warning: failed to record publication: %v", err)
		}
	}

	if err := utils.WriteJSON(p.path(PublishResultFile), result); err != nil {
		return err
	}
	log.Printf("Post published successfully! ID: %s", res.PostID)
	return nil
}

// RecordTheme appends the published title to the theme sheet. A failed
// append is only a warning because the post is already live.
func (p *Processor) RecordTheme(ctx context.Context) error {
	var result models.PublishResult
	if err := utils.ReadJSON(p.path(PublishResultFile), &result); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s not found, run %s first", ErrMissingInput, PublishResultFile, StagePublish)
		}
		return fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	if !result.Published {
		return fmt.Errorf("%w: %s reports nothing was published", ErrMissingInput, PublishResultFile)
	}
	if result.Title == "" {
		return fmt.Errorf("%w: no title in %s", ErrMissingInput, PublishResultFile)
	}
	if result.SheetsUpdated != nil && *result.SheetsUpdated {
		log.Printf("Theme %q already recorded, skipping", result.Title)
		return nil
	}

	ok := p.themeHistory().Append(ctx, result.Title)
	result.SheetsUpdated = models.BoolPtr(ok)
	if ok {
		log.Printf("Google Sheets updated successfully")
	} else {
		log.Printf("Warning: Failed to update Google Sheets, but post was published")
	}

	return utils.WriteJSON(p.path(PublishResultFile), result)
}
