package linkedin

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"

	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/services"
)

func init() {
	logger.Init("linkedin-test", "").SetOutput(io.Discard)
}

type fakeAPI struct {
	registerErr error
	uploadErr   error
	createErr   error

	registered int
	uploaded   []byte
	posts      []*services.UGCPost
}

func (f *fakeAPI) RegisterUpload(_ context.Context, owner string) (*services.UploadSlot, error) {
	f.registered++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &services.UploadSlot{UploadURL: "https://upload.test/1", AssetURN: "urn:li:digitalmediaAsset:1"}, nil
}

func (f *fakeAPI) UploadImage(_ context.Context, _ string, data []byte, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = data
	return nil
}

func (f *fakeAPI) CreatePost(_ context.Context, post *services.UGCPost) (string, error) {
	f.posts = append(f.posts, post)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "urn:li:share:9", nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPublishWithImage(t *testing.T) {
	api := &fakeAPI{}
	img := pngBytes(t)

	res, err := Publish(context.Background(), api, "urn:li:person:1", "body", "Title", img)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasImage || res.AssetURN != "urn:li:digitalmediaAsset:1" || res.PostID != "urn:li:share:9" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !bytes.Equal(api.uploaded, img) || !api.posts[0].HasMedia() {
		t.Fatal("image was not attached")
	}
}

func TestPublishInvalidImageFallsBackToText(t *testing.T) {
	api := &fakeAPI{}
	res, err := Publish(context.Background(), api, "urn:li:person:1", "body", "Title", []byte("definitely not an image"))
	if err != nil {
		t.Fatalf("expected text-only success, got %v", err)
	}
	if res.HasImage || res.ImageError == nil || res.PostID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if api.registered != 0 {
		t.Fatal("invalid image should not reach registerUpload")
	}
	if api.posts[0].HasMedia() {
		t.Fatal("post should be text-only")
	}
}

func TestPublishUploadFailuresFallBack(t *testing.T) {
	for name, api := range map[string]*fakeAPI{
		"register": {registerErr: errors.New("403")},
		"upload":   {uploadErr: errors.New("timeout")},
	} {
		res, err := Publish(context.Background(), api, "urn:li:person:1", "body", "Title", pngBytes(t))
		if err != nil {
			t.Fatalf("%s: expected fallback, got %v", name, err)
		}
		if res.HasImage || res.AssetURN != "" || api.posts[0].HasMedia() {
			t.Fatalf("%s: image should be dropped, got %+v", name, res)
		}
	}
}

func TestPublishCreateFailureIsFatal(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("500")}
	res, err := Publish(context.Background(), api, "urn:li:person:1", "body", "Title", pngBytes(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if res.AssetURN == "" {
		t.Fatal("uploaded asset should still be reported")
	}
}

func TestPublishTextOnly(t *testing.T) {
	api := &fakeAPI{}
	res, err := Publish(context.Background(), api, "urn:li:person:1", "body", "Title", nil)
	if err != nil || res.HasImage || res.ImageError != nil {
		t.Fatalf("unexpected %+v %v", res, err)
	}
}
