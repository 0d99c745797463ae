package services

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
)

func init() {
	logger.Init("services-test", "").SetOutput(io.Discard)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func linkedInConfig(baseURL string) config.LinkedInConfig {
	return config.LinkedInConfig{
		AccessToken:          "tok",
		PersonURN:            "urn:li:person:abc",
		BaseURL:              baseURL,
		TimeoutSeconds:       5,
		UploadTimeoutSeconds: 5,
	}
}

func TestLinkedInRegisterUploadAndCreate(t *testing.T) {
	var uploaded []byte
	var created map[string]any
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		switch {
		case r.URL.Path == "/assets" && r.URL.Query().Get("action") == "registerUpload":
			if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
				t.Errorf("missing restli header")
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "urn:li:digitalmediaRecipe:feedshare-image") {
				t.Errorf("register body missing recipe: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"value":{"uploadMechanism":{"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest":{"uploadUrl":"`+srv.URL+`/upload/1"}},"asset":"urn:li:digitalmediaAsset:1"}}`)
		case r.URL.Path == "/upload/1" && r.Method == http.MethodPut:
			uploaded, _ = io.ReadAll(r.Body)
			if r.Header.Get("Content-Type") != "image/png" {
				t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
			}
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/ugcPosts":
			json.NewDecoder(r.Body).Decode(&created)
			w.Header().Set("x-restli-id", "urn:li:share:42")
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	svc := NewLinkedInService(ctx, linkedInConfig(srv.URL))

	slot, err := svc.RegisterUpload(ctx, "urn:li:person:abc")
	if err != nil {
		t.Fatalf("RegisterUpload: %v", err)
	}
	if slot.AssetURN != "urn:li:digitalmediaAsset:1" || !strings.HasSuffix(slot.UploadURL, "/upload/1") {
		t.Fatalf("unexpected slot %+v", slot)
	}
	if err := svc.UploadImage(ctx, slot.UploadURL, []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if string(uploaded) != "png-bytes" {
		t.Fatalf("upload body %q", uploaded)
	}

	postID, err := svc.CreatePost(ctx, NewUGCPost("urn:li:person:abc", "hello", slot.AssetURN, "Title"))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if postID != "urn:li:share:42" {
		t.Fatalf("unexpected post id %q", postID)
	}
	share := created["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	if share["shareMediaCategory"] != "IMAGE" {
		t.Fatalf("expected IMAGE category, got %v", share["shareMediaCategory"])
	}
	if created["visibility"].(map[string]any)["com.linkedin.ugc.MemberNetworkVisibility"] != "PUBLIC" {
		t.Fatalf("unexpected visibility %v", created["visibility"])
	}
}

func TestLinkedInCreatePostErrorAndMissingHeader(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"expired token"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ctx := context.Background()
	svc := NewLinkedInService(ctx, linkedInConfig(srv.URL))
	post := NewUGCPost("urn:li:person:abc", "text only", "", "")
	if post.HasMedia() {
		t.Fatal("text post should have no media")
	}

	if _, err := svc.CreatePost(ctx, post); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}

	fail = false
	id, err := svc.CreatePost(ctx, post)
	if err != nil {
		t.Fatal(err)
	}
	if id != UnknownPostID {
		t.Fatalf("expected %q, got %q", UnknownPostID, id)
	}
}

func TestLinkedInRegisterMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"value":{}}`)
	}))
	defer srv.Close()

	svc := NewLinkedInService(context.Background(), linkedInConfig(srv.URL))
	if _, err := svc.RegisterUpload(context.Background(), "urn:li:person:abc"); err == nil {
		t.Fatal("expected error for missing upload url")
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			t.Errorf("missing subscription token")
		}
		q := r.URL.Query()
		if r.URL.Path != "/web/search" || q.Get("q") != "ai agents" || q.Get("count") != "3" || q.Get("freshness") != "pw" {
			t.Errorf("unexpected request %s", r.URL)
		}
		io.WriteString(w, `{"web":{"results":[{"title":"Agents ship","url":"https://x.test/a","description":"desc","age":"2 days ago"}]}}`)
	}))
	defer srv.Close()

	svc := NewBraveSearchService(config.SearchConfig{APIKey: "brave-key", BaseURL: srv.URL + "/", Count: 3, Freshness: "pw", TimeoutSeconds: 5})
	results, err := svc.Search(context.Background(), "ai agents")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://x.test/a" || results[0].Age != "2 days ago" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestBraveSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewBraveSearchService(config.SearchConfig{APIKey: "k", BaseURL: srv.URL, TimeoutSeconds: 5})
	if _, err := svc.Search(context.Background(), "q"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestGeminiGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	svc := NewGeminiService("g-key", srv.URL, 5*time.Second)
	body, err := svc.GenerateContent(context.Background(), "gemini-test", map[string]any{"contents": []any{}})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if string(body) != `{"candidates":[]}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestGeminiHTTPErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad model"}}`)
	}))
	defer srv.Close()

	svc := NewGeminiService("g-key", srv.URL, 5*time.Second)
	_, err := svc.GenerateContent(context.Background(), "m", map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "bad model") {
		t.Fatalf("expected error with body, got %v", err)
	}
}

func TestSnippet(t *testing.T) {
	if Snippet([]byte("abc"), 5) != "abc" {
		t.Fatal("short body should be unchanged")
	}
	if Snippet([]byte("abcdef"), 3) != "abc..." {
		t.Fatal("long body should be cut")
	}
}

func TestGoogleSheetsReadAndAppend(t *testing.T) {
	var appended map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, ":append") {
			if r.URL.Query().Get("valueInputOption") != "RAW" || r.URL.Query().Get("insertDataOption") != "INSERT_ROWS" {
				t.Errorf("unexpected append options %s", r.URL.RawQuery)
			}
			json.NewDecoder(r.Body).Decode(&appended)
			io.WriteString(w, `{"updates":{"updatedCells":1}}`)
			return
		}
		io.WriteString(w, `{"range":"Sheet1!A1:A3","values":[["Theme"],["A"],["B"]]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := NewGoogleSheetsServiceWithOptions(ctx, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	rows, err := svc.ReadRange(ctx, "sheet-id", "Sheet1!A:A")
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(rows) != 3 || rows[2][0] != "B" {
		t.Fatalf("unexpected rows %v", rows)
	}

	cells, err := svc.AppendRow(ctx, "sheet-id", "Sheet1!A:A", []interface{}{"C"})
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if cells != 1 {
		t.Fatalf("expected 1 updated cell, got %d", cells)
	}
	values := appended["values"].([]any)
	if values[0].([]any)[0] != "C" {
		t.Fatalf("unexpected append body %v", appended)
	}
}

func TestGoogleDriveUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "files") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"file-1","name":"linkedin_image.png"}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := NewGoogleDriveServiceWithOptions(ctx, option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.UploadFile(ctx, "folder", "linkedin_image.png", "image/png", []byte("data"))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if id != "file-1" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestGoogleCredentialsMissing(t *testing.T) {
	cfg := config.Default()
	cfg.SheetsConfig.TokenFile = filepath.Join(t.TempDir(), "absent.json")
	if _, _, err := GoogleCredentialsJSON(cfg); err == nil {
		t.Fatal("expected error without credentials")
	}
	cfg.GoogleCredentialsJSON = `{"type":"service_account"}`
	data, source, err := GoogleCredentialsJSON(cfg)
	if err != nil || source != "env:GOOGLE_SHEETS_CREDENTIALS" || len(data) == 0 {
		t.Fatalf("unexpected result %q %q %v", data, source, err)
	}
}

func writeAuthorizedToken(t *testing.T, tokenURI, expiry string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	token := map[string]any{
		"token":         "ya29.cached",
		"refresh_token": "1//refresh",
		"token_uri":     tokenURI,
		"client_id":     "client.apps.googleusercontent.com",
		"client_secret": "secret",
		"scopes":        []string{"https://www.googleapis.com/auth/spreadsheets"},
		"expiry":        expiry,
	}
	data, err := json.Marshal(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGoogleCredentialsAuthorizedUserTokenFile(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	future := time.Now().Add(time.Hour).UTC().Format("2006-01-02T15:04:05.000000") + "Z"
	cfg.SheetsConfig.TokenFile = writeAuthorizedToken(t, "https://oauth2.googleapis.com/token", future)

	creds, err := googleCredentials(ctx, cfg, "https://www.googleapis.com/auth/spreadsheets")
	if err != nil {
		t.Fatalf("googleCredentials: %v", err)
	}
	tok, err := creds.TokenSource.Token()
	if err != nil || tok.AccessToken != "ya29.cached" {
		t.Fatalf("expected cached access token, got %+v %v", tok, err)
	}

	if _, err := NewGoogleSheetsService(ctx, cfg); err != nil {
		t.Fatalf("NewGoogleSheetsService with token file: %v", err)
	}
}

func TestGoogleCredentialsAuthorizedUserRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("refresh_token") != "1//refresh" {
			http.Error(w, "bad refresh", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"ya29.fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.SheetsConfig.TokenFile = writeAuthorizedToken(t, srv.URL, "2020-01-01T00:00:00.000000")

	creds, err := googleCredentials(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := creds.TokenSource.Token()
	if err != nil || tok.AccessToken != "ya29.fresh" {
		t.Fatalf("expected refreshed token, got %+v %v", tok, err)
	}
}

func TestGoogleCredentialsTokenFileWithoutRefreshToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(`{"token":"ya29.only"}`), 0600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.SheetsConfig.TokenFile = path
	if _, err := googleCredentials(context.Background(), cfg); err == nil {
		t.Fatal("expected error for incomplete token file")
	}
}

func TestImageNormalizeFitsBox(t *testing.T) {
	svc := NewImageServiceWithConfig(1200, 1200)
	out, size, err := svc.Normalize(testPNG(t, 2400, 1200))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if size.X != 1200 || size.Y != 600 {
		t.Fatalf("unexpected size %v", size)
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not png: %v", err)
	}

	_, size, err = svc.Normalize(testPNG(t, 100, 50))
	if err != nil || size.X != 100 || size.Y != 50 {
		t.Fatalf("small image should keep its size, got %v %v", size, err)
	}

	if _, _, err := svc.Normalize([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestImageSaveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "linkedin_image.png")
	n, err := NewImageServiceWithConfig(64, 64).SaveImage(testPNG(t, 128, 128), path)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if n == 0 {
		t.Fatal("expected bytes written")
	}
}

func TestLedgerSQLite(t *testing.T) {
	ledger, err := NewLedgerService(config.LedgerConfig{SQLitePath: filepath.Join(t.TempDir(), "data", "pipeline.db")})
	if err != nil {
		t.Fatalf("NewLedgerService: %v", err)
	}
	defer ledger.Close()

	if ledger.Driver() != "sqlite" {
		t.Fatalf("expected sqlite driver, got %s", ledger.Driver())
	}

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"First", "Second"} {
		p := models.Publication{RunID: title, Title: title, PostID: "urn:li:share:" + title, PublishedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := ledger.RecordPublication(ctx, p); err != nil {
			t.Fatalf("RecordPublication: %v", err)
		}
	}
	// same post id replaces the row
	if err := ledger.RecordPublication(ctx, models.Publication{RunID: "retry", Title: "First v2", PostID: "urn:li:share:First", HasImage: true, PublishedAt: base}); err != nil {
		t.Fatal(err)
	}
	// posts without an id never collide, even within one run
	for i := 0; i < 2; i++ {
		p := models.Publication{RunID: "same-run", Title: "Untracked", PostID: UnknownPostID, PublishedAt: base.Add(-time.Duration(i+1) * time.Hour)}
		if err := ledger.RecordPublication(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	pubs, err := ledger.RecentPublications(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPublications: %v", err)
	}
	if len(pubs) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(pubs))
	}
	if pubs[0].Title != "Second" || pubs[1].Title != "First v2" || !pubs[1].HasImage || pubs[1].RunID != "retry" {
		t.Fatalf("unexpected order or content %+v", pubs)
	}
	if pubs[2].PostID != "" || pubs[3].Title != "Untracked" {
		t.Fatalf("unknown post ids should be stored empty %+v", pubs[2:])
	}
	if !pubs[0].PublishedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("timestamp not round-tripped: %v", pubs[0].PublishedAt)
	}
}
