package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/debug"
)

// GoogleCredentialsJSON picks the first configured credential source:
// service account JSON from the environment, the credentials file, then the
// local authorized-user token file.
func GoogleCredentialsJSON(cfg *config.Config) ([]byte, string, error) {
	if cfg.GoogleCredentialsJSON != "" {
		return []byte(cfg.GoogleCredentialsJSON), "env:GOOGLE_SHEETS_CREDENTIALS", nil
	}
	if cfg.GoogleCredentialsPath != "" {
		data, err := os.ReadFile(cfg.GoogleCredentialsPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, cfg.GoogleCredentialsPath, nil
	}
	if cfg.SheetsConfig.TokenFile != "" {
		data, err := os.ReadFile(cfg.SheetsConfig.TokenFile)
		if err == nil {
			return data, cfg.SheetsConfig.TokenFile, nil
		}
		debug.Printf("token file %s not usable: %v", cfg.SheetsConfig.TokenFile, err)
	}
	return nil, "", fmt.Errorf("%w: no valid Google credentials found, set GOOGLE_SHEETS_CREDENTIALS with service account JSON", config.ErrMissingConfig)
}

func googleCredentials(ctx context.Context, cfg *config.Config, scopes ...string) (*google.Credentials, error) {
	data, source, err := GoogleCredentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(data, "type").Exists() {
		credentials, err := authorizedUserCredentials(ctx, data, scopes)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials from %s: %w", source, err)
		}
		debug.Printf("Google OAuth token loaded from %s", source)
		return credentials, nil
	}
	credentials, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from %s: %w", source, err)
	}
	debug.Printf("Google credentials loaded from %s", source)
	return credentials, nil
}

// authorizedToken is the token file written by the interactive OAuth flow of
// the Python client libraries. It has no "type" field.
type authorizedToken struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Expiry       string `json:"expiry"`
}

func authorizedUserCredentials(ctx context.Context, data []byte, scopes []string) (*google.Credentials, error) {
	var tok authorizedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	if tok.RefreshToken == "" || tok.ClientID == "" || tok.ClientSecret == "" {
		return nil, fmt.Errorf("token file needs refresh_token, client_id and client_secret")
	}

	endpoint := google.Endpoint
	if tok.TokenURI != "" {
		endpoint.TokenURL = tok.TokenURI
	}
	conf := &oauth2.Config{
		ClientID:     tok.ClientID,
		ClientSecret: tok.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	return &google.Credentials{
		TokenSource: conf.TokenSource(ctx, &oauth2.Token{
			AccessToken:  tok.Token,
			RefreshToken: tok.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       parseTokenExpiry(tok.Expiry),
		}),
	}, nil
}

// parseTokenExpiry accepts RFC 3339 and the zone-less UTC form. No expiry
// means the token never expires; an unparseable one forces a refresh.
func parseTokenExpiry(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Unix(0, 0)
}
