package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/debug"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/models"
)

type BraveSearchService struct {
	baseURL   string
	apiKey    string
	count     int
	freshness string
	client    *http.Client
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Age         string `json:"age"`
		} `json:"results"`
	} `json:"web"`
}

func NewBraveSearchService(cfg config.SearchConfig) *BraveSearchService {
	return &BraveSearchService{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		count:     cfg.Count,
		freshness: cfg.Freshness,
		client:    &http.Client{Timeout: config.Timeout(cfg.TimeoutSeconds)},
	}
}

// Search runs a single web search. One attempt, no retry.
func (s *BraveSearchService) Search(ctx context.Context, query string) ([]models.SearchSource, error) {
	op := logger.Get().StartOperation("brave_search")
	op.WithVendor("brave", "")
	op.WithContext("query", query)

	params := url.Values{}
	params.Set("q", query)
	if s.count > 0 {
		params.Set("count", strconv.Itoa(s.count))
	}
	if s.freshness != "" {
		params.Set("freshness", s.freshness)
	}
	endpoint := s.baseURL + "/web/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		op.Fail("Failed to create HTTP request", err)
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	debug.Printf("Brave Search Request - URL: %s", endpoint)

	resp, err := s.client.Do(req)
	if err != nil {
		op.Fail("HTTP request failed", err)
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	op.WithStatus(resp.StatusCode)

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("search API returned status %d: %s", resp.StatusCode, Snippet(bodyBytes, 300))
		op.Fail(fmt.Sprintf("Brave API Error - Status: %d", resp.StatusCode), err)
		return nil, err
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		op.Fail("Failed to decode response", err)
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	sources := make([]models.SearchSource, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		sources = append(sources, models.SearchSource{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
			Age:         r.Age,
		})
	}

	op.WithContext("result_count", len(sources))
	op.Complete(fmt.Sprintf("Search returned %d results", len(sources)))
	return sources, nil
}
