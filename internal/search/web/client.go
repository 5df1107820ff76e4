package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/pkg/logger"
)

// Client is the scout adapter over an external web-search capability. With a
// SerpAPI key it queries SerpAPI; without one it scrapes Google's result page.
// It does not retry transport failures and does not deduplicate sources; both
// belong to callers further up.
type Client struct {
	serpAPIKey string
	maxResults int
	httpClient *http.Client

	// endpoints are fields so tests can point the client at a local server.
	serpEndpoint   string
	googleEndpoint string

	rateLimitDelay time.Duration
}

func NewClient(serpAPIKey string, maxResults int, timeout time.Duration) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		serpAPIKey:     serpAPIKey,
		maxResults:     maxResults,
		httpClient:     &http.Client{Timeout: timeout},
		serpEndpoint:   "https://serpapi.com/search",
		googleEndpoint: "https://www.google.com/search",
		rateLimitDelay: time.Second,
	}
}

// Search retrieves up to maxResults evidence items for the query. An empty
// result set is returned as-is; only transport and protocol failures become
// RetrievalError.
func (c *Client) Search(ctx context.Context, query string) (assessment.EvidenceSet, error) {
	searchQuery := buildSearchQuery(query)
	logger.Info("Performing web search", zap.String("query", searchQuery))

	var (
		evidence assessment.EvidenceSet
		err      error
	)
	if c.serpAPIKey != "" {
		evidence, err = c.searchWithSerpAPI(ctx, searchQuery)
	} else {
		evidence, err = c.searchWithGoogle(ctx, searchQuery)
	}
	if err != nil {
		return nil, &assessment.RetrievalError{Cause: err}
	}

	logger.Info("Web search completed", zap.Int("results", len(evidence)))
	return evidence, nil
}

// buildSearchQuery frames the subject as a life-cycle assessment lookup.
func buildSearchQuery(query string) string {
	return fmt.Sprintf("life cycle assessment %s global warming potential water usage", query)
}

func (c *Client) searchWithSerpAPI(ctx context.Context, query string) (assessment.EvidenceSet, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("api_key", c.serpAPIKey)
	params.Add("num", fmt.Sprintf("%d", c.maxResults))

	endpoint := fmt.Sprintf("%s?%s", c.serpEndpoint, params.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var searchResp struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	now := time.Now()
	evidence := make(assessment.EvidenceSet, 0, len(searchResp.OrganicResults))
	for _, r := range searchResp.OrganicResults {
		if len(evidence) >= c.maxResults {
			break
		}
		evidence = append(evidence, assessment.EvidenceItem{
			Source:      r.Title,
			URL:         r.Link,
			Snippet:     r.Snippet,
			RetrievedAt: now,
		})
	}
	return evidence, nil
}

func (c *Client) searchWithGoogle(ctx context.Context, query string) (assessment.EvidenceSet, error) {
	searchURL := fmt.Sprintf("%s?q=%s&num=%d",
		c.googleEndpoint, url.QueryEscape(query), c.maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	now := time.Now()
	evidence := make(assessment.EvidenceSet, 0, c.maxResults)
	doc.Find("div.g").Each(func(i int, s *goquery.Selection) {
		if len(evidence) >= c.maxResults {
			return
		}

		title := s.Find("h3").Text()
		link, _ := s.Find("a").Attr("href")
		snippet := s.Find("div.VwiC3b").Text()

		if title != "" && link != "" {
			evidence = append(evidence, assessment.EvidenceItem{
				Source:      title,
				URL:         link,
				Snippet:     strings.TrimSpace(snippet),
				RetrievedAt: now,
			})
		}
	})
	return evidence, nil
}

// rateLimitAttempts caps how many times a 429 is honored before the call
// fails. The retriever must terminate even on a context with no deadline.
const rateLimitAttempts = 3

// get performs a GET with bounded backoff on 429, following the search
// provider's rate-limit signalling. Other non-200 statuses fail immediately.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	delay := c.rateLimitDelay
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to search: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt >= rateLimitAttempts {
				return nil, fmt.Errorf("search rate limited after %d attempts", attempt)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return body, nil
	}
}
