package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ecolens/backend/internal/assessment"
)

func TestSearchWithSerpAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want %q", got, "test-key")
		}
		if q := r.URL.Query().Get("q"); !strings.Contains(q, "life cycle assessment") {
			t.Errorf("query %q not framed as an LCA lookup", q)
		}
		fmt.Fprint(w, `{"organic_results": [
			{"title": "Aluminum LCA", "link": "https://example.org/al", "snippet": "12 kg CO2e per kg"},
			{"title": "Glass LCA", "link": "https://example.org/gl", "snippet": "1.3 kg CO2e per kg"}
		]}`)
	}))
	defer server.Close()

	c := NewClient("test-key", 5, time.Second)
	c.serpEndpoint = server.URL

	evidence, err := c.Search(context.Background(), "aluminum vs glass")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(evidence) != 2 {
		t.Fatalf("evidence = %d items, want 2", len(evidence))
	}
	if evidence[0].Source != "Aluminum LCA" || evidence[0].URL != "https://example.org/al" {
		t.Errorf("unexpected first item: %+v", evidence[0])
	}
	if evidence[0].RetrievedAt.IsZero() {
		t.Error("item has no retrieval timestamp")
	}
}

func TestSearchCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var results []string
		for i := 0; i < 10; i++ {
			results = append(results, fmt.Sprintf(`{"title": "Result %d", "link": "https://example.org/%d", "snippet": "data"}`, i, i))
		}
		fmt.Fprintf(w, `{"organic_results": [%s]}`, strings.Join(results, ","))
	}))
	defer server.Close()

	c := NewClient("test-key", 3, time.Second)
	c.serpEndpoint = server.URL

	evidence, err := c.Search(context.Background(), "steel")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(evidence) != 3 {
		t.Errorf("evidence = %d items, want 3", len(evidence))
	}
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient("test-key", 5, time.Second)
	c.serpEndpoint = server.URL

	_, err := c.Search(context.Background(), "steel")
	var retrievalErr *assessment.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("err = %v, want RetrievalError", err)
	}
}

func TestSearchRetriesRateLimit(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"organic_results": [{"title": "Result", "link": "https://example.org/1", "snippet": "data"}]}`)
	}))
	defer server.Close()

	c := NewClient("test-key", 5, 5*time.Second)
	c.serpEndpoint = server.URL
	c.rateLimitDelay = time.Millisecond

	evidence, err := c.Search(context.Background(), "steel")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
	if len(evidence) != 1 {
		t.Errorf("evidence = %d items, want 1", len(evidence))
	}
}

func TestSearchRateLimitExhausted(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient("test-key", 5, time.Second)
	c.serpEndpoint = server.URL
	c.rateLimitDelay = time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background(), "aluminum")
		done <- err
	}()

	select {
	case err := <-done:
		var retrievalErr *assessment.RetrievalError
		if !errors.As(err, &retrievalErr) {
			t.Fatalf("err = %v, want RetrievalError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Search did not terminate against a persistent 429")
	}

	if hits != rateLimitAttempts {
		t.Errorf("server hit %d times, want %d", hits, rateLimitAttempts)
	}
}

func TestSearchWithGoogleScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="g">
				<a href="https://example.org/bamboo"><h3>Bamboo LCA Study</h3></a>
				<div class="VwiC3b">Bamboo requires 120 L of water per kg.</div>
			</div>
			<div class="g">
				<a href="https://example.org/empty"><h3></h3></a>
			</div>
		</body></html>`)
	}))
	defer server.Close()

	c := NewClient("", 5, time.Second)
	c.googleEndpoint = server.URL

	evidence, err := c.Search(context.Background(), "bamboo")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(evidence) != 1 {
		t.Fatalf("evidence = %d items, want 1 (titleless results dropped)", len(evidence))
	}
	if evidence[0].Source != "Bamboo LCA Study" {
		t.Errorf("source = %q, want %q", evidence[0].Source, "Bamboo LCA Study")
	}
	if evidence[0].Snippet != "Bamboo requires 120 L of water per kg." {
		t.Errorf("snippet = %q", evidence[0].Snippet)
	}
}

func TestSearchEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results": []}`)
	}))
	defer server.Close()

	c := NewClient("test-key", 5, time.Second)
	c.serpEndpoint = server.URL

	evidence, err := c.Search(context.Background(), "unobtainium")
	if err != nil {
		t.Fatalf("empty result set must not fail: %v", err)
	}
	if len(evidence) != 0 {
		t.Errorf("evidence = %d items, want 0", len(evidence))
	}
}
