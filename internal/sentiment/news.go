package sentiment

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const newsBaseURL = "https://news.google.com/rss/search"

// NewsFetcher pulls recent headlines for a ticker from Google News RSS
type NewsFetcher struct {
	client *http.Client
}

// NewNewsFetcher creates a news fetcher
func NewNewsFetcher() *NewsFetcher {
	return &NewsFetcher{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

// FetchHeadlines returns up to 5 unique recent headlines for the ticker
func (n *NewsFetcher) FetchHeadlines(ctx context.Context, ticker string) ([]string, error) {
	query := url.QueryEscape(ticker + " stock news India")
	feedURL := fmt.Sprintf("%s?q=%s&hl=en-IN&gl=IN&ceid=IN:en", newsBaseURL, query)

	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	items := feed.Channel.Items
	if len(items) > 7 {
		items = items[:7]
	}

	headlines := make([]string, 0, 5)
	seen := make(map[string]bool)
	for _, item := range items {
		title := cleanTitle(item.Title)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		headlines = append(headlines, title)
		if len(headlines) >= 5 {
			break
		}
	}
	return headlines, nil
}

// cleanTitle strips the " - Source" suffix Google News appends
func cleanTitle(title string) string {
	if idx := strings.Index(title, " - "); idx > 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}
