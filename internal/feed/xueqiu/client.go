package xueqiu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/feedwire/marketbot/internal/core"
	"github.com/feedwire/marketbot/internal/retry"
)

const (
	defaultBaseURL  = "https://xueqiu.com"
	timelinePath    = "/v4/statuses/public_timeline_by_category.json"
	cookiePath      = "/?category=livenews"
	defaultCategory = 6
	defaultCount    = 10
)

// Config controls the live-news timeline client.
type Config struct {
	BaseURL   string
	Category  int
	Count     int
	Timeout   time.Duration
	UserAgent string
}

// Client fetches the Xueqiu live-news timeline. The endpoint rejects
// requests without session cookies, so every fetch warms the cookie jar
// from the live-news page first. Session cookies expire, which is why the
// warm-up is per-fetch rather than per-process.
type Client struct {
	baseURL   string
	category  int
	count     int
	userAgent string
	client    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	category := cfg.Category
	if category == 0 {
		category = defaultCategory
	}
	count := cfg.Count
	if count <= 0 {
		count = defaultCount
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL:   baseURL,
		category:  category,
		count:     count,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// FetchLatest returns the current timeline window, newest-first (the
// upstream order).
func (c *Client) FetchLatest(ctx context.Context) ([]core.NewsItem, error) {
	if err := c.warmCookies(ctx); err != nil {
		return nil, &core.FetchError{Source: "xueqiu", Err: err}
	}

	query := url.Values{}
	query.Set("since_id", "-1")
	query.Set("max_id", "-1")
	query.Set("count", strconv.Itoa(c.count))
	query.Set("category", strconv.Itoa(c.category))

	var body []byte
	err := retry.Do(ctx, retry.Config{Attempts: 3, BaseDelay: 200 * time.Millisecond}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+timelinePath+"?"+query.Encode(), nil)
		if err != nil {
			return err
		}
		c.setHeaders(req)
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("timeline returned status %d", resp.StatusCode)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, &core.FetchError{Source: "xueqiu", Err: err}
	}

	items, err := parseTimeline(body)
	if err != nil {
		return nil, &core.FetchError{Source: "xueqiu", Err: err}
	}
	return items, nil
}

func (c *Client) warmCookies(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+cookiePath, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("warm cookies: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	userAgent := c.userAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:70.0) Gecko/20100101 Firefox/70.0"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.baseURL+"/today/")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7")
}

// The timeline wraps each entry as a JSON string inside the list payload,
// so parsing happens in two steps.
type timelineResponse struct {
	List []struct {
		Data string `json:"data"`
	} `json:"list"`
}

type timelineEntry struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Target    string `json:"target"`
	CreatedAt int64  `json:"created_at"`
}

func parseTimeline(body []byte) ([]core.NewsItem, error) {
	var response timelineResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	items := make([]core.NewsItem, 0, len(response.List))
	for _, wrapped := range response.List {
		var entry timelineEntry
		if err := json.Unmarshal([]byte(wrapped.Data), &entry); err != nil {
			return nil, fmt.Errorf("decode timeline entry: %w", err)
		}
		item := core.NewsItem{
			Text:        entry.Text,
			URL:         entry.Target,
			PublishedAt: time.UnixMilli(entry.CreatedAt).UTC(),
		}
		if entry.ID != 0 {
			item.ID = strconv.FormatInt(entry.ID, 10)
		} else {
			item.ID = core.DeriveID(entry.Text, entry.Target)
		}
		items = append(items, item)
	}
	return items, nil
}
