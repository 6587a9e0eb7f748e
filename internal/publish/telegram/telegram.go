package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/feedwire/marketbot/internal/core"
	"github.com/feedwire/marketbot/internal/publish"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Config controls the Telegram channel publisher.
type Config struct {
	Token      string
	ChannelID  string
	APIBaseURL string
	Timeout    time.Duration
	// Location for the timestamp line under each message. Defaults to
	// UTC+8, the upstream feed's market timezone.
	Location *time.Location
}

// Publisher posts news items to a Telegram channel through the Bot API
// sendMessage method, formatted as MarkdownV2.
type Publisher struct {
	token    string
	chatID   string
	baseURL  string
	location *time.Location
	client   *http.Client
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Token == "" {
		return nil, &core.ConfigError{Field: "telegram bot token"}
	}
	if cfg.ChannelID == "" {
		return nil, &core.ConfigError{Field: "telegram channel id"}
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	location := cfg.Location
	if location == nil {
		location = time.FixedZone("UTC+8", 8*60*60)
	}
	return &Publisher{
		token:    cfg.Token,
		chatID:   NormalizeChatID(cfg.ChannelID),
		baseURL:  baseURL,
		location: location,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// NormalizeChatID prefixes channel names with @ the way the Bot API expects.
// Numeric chat ids (including -100... supergroup ids) pass through.
func NormalizeChatID(channelID string) string {
	channelID = strings.TrimSpace(channelID)
	if strings.HasPrefix(channelID, "@") {
		return channelID
	}
	if _, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return channelID
	}
	return "@" + channelID
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (p *Publisher) Publish(ctx context.Context, item core.NewsItem) error {
	text, err := p.Render(item)
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: err}
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                p.chatID,
		Text:                  text,
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: err}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.baseURL, p.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Permanent: true, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &core.PublishError{ItemID: item.ID, Err: err}
	}
	var response apiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return &core.PublishError{ItemID: item.ID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if response.OK {
		return nil
	}

	apiErr := fmt.Errorf("telegram api error %d: %s", response.ErrorCode, response.Description)
	// 429 and server-side failures are worth retrying next cycle; other
	// 4xx responses (bad markup, kicked from channel) will not heal.
	if response.ErrorCode == http.StatusTooManyRequests || response.ErrorCode >= 500 {
		return &core.PublishError{ItemID: item.ID, Err: apiErr}
	}
	return &core.PublishError{ItemID: item.ID, Permanent: true, Err: apiErr}
}

// Render produces the MarkdownV2 message body for one item: bold title (when
// present), the item text, a source link, and a timestamp line.
func (p *Publisher) Render(item core.NewsItem) (string, error) {
	text, err := publish.HTMLToText(item.Text)
	if err != nil {
		return "", fmt.Errorf("flatten item text: %w", err)
	}

	var b strings.Builder
	if item.Title != "" {
		b.WriteString("*" + EscapeMarkdownV2(item.Title) + "*\n\n")
	}
	if text != "" {
		b.WriteString(EscapeMarkdownV2(text) + "\n\n")
	}
	if item.URL != "" && strings.Contains(item.URL, "://") {
		b.WriteString("[source](" + escapeLinkURL(item.URL) + ")\n")
	}
	if !item.PublishedAt.IsZero() {
		stamp := item.PublishedAt.In(p.location).Format("(2006-01-02 15:04)")
		b.WriteString(EscapeMarkdownV2(stamp))
	}
	return strings.TrimSpace(b.String()), nil
}

var markdownV2Escaper = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 escapes every character the Telegram MarkdownV2 parser
// treats as markup.
func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}

// Inside inline link targets only ) and \ need escaping.
var linkURLEscaper = strings.NewReplacer("\\", "\\\\", ")", "\\)")

func escapeLinkURL(url string) string {
	return linkURLEscaper.Replace(url)
}
