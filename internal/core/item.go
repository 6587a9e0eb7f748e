package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NewsItem is a single upstream news entry as it flows through the bot.
// ID must be stable across repeated fetches of overlapping feed windows;
// the dedup store keys on it.
type NewsItem struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Text        string    `json:"text" yaml:"text"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
}

// DeriveID builds a deterministic identifier for items whose upstream
// supplies no stable id of its own. The same title+url always yields the
// same id, so overlapping fetch windows dedup correctly.
func DeriveID(title, url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(title) + "\x00" + strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:16])
}
