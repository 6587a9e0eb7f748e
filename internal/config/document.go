package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the optional YAML configuration file. Everything here is
// non-secret; BOT_TOKEN, CHANNEL_ID and SMTP credentials come from the
// environment only. Absent fields leave the env-derived value untouched.
type Document struct {
	Output *string `yaml:"output,omitempty"`

	Feed struct {
		Kind      *string   `yaml:"kind,omitempty"`
		URL       *string   `yaml:"url,omitempty"`
		Category  *int      `yaml:"category,omitempty"`
		Count     *int      `yaml:"count,omitempty"`
		Limit     *int      `yaml:"limit,omitempty"`
		Timeout   *Duration `yaml:"timeout,omitempty"`
		UserAgent *string   `yaml:"user_agent,omitempty"`
	} `yaml:"feed"`

	Poll struct {
		Interval    *Duration `yaml:"interval,omitempty"`
		Schedule    *string   `yaml:"schedule,omitempty"`
		Timezone    *string   `yaml:"timezone,omitempty"`
		RetryBudget *int      `yaml:"retry_budget,omitempty"`
		Filter      *string   `yaml:"filter,omitempty"`
	} `yaml:"poll"`

	Seen struct {
		Backend   *string   `yaml:"backend,omitempty"`
		DBPath    *string   `yaml:"db_path,omitempty"`
		Table     *string   `yaml:"table,omitempty"`
		Retention *Duration `yaml:"retention,omitempty"`
	} `yaml:"seen"`
}

// LoadDocument reads and parses the YAML document at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config document: %w", err)
	}
	return &doc, nil
}

// ApplyTo overlays the document's set fields onto cfg.
func (d *Document) ApplyTo(cfg *Config) {
	if d == nil || cfg == nil {
		return
	}
	setString(&cfg.Output, d.Output)

	setString(&cfg.Feed.Kind, d.Feed.Kind)
	setString(&cfg.Feed.URL, d.Feed.URL)
	setInt(&cfg.Feed.Category, d.Feed.Category)
	setInt(&cfg.Feed.Count, d.Feed.Count)
	setInt(&cfg.Feed.Limit, d.Feed.Limit)
	setDuration(&cfg.Feed.Timeout, d.Feed.Timeout)
	setString(&cfg.Feed.UserAgent, d.Feed.UserAgent)

	setDuration(&cfg.Poll.Interval, d.Poll.Interval)
	setString(&cfg.Poll.Schedule, d.Poll.Schedule)
	setString(&cfg.Poll.Timezone, d.Poll.Timezone)
	setInt(&cfg.Poll.RetryBudget, d.Poll.RetryBudget)
	setString(&cfg.Poll.Filter, d.Poll.Filter)

	setString(&cfg.Seen.Backend, d.Seen.Backend)
	setString(&cfg.Seen.DBPath, d.Seen.DBPath)
	setString(&cfg.Seen.Table, d.Seen.Table)
	setDuration(&cfg.Seen.Retention, d.Seen.Retention)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = src.Std()
	}
}
