package core

import "fmt"

// ConfigError is fatal and only occurs at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("config: %s is required", e.Field)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FetchError marks an upstream fetch or parse failure. Recoverable: the
// poller logs it and skips to the next cycle.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PublishError marks a failed delivery of one item. Recoverable: the item
// stays unseen and is retried next cycle until its attempt budget runs out.
// Permanent publish errors (for example a malformed message rejected by the
// API) should not be retried at all.
type PublishError struct {
	ItemID    string
	Permanent bool
	Err       error
}

func (e *PublishError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("publish %s (permanent): %v", e.ItemID, e.Err)
	}
	return fmt.Sprintf("publish %s: %v", e.ItemID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
