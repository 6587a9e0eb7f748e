package core

import (
	"errors"
	"testing"
)

func TestDeriveIDIsStable(t *testing.T) {
	a := DeriveID("Fed holds rates", "https://example.com/fed")
	b := DeriveID("Fed holds rates", "https://example.com/fed")
	if a != b {
		t.Fatalf("expected identical ids, got %q and %q", a, b)
	}
	if a == "" {
		t.Fatalf("expected non-empty id")
	}
}

func TestDeriveIDDistinguishesInputs(t *testing.T) {
	a := DeriveID("Fed holds rates", "https://example.com/fed")
	b := DeriveID("Fed cuts rates", "https://example.com/fed")
	if a == b {
		t.Fatalf("different titles produced the same id %q", a)
	}
}

func TestDeriveIDTrimsWhitespace(t *testing.T) {
	a := DeriveID("  Fed holds rates ", "https://example.com/fed")
	b := DeriveID("Fed holds rates", "https://example.com/fed")
	if a != b {
		t.Fatalf("expected whitespace-insensitive ids, got %q and %q", a, b)
	}
}

func TestErrorTaxonomyUnwraps(t *testing.T) {
	cause := errors.New("boom")

	var fe *FetchError
	if !errors.As(&FetchError{Source: "rss", Err: cause}, &fe) {
		t.Fatalf("expected errors.As to match FetchError")
	}
	if !errors.Is(fe, cause) {
		t.Fatalf("expected FetchError to wrap its cause")
	}

	var pe *PublishError
	wrapped := error(&PublishError{ItemID: "abc", Err: cause})
	if !errors.As(wrapped, &pe) {
		t.Fatalf("expected errors.As to match PublishError")
	}
	if pe.ItemID != "abc" {
		t.Fatalf("unexpected item id %q", pe.ItemID)
	}
}
