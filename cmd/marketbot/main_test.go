package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/feedwire/marketbot/internal/config"
)

func TestApplyConfigDocumentOverlays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketbot.yaml")
	if err := os.WriteFile(path, []byte("output: email\n"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	cfg := config.Config{Output: "telegram"}
	if err := applyConfigDocument(&cfg, path, true); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if cfg.Output != "email" {
		t.Fatalf("expected overlay to apply, got output %q", cfg.Output)
	}
}

func TestApplyConfigDocumentDefaultPathMayBeAbsent(t *testing.T) {
	cfg := config.Config{Output: "telegram"}
	path := filepath.Join(t.TempDir(), "marketbot.yaml")
	if err := applyConfigDocument(&cfg, path, false); err != nil {
		t.Fatalf("expected absent default document to be skipped, got %v", err)
	}
	if cfg.Output != "telegram" {
		t.Fatalf("config changed without a document: %q", cfg.Output)
	}
}

func TestApplyConfigDocumentExplicitPathMustExist(t *testing.T) {
	cfg := config.Config{}
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if err := applyConfigDocument(&cfg, path, true); err == nil {
		t.Fatalf("expected error for missing explicit document")
	}
}
