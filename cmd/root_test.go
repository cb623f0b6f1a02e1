package cmd

import (
	"bytes"
	"testing"

	"site-backup/internal/config"
	"site-backup/internal/display"
	"site-backup/internal/site"
)

func bufferedDisplay() display.Service {
	svc := display.NewService(false)
	svc.SetOutput(&bytes.Buffer{})
	return svc
}

func TestResolveSelectionAllFlag(t *testing.T) {
	cfg := &config.Config{SelectAll: true}
	sites := []site.Site{{Name: "blog"}, {Name: "shop"}}

	// With --all the prompt must never run; stdin is not touched.
	selected, quit, err := resolveSelection(cfg, sites, bufferedDisplay())
	if err != nil {
		t.Fatalf("resolveSelection() error = %v", err)
	}
	if quit {
		t.Fatal("resolveSelection() reported quit for --all")
	}
	if len(selected) != 2 {
		t.Errorf("resolveSelection() selected %d sites, want 2", len(selected))
	}
}
