package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"site-backup/internal/site"
)

const vhostContent = `server {
    listen 80;
    server_name blog.example.org;
    root /var/www/blog;
}
`

func TestSnapshotStageSuccess(t *testing.T) {
	vhostDir := t.TempDir()
	destDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(vhostDir, "blog"), []byte(vhostContent), 0644); err != nil {
		t.Fatalf("failed to write vhost config: %v", err)
	}

	displayService, _ := newTestDisplay()
	stage := NewConfigSnapshotStage(vhostDir, destDir, newTestLogger(t), displayService)

	ts := time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC)
	outcome := stage.Run(context.Background(), site.Site{Name: "blog"}, ts)

	if !outcome.Succeeded() {
		t.Fatalf("Run() failed: %s", outcome.Message)
	}

	wantPath := filepath.Join(destDir, "nginx_blog_17-05-2024_09-30-05.txt")
	if outcome.Artifact == nil || outcome.Artifact.Path != wantPath {
		t.Fatalf("artifact = %+v, want path %s", outcome.Artifact, wantPath)
	}
	if outcome.Artifact.Kind != ArtifactKindSnapshot {
		t.Errorf("artifact kind = %s", outcome.Artifact.Kind)
	}

	copied, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if string(copied) != vhostContent {
		t.Error("snapshot content does not match the vhost configuration")
	}
}

func TestSnapshotStageMissingVhost(t *testing.T) {
	destDir := t.TempDir()
	displayService, out := newTestDisplay()
	stage := NewConfigSnapshotStage(t.TempDir(), destDir, newTestLogger(t), displayService)

	outcome := stage.Run(context.Background(), site.Site{Name: "blog"}, time.Now())

	if outcome.Succeeded() {
		t.Fatal("Run() succeeded without a vhost configuration")
	}
	if outcome.Artifact != nil {
		t.Error("failed stage must not carry an artifact")
	}

	// Absence of a vhost file is reported as a warning, not an error.
	if got := out.String(); !strings.Contains(got, "[WARN]") {
		t.Errorf("expected a warning line, got:\n%s", got)
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatalf("failed to read dest dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("unexpected files in destination: %v", entries)
	}
}
