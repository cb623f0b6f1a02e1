package backup

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"site-backup/internal/display"
	"site-backup/internal/logging"
	"site-backup/internal/site"
)

// testSite builds a Site rooted at path
func testSite(name, path string) site.Site {
	return site.Site{
		Name:       name,
		Path:       path,
		ConfigPath: filepath.Join(path, "wp-config.php"),
	}
}

// newTestLogger creates a logger that discards all output
func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.NewLogger(logging.Config{
		Level:  logging.LogLevelQuiet,
		Output: io.Discard,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// newTestDisplay creates a display service writing into a buffer
func newTestDisplay() (display.Service, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	svc := display.NewService(false)
	svc.SetOutput(buf)
	return svc, buf
}

// fakeStage is a scripted Stage for orchestrator tests
type fakeStage struct {
	name    string
	outcome func(s site.Site) StageOutcome
	calls   []string
	stamps  []time.Time
}

func (fs *fakeStage) Name() string {
	return fs.name
}

func (fs *fakeStage) Run(ctx context.Context, s site.Site, ts time.Time) StageOutcome {
	fs.calls = append(fs.calls, s.Name)
	fs.stamps = append(fs.stamps, ts)
	return fs.outcome(s)
}

// succeedingStage always reports success with a synthetic artifact
func succeedingStage(name string, kind ArtifactKind) *fakeStage {
	return &fakeStage{
		name: name,
		outcome: func(s site.Site) StageOutcome {
			return successOutcome("ok", &Artifact{Path: "/tmp/" + s.Name, Kind: kind})
		},
	}
}

// failingStage always reports failure
func failingStage(name string) *fakeStage {
	return &fakeStage{
		name: name,
		outcome: func(s site.Site) StageOutcome {
			return failureOutcome(NewBackupError(BackupErrorTypeStorage, "scripted failure", nil))
		},
	}
}
