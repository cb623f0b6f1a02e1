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

func successStageOutcome() StageOutcome {
	return successOutcome("ok", &Artifact{Path: "/tmp/a"})
}

func failureStageOutcome() StageOutcome {
	return failureOutcome(NewBackupError(BackupErrorTypeStorage, "scripted failure", nil))
}

func TestClassify(t *testing.T) {
	ok := successStageOutcome()
	fail := failureStageOutcome()

	tests := []struct {
		name     string
		archive  StageOutcome
		database StageOutcome
		snapshot StageOutcome
		want     AggregateStatus
	}{
		{"all stages succeed", ok, ok, ok, AggregateSuccess},
		{"database fails", ok, fail, ok, AggregateFilesOnly},
		{"database and snapshot fail", ok, fail, fail, AggregateFilesOnly},
		{"archive fails", fail, ok, ok, AggregateDatabaseOnly},
		{"archive and snapshot fail", fail, ok, fail, AggregateDatabaseOnly},
		{"all stages fail", fail, fail, fail, AggregateTotalFailure},
		// Snapshot success never upgrades; snapshot failure alone still
		// drops the run out of complete success entirely.
		{"only snapshot fails", ok, ok, fail, AggregateTotalFailure},
		{"only snapshot succeeds", fail, fail, ok, AggregateTotalFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.archive, tt.database, tt.snapshot); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateStatusString(t *testing.T) {
	tests := []struct {
		status AggregateStatus
		want   string
	}{
		{AggregateSuccess, "complete success"},
		{AggregateFilesOnly, "partial: files ok, database/config failed"},
		{AggregateDatabaseOnly, "partial: database ok, files failed"},
		{AggregateTotalFailure, "total failure"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("AggregateStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestPrepareCreatesDestination(t *testing.T) {
	destDir := filepath.Join(t.TempDir(), "backups", "sites")
	displayService, _ := newTestDisplay()

	o := NewOrchestrator(succeedingStage("archive", ArtifactKindArchive), succeedingStage("database", ArtifactKindDatabaseDump), succeedingStage("config-snapshot", ArtifactKindSnapshot), destDir, newTestLogger(t), displayService)

	if err := o.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	info, err := os.Stat(destDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("destination not created: %v", err)
	}

	// Prepare is idempotent across runs.
	if err := o.Prepare(); err != nil {
		t.Fatalf("second Prepare() error = %v", err)
	}
}

func TestRunAllAttemptsEveryStageForEverySite(t *testing.T) {
	archive := failingStage("archive")
	database := failingStage("database")
	snapshot := failingStage("config-snapshot")
	displayService, _ := newTestDisplay()

	o := NewOrchestrator(archive, database, snapshot, t.TempDir(), newTestLogger(t), displayService)

	sites := []site.Site{{Name: "blog"}, {Name: "shop"}}
	results := o.RunAll(context.Background(), sites)

	if len(results) != 2 {
		t.Fatalf("RunAll() returned %d results, want 2", len(results))
	}

	// Stage failures never short-circuit: every stage runs for every site.
	for _, stage := range []*fakeStage{archive, database, snapshot} {
		if len(stage.calls) != 2 {
			t.Errorf("stage %s ran %d times, want 2", stage.name, len(stage.calls))
		}
	}
}

func TestRunAllMixedOutcomes(t *testing.T) {
	// blog succeeds everywhere; broken fails everywhere.
	perSite := func(kind ArtifactKind) func(s site.Site) StageOutcome {
		return func(s site.Site) StageOutcome {
			if s.Name == "broken" {
				return failureStageOutcome()
			}
			return successOutcome("ok", &Artifact{Path: "/tmp/" + s.Name, Kind: kind})
		}
	}

	archive := &fakeStage{name: "archive", outcome: perSite(ArtifactKindArchive)}
	database := &fakeStage{name: "database", outcome: perSite(ArtifactKindDatabaseDump)}
	snapshot := &fakeStage{name: "config-snapshot", outcome: perSite(ArtifactKindSnapshot)}
	displayService, out := newTestDisplay()

	o := NewOrchestrator(archive, database, snapshot, t.TempDir(), newTestLogger(t), displayService)

	results := o.RunAll(context.Background(), []site.Site{{Name: "blog"}, {Name: "broken"}})

	if results[0].Status != AggregateSuccess {
		t.Errorf("blog status = %v, want complete success", results[0].Status)
	}
	if got := len(results[0].Artifacts()); got != 3 {
		t.Errorf("blog produced %d artifacts, want 3", got)
	}

	if results[1].Status != AggregateTotalFailure {
		t.Errorf("broken status = %v, want total failure", results[1].Status)
	}
	if got := len(results[1].Artifacts()); got != 0 {
		t.Errorf("broken produced %d artifacts, want 0", got)
	}

	output := out.String()
	if !strings.Contains(output, "blog: complete success") {
		t.Errorf("missing aggregate line for blog:\n%s", output)
	}
	if !strings.Contains(output, "broken: total failure") {
		t.Errorf("missing aggregate line for broken:\n%s", output)
	}
	if !strings.Contains(output, "complete: 1  partial: 0  failed: 1") {
		t.Errorf("missing summary counts:\n%s", output)
	}
}

// writerStage writes a real artifact file named from the shared run
// timestamp, mimicking how the production stages derive artifact paths
type writerStage struct {
	stageName string
	destDir   string
	fileName  func(siteName string, ts time.Time) string
	content   string
}

func (ws *writerStage) Name() string {
	return ws.stageName
}

func (ws *writerStage) Run(ctx context.Context, s site.Site, ts time.Time) StageOutcome {
	path := filepath.Join(ws.destDir, ws.fileName(s.Name, ts))
	if err := os.WriteFile(path, []byte(ws.content), 0644); err != nil {
		return failureOutcome(NewStorageError("failed to write artifact", err))
	}
	return successOutcome("ok", &Artifact{Path: path, Size: int64(len(ws.content)), CreatedAt: ts})
}

// Backups are append-only: a second run against the same sites must produce
// a second full artifact set under distinct timestamps and leave the first
// run's files byte-unchanged.
func TestRunAllTwiceAppendsArtifacts(t *testing.T) {
	destDir := t.TempDir()
	displayService, _ := newTestDisplay()

	archive := &writerStage{stageName: "archive", destDir: destDir, fileName: archiveName, content: "first"}
	database := &writerStage{stageName: "database", destDir: destDir, fileName: dumpName, content: "first"}
	snapshot := &writerStage{stageName: "config-snapshot", destDir: destDir, fileName: snapshotName, content: "first"}

	o := NewOrchestrator(archive, database, snapshot, destDir, newTestLogger(t), displayService)
	if err := o.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	sites := []site.Site{{Name: "blog"}}
	base := time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC)

	o.now = func() time.Time { return base }
	first := o.RunAll(context.Background(), sites)
	if first[0].Status != AggregateSuccess {
		t.Fatalf("first run status = %v", first[0].Status)
	}

	for _, stage := range []*writerStage{archive, database, snapshot} {
		stage.content = "second"
	}
	o.now = func() time.Time { return base.Add(2 * time.Second) }
	second := o.RunAll(context.Background(), sites)
	if second[0].Status != AggregateSuccess {
		t.Fatalf("second run status = %v", second[0].Status)
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatalf("failed to read dest dir: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("destination holds %d files after two runs, want 6", len(entries))
	}

	// The first run's artifacts must survive the second run untouched.
	for _, artifact := range first[0].Artifacts() {
		got, err := os.ReadFile(artifact.Path)
		if err != nil {
			t.Fatalf("first-run artifact %s missing: %v", artifact.Path, err)
		}
		if string(got) != "first" {
			t.Errorf("first-run artifact %s was rewritten: %q", artifact.Path, got)
		}
	}
	for _, artifact := range second[0].Artifacts() {
		got, err := os.ReadFile(artifact.Path)
		if err != nil {
			t.Fatalf("second-run artifact %s missing: %v", artifact.Path, err)
		}
		if string(got) != "second" {
			t.Errorf("second-run artifact %s content = %q", artifact.Path, got)
		}
	}
}

// All three stages of one site must share a single timestamp so their
// artifact names line up.
func TestRunSiteSharesOneTimestamp(t *testing.T) {
	archive := succeedingStage("archive", ArtifactKindArchive)
	database := succeedingStage("database", ArtifactKindDatabaseDump)
	snapshot := succeedingStage("config-snapshot", ArtifactKindSnapshot)
	displayService, _ := newTestDisplay()

	o := NewOrchestrator(archive, database, snapshot, t.TempDir(), newTestLogger(t), displayService)

	results := o.RunAll(context.Background(), []site.Site{{Name: "blog"}})
	if len(results) != 1 || results[0].Status != AggregateSuccess {
		t.Fatalf("unexpected results: %+v", results)
	}

	if !archive.stamps[0].Equal(database.stamps[0]) || !database.stamps[0].Equal(snapshot.stamps[0]) {
		t.Errorf("stages saw different timestamps: %v %v %v", archive.stamps[0], database.stamps[0], snapshot.stamps[0])
	}
}
