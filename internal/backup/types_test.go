package backup

import (
	"testing"
	"time"
)

func TestArtifactNames(t *testing.T) {
	ts := time.Date(2024, 5, 17, 9, 30, 5, 0, time.UTC)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"archive", archiveName("blog", ts), "blog_17-05-2024_09-30-05.tar.gz"},
		{"dump", dumpName("blog", ts), "db_blog_17-05-2024_09-30-05.sql"},
		{"snapshot", snapshotName("blog", ts), "nginx_blog_17-05-2024_09-30-05.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestSiteBackupResultArtifacts(t *testing.T) {
	archive := &Artifact{Path: "a", Kind: ArtifactKindArchive}
	dump := &Artifact{Path: "d", Kind: ArtifactKindDatabaseDump}

	result := SiteBackupResult{
		Archive:  successOutcome("ok", archive),
		Database: successOutcome("ok", dump),
		Snapshot: failureOutcome(NewSnapshotError("missing", nil)),
	}

	artifacts := result.Artifacts()
	if len(artifacts) != 2 {
		t.Fatalf("Artifacts() returned %d entries, want 2", len(artifacts))
	}
	if artifacts[0] != archive || artifacts[1] != dump {
		t.Error("Artifacts() must preserve stage order and skip failed stages")
	}
}

func TestStageStatusString(t *testing.T) {
	if StageSuccess.String() != "success" || StageFailure.String() != "failure" {
		t.Error("unexpected StageStatus strings")
	}
}
