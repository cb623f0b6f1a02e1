package backup

import (
	"context"
	"fmt"
	"time"

	"site-backup/internal/site"
)

// TimestampLayout is the textual timestamp embedded in artifact names:
// day-month-year_hour-minute-second. Combined with the site identifier and
// artifact kind it keeps filenames unique per run at second granularity.
const TimestampLayout = "02-01-2006_15-04-05"

// StageStatus is the outcome status of one backup stage invocation
type StageStatus int

const (
	// StageFailure indicates the stage did not produce a valid artifact
	StageFailure StageStatus = iota
	// StageSuccess indicates the stage produced a valid artifact
	StageSuccess
)

// String returns the human-readable form of the status
func (s StageStatus) String() string {
	if s == StageSuccess {
		return "success"
	}
	return "failure"
}

// ArtifactKind identifies the logical kind of a produced backup file
type ArtifactKind string

const (
	ArtifactKindArchive      ArtifactKind = "archive"
	ArtifactKindDatabaseDump ArtifactKind = "database-dump"
	ArtifactKindSnapshot     ArtifactKind = "config-snapshot"
)

// Artifact is a file produced by a stage on the backup destination.
// Artifacts are append-only: existing backups are never overwritten or
// deleted by this tool.
type Artifact struct {
	Path      string
	Kind      ArtifactKind
	Size      int64
	CreatedAt time.Time
}

// StageOutcome is the typed result of one stage invocation for one site
type StageOutcome struct {
	Status   StageStatus
	Message  string
	Artifact *Artifact
}

// Succeeded reports whether the stage produced a valid artifact
func (o StageOutcome) Succeeded() bool {
	return o.Status == StageSuccess
}

// successOutcome builds a success outcome carrying the produced artifact
func successOutcome(message string, artifact *Artifact) StageOutcome {
	return StageOutcome{Status: StageSuccess, Message: message, Artifact: artifact}
}

// failureOutcome builds a failure outcome from an error
func failureOutcome(err error) StageOutcome {
	return StageOutcome{Status: StageFailure, Message: err.Error()}
}

// AggregateStatus is the orchestrator's four-way classification of a site's
// overall backup result
type AggregateStatus int

const (
	// AggregateTotalFailure means neither the archive nor the dump succeeded
	AggregateTotalFailure AggregateStatus = iota
	// AggregateFilesOnly means the archive succeeded but the dump failed
	AggregateFilesOnly
	// AggregateDatabaseOnly means the dump succeeded but the archive failed
	AggregateDatabaseOnly
	// AggregateSuccess means all three stages succeeded
	AggregateSuccess
)

// String returns the operator-facing description of the aggregate status
func (s AggregateStatus) String() string {
	switch s {
	case AggregateSuccess:
		return "complete success"
	case AggregateFilesOnly:
		return "partial: files ok, database/config failed"
	case AggregateDatabaseOnly:
		return "partial: database ok, files failed"
	default:
		return "total failure"
	}
}

// SiteBackupResult aggregates the three stage outcomes for one site
type SiteBackupResult struct {
	Site     site.Site
	Archive  StageOutcome
	Database StageOutcome
	Snapshot StageOutcome
	Status   AggregateStatus
	Duration time.Duration
}

// Artifacts returns the artifacts produced for this site, in stage order
func (r SiteBackupResult) Artifacts() []*Artifact {
	var artifacts []*Artifact
	for _, outcome := range []StageOutcome{r.Archive, r.Database, r.Snapshot} {
		if outcome.Artifact != nil {
			artifacts = append(artifacts, outcome.Artifact)
		}
	}
	return artifacts
}

// Stage is one independent backup operation performed per site. Stages
// report outcomes instead of returning errors: a stage failure is recorded,
// never propagated, and never stops sibling stages.
type Stage interface {
	Name() string
	Run(ctx context.Context, s site.Site, ts time.Time) StageOutcome
}

// archiveName builds the filesystem archive artifact name for a site
func archiveName(siteName string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.tar.gz", siteName, ts.Format(TimestampLayout))
}

// dumpName builds the uncompressed database dump artifact name for a site
func dumpName(siteName string, ts time.Time) string {
	return fmt.Sprintf("db_%s_%s.sql", siteName, ts.Format(TimestampLayout))
}

// snapshotName builds the web server config snapshot artifact name for a site
func snapshotName(siteName string, ts time.Time) string {
	return fmt.Sprintf("nginx_%s_%s.txt", siteName, ts.Format(TimestampLayout))
}
