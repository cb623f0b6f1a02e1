package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"site-backup/internal/display"
	"site-backup/internal/logging"
	"site-backup/internal/site"
)

// Orchestrator drives the three backup stages for each selected site and
// aggregates their outcomes. Sites are processed sequentially; a failure in
// one stage or one site never stops the remaining work.
type Orchestrator struct {
	archive  Stage
	database Stage
	snapshot Stage
	destDir  string
	logger   *logging.Logger
	display  display.Service
	now      func() time.Time
}

// NewOrchestrator creates a backup orchestrator over the three stages
func NewOrchestrator(archive, database, snapshot Stage, destDir string, logger *logging.Logger, displayService display.Service) *Orchestrator {
	return &Orchestrator{
		archive:  archive,
		database: database,
		snapshot: snapshot,
		destDir:  destDir,
		logger:   logger,
		display:  displayService,
		now:      time.Now,
	}
}

// Prepare performs the per-run upfront work: the destination directory is
// created idempotently once, before any stage runs, so stages never create
// it in their critical path.
func (o *Orchestrator) Prepare() error {
	if err := os.MkdirAll(o.destDir, 0755); err != nil {
		return NewStorageError(fmt.Sprintf("failed to create backup destination %s", o.destDir), err)
	}
	return nil
}

// RunAll backs up every given site in order and returns one result per
// site. All three stages are always attempted for each site, in the fixed
// order filesystem, database, config snapshot.
func (o *Orchestrator) RunAll(ctx context.Context, sites []site.Site) []SiteBackupResult {
	runID := uuid.NewString()
	runLogger := o.logger.WithField("run_id", runID)
	runLogger.Infof("Starting backup run for %d site(s)", len(sites))

	results := make([]SiteBackupResult, 0, len(sites))
	for _, s := range sites {
		results = append(results, o.runSite(ctx, s))
	}

	o.summarize(results)
	runLogger.Infof("Backup run finished")

	return results
}

// runSite executes the three stages for one site and classifies the
// aggregate outcome
func (o *Orchestrator) runSite(ctx context.Context, s site.Site) SiteBackupResult {
	start := o.now()
	ts := start

	o.display.Printf("\n")
	o.display.PrintHeader(fmt.Sprintf("Backing up %s", s.Name))

	result := SiteBackupResult{Site: s}
	result.Archive = o.archive.Run(ctx, s, ts)
	result.Database = o.database.Run(ctx, s, ts)
	result.Snapshot = o.snapshot.Run(ctx, s, ts)
	result.Status = Classify(result.Archive, result.Database, result.Snapshot)
	result.Duration = time.Since(start)

	o.reportSite(result)

	return result
}

// Classify applies the fixed aggregate precedence over the three stage
// outcomes. The table is deliberately coarse and preserves the established
// reporting behavior: "complete success" requires all three stages, the two
// partial classes are keyed on the archive/database pair only, and
// everything else - including a snapshot-only deviation - is reported as
// total failure. Snapshot success never upgrades the classification.
func Classify(archive, database, snapshot StageOutcome) AggregateStatus {
	switch {
	case archive.Succeeded() && database.Succeeded() && snapshot.Succeeded():
		return AggregateSuccess
	case archive.Succeeded() && !database.Succeeded():
		return AggregateFilesOnly
	case database.Succeeded() && !archive.Succeeded():
		return AggregateDatabaseOnly
	default:
		return AggregateTotalFailure
	}
}

// reportSite emits the one aggregate line per site
func (o *Orchestrator) reportSite(result SiteBackupResult) {
	o.logger.LogSiteResult(result.Site.Name, result.Status.String(), len(result.Artifacts()), result.Duration)

	line := fmt.Sprintf("%s: %s", result.Site.Name, result.Status)
	switch result.Status {
	case AggregateSuccess:
		o.display.Success(line)
	case AggregateFilesOnly, AggregateDatabaseOnly:
		o.display.Warning(line)
	default:
		o.display.Error(line)
	}
}

// summarize prints the closing per-run overview
func (o *Orchestrator) summarize(results []SiteBackupResult) {
	var complete, partial, failed int
	for _, r := range results {
		switch r.Status {
		case AggregateSuccess:
			complete++
		case AggregateFilesOnly, AggregateDatabaseOnly:
			partial++
		default:
			failed++
		}
	}

	o.display.Printf("\n")
	o.display.PrintHeader("Backup summary")
	o.display.Printf("  complete: %d  partial: %d  failed: %d\n", complete, partial, failed)
}
