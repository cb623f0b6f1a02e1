package backup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"site-backup/internal/display"
	"site-backup/internal/logging"
	"site-backup/internal/site"
)

// ArchiveStage produces a compressed filesystem archive of one site's
// installation directory. The archive is rooted at the parent of the
// installation so that restoring it reproduces the original directory name.
type ArchiveStage struct {
	destDir string
	timeout time.Duration
	logger  *logging.Logger
	display display.Service

	// runTar is the external archiver invocation, injectable for tests
	runTar func(ctx context.Context, archivePath, parentDir, siteName string) error
}

// NewArchiveStage creates the filesystem archive stage
func NewArchiveStage(destDir string, timeout time.Duration, logger *logging.Logger, displayService display.Service) *ArchiveStage {
	stage := &ArchiveStage{
		destDir: destDir,
		timeout: timeout,
		logger:  logger,
		display: displayService,
	}
	stage.runTar = stage.execTar
	return stage
}

// Name returns the stage name
func (as *ArchiveStage) Name() string {
	return "archive"
}

// Run archives the site's installation subtree into the destination
// directory. It reports Success only if the archiving process exits
// cleanly; on failure any partially written archive file is removed so no
// dangling partial artifacts remain.
func (as *ArchiveStage) Run(ctx context.Context, s site.Site, ts time.Time) StageOutcome {
	start := time.Now()
	archivePath := filepath.Join(as.destDir, archiveName(s.Name, ts))

	as.display.Info(fmt.Sprintf("Archiving files of %s...", s.Name))

	if _, err := os.Stat(s.Path); err != nil {
		stageErr := NewArchiveError(fmt.Sprintf("installation directory %s no longer exists", s.Path), err)
		as.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	if as.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, as.timeout)
		defer cancel()
	}

	if err := as.runTar(ctx, archivePath, filepath.Dir(s.Path), s.Name); err != nil {
		os.Remove(archivePath)
		stageErr := NewArchiveError("archiver process failed", err).
			WithContext("site", s.Name).
			WithContext("archive", archivePath)
		as.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		stageErr := NewArchiveError("archiver exited cleanly but produced no archive", err)
		as.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	artifact := &Artifact{
		Path:      archivePath,
		Kind:      ArtifactKindArchive,
		Size:      info.Size(),
		CreatedAt: ts,
	}
	as.report(s.Name, archivePath, info.Size(), start, nil)

	return successOutcome(fmt.Sprintf("files archived to %s", archivePath), artifact)
}

// execTar runs the external tar process
func (as *ArchiveStage) execTar(ctx context.Context, archivePath, parentDir, siteName string) error {
	cmd := exec.CommandContext(ctx, "tar", "-czf", archivePath, "-C", parentDir, siteName)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("tar timed out: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("tar failed: %w: %s", err, msg)
		}
		return fmt.Errorf("tar failed: %w", err)
	}

	return nil
}

// report emits the stage's user-visible line and log entry
func (as *ArchiveStage) report(siteName, artifact string, size int64, start time.Time, err error) {
	as.logger.LogStage(siteName, as.Name(), artifact, size, time.Since(start), err)
	if err != nil {
		as.display.Error(fmt.Sprintf("File archive of %s failed: %v", siteName, err))
	} else {
		as.display.Success(fmt.Sprintf("Files archived: %s (%s)", artifact, formatSize(size)))
	}
}

// formatSize renders a byte count for operator output
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
