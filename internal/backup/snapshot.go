package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"site-backup/internal/display"
	"site-backup/internal/logging"
	"site-backup/internal/site"
)

// ConfigSnapshotStage copies the web server virtual host configuration file
// matching the site's identifier into the destination. The stage is always
// best effort: absence of the file is a Failure outcome for this stage only
// and never aborts sibling stages.
type ConfigSnapshotStage struct {
	vhostDir string
	destDir  string
	logger   *logging.Logger
	display  display.Service
}

// NewConfigSnapshotStage creates the web server config snapshot stage
func NewConfigSnapshotStage(vhostDir, destDir string, logger *logging.Logger, displayService display.Service) *ConfigSnapshotStage {
	return &ConfigSnapshotStage{
		vhostDir: vhostDir,
		destDir:  destDir,
		logger:   logger,
		display:  displayService,
	}
}

// Name returns the stage name
func (cs *ConfigSnapshotStage) Name() string {
	return "config-snapshot"
}

// Run copies <vhostDir>/<site> verbatim to a timestamped file in the
// destination directory
func (cs *ConfigSnapshotStage) Run(ctx context.Context, s site.Site, ts time.Time) StageOutcome {
	start := time.Now()
	vhostPath := filepath.Join(cs.vhostDir, s.Name)
	snapshotPath := filepath.Join(cs.destDir, snapshotName(s.Name, ts))

	cs.display.Info(fmt.Sprintf("Snapshotting web server config of %s...", s.Name))

	info, err := os.Stat(vhostPath)
	if err != nil {
		stageErr := NewSnapshotError(fmt.Sprintf("no virtual host configuration for %s at %s", s.Name, vhostPath), err)
		cs.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	if err := copyFile(vhostPath, snapshotPath); err != nil {
		stageErr := NewSnapshotError("failed to copy virtual host configuration", err)
		cs.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	artifact := &Artifact{
		Path:      snapshotPath,
		Kind:      ArtifactKindSnapshot,
		Size:      info.Size(),
		CreatedAt: ts,
	}
	cs.report(s.Name, snapshotPath, info.Size(), start, nil)

	return successOutcome(fmt.Sprintf("web server config copied to %s", snapshotPath), artifact)
}

// copyFile copies src to dst verbatim, removing a partial dst on failure
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}

	return nil
}

// report emits the stage's user-visible line and log entry
func (cs *ConfigSnapshotStage) report(siteName, artifact string, size int64, start time.Time, err error) {
	cs.logger.LogStage(siteName, cs.Name(), artifact, size, time.Since(start), err)
	if err != nil {
		cs.display.Warning(fmt.Sprintf("Config snapshot of %s skipped: %v", siteName, err))
	} else {
		cs.display.Success(fmt.Sprintf("Config snapshot: %s (%s)", artifact, formatSize(size)))
	}
}
