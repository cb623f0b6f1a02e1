package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"site-backup/internal/display"
	apperrors "site-backup/internal/errors"
	"site-backup/internal/logging"
	"site-backup/internal/site"
)

// DatabaseDumpStage produces a compressed logical dump of one site's
// database. Credentials are resolved from the site's configuration file at
// dump time and held only for the duration of the invocation.
type DatabaseDumpStage struct {
	destDir     string
	timeout     time.Duration
	compression CompressionType
	level       int
	extractor   site.CredentialExtractor
	compressor  *CompressionManager
	retry       *apperrors.RetryHandler
	logger      *logging.Logger
	display     display.Service

	// openDB and runDump are injectable for tests
	openDB  func(dsn string) (*sql.DB, error)
	runDump func(ctx context.Context, creds site.Credentials, dumpPath string) error
}

// NewDatabaseDumpStage creates the database dump stage
func NewDatabaseDumpStage(
	destDir string,
	timeout time.Duration,
	compression CompressionType,
	level int,
	extractor site.CredentialExtractor,
	logger *logging.Logger,
	displayService display.Service,
) *DatabaseDumpStage {
	stage := &DatabaseDumpStage{
		destDir:     destDir,
		timeout:     timeout,
		compression: compression,
		level:       level,
		extractor:   extractor,
		compressor:  NewCompressionManager(),
		retry:       apperrors.NewRetryHandler(apperrors.DefaultRetryConfig()),
		logger:      logger,
		display:     displayService,
	}
	stage.openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("mysql", dsn)
	}
	stage.runDump = stage.execMysqldump
	return stage
}

// Name returns the stage name
func (ds *DatabaseDumpStage) Name() string {
	return "database"
}

// Run resolves the site's credentials, verifies them against the server
// with an advisory preflight, dumps the database and compresses the dump in
// place. Success requires the
// dump process to exit cleanly AND the produced file to be non-empty: an
// exit-clean-but-empty dump is a Failure, since some dump utilities do not
// surface auth or connection problems as a nonzero exit. A compression
// failure after a successful dump is logged but does not downgrade the
// outcome - the uncompressed dump is still a valid backup.
func (ds *DatabaseDumpStage) Run(ctx context.Context, s site.Site, ts time.Time) StageOutcome {
	start := time.Now()

	ds.display.Info(fmt.Sprintf("Dumping database of %s...", s.Name))

	creds, err := ds.extractor.Extract(s.ConfigPath)
	if err != nil {
		stageErr := ds.classifyExtractError(s, err)
		ds.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	if ds.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ds.timeout)
		defer cancel()
	}

	// The preflight is advisory: mysqldump can still reach a socket-only
	// local server that refuses the TCP ping, so a failed check warns and
	// the dump is attempted regardless.
	if err := ds.preflight(ctx, creds); err != nil {
		ds.logger.Warnf("Connection preflight for database %s failed, attempting dump anyway: %v", creds.Name, err)
		ds.display.Warning(fmt.Sprintf("Could not verify credentials of %s: %v", s.Name, err))
	}

	dumpPath := filepath.Join(ds.destDir, dumpName(s.Name, ts))
	if err := ds.runDump(ctx, creds, dumpPath); err != nil {
		os.Remove(dumpPath)
		stageErr := NewDumpError("dump process failed", err).WithContext("database", creds.Name)
		ds.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	info, err := os.Stat(dumpPath)
	if err != nil {
		stageErr := NewDumpError("dump process exited cleanly but produced no file", err)
		ds.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}
	if info.Size() == 0 {
		os.Remove(dumpPath)
		stageErr := NewDumpError(fmt.Sprintf("dump of database %s is empty", creds.Name), nil)
		ds.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	artifactPath := dumpPath
	if compressed, err := ds.compressor.CompressFile(dumpPath, ds.compression, ds.level); err != nil {
		ds.logger.Warnf("Compression of %s failed, keeping uncompressed dump: %v", dumpPath, err)
	} else {
		artifactPath = compressed
	}

	info, err = os.Stat(artifactPath)
	if err != nil {
		stageErr := NewStorageError("dump artifact disappeared after compression", err)
		ds.report(s.Name, "", 0, start, stageErr)
		return failureOutcome(stageErr)
	}

	artifact := &Artifact{
		Path:      artifactPath,
		Kind:      ArtifactKindDatabaseDump,
		Size:      info.Size(),
		CreatedAt: ts,
	}
	ds.report(s.Name, artifactPath, info.Size(), start, nil)

	return successOutcome(fmt.Sprintf("database %s dumped to %s", creds.Name, artifactPath), artifact)
}

// classifyExtractError maps extractor failures onto the stage error taxonomy
func (ds *DatabaseDumpStage) classifyExtractError(s site.Site, err error) *BackupError {
	switch {
	case errors.Is(err, site.ErrConfigMissing):
		return NewConfigError(fmt.Sprintf("configuration file of %s is missing", s.Name), err)
	case errors.Is(err, site.ErrCredentialsIncomplete):
		return NewCredentialsError(fmt.Sprintf("credentials of %s are incomplete", s.Name), err)
	default:
		return NewConfigError(fmt.Sprintf("failed to read configuration of %s", s.Name), err)
	}
}

// preflight verifies the extracted credentials with a driver-level ping
// before the external dump tool is invoked. Recoverable connection errors
// are retried with backoff; a definitive auth failure is returned
// immediately with its classification.
func (ds *DatabaseDumpStage) preflight(ctx context.Context, creds site.Credentials) error {
	// DB_HOST may already carry a port (localhost:3306 is common).
	addr := creds.HostOrDefault()
	if !strings.Contains(addr, ":") {
		addr += ":3306"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?timeout=5s", creds.User, creds.Password, addr, creds.Name)

	start := time.Now()
	err := ds.retry.Retry(ctx, func() error {
		db, err := ds.openDB(dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.PingContext(ctx)
	})

	ds.logger.LogDatabasePreflight(creds.HostOrDefault(), creds.Name, err == nil, time.Since(start), err)
	return err
}

// execMysqldump runs the external dump utility, writing the textual dump to
// dumpPath. The password travels through the MYSQL_PWD environment variable
// so it never appears in the process argument list.
func (ds *DatabaseDumpStage) execMysqldump(ctx context.Context, creds site.Credentials, dumpPath string) error {
	out, err := os.Create(dumpPath)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer out.Close()

	args := []string{
		"--single-transaction",
		"--quick",
		"-h", creds.HostOrDefault(),
		"-u", creds.User,
		creds.Name,
	}

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Stdout = out
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+creds.Password)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("mysqldump timed out: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("mysqldump failed: %w: %s", err, msg)
		}
		return fmt.Errorf("mysqldump failed: %w", err)
	}

	return out.Sync()
}

// report emits the stage's user-visible line and log entry
func (ds *DatabaseDumpStage) report(siteName, artifact string, size int64, start time.Time, err error) {
	ds.logger.LogStage(siteName, ds.Name(), artifact, size, time.Since(start), err)
	if err != nil {
		ds.display.Error(fmt.Sprintf("Database dump of %s failed: %v", siteName, err))
	} else {
		ds.display.Success(fmt.Sprintf("Database dumped: %s (%s)", artifact, formatSize(size)))
	}
}
