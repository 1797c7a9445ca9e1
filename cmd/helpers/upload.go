package helpers

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	settings "github.com/zinc-sig/tally/internal/config"
	"github.com/zinc-sig/tally/internal/ledger"
	"github.com/zinc-sig/tally/internal/output"
	"github.com/zinc-sig/tally/internal/upload"
)

// SetupArchiver creates and configures the upload provider. It returns nil
// when no provider is configured.
func SetupArchiver(cfg settings.UploadConfig, log logrus.FieldLogger) (*upload.Archiver, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	provider, err := upload.Setup(cfg.Provider, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to set up upload provider: %w", err)
	}
	return upload.NewArchiver(provider, log), nil
}

// ArchiveDir is the remote directory of a commit: one per sheet and day.
func ArchiveDir(commit *ledger.Commit) string {
	day := strings.TrimSuffix(filepath.Base(commit.Workbook), filepath.Ext(commit.Workbook))
	return path.Join(commit.Sheet, day)
}

// HandleUploads archives the workbook and map file of a commit and records the
// outcome on the summary. A failed upload never fails the run; the ledger on
// disk is already up to date.
func HandleUploads(ctx context.Context, archiver *upload.Archiver, commit *ledger.Commit, summary *output.Summary, log logrus.FieldLogger) {
	if archiver == nil || commit == nil {
		return
	}

	remotes, err := archiver.Archive(ctx, ArchiveDir(commit), commit.Workbook, commit.MapFile)
	summary.Archived = remotes
	if err != nil {
		log.WithError(err).Warn("Failed to archive ledger files")
		summary.UploadErr = err.Error()
	}
}
