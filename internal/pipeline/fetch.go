package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yoloprep/internal/archive"
	"yoloprep/internal/config"
	"yoloprep/internal/logging"
	"yoloprep/internal/objectstore"
	"yoloprep/internal/staging"
)

// Archive outcomes recorded in the journal.
const (
	outcomeArchiveOK         = "ok"
	outcomeArchiveNotFound   = "not_found"
	outcomeArchiveDownload   = "download_failed"
	outcomeArchiveInvalid    = "invalid_archive"
	outcomeArchiveNoDocument = "no_document"
	outcomeArchiveMalformed  = "malformed_document"
)

// archiveError is a per-archive unit failure with its journal outcome.
type archiveError struct {
	outcome string
	err     error
}

func (e *archiveError) Error() string { return e.err.Error() }
func (e *archiveError) Unwrap() error { return e.err }

func archiveFailure(stage, outcome, op, name string, err error) error {
	return &archiveError{outcome: outcome, err: Wrap(ErrUnit, stage, op, name, err)}
}

func archiveOutcome(err error) string {
	var ae *archiveError
	if errors.As(err, &ae) {
		return ae.outcome
	}
	return outcomeArchiveDownload
}

// cleanArchiveNames trims names and drops blanks, keeping order and duplicates.
func cleanArchiveNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// fetchArchive downloads one archive into the workspace and extracts it,
// returning the extraction root.
func fetchArchive(ctx context.Context, r *run, cfg *config.Config, store objectstore.Store, ws *staging.Workspace, index int, name string) (string, error) {
	stage := r.info.Stage
	zipPath := ws.ArchivePath(name)

	dlCtx, cancel := withTimeout(ctx, cfg)
	defer cancel()
	exists, err := store.Exists(dlCtx, name)
	if err != nil {
		return "", archiveFailure(stage, outcomeArchiveDownload, "stat", name, err)
	}
	if !exists {
		return "", archiveFailure(stage, outcomeArchiveNotFound, "stat", name,
			fmt.Errorf("%s: %w", name, objectstore.ErrNotFound))
	}
	n, err := objectstore.Download(dlCtx, store, name, zipPath, nil)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return "", archiveFailure(stage, outcomeArchiveNotFound, "download", name, err)
		}
		return "", archiveFailure(stage, outcomeArchiveDownload, "download", name, err)
	}
	r.logger.Debug("archive downloaded",
		logging.String(logging.FieldUnit, name),
		logging.Int64("bytes", n))

	root := ws.ExtractDir(index, name)
	files, err := archive.Extract(zipPath, root)
	if err != nil {
		return "", archiveFailure(stage, outcomeArchiveInvalid, "extract", name, err)
	}
	r.logger.Debug("archive extracted",
		logging.String(logging.FieldUnit, name),
		logging.Int("files", files),
		logging.String("path", root))
	return root, nil
}

func logArchiveFailure(r *run, name string, err error) {
	logging.WarnWithContext(r.logger, "archive skipped", "archive_failed",
		logging.String(logging.FieldUnit, name),
		logging.String("outcome", archiveOutcome(err)),
		logging.Error(err),
		logging.String(logging.FieldImpact, "records from this archive are not included"),
		logging.String(logging.FieldErrorHint, "check the archive name and re-export it if it is damaged"))
}
