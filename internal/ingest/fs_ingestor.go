package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/core/async"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// FSIngestor reads from the local filesystem. Files whose content was seen
// earlier in this process, or that already have a stored result, are
// reported as deduplicated.
type FSIngestor struct {
	known       KnownDocuments
	allowedExts map[string]struct{}
	logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]string
}

// NewFSIngestor builds an ingestor. known may be nil; exts nil means the
// default extension set.
func NewFSIngestor(known KnownDocuments, exts map[string]struct{}, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	return &FSIngestor{known: known, allowedExts: exts, logger: logger, seen: map[string]string{}}
}

// Allowed checks if a file extension is in the ingestor's set.
func (i *FSIngestor) Allowed(path string) bool {
	_, ok := i.allowedExts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.Allowed(abs) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}
	out.FileExt = ext

	sum, size, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.DocumentID = sum
	out.Size = size

	i.mu.Lock()
	first, dup := i.seen[sum]
	if !dup {
		i.seen[sum] = abs
	}
	i.mu.Unlock()
	if dup {
		i.logger.Debug("ingest.duplicate_content", "path", abs, "first_path", first, "document_id", sum)
		out.Deduplicated = true
		return out, nil
	}

	if i.known != nil {
		exists, err := i.known.HasResult(ctx, sum)
		if err != nil {
			return out, fmt.Errorf("check stored result: %w", err)
		}
		out.Deduplicated = exists
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !i.Allowed(path) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			i.logger.Warn("ingest.file_failed", "path", path, "error", err)
			r.SourcePath = path
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory_done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// Jobs turns fresh ingest results into batch jobs, in walk order.
func Jobs(results []IngestionResult) []async.Job {
	jobs := make([]async.Job, 0, len(results))
	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		jobs = append(jobs, async.Job{
			Document: entity.Document{ID: r.DocumentID, SourcePath: r.SourcePath},
			Path:     r.SourcePath,
		})
	}
	return jobs
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
