// Package ingest discovers source documents on disk and turns them into
// batch jobs keyed by content hash.
package ingest

import (
	"context"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	// DocumentID is the hex sha256 of the file content, so the same scan
	// always gets the same id.
	DocumentID   string
	FileExt      string
	Size         int64
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// KnownDocuments reports documents that already have a stored result.
type KnownDocuments interface {
	HasResult(ctx context.Context, documentID string) (bool, error)
}

// Ingestor is the behavior the batch driver depends on.
type Ingestor interface {
	// IngestPath a single path.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
