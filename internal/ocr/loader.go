package ocr

import (
	"context"

	"github.com/joseph-ayodele/estate-archive/internal/core/async"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// Loader adapts an Extractor to the batch runner.
type Loader struct {
	extractor *Extractor
}

func NewLoader(e *Extractor) *Loader {
	return &Loader{extractor: e}
}

func (l *Loader) Load(ctx context.Context, job async.Job) (entity.Document, error) {
	res, err := l.extractor.Extract(ctx, job.Path)
	if err != nil {
		return entity.Document{}, err
	}
	for _, w := range res.Warnings {
		l.extractor.logger.Warn("ocr.warning", "path", job.Path, "method", res.Method, "warning", w)
	}
	l.extractor.logger.Debug("ocr.done",
		"path", job.Path,
		"method", res.Method,
		"pages", res.Pages,
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return entity.Document{ID: job.ID(), RawText: res.Text, SourcePath: job.Path}, nil
}
