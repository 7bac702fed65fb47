// Package ocr turns source files into raw text: plain text is read as is,
// PDFs use their text layer when it has content and are rasterized and
// OCR'd otherwise, and images go straight to tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
)

// Extraction methods reported in ExtractionResult.Method.
const (
	MethodText     = "text"
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "chi_sim+eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// MinTextLayerRunes is the least non-space content a PDF text layer
	// must have before OCR is skipped. Default 20.
	MinTextLayerRunes int
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.TEXT | constants.PDF | constants.IMAGE
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float64
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "chi_sim+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextLayerRunes <= 0 {
		cfg.MinTextLayerRunes = 20
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.TEXT:
		res, err = e.extractText(path)
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	res.Duration = time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordOCR(res.Method, status)
	return res, err
}

func (e *Extractor) extractText(path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.TEXT, Method: MethodText, Pages: 1}
	b, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(b) {
		res.Warnings = append(res.Warnings, "file is not valid UTF-8; invalid bytes replaced")
		b = []byte(strings.ToValidUTF8(string(b), "\uFFFD"))
	}
	res.Text = strings.TrimPrefix(string(b), "\ufeff")
	res.Confidence = 1
	return res, nil
}
