package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
)

// ArchiveConfig locates the S3-compatible bucket results are archived in.
type ArchiveConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// objectPutter is the part of *minio.Client the sink uses.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ArchiveSink stores each result as a JSON object under
// results/<batch_id>/<document_id>.json, and review entries under reviews/.
type ArchiveSink struct {
	client objectPutter
	bucket string
	logger *slog.Logger
}

// NewArchiveSink connects to the object store and creates the bucket if needed.
func NewArchiveSink(ctx context.Context, cfg ArchiveConfig, logger *slog.Logger) (*ArchiveSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return newArchiveSink(client, cfg.Bucket, logger), nil
}

func newArchiveSink(client objectPutter, bucket string, logger *slog.Logger) *ArchiveSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveSink{client: client, bucket: bucket, logger: logger}
}

func (s *ArchiveSink) Name() string { return "archive" }

// ObjectKey is where a result for documentID in batchID is stored.
func ObjectKey(prefix, batchID, documentID string) string {
	if batchID == "" {
		batchID = "adhoc"
	}
	return path.Join(prefix, batchID, documentID+".json")
}

func (s *ArchiveSink) Write(ctx context.Context, res entity.ProcessingResult, entry *entity.ReviewQueueEntry) error {
	batchID := common.BatchIDFromContext(ctx)
	body, err := res.JSON()
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := s.put(ctx, ObjectKey("results", batchID, res.DocumentID), body, res); err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	// The payload is the same result; the review object only marks the reason.
	return s.put(ctx, ObjectKey("reviews", batchID, res.DocumentID), body, res)
}

func (s *ArchiveSink) put(ctx context.Context, key string, body []byte, res entity.ProcessingResult) error {
	opts := minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"document-type": string(res.DocumentType),
			"match-status":  string(res.MatchResult.Status),
		},
	}
	if res.ReviewReason != "" {
		opts.UserMetadata["review-reason"] = string(res.ReviewReason)
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), opts); err != nil {
		s.logger.Error("failed to archive result", "document_id", res.DocumentID, "key", key, "error", err)
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	s.logger.Debug("sink.archive.stored", "document_id", res.DocumentID, "key", key)
	return nil
}
