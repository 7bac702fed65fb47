package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

func reviewResult(id string) (entity.ProcessingResult, *entity.ReviewQueueEntry) {
	res := entity.ProcessingResult{
		DocumentID:        id,
		DocumentType:      constants.Unknown,
		ExtractedFields:   []entity.ExtractedField{},
		MatchResult:       entity.MatchResult{Status: constants.MatchStatusUnmatched},
		NeedsManualReview: true,
		ReviewReason:      constants.ReasonClassificationUnknown,
	}
	return res, &entity.ReviewQueueEntry{DocumentID: id, Reason: res.ReviewReason, Payload: res}
}

func batchCtx() context.Context {
	ctx := common.WithBatchID(context.Background(), "batch-7")
	return common.WithSourcePath(ctx, "/scans/a.png")
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_PublishesResultAndReview(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(w, KafkaConfig{ResultsTopic: "results", ReviewTopic: "reviews"}, nil)
	s.nowFunc = func() time.Time { return time.Unix(0, 0) }

	res, entry := reviewResult("doc-1")
	require.NoError(t, s.Write(batchCtx(), res, entry))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "results", w.msgs[0].Topic)
	assert.Equal(t, "reviews", w.msgs[1].Topic)
	assert.Equal(t, []byte("doc-1"), w.msgs[0].Key)

	var msg ResultMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, "batch-7", msg.BatchID)
	assert.Equal(t, "/scans/a.png", msg.SourcePath)
	assert.Equal(t, res, msg.Result)
	require.NotNil(t, msg.Review)

	assert.Len(t, w.msgs[0].Headers, 3)
	assert.Equal(t, "review_reason", w.msgs[1].Headers[3].Key)
}

func TestKafkaSink_AcceptedSkipsReviewTopic(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(w, KafkaConfig{ResultsTopic: "results", ReviewTopic: "reviews"}, nil)
	res, _ := reviewResult("doc-2")
	res.NeedsManualReview, res.ReviewReason = false, ""

	require.NoError(t, s.Write(context.Background(), res, nil))
	require.Len(t, w.msgs, 1)
}

func TestKafkaSink_Error(t *testing.T) {
	s := newKafkaSink(&fakeWriter{err: errors.New("broker down")}, KafkaConfig{ResultsTopic: "results"}, nil)
	res, entry := reviewResult("doc-3")
	assert.ErrorContains(t, s.Write(context.Background(), res, entry), "broker down")
}

type fakePutter struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
}

func (p *fakePutter) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[bucket+"/"+key] = body
	p.meta[bucket+"/"+key] = opts.UserMetadata
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestArchiveSink_StoresJSON(t *testing.T) {
	p := &fakePutter{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
	s := newArchiveSink(p, "estate", nil)

	res, entry := reviewResult("doc-4")
	require.NoError(t, s.Write(batchCtx(), res, entry))

	want, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, want, p.objects["estate/results/batch-7/doc-4.json"])
	assert.Contains(t, p.objects, "estate/reviews/batch-7/doc-4.json")
	assert.Equal(t, "ClassificationUnknown", p.meta["estate/results/batch-7/doc-4.json"]["review-reason"])
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "results/adhoc/d.json", ObjectKey("results", "", "d"))
	assert.Equal(t, "reviews/b/d.json", ObjectKey("reviews", "b", "d"))
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }
func (failingSink) Write(context.Context, entity.ProcessingResult, *entity.ReviewQueueEntry) error {
	return errors.New("boom")
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	w := &fakeWriter{}
	m := NewMulti(failingSink{}, newKafkaSink(w, KafkaConfig{ResultsTopic: "results"}, nil))
	res, entry := reviewResult("doc-5")

	err := m.Write(context.Background(), res, entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: boom")
	assert.Len(t, w.msgs, 1)
	assert.Equal(t, 2, m.Len())
}

func TestRepositorySink(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, common.DatabaseConfig{DSN: ":memory:", DialTimeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(db, nil))

	results := repository.NewResultRepository(db, nil)
	reviews := repository.NewReviewRepository(db, nil)
	s := NewRepositorySink(results, reviews, nil)

	res, entry := reviewResult("doc-6")
	require.NoError(t, s.Write(batchCtx(), res, entry))
	require.NoError(t, s.Write(batchCtx(), res, entry))

	stored, err := results.GetResult(ctx, "doc-6")
	require.NoError(t, err)
	assert.Equal(t, "batch-7", stored.BatchID)
	assert.Equal(t, "/scans/a.png", stored.SourcePath)

	pending, err := reviews.ListReviews(ctx, true, repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, constants.ReasonClassificationUnknown, pending[0].Entry.Reason)
}

func TestKafkaSink_ReviewOnly(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(w, KafkaConfig{ReviewTopic: "reviews"}, nil)

	res, entry := reviewResult("doc-7")
	require.NoError(t, s.Write(context.Background(), res, entry))
	res.NeedsManualReview = false
	require.NoError(t, s.Write(context.Background(), res, nil))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "reviews", w.msgs[0].Topic)
}
