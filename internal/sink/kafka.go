package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/entity"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
)

// KafkaConfig names the brokers and topics results are published to.
type KafkaConfig struct {
	Brokers      []string
	ResultsTopic string
	// ReviewTopic receives only documents that need manual review. An empty
	// topic is skipped.
	ReviewTopic string
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ResultMessage is the Kafka value for both topics.
type ResultMessage struct {
	DocumentID string                   `json:"document_id"`
	BatchID    string                   `json:"batch_id,omitempty"`
	SourcePath string                   `json:"source_path,omitempty"`
	Timestamp  time.Time                `json:"timestamp"`
	Result     entity.ProcessingResult  `json:"result"`
	Review     *entity.ReviewQueueEntry `json:"review,omitempty"`
}

// KafkaSink publishes every result to ResultsTopic and review entries to
// ReviewTopic, keyed by document_id so one document stays on one partition.
type KafkaSink struct {
	writer  messageWriter
	cfg     KafkaConfig
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) *KafkaSink {
	// Topic stays empty on the writer; every message names its own.
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaSink(w, cfg, logger)
}

func newKafkaSink(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink{writer: w, cfg: cfg, logger: logger, nowFunc: time.Now}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, res entity.ProcessingResult, entry *entity.ReviewQueueEntry) error {
	batchID := common.BatchIDFromContext(ctx)
	msg := ResultMessage{
		DocumentID: res.DocumentID,
		BatchID:    batchID,
		SourcePath: common.SourcePathFromContext(ctx),
		Timestamp:  s.nowFunc().UTC(),
		Result:     res,
		Review:     entry,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal result message: %w", err)
	}

	headers := []kafka.Header{
		{Key: "batch_id", Value: []byte(batchID)},
		{Key: "document_type", Value: []byte(res.DocumentType)},
		{Key: "match_status", Value: []byte(res.MatchResult.Status)},
	}
	var msgs []kafka.Message
	if s.cfg.ResultsTopic != "" {
		msgs = append(msgs, kafka.Message{
			Topic:   s.cfg.ResultsTopic,
			Key:     []byte(res.DocumentID),
			Value:   value,
			Headers: headers,
		})
	}
	if entry != nil && s.cfg.ReviewTopic != "" {
		msgs = append(msgs, kafka.Message{
			Topic:   s.cfg.ReviewTopic,
			Key:     []byte(res.DocumentID),
			Value:   value,
			Headers: append(headers, kafka.Header{Key: "review_reason", Value: []byte(entry.Reason)}),
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		for _, m := range msgs {
			metrics.RecordKafkaPublish(m.Topic, metrics.StatusFailed)
		}
		s.logger.Error("failed to publish result", "document_id", res.DocumentID, "error", err)
		return fmt.Errorf("publish result: %w", err)
	}
	for _, m := range msgs {
		metrics.RecordKafkaPublish(m.Topic, metrics.StatusSucceeded)
	}
	s.logger.Debug("sink.kafka.published", "document_id", res.DocumentID, "messages", len(msgs))
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
