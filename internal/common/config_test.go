package common

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"DB_URL", "WORKERS", "QUEUE_SIZE", "PROCESS_TIMEOUT", "KAFKA_BROKERS", "S3_ENDPOINT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "file:estate-archive.db", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 256, cfg.Pipeline.QueueSize)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.ProcessTimeout)
	assert.Equal(t, "chi_sim+eng", cfg.OCR.Language)
	assert.False(t, cfg.Sink.KafkaEnabled())
	assert.False(t, cfg.Sink.S3Enabled())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("WORKERS", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("KAFKA_REVIEW_TOPIC", "estate.review")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("S3_USE_SSL", "false")

	cfg := LoadConfig()

	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Sink.KafkaBrokers)
	assert.True(t, cfg.Sink.KafkaEnabled())
	assert.False(t, cfg.Sink.S3UseSSL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestConfigValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Pipeline.Workers = 0
	cfg.LogLevel = "verbose"

	err := cfg.Validate()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	assert.Contains(t, err.Error(), "Workers")
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestValidateStruct_UsesTagNames(t *testing.T) {
	type item struct {
		Name  string  `yaml:"name" validate:"required"`
		Score float64 `json:"score" validate:"gte=0,lte=1"`
	}

	err := ValidateStruct(item{Score: 2})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
	assert.Equal(t, "item.name", verrs[0].Field)
	assert.Equal(t, "item.score", verrs[1].Field)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.NoError(t, ValidateStruct(item{Name: "x", Score: 0.5}))
}

func TestToStatus(t *testing.T) {
	assert.Nil(t, ToStatus(nil))
	assert.Contains(t, ToStatus(WrapError(ErrInvalidInput, "bad")).Error(), "InvalidArgument")
	assert.Contains(t, ToStatus(ErrNotFound).Error(), "NotFound")
	assert.Contains(t, ToStatus(errors.New("boom")).Error(), "Internal")
}
