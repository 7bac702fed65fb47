package main

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/estate-archive/internal/core/pipeline"
	"github.com/joseph-ayodele/estate-archive/internal/ocr"
	"github.com/joseph-ayodele/estate-archive/internal/registry"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
	"github.com/joseph-ayodele/estate-archive/internal/rules"
	"github.com/joseph-ayodele/estate-archive/internal/sink"
)

var isPostgres = repository.IsPostgres

// store is an open, migrated database plus its repositories.
type store struct {
	db       *repository.DB
	results  repository.ResultRepository
	reviews  repository.ReviewRepository
	registry repository.RegistryRepository
}

func (a *app) openStore(ctx context.Context) (*store, error) {
	db, err := repository.Open(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(db, a.logger); err != nil {
		repository.Close(db, a.logger)
		return nil, err
	}
	return &store{
		db:       db,
		results:  repository.NewResultRepository(db, a.logger),
		reviews:  repository.NewReviewRepository(db, a.logger),
		registry: repository.NewRegistryRepository(db, a.logger),
	}, nil
}

func (s *store) close(a *app) { repository.Close(s.db, a.logger) }

func (a *app) loadRegistry(ctx context.Context, st *store) (*registry.Registry, error) {
	if path := a.cfg.Pipeline.RegistryFile; path != "" {
		return registry.LoadFile(path, a.logger)
	}
	return st.registry.LoadRegistry(ctx)
}

func (a *app) buildPipeline(ctx context.Context, st *store) (*pipeline.Pipeline, error) {
	rs, err := rules.Load(a.cfg.Pipeline.RulesFile)
	if err != nil {
		return nil, err
	}
	reg, err := a.loadRegistry(ctx, st)
	if err != nil {
		return nil, err
	}
	a.logger.Info("pipeline ready",
		"rules_source", rs.Source,
		"rules_digest", rs.Digest,
		"registry_source", reg.Source(),
		"registry_records", reg.Len(),
	)
	return pipeline.New(rs, reg, a.logger), nil
}

func (a *app) buildLoader() *ocr.Loader {
	return ocr.NewLoader(ocr.NewExtractor(ocr.Config{
		TesseractLang:       a.cfg.OCR.Language,
		TessdataDir:         a.cfg.OCR.TessdataDir,
		DPI:                 a.cfg.OCR.DPI,
		EnableTSVConfidence: true,
		PSM:                 6,
	}, a.logger))
}

// buildSink fans out to the database and, when configured, Kafka and S3.
// The returned func closes the Kafka writer.
func (a *app) buildSink(ctx context.Context, st *store) (*sink.Multi, func(), error) {
	sinks := []sink.Named{sink.NewRepositorySink(st.results, st.reviews, a.logger)}
	closeFn := func() {}

	sc := a.cfg.Sink
	if sc.KafkaEnabled() {
		ks := sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:      sc.KafkaBrokers,
			ResultsTopic: sc.KafkaResultsTopic,
			ReviewTopic:  sc.KafkaReviewTopic,
		}, a.logger)
		sinks = append(sinks, ks)
		closeFn = func() {
			if err := ks.Close(); err != nil {
				a.logger.Warn("failed to close kafka writer", "error", err)
			}
		}
		a.logger.Info("kafka sink enabled", "results_topic", sc.KafkaResultsTopic, "review_topic", sc.KafkaReviewTopic)
	}
	if sc.S3Enabled() {
		as, err := sink.NewArchiveSink(ctx, sink.ArchiveConfig{
			Endpoint:        sc.S3Endpoint,
			AccessKeyID:     sc.S3AccessKeyID,
			SecretAccessKey: sc.S3SecretAccessKey,
			Bucket:          sc.S3Bucket,
			UseSSL:          sc.S3UseSSL,
		}, a.logger)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("archive sink: %w", err)
		}
		sinks = append(sinks, as)
		a.logger.Info("archive sink enabled", "bucket", sc.S3Bucket)
	}
	return sink.NewMulti(sinks...), closeFn, nil
}
