package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/database"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/analyzer"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/worker"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/pkg/hash"
)

// Services is the dependency graph shared by the HTTP server and the CLI.
type Services struct {
	Backfill    service.BackfillService
	Detection   service.DetectionService
	Remediation service.RemediationService
	Export      service.ExportService

	Catalog repository.SubmissionRepository
	Pools   []*worker.Pool

	db        *sql.DB
	publisher integration.EventPublisher
	logger    zerolog.Logger
}

type stores struct {
	catalog      repository.SubmissionRepository
	fingerprints repository.FingerprintRepository
	audit        repository.AuditRepository
}

func NewServices(cfg *config.Config, log zerolog.Logger) (*Services, error) {
	s := &Services{logger: log}

	st, err := s.openStores(cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobs(cfg, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.publisher = integration.NewNoopPublisher()
	if cfg.RabbitMQ.Enabled {
		publisher, err := integration.NewRabbitMQPublisher(cfg.RabbitMQ, log)
		if err != nil {
			// Events are advisory; keep serving without them.
			log.Error().Err(err).Msg("Failed to create RabbitMQ publisher, events disabled")
		} else {
			s.publisher = publisher
		}
	}

	algorithm, err := hash.ParseAlgorithm(cfg.Hash.Algorithm)
	if err != nil {
		s.Close()
		return nil, err
	}
	hasher, err := hash.NewStreamHasher(algorithm)
	if err != nil {
		s.Close()
		return nil, err
	}

	backfillPool := worker.NewPool("backfill", cfg.Backfill.MaxWorkers, cfg.Backfill.ItemTimeout, log)
	remediationPool := worker.NewPool("remediation", cfg.Remediation.MaxWorkers, cfg.Remediation.ItemTimeout, log)
	s.Pools = []*worker.Pool{backfillPool, remediationPool}

	audit := service.NewAuditSink(st.audit, cfg.Audit.Timeout, log)
	grouper := analyzer.NewExactGrouper(string(algorithm), cfg.Detection.IncludeExcludedIDs)

	s.Catalog = st.catalog
	s.Backfill = service.NewBackfillService(
		st.catalog,
		st.fingerprints,
		blobs,
		hasher,
		backfillPool,
		service.NewRateLimiter(cfg.Backfill.RatePerSecond, cfg.Backfill.Burst),
		audit,
		s.publisher,
		log,
	)
	s.Detection = service.NewDetectionService(st.catalog, grouper, cfg.Detection.DefaultMinSimilarity, log)
	s.Remediation = service.NewRemediationService(
		st.fingerprints,
		remediationPool,
		audit,
		s.publisher,
		cfg.Remediation.MaxBatchSize,
		log,
	)
	s.Export = service.NewExportService(s.Detection, log)

	return s, nil
}

func (s *Services) openStores(cfg *config.Config) (stores, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		mem := repository.NewMemoryStore()
		if cfg.Storage.SeedFile != "" {
			if err := mem.LoadSeedFile(cfg.Storage.SeedFile); err != nil {
				return stores{}, err
			}
		}
		s.logger.Warn().Msg("Using in-memory storage, changes will not persist")
		return stores{catalog: mem, fingerprints: mem, audit: repository.NewMemoryAuditRepository()}, nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("failed to ping database: %w", err)
	}
	s.db = db
	s.logger.Info().Msg("Database connection established")

	return stores{
		catalog:      repository.NewSubmissionRepository(db, s.logger),
		fingerprints: repository.NewFingerprintRepository(db, s.logger),
		audit:        repository.NewAuditRepository(db, s.logger),
	}, nil
}

func openBlobs(cfg *config.Config, log zerolog.Logger) (repository.BlobRepository, error) {
	if cfg.Blob.Driver == config.BlobDriverFilesystem {
		return repository.NewFilesystemBlobRepository(cfg.Blob.RootDir, log), nil
	}

	blobs, err := repository.NewMinIOBlobRepository(
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.Bucket,
		cfg.MinIO.UseSSL,
		cfg.MinIO.ConnectTimeout,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return blobs, nil
}

// Close releases the publisher and database connection. Safe to call twice.
func (s *Services) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close event publisher")
		}
		s.publisher = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close database connection")
		}
		s.db = nil
	}
}

// Migrate applies or rolls back the embedded schema. It requires the
// postgres storage driver.
func Migrate(cfg *config.Config, direction string, log zerolog.Logger) error {
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		return fmt.Errorf("migrations require storage.driver=%s", config.StorageDriverPostgres)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Run(direction); err != nil {
		return err
	}

	if version, dirty, err := migrator.Version(); err == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	}
	return nil
}
