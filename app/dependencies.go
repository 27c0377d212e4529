package app

import (
	"context"
	"fmt"
	"time"

	"github.com/smotta/flow-rag-api/config"
	"github.com/smotta/flow-rag-api/repositories"
	"github.com/smotta/flow-rag-api/repositories/postgres"
	"github.com/smotta/flow-rag-api/services/audit"
	"github.com/smotta/flow-rag-api/services/chat"
	"github.com/smotta/flow-rag-api/services/embedding"
	"github.com/smotta/flow-rag-api/services/flowauth"
	"github.com/smotta/flow-rag-api/services/gateway"
	"github.com/smotta/flow-rag-api/services/loader"
	"github.com/smotta/flow-rag-api/services/retrieval"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	AuditDB *postgres.DB // nil when audit persistence is disabled
	Logger  *zap.Logger

	// Flow API
	Session *flowauth.Session
	Gateway *gateway.Service

	// RAG pipeline
	Loader    *loader.Loader
	Retrieval *retrieval.Service

	// Audit
	AuditRepo repositories.ChatAuditRepository
	Audit     *audit.Service

	// Orchestration
	Chat *chat.Service
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initAuditDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize audit database: %w", err)
	}

	deps.initFlow(cfg)

	if err := deps.initRAG(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize rag pipeline: %w", err)
	}

	if err := deps.initAudit(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit service: %w", err)
	}

	deps.Chat = chat.NewService(deps.Retrieval, deps.Gateway, deps.Audit, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initAuditDatabase connects the optional audit database. A nil config
// means interactions are logged only.
func (d *Dependencies) initAuditDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.AuditDatabase == nil {
		d.Logger.Info("audit database not configured, persistence disabled")
		return nil
	}

	db, err := postgres.NewDB(*cfg.AuditDatabase, d.Logger)
	if err != nil {
		return err
	}
	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	d.AuditDB = db
	d.AuditRepo = postgres.NewChatAuditRepository(db, d.Logger)
	return nil
}

func (d *Dependencies) initFlow(cfg *config.Config) {
	d.Session = flowauth.NewSession(flowauth.Config{
		BaseURL:      cfg.Flow.BaseURL,
		Tenant:       cfg.Flow.Tenant,
		ClientID:     cfg.Flow.ClientID,
		ClientSecret: cfg.Flow.ClientSecret,
		AppToAccess:  cfg.Flow.AppToAccess,
		Timeout:      cfg.Flow.Timeout,
	}, d.Logger)

	d.Gateway = gateway.NewService(gateway.Config{
		BaseURL:   cfg.Flow.BaseURL,
		AgentName: cfg.Flow.AgentName,
		Timeout:   cfg.Flow.Timeout,
	}, d.Session, d.Logger)
}

func (d *Dependencies) initRAG(cfg *config.Config) error {
	corpusLoader, err := loader.NewLoader(loader.Config{
		FolderPath: cfg.RAG.DocumentsPath,
		Extensions: cfg.RAG.SupportedFileTypes,
		Recurse:    cfg.RAG.RecurseFolders,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.Loader = corpusLoader
	d.Retrieval = retrieval.NewService(
		embedding.NewHashEmbedder(cfg.RAG.EmbeddingDimension),
		d.Logger)
	return nil
}

func (d *Dependencies) initAudit() error {
	d.Audit = audit.NewService(d.AuditRepo, d.Logger, audit.DefaultConfig())
	return d.Audit.Start()
}

// LoadCorpus loads and indexes the configured document folder
func (d *Dependencies) LoadCorpus() error {
	records := d.Loader.Load()
	if len(records) == 0 {
		d.Logger.Warn("no documents found in corpus folder",
			zap.String("folder", d.Config.RAG.DocumentsPath))
		return nil
	}
	if !d.Retrieval.Initialize(records) {
		return fmt.Errorf("failed to index %d loaded documents", len(records))
	}
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		if err := d.Audit.Stop(5 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.AuditDB != nil {
		if err := d.AuditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
