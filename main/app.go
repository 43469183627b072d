package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"advisorsql-backend/internal/chat"
	"advisorsql-backend/internal/config"
	"advisorsql-backend/internal/db"
	"advisorsql-backend/internal/llm"
	"advisorsql-backend/internal/prompts"
	"advisorsql-backend/internal/schema"
	"advisorsql-backend/internal/sqlquery"
	"advisorsql-backend/internal/tools"
	"advisorsql-backend/internal/websocket"
)

// App wires the query pipeline, the agent and the HTTP surface
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Source      *db.Source
	QuerySource *db.Source
	Registry    *schema.Registry
	Loads       []*db.TableLoad
	SQLTool     *tools.SQLTool
	Tools       *tools.DefaultToolRegistry
	Chat        chat.ChatService
	Hub         *websocket.Hub
	Router      *gin.Engine
}

// NewApp connects to the store, optionally loads the CSV data and builds the
// tools. The agent is only created when an LLM client is available.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, llmClient llm.LLMClient) (*App, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Source: db.NewSource(db.ConfigFromURL(cfg.Database.URL)),
	}
	app.QuerySource = app.Source
	if cfg.Database.ReadOnly {
		app.QuerySource = app.Source.ReadOnly()
	}

	if cfg.Data.IngestOnStart {
		loads, err := app.Ingest(ctx)
		if err != nil {
			return nil, err
		}
		app.Loads = loads
	}

	logger.Info("loading schema")
	registry, err := schema.Load(ctx, app.QuerySource)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	app.Registry = registry

	app.SQLTool = tools.NewSQLTool(app.QuerySource, tools.SQLToolConfig{
		Registry:       registry,
		Extractor:      sqlquery.NewExtractor(cfg.SQL.Extractor, registry),
		Normalizer:     sqlquery.NewNormalizer(cfg.SQL.Defaults, cfg.SQL.Placeholder),
		AllowNonSelect: cfg.SQL.AllowNonSelect,
		Logger:         logger,
	})
	app.Tools, err = tools.NewDefaultToolRegistry(logger, app.SQLTool, tools.NewSchemaTool(registry))
	if err != nil {
		return nil, err
	}

	if llmClient == nil && cfg.LLM.APIKey != "" {
		llmClient = llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, logger)
	}
	if llmClient != nil {
		builder := prompts.NewBuilder(app.Tools.ListTools(), registry.Text(), prompts.Options{
			TopK:     cfg.Agent.TopK,
			FewShotK: cfg.Agent.FewShotK,
		})
		app.Chat = chat.NewChatService(llmClient, app.Tools, chat.Config{
			Model:         cfg.LLM.Model,
			Temperature:   cfg.LLM.Temperature,
			Seed:          cfg.LLM.Seed,
			MaxIterations: cfg.Agent.MaxIterations,
			Prompts:       builder,
			Logger:        logger,
		})
		logger.Info("agent ready", zap.String("model", cfg.LLM.Model))
	} else {
		logger.Warn("no LLM API key configured, chat is disabled")
	}

	app.Hub = websocket.NewHub(logger)
	return app, nil
}

// Ingest replaces both known tables with the configured CSV files and checks
// that each one answers a query afterwards
func (app *App) Ingest(ctx context.Context) ([]*db.TableLoad, error) {
	files := map[string]string{
		schema.TableAllocations:     app.Config.Data.AllocationsCSV,
		schema.TableAdvisorsClients: app.Config.Data.AdvisorsClientsCSV,
	}

	conf := app.Source.Config()
	if conf.DatabaseType == db.DatabaseTypeSQLite {
		if dir := filepath.Dir(conf.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	app.Logger.Info("connecting to database", zap.String("type", string(conf.DatabaseType)))
	database, err := app.Source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer database.Close()

	loads := make([]*db.TableLoad, 0, len(schema.KnownTables))
	for _, table := range schema.KnownTables {
		app.Logger.Info("ingesting table", zap.String("table", table), zap.String("file", files[table]))
		load, err := db.IngestCSV(ctx, database, table, files[table])
		if err != nil {
			return nil, err
		}
		loads = append(loads, load)
	}

	var errs []error
	for _, table := range schema.KnownTables {
		if err := db.PingTable(ctx, database, table); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	app.Logger.Info("database health check passed", zap.Int("tables", len(loads)))
	return loads, nil
}
