package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"advisorsql-backend/internal/db"
	"advisorsql-backend/internal/schema"
	"advisorsql-backend/internal/sqlquery"
)

// SQLToolName is the name the agent calls the query tool by
const SQLToolName = "sql_tool"

// Opener hands out a fresh connection per call
type Opener interface {
	Open(ctx context.Context) (*db.Database, error)
}

// SQLToolConfig configures the query pipeline
type SQLToolConfig struct {
	Registry       *schema.Registry
	Extractor      sqlquery.ColumnExtractor
	Normalizer     *sqlquery.Normalizer
	AllowNonSelect bool
	Logger         *zap.Logger
}

// QueryResult is the structured outcome of one query. Rows are already
// normalized; Empty marks a query that matched nothing.
type QueryResult struct {
	Query   string   `json:"query"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Empty   bool     `json:"empty"`
}

// Payload renders the result for the model
func (r *QueryResult) Payload() (string, error) {
	if r.Empty {
		return sqlquery.NoResultsMessage, nil
	}
	return sqlquery.EncodePayload(r.Rows)
}

// SQLTool rewrites, runs and normalizes agent generated queries
type SQLTool struct {
	source         Opener
	rewriter       *sqlquery.Rewriter
	extractor      sqlquery.ColumnExtractor
	normalizer     *sqlquery.Normalizer
	allowNonSelect bool
	logger         *zap.Logger
}

// NewSQLTool creates the query tool over source
func NewSQLTool(source Opener, cfg SQLToolConfig) *SQLTool {
	if cfg.Extractor == nil {
		cfg.Extractor = sqlquery.RegexExtractor{}
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = sqlquery.NewNormalizer(nil, "")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &SQLTool{
		source:         source,
		rewriter:       sqlquery.NewRewriter(cfg.Registry),
		extractor:      cfg.Extractor,
		normalizer:     cfg.Normalizer,
		allowNonSelect: cfg.AllowNonSelect,
		logger:         cfg.Logger,
	}
}

// ExecuteQuery runs one statement on its own connection. Store errors are
// returned wrapped in ErrQueryFailed.
func (t *SQLTool) ExecuteQuery(ctx context.Context, raw string) (*QueryResult, error) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return nil, sqlquery.ErrEmptyQuery
	}
	if !t.allowNonSelect {
		if err := sqlquery.CheckReadOnly(query); err != nil {
			t.logger.Warn("rejected statement", zap.String("query", query), zap.Error(err))
			return nil, err
		}
	}

	query = t.rewriter.Rewrite(query)
	t.logger.Info("running SQL tool", zap.String("query", query))

	database, err := t.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer database.Close()

	rs, err := database.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	if rs.RowCount == 0 {
		t.logger.Info("query returned no rows", zap.String("query", query))
		return &QueryResult{Query: query, Columns: rs.ColumnNames(), Rows: [][]any{}, Empty: true}, nil
	}

	columns := t.extractor.Extract(query)
	if len(columns) != len(rs.Columns) {
		t.logger.Warn("extracted columns do not match result width",
			zap.Strings("extracted", columns),
			zap.Int("width", len(rs.Columns)),
		)
	}

	return &QueryResult{
		Query:   query,
		Columns: columns,
		Rows:    t.normalizer.Normalize(columns, rs.Values()),
	}, nil
}

// Run is the string boundary used by the agent: the payload or the
// no-results message
func (t *SQLTool) Run(ctx context.Context, query string) (string, error) {
	result, err := t.ExecuteQuery(ctx, query)
	if err != nil {
		return "", err
	}
	return result.Payload()
}

// Name returns tool name
func (t *SQLTool) Name() string {
	return SQLToolName
}

// Description returns tool description
func (t *SQLTool) Description() string {
	return "Executes one SQL SELECT statement against the advisory database and returns the rows as a JSON array of arrays, " +
		"or a message saying nothing was found. Quote table and column names with backticks."
}

// Parameters returns tool parameters
func (t *SQLTool) Parameters() map[string]ToolParameter {
	return map[string]ToolParameter{
		"query": {
			Type:        "string",
			Description: "The SQL SELECT statement to execute",
			Required:    true,
		},
	}
}

// Execute runs the query parameter through the pipeline
func (t *SQLTool) Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error) {
	startTime := time.Now()

	query, ok := params["query"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing required parameter: query", ErrInvalidParameters)
	}

	result, err := t.ExecuteQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	output, err := result.Payload()
	if err != nil {
		return nil, err
	}

	return NewToolSuccess(map[string]interface{}{
		"query":   result.Query,
		"columns": result.Columns,
		"rows":    result.Rows,
		"empty":   result.Empty,
		"output":  output,
	}, int(time.Since(startTime).Milliseconds())), nil
}

// GetCategory returns tool category
func (t *SQLTool) GetCategory() string {
	return "database"
}
