package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"advisorsql-backend/internal/chat"
	"advisorsql-backend/internal/config"
	"advisorsql-backend/internal/llm"
	"advisorsql-backend/internal/schema"
	"advisorsql-backend/internal/sqlquery"
)

const allocationsCSV = `Client,Target Portfolio,Asset Class,Target Allocation (%)
Client_1,Growth,Stocks,60
Client_1,Growth,Bonds,
Client_2,,Cash,10
`

const advisorsCSV = `Client,Sector,Analyst Rating,Risk Level,Market Value
Client_1,Technology,Buy,High,1200.5
Client_2,,,,
`

// scriptedLLM asks for one query, then answers with whatever came back
type scriptedLLM struct {
	query string
}

func (s *scriptedLLM) Chat(ctx context.Context, req *llm.LLMRequest) (*llm.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	last := req.Messages[len(req.Messages)-1]
	if last.OfTool != nil {
		return &llm.LLMResponse{Content: "Result: " + last.OfTool.Content.OfString.Value}, nil
	}
	args, _ := json.Marshal(map[string]string{"query": s.query})
	return &llm.LLMResponse{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "sql_tool", Arguments: string(args)}}}, nil
}

func (s *scriptedLLM) SetModel(string) error { return nil }
func (s *scriptedLLM) GetModel() string      { return "scripted" }

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Database.URL = filepath.Join(dir, "db", "database.db")
	cfg.Data.AllocationsCSV = filepath.Join(dir, "allocations.csv")
	cfg.Data.AdvisorsClientsCSV = filepath.Join(dir, "advisors_clients.csv")
	require.NoError(t, os.WriteFile(cfg.Data.AllocationsCSV, []byte(allocationsCSV), 0o644))
	require.NoError(t, os.WriteFile(cfg.Data.AdvisorsClientsCSV, []byte(advisorsCSV), 0o644))
	return cfg
}

func newTestApp(t *testing.T, client llm.LLMClient) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := NewApp(context.Background(), newTestConfig(t), zap.NewNop(), client)
	require.NoError(t, err)
	app.InitRouter()
	return app
}

func doJSON(t *testing.T, app *App, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestNewAppIngestsAndLoadsSchema(t *testing.T) {
	app := newTestApp(t, nil)

	require.Len(t, app.Loads, 2)
	assert.Equal(t, schema.TableAllocations, app.Loads[0].Table)
	assert.Equal(t, 3, app.Loads[0].Rows)
	assert.Equal(t,
		[]string{"Client", "Target Portfolio", "Asset Class", "Target Allocation (%)"},
		app.Registry.Columns(schema.TableAllocations))
	assert.Nil(t, app.Chat)
}

func TestHealthAndSchema(t *testing.T) {
	app := newTestApp(t, nil)

	w, body := doJSON(t, app, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["chat"])

	w, body = doJSON(t, app, http.MethodGet, "/api/schema", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	tables := body["tables"].([]interface{})
	require.Len(t, tables, 2)
	assert.Equal(t, schema.TableAllocations, tables[0].(map[string]interface{})["name"])
}

func TestQueryEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	w, body := doJSON(t, app, http.MethodPost, "/api/query", map[string]string{
		"query": "SELECT * FROM allocations WHERE `Asset Class` = 'Bonds'",
	})
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, []interface{}{"Client", "Target Portfolio", "Asset Class", "Target Allocation (%)"}, body["columns"])
	assert.Equal(t, `[["Client_1","Growth","Bonds",0]]`, body["output"])

	w, body = doJSON(t, app, http.MethodPost, "/api/query", map[string]string{
		"query": "SELECT `Client` FROM allocations WHERE `Client` = 'Client_9'",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["empty"])
	assert.Equal(t, sqlquery.NoResultsMessage, body["output"])
}

func TestQueryEndpointErrors(t *testing.T) {
	app := newTestApp(t, nil)

	for name, query := range map[string]string{
		"store error": "SELECT `Nope` FROM allocations",
		"not select":  "DROP TABLE allocations",
		"multiple":    "SELECT 1; SELECT 2",
	} {
		t.Run(name, func(t *testing.T) {
			w, body := doJSON(t, app, http.MethodPost, "/api/query", map[string]string{"query": query})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}

	w, _ := doJSON(t, app, http.MethodPost, "/api/query", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the table survived the rejected DROP
	w, _ = doJSON(t, app, http.MethodPost, "/api/query", map[string]string{"query": "SELECT COUNT(*) FROM allocations"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatEndpoint(t *testing.T) {
	app := newTestApp(t, &scriptedLLM{query: "SELECT `Client`, `Sector` FROM advisors_clients WHERE `Client` = 'Client_2'"})
	require.NotNil(t, app.Chat)

	w, body := doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{"message": "What sector is Client_2 in?"})
	require.Equal(t, http.StatusOK, w.Code, body)

	assert.Equal(t, `Result: [["Client_2","Unknown Sector"]]`, body["response"])
	assert.NotEmpty(t, body["session_id"])
	steps := body["steps"].([]interface{})
	require.Len(t, steps, 1)
	assert.Equal(t, "sql_tool", steps[0].(map[string]interface{})["tool"])

	history := app.Chat.History(body["session_id"].(string))
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleAssistant, history[1].Role)
}

func TestChatEndpointErrors(t *testing.T) {
	app := newTestApp(t, nil)
	w, _ := doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	app = newTestApp(t, &scriptedLLM{query: "SELECT 1"})
	w, _ = doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a cancelled request never reaches the model
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIngestMissingFile(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Data.AdvisorsClientsCSV = filepath.Join(t.TempDir(), "missing.csv")

	_, err := NewApp(context.Background(), cfg, zap.NewNop(), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
