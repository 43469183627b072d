package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"advisorsql-backend/internal/chat"
	"advisorsql-backend/internal/sqlquery"
	"advisorsql-backend/internal/tools"
	"advisorsql-backend/internal/websocket"
)

const version = "1.0.0"

// InitRouter builds the HTTP routes
func (app *App) InitRouter() {
	app.Router = gin.New()
	if gin.Mode() == gin.DebugMode {
		app.Router.Use(gin.Logger())
	}
	app.Router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	app.Router.Use(cors.New(config))

	api := app.Router.Group("/api")
	{
		api.GET("/health", app.healthHandler)
		api.GET("/schema", app.schemaHandler)
		api.POST("/query", app.queryHandler)
		api.POST("/chat", app.chatHandler)
	}

	if app.Chat != nil {
		handler := websocket.NewHandler(app.Hub, app.Chat, app.Logger)
		app.Router.GET("/ws/chat", handler.HandleWebSocket)
	}
}

func (app *App) healthHandler(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"version":     version,
		"chat":        app.Chat != nil,
		"connections": app.Hub.GetConnectionCount(),
	}

	if err := app.QuerySource.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

func (app *App) schemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": app.Registry.Tables()})
}

func (app *App) queryHandler(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := app.SQLTool.ExecuteQuery(c.Request.Context(), req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		if isClientQueryError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	output, err := result.Payload()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   result.Query,
		"columns": result.Columns,
		"rows":    result.Rows,
		"empty":   result.Empty,
		"output":  output,
	})
}

func isClientQueryError(err error) bool {
	return errors.Is(err, tools.ErrQueryFailed) ||
		errors.Is(err, sqlquery.ErrEmptyQuery) ||
		errors.Is(err, sqlquery.ErrStatementNotAllowed) ||
		errors.Is(err, sqlquery.ErrMultipleStatements)
}

func (app *App) chatHandler(c *gin.Context) {
	if app.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is disabled: no LLM API key configured"})
		return
	}

	var req chat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	resp, err := app.Chat.ProcessUserMessage(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		app.Logger.Error("chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM call failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
