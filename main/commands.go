package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"advisorsql-backend/internal/chat"
	"advisorsql-backend/internal/sqlquery"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API",
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the agent a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a SELECT statement through the query pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the CSV files into the database",
	Args:  cobra.NoArgs,
	RunE:  runIngest,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	go app.Hub.Run(ctx)
	app.InitRouter()

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: app.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	app, err := NewApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	resp, err := app.Chat.ProcessUserMessage(ctx, &chat.ChatRequest{
		SessionID: sessionID,
		Content:   strings.Join(args, " "),
	})
	if err != nil {
		return err
	}

	for _, step := range resp.Steps {
		logger.Debug("agent step", zap.String("tool", step.Tool), zap.Any("input", step.Input), zap.String("output", step.Output))
	}

	raw, _ := cmd.Flags().GetBool("raw")
	out := cmd.OutOrStdout()
	if raw {
		fmt.Fprintln(out, resp.Response)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(resp.Response)
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg.Data.IngestOnStart = false
	app, err := NewApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	result, err := app.SQLTool.ExecuteQuery(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		payload, err := result.Payload()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, payload)
		return nil
	}

	if result.Empty {
		fmt.Fprintln(out, sqlquery.NoResultsMessage)
		return nil
	}
	fmt.Fprintln(out, sqlquery.RenderTable(result.Columns, result.Rows))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg.Data.IngestOnStart = true
	app, err := NewApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, load := range app.Loads {
		fmt.Fprintf(out, "%s: %d rows, %d columns\n", load.Table, load.Rows, len(load.Columns))
	}
	return nil
}
