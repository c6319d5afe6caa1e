package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markbank/md2db/internal/pipeline"
	"github.com/markbank/md2db/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeRunInProgress  = -32001 // Another ingestion run is already in progress
	ErrorCodeEmptyQuery     = -32002 // Query parameter is empty
	ErrorCodeAllChunksFatal = -32003 // Every chunk of the file failed
)

// handleIngestFile handles the ingest_file tool invocation
func (s *Server) handleIngestFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateBankPath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	config := &pipeline.Config{
		Workers:        getIntDefault(args, "workers", 0),
		ChunkSizeBytes: int64(getIntDefault(args, "chunk_size_bytes", 0)),
		BatchSize:      getIntDefault(args, "batch_size", 0),
		RetryLimit:     getIntDefault(args, "retry_limit", 0),
	}

	result, err := s.processor.Process(ctx, path, config)
	if errors.Is(err, types.ErrRunInProgress) {
		return nil, newMCPError(ErrorCodeRunInProgress, "an ingestion run is already in progress", nil)
	}
	if err != nil && result == nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"questions_written":   result.QuestionsWritten,
		"questions_duplicate": result.QuestionsDuplicate,
		"chunks_processed":    result.ChunksProcessed,
		"chunks_skipped":      result.ChunksSkipped,
		"chunks_failed":       result.ChunksFailed,
		"duration_ms":         result.Duration.Milliseconds(),
	}
	if len(result.FailedChunks) > 0 {
		failures := make([]map[string]interface{}, 0, len(result.FailedChunks))
		for _, cf := range result.FailedChunks {
			failures = append(failures, map[string]interface{}{
				"start":    cf.Start,
				"end":      cf.End,
				"attempts": cf.Attempts,
				"error":    cf.Err,
			})
		}
		response["failed_chunks"] = failures
	}
	if len(result.WriteFailures) > 0 {
		response["write_failures"] = len(result.WriteFailures)
	}
	if len(result.Warnings) > 0 {
		response["warnings"] = result.Warnings
	}
	if err != nil {
		// Whole-run failure with a populated result: every chunk failed
		return nil, newMCPError(ErrorCodeAllChunksFatal, err.Error(), response)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchQuestions handles the search_questions tool invocation
func (s *Server) handleSearchQuestions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	qtype := types.QuestionType(getStringDefault(args, "question_type", ""))
	if qtype != "" && !qtype.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown question_type", map[string]interface{}{
			"param": "question_type",
			"value": string(qtype),
		})
	}

	questions, err := s.store.SearchQuestions(ctx, query, qtype, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(questions))
	for _, q := range questions {
		results = append(results, map[string]interface{}{
			"id":            q.ID,
			"content":       q.Content,
			"question_type": string(q.Type),
			"answer":        q.Answer,
			"explanation":   q.Explanation,
			"option_ids":    q.OptionIDs,
			"image_ids":     q.ImageIDs,
			"formula_ids":   q.FormulaIDs,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":   len(results),
		"results": results,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"questions": status.QuestionsCount,
		"options":   status.OptionsCount,
		"images":    status.ImagesCount,
		"formulas":  status.FormulasCount,
		"size_mb":   status.StoreSizeMB,
	})), nil
}

// newMCPError creates an MCP protocol error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateBankPath checks that path points to a readable Markdown file
func validateBankPath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrPathIsDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrPathIsDirectory = errors.New("path is a directory, expected a file")
)
