package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestFileTool returns the tool definition for ingest_file
func ingestFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_file",
		Description: "Ingest a Markdown question bank into the document store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the Markdown question bank file",
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of concurrent parse workers (default: CPU count)",
					"minimum":     1,
				},
				"chunk_size_bytes": map[string]interface{}{
					"type":        "integer",
					"description": "Target chunk size in bytes (default: 10485760)",
					"minimum":     1,
				},
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Questions per bulk write (default: 1000)",
					"minimum":     1,
				},
				"retry_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum attempts per chunk (default: 3)",
					"minimum":     1,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchQuestionsTool returns the tool definition for search_questions
func searchQuestionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_questions",
		Description: "Search ingested questions by content substring",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to match against question content",
				},
				"question_type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one question type",
					"enum":        []string{"multiple_choice", "true_false", "fill_in_blank", "subjective"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report collection counts and store size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
