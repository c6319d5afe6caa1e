// Package mcp exposes the ingestion pipeline over the Model Context
// Protocol.
//
// The server registers three tools on a stdio transport:
//
//   - ingest_file: run the pipeline on a Markdown question bank
//   - search_questions: substring search over ingested questions
//   - get_status: collection counts and store size
//
// # Usage
//
//	srv, err := mcp.NewServer("~/.md2db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Mapping
//
// Tool failures are reported as MCP protocol errors. Parameter problems map
// to -32602, internal failures to -32603, and domain conditions (run
// already in progress, all chunks failed) to server-specific codes. Partial
// ingestion failure is not an error: chunk and write failures appear in the
// ingest_file response body.
package mcp
