// Package mcp provides an MCP (Model Context Protocol) server adapter for Kairoscope.
// It lets AI assistants pull inspiration from the knowledge base and generate decks.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
