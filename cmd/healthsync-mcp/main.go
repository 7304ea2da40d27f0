package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/healthsync/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Serves the MCP tools over stdio, reading data from a running server's REST API.
func main() {
	serverURL := flag.String("server", "http://localhost:8080", "healthsync server URL")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	client := mcp.NewHTTPClient(strings.TrimRight(*serverURL, "/"))
	srv := mcp.New(client, Version, log)

	if err := mcpserver.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %v\n", err)
		os.Exit(1)
	}
}
