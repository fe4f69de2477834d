// Package cmd implements the command-line interface for tripbooker.
//
// This package provides the following commands:
//   - serve: Start the OAuth proxy and the MCP server
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
// Flags fall back to environment variables, which may in turn come from a
// .env file or an AWS Secrets Manager secret loaded at startup.
package cmd
