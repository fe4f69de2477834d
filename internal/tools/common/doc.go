// Package common holds helpers shared by the MCP tool packages: the caller
// identity lookup and the instrumentation wrapper every tool is registered
// through.
package common
