// Package resources provides MCP resources describing the signed-in user.
// Resources are read-only data sources that MCP clients can fetch. Every
// resource here is scoped to the caller: the identity placed in the request
// context by the OAuth resource guard selects whose data is returned.
package resources
