// Package mcpbridge connects to a remote browser-automation service over the
// MCP streamable-http transport and exposes its tools in the forms the rest
// of this module consumes: tool descriptors for building a registry and a
// CallTool method returning text and image content.
package mcpbridge
