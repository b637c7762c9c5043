// Package mcp exposes the sales filter, KPI and insight operations as MCP
// tools over JSON-RPC 2.0. Server.Serve speaks the line-delimited stdio
// transport and Server.ServeHTTP accepts one request per POST.
package mcp
