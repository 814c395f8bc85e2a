// Package mcp implements the Model Context Protocol (MCP) server for contentsearch.
//
// The MCP server exposes the search pipeline to AI assistants:
//   - search_content: Semantic search across every content collection
//   - suggest_queries: Autocomplete from titles and names
//   - trending_searches: Static trending phrases per language
//   - recommend_content: Personalized recommendations for a user
//   - import_content: Import YAML/JSON dumps (only when an importer is configured)
//   - get_status: Content counts, embedder, cache and metrics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the mcp command:
//
//	contentsearch mcp
//
// # Tool: search_content
//
//	Request:
//	{
//	  "name": "search_content",
//	  "arguments": {
//	    "query": "ذكاء اصطناعي",
//	    "language": "ar",
//	    "limit": 10,
//	    "filters": {"type": ["article", "episode"], "date_range": "year"}
//	  }
//	}
//
//	Response:
//	{
//	  "query": "ذكاء اصطناعي",
//	  "total_count": 1,
//	  "cache_hit": false,
//	  "fallback": false,
//	  "intent": {"intent": "search", "category": "technology", ...},
//	  "results": [
//	    {"type": "article", "score": 1.05, "relevance": "very strong", "data": {...}}
//	  ]
//	}
//
// When embedding fails the search degrades to text matching and "fallback"
// is true. Scores of fallback results are a flat 0.5.
//
// # Error Handling
//
// Tool errors are returned as MCPError values carrying a JSON-RPC code:
//
//	-32602  Invalid parameters (bad limit, language, filters or path)
//	-32603  Internal error (storage or import failure)
//	-32001  User not found (recommend_content)
//	-32002  Import already in progress
//	-32003  Query too short or too long; data carries reason and suggestion
//	-32004  Query empty
//
// A search itself never fails once its parameters are valid.
package mcp
