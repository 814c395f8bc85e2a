package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/contentsearch/pkg/types"
)

func kindNames() []string {
	names := make([]string, len(types.AllKinds))
	for i, k := range types.AllKinds {
		names[i] = string(k)
	}
	return names
}

func languageProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Interface language of the caller",
		"enum":        []string{"ar", "en"},
		"default":     defaultLanguage,
	}
}

// searchContentTool returns the tool definition for search_content
func searchContentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_content",
		Description: "Semantic search over articles, episodes, seasons, playlists, team members, FAQs and legal pages (Arabic or English)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query, 2-200 characters",
				},
				"language": languageProperty(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     defaultToolLimit,
					"minimum":     1,
					"maximum":     maxToolLimit,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search",
					"properties": map[string]interface{}{
						"type": map[string]interface{}{
							"type":        "array",
							"description": "Restrict to these content types",
							"items": map[string]interface{}{
								"type": "string",
								"enum": kindNames(),
							},
						},
						"date_range": map[string]interface{}{
							"type":        "string",
							"description": "Only content published within this window",
							"enum":        []string{"all", "week", "month", "year"},
							"default":     "all",
						},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// suggestQueriesTool returns the tool definition for suggest_queries
func suggestQueriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest_queries",
		Description: "Autocomplete: titles and names containing the typed text, most popular first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text typed so far (at least 2 characters)",
				},
				"language": languageProperty(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of suggestions",
					"default":     10,
					"minimum":     1,
					"maximum":     maxToolLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// trendingSearchesTool returns the tool definition for trending_searches
func trendingSearchesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "trending_searches",
		Description: "Trending search phrases for a language",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"language": languageProperty(),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of phrases",
					"default":     10,
					"minimum":     1,
					"maximum":     maxToolLimit,
				},
			},
		},
	}
}

// recommendContentTool returns the tool definition for recommend_content
func recommendContentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "recommend_content",
		Description: "Personalized recommendations from a user's interests, current keywords and popular content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the user to recommend for",
				},
				"keywords": map[string]interface{}{
					"type":        "array",
					"description": "Keywords of the current search session",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"user_id"},
		},
	}
}

// importContentTool returns the tool definition for import_content
func importContentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_content",
		Description: "Import YAML or JSON content dumps from a file or directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a dump file or a directory of dumps",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-import files even when their content hash is unchanged",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Content counts, embedding provider, cache size and search metrics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
