package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/importer"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeUserNotFound     = -32001 // No user with the given ID
	ErrorCodeImportInProgress = -32002 // Another import is already running
	ErrorCodeInvalidQuery     = -32003 // Query too short or too long
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

const (
	defaultLanguage  = "ar"
	defaultToolLimit = 10
	maxToolLimit     = 100
	maxReportedError = 5
)

// handleSearchContent handles the search_content tool invocation
func (s *Server) handleSearchContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	q, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	language, err := parseLanguage(args)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", defaultToolLimit)
	if limit < 1 || limit > maxToolLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	filters, err := parseFilters(args)
	if err != nil {
		return nil, err
	}

	out := s.searcher.Search(ctx, q, language, nil, searcher.Options{Limit: limit, Filters: filters})

	response := map[string]interface{}{
		"query":       q,
		"language":    language,
		"intent":      out.Intent,
		"total_count": len(out.Results),
		"cache_hit":   out.CacheHit,
		"fallback":    out.Fallback,
		"duration_ms": out.Duration.Milliseconds(),
		"results":     out.Results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSuggestQueries handles the suggest_queries tool invocation
func (s *Server) handleSuggestQueries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	q, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing",
		})
	}

	language, err := parseLanguage(args)
	if err != nil {
		return nil, err
	}
	limit, err := parseLimit(args, searcher.DefaultSuggestionLimit)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"query":       q,
		"suggestions": s.searcher.GetSearchSuggestions(ctx, q, language, limit),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleTrendingSearches handles the trending_searches tool invocation
func (s *Server) handleTrendingSearches(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	language, err := parseLanguage(args)
	if err != nil {
		return nil, err
	}
	limit, err := parseLimit(args, searcher.DefaultTrendingLimit)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"language": language,
		"trending": s.searcher.GetTrendingSearches(language, limit),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRecommendContent handles the recommend_content tool invocation
func (s *Server) handleRecommendContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	userID, ok := args["user_id"].(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "user_id parameter is required", map[string]interface{}{
			"param":  "user_id",
			"reason": "missing or empty",
		})
	}

	keywords, err := getStringSlice(args, "keywords")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "keywords must be an array of strings", map[string]interface{}{
			"param":  "keywords",
			"reason": err.Error(),
		})
	}

	if s.store != nil {
		if _, err := s.store.GetUser(ctx, userID); errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeUserNotFound, "user not found", map[string]interface{}{
				"user_id": userID,
			})
		} else if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to load user", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	recs := s.recommender.GetPersonalizedRecommendations(ctx, userID, keywords)
	response := map[string]interface{}{
		"user_id":         userID,
		"recommendations": recs,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleImportContent handles the import_content tool invocation
func (s *Server) handleImportContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	config := &importer.Config{Force: getBoolDefault(args, "force", false)}
	stats, err := s.importer.ImportPaths(ctx, []string{path}, config)
	if errors.Is(err, importer.ErrImportInProgress) {
		return nil, newMCPError(ErrorCodeImportInProgress, "an import is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "import failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"imported":       true,
		"files_imported": stats.FilesImported,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"items_imported": stats.ItemsImported,
		"items_failed":   stats.ItemsFailed,
		"users_imported": stats.UsersImported,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if errorCount := len(stats.ErrorMessages); errorCount > 0 {
		if errorCount > maxReportedError {
			response["errors"] = stats.ErrorMessages[:maxReportedError]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
		"cache_entries": s.searcher.CacheLen(),
		"metrics":       s.searcher.Tracker().Metrics(),
	}

	if s.embedder != nil {
		response["embedder"] = map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		}
	}

	if s.store != nil {
		status, err := s.store.GetStatus(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["content"] = status
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requireQuery extracts and validates the query argument
func requireQuery(args map[string]interface{}) (string, error) {
	q, _ := args["query"].(string)
	v := query.ValidateSearchQuery(q)
	switch {
	case v.Valid:
		return q, nil
	case v.Reason == query.ReasonEmpty:
		return "", newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": v.Reason,
		})
	default:
		data := map[string]interface{}{
			"param":  "query",
			"reason": v.Reason,
		}
		if v.Suggestion != "" {
			data["suggestion"] = v.Suggestion
		}
		return "", newMCPError(ErrorCodeInvalidQuery, "invalid query", data)
	}
}

func parseLanguage(args map[string]interface{}) (string, error) {
	language := strings.ToLower(getStringDefault(args, "language", defaultLanguage))
	if language == "" {
		return defaultLanguage, nil
	}
	if language != "ar" && language != "en" {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid language", map[string]interface{}{
			"param":   "language",
			"value":   language,
			"allowed": []string{"ar", "en"},
		})
	}
	return language, nil
}

func parseLimit(args map[string]interface{}, defaultValue int) (int, error) {
	limit := getIntDefault(args, "limit", defaultValue)
	if limit < 1 || limit > maxToolLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// parseFilters reads the optional filters object of search_content
func parseFilters(args map[string]interface{}) (fetcher.Filters, error) {
	var filters fetcher.Filters
	raw, _ := args["filters"].(map[string]interface{})
	if raw == nil {
		return filters, nil
	}

	names, err := getStringSlice(raw, "type")
	if err != nil {
		return filters, newMCPError(ErrorCodeInvalidParams, "filters.type must be an array of strings", map[string]interface{}{
			"param":  "filters.type",
			"reason": err.Error(),
		})
	}
	for _, name := range names {
		kind, err := types.ParseContentKind(name)
		if err != nil {
			return filters, newMCPError(ErrorCodeInvalidParams, "invalid content type", map[string]interface{}{
				"param":   "filters.type",
				"value":   name,
				"allowed": kindNames(),
			})
		}
		filters.Types = append(filters.Types, kind)
	}

	dateRange, err := fetcher.ParseDateRange(getStringDefault(raw, "date_range", ""))
	if err != nil {
		return filters, newMCPError(ErrorCodeInvalidParams, "invalid date_range", map[string]interface{}{
			"param":   "filters.date_range",
			"reason":  err.Error(),
			"allowed": []string{"all", "week", "month", "year"},
		})
	}
	filters.DateRange = dateRange
	return filters, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable dump file or a
// directory containing at least one dump file
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		if !importer.Supported(path) {
			return ErrUnsupportedFile
		}
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	found := false
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && importer.Supported(p) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if !found {
		return ErrNoDumpFiles
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	switch val := args[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for i, v := range val {
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T", i, v)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("got %T", val)
	}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrUnsupportedFile = errors.New("file is not a .yaml, .yml or .json dump")
	ErrNoDumpFiles     = errors.New("directory does not contain dump files")
)
