package knowledge

import (
	"context"
	"fmt"

	"github.com/valorlife/membercenter/pkg/toolexecutor"
)

// ToolExecutor interface for registering tools
// This avoids circular dependency with pkg/toolexecutor
type ToolExecutor interface {
	RegisterTool(def toolexecutor.ToolDefinition) error
}

// RegisterKnowledgeTools registers knowledge base tools with the tool executor
func RegisterKnowledgeTools(executor ToolExecutor, manager *Manager) error {
	tools := []toolexecutor.ToolDefinition{
		{
			Name:        "search_knowledge_base",
			Description: "Search benefit plan documents, FAQs and policy guides using hybrid vector and keyword search",
			Parameters: []toolexecutor.ToolParameter{
				{
					Name:        "query",
					Type:        "string",
					Description: "Search query",
					Required:    true,
				},
				{
					Name:        "limit",
					Type:        "integer",
					Description: "Maximum number of results to return",
					Required:    false,
					Default:     5,
				},
				{
					Name:        "min_score",
					Type:        "number",
					Description: "Minimum relevance score threshold",
					Required:    false,
					Default:     0.0,
				},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				query, _ := params["query"].(string)

				opts := &SearchOptions{
					Limit:         5,
					VectorWeight:  0.7,
					KeywordWeight: 0.3,
				}
				if limit, ok := params["limit"].(float64); ok && limit > 0 {
					opts.Limit = int(limit)
				}
				if minScore, ok := params["min_score"].(float64); ok {
					opts.MinScore = minScore
				}

				results, err := manager.Search(ctx, query, opts)
				if err != nil {
					return nil, fmt.Errorf("knowledge search failed: %w", err)
				}

				return map[string]interface{}{
					"query":   query,
					"count":   len(results),
					"results": results,
				}, nil
			},
		},
		{
			Name:        "get_knowledge_status",
			Description: "Report the state of the knowledge base index",
			Parameters:  []toolexecutor.ToolParameter{},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return manager.Status(), nil
			},
		},
	}

	for _, tool := range tools {
		if err := executor.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}

	return nil
}
