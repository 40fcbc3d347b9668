// Package mcp exposes the fertilizer recommender as Model Context Protocol
// tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/service"
)

// Recommender is the part of the recommendation service the tools call.
type Recommender interface {
	Recommend(ctx context.Context, sample domain.SoilSample) (*service.RecommendationResult, error)
	Analyze(sample domain.SoilSample) (*domain.RecommendationResponse, error)
	ModelsLoaded() (bool, string)
}

// Server represents the fertilizer advisor MCP server
type Server struct {
	mcpServer   *mcp.Server
	recommender Recommender
	logger      *logrus.Logger
}

// NewServer creates a new MCP server instance and registers its tools.
func NewServer(cfg domain.MCPConfig, recommender Recommender, logger *logrus.Logger) *Server {
	name, version := cfg.ServerName, cfg.ServerVersion
	if name == "" {
		name = "fertilizer-advisor"
	}
	if version == "" {
		version = "1.0.0"
	}

	server := &Server{
		mcpServer:   mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		recommender: recommender,
		logger:      logger,
	}
	server.registerTools()

	return server
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolRecommend,
		Description: "Recommend a fertilizer type and quantity for a soil sample and crop",
	}, s.handleRecommend)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolAnalyze,
		Description: "Assess soil health and nutrient deficiencies without a trained model",
	}, s.handleAnalyze)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolCropProfile,
		Description: "Describe the rule profile and agronomic tip for a crop",
	}, s.handleCropProfile)

	s.logger.WithField("tool_count", 3).Info("Registered MCP tools")
}

// Start runs the server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting fertilizer advisor MCP server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
