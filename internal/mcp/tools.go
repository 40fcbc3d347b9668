package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/rules"
)

const (
	toolRecommend   = "recommend_fertilizer"
	toolAnalyze     = "analyze_soil"
	toolCropProfile = "get_crop_profile"
)

// SoilParams defines parameters for the recommend_fertilizer and
// analyze_soil tools
type SoilParams struct {
	Nitrogen    float64 `json:"nitrogen" jsonschema:"nitrogen level, 0 to 100"`
	Phosphorus  float64 `json:"phosphorus" jsonschema:"phosphorus level, 0 to 100"`
	Potassium   float64 `json:"potassium" jsonschema:"potassium level, 0 to 100"`
	PH          float64 `json:"ph" jsonschema:"soil pH, 4 to 8.5"`
	Moisture    float64 `json:"moisture" jsonschema:"soil moisture percent, 0 to 100"`
	Temperature float64 `json:"temperature" jsonschema:"temperature in Celsius, 0 to 50"`
	CropType    string  `json:"crop_type" jsonschema:"crop name such as Wheat or Rice"`
}

func (p SoilParams) sample() domain.SoilSample {
	return domain.SoilSample{
		Nitrogen:    p.Nitrogen,
		Phosphorus:  p.Phosphorus,
		Potassium:   p.Potassium,
		PH:          p.PH,
		Moisture:    p.Moisture,
		Temperature: p.Temperature,
		Crop:        domain.CropID(p.CropType),
	}
}

// RecommendResult defines the result structure for recommend_fertilizer
type RecommendResult struct {
	domain.RecommendationResponse
	ID           string `json:"id,omitempty"`
	ModelVersion string `json:"model_version"`
	Cached       bool   `json:"cached"`
}

// CropProfileParams defines parameters for get_crop_profile
type CropProfileParams struct {
	CropType string `json:"crop_type" jsonschema:"crop name such as Wheat or Rice"`
}

// CropProfileResult defines the result structure for get_crop_profile
type CropProfileResult struct {
	rules.CropProfile
	Tip string `json:"tip,omitempty"`
}

func (s *Server) handleRecommend(ctx context.Context, req *mcp.CallToolRequest, params SoilParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolRecommend).Info("Tool invoked")

	result, err := s.recommender.Recommend(ctx, params.sample())
	if err != nil {
		return s.createErrorResult(failureMessage(err), err), nil, nil
	}

	out := RecommendResult{
		RecommendationResponse: result.Response,
		ID:                     result.ID,
		ModelVersion:           result.ModelVersion,
		Cached:                 result.Cached,
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summarize(&out.RecommendationResponse)},
		},
	}, out, nil
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, params SoilParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolAnalyze).Info("Tool invoked")

	resp, err := s.recommender.Analyze(params.sample())
	if err != nil {
		return s.createErrorResult(failureMessage(err), err), nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summarize(resp)},
		},
	}, resp, nil
}

func (s *Server) handleCropProfile(ctx context.Context, req *mcp.CallToolRequest, params CropProfileParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", toolCropProfile).Info("Tool invoked")

	crop := domain.CropID(params.CropType)
	if !crop.Known() {
		return s.createErrorResult("Unknown crop", fmt.Errorf("crop_type %q is not one of %v", params.CropType, domain.AllCrops())), nil, nil
	}

	tip, _ := rules.CropTip(crop)
	out := CropProfileResult{CropProfile: rules.ProfileOf(crop), Tip: tip}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("%s prefers %s fertilizer at a base of %.0f kg/acre. %s",
					crop, out.Prefers, out.BaseQuantity, tip),
			},
		},
	}, out, nil
}

// createErrorResult creates a standardized error result
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}

func failureMessage(err error) string {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return "Invalid soil sample"
	case errors.Is(err, domain.ErrModelUnavailable):
		return "Model not loaded"
	default:
		return "Recommendation failed"
	}
}

func summarize(resp *domain.RecommendationResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended %s fertilizer, %.2f kg/acre. Soil health score %.2f.\n",
		resp.FertilizerType, resp.QuantityKgPerAcre, resp.SoilHealthScore)
	for _, f := range resp.DeficiencyAnalysis {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", f.Nutrient, f.Status, f.Severity)
	}
	for _, suggestion := range resp.ImprovementSuggestions {
		fmt.Fprintf(&b, "%s\n", suggestion)
	}
	return strings.TrimRight(b.String(), "\n")
}
