package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/history"
	"github.com/fertilizer-advisor/internal/middleware"
	"github.com/fertilizer-advisor/internal/rules"
	"github.com/fertilizer-advisor/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 50
	maxImportBytes      = 10 << 20
)

// soilRequest is the strict request body: every measurement is required.
type soilRequest struct {
	Nitrogen    *float64 `json:"nitrogen" binding:"required"`
	Phosphorus  *float64 `json:"phosphorus" binding:"required"`
	Potassium   *float64 `json:"potassium" binding:"required"`
	PH          *float64 `json:"ph" binding:"required"`
	Moisture    *float64 `json:"moisture" binding:"required"`
	Temperature *float64 `json:"temperature" binding:"required"`
	CropType    string   `json:"crop_type" binding:"required"`
}

func (r soilRequest) sample() domain.SoilSample {
	return domain.SoilSample{
		Nitrogen:    *r.Nitrogen,
		Phosphorus:  *r.Phosphorus,
		Potassium:   *r.Potassium,
		PH:          *r.PH,
		Moisture:    *r.Moisture,
		Temperature: *r.Temperature,
		Crop:        domain.CropID(r.CropType),
	}
}

// predictRequest is the lenient body accepted by /predict. Missing fields
// take field defaults.
type predictRequest struct {
	Nitrogen    *float64 `json:"nitrogen"`
	Phosphorus  *float64 `json:"phosphorus"`
	Potassium   *float64 `json:"potassium"`
	PH          *float64 `json:"ph"`
	Moisture    *float64 `json:"moisture"`
	Temperature *float64 `json:"temperature"`
	CropType    string   `json:"crop_type"`
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func (r predictRequest) sample() domain.SoilSample {
	crop := domain.CropID(r.CropType)
	if crop == "" {
		crop = domain.CropWheat
	}
	return domain.SoilSample{
		Nitrogen:    valueOr(r.Nitrogen, 0),
		Phosphorus:  valueOr(r.Phosphorus, 0),
		Potassium:   valueOr(r.Potassium, 0),
		PH:          valueOr(r.PH, 7.0),
		Moisture:    valueOr(r.Moisture, 50),
		Temperature: valueOr(r.Temperature, 25),
		Crop:        crop,
	}
}

// recommendResponse flattens the recommendation with its stored ID.
type recommendResponse struct {
	ID string `json:"id,omitempty"`
	domain.RecommendationResponse
	ModelVersion string `json:"model_version"`
	Cached       bool   `json:"cached"`
}

func newRecommendResponse(result *service.RecommendationResult) recommendResponse {
	return recommendResponse{
		ID:                     result.ID,
		RecommendationResponse: result.Response,
		ModelVersion:           result.ModelVersion,
		Cached:                 result.Cached,
	}
}

type cropResponse struct {
	rules.CropProfile
	Tip string `json:"tip,omitempty"`
}

func newCropResponse(crop domain.CropID) cropResponse {
	tip, _ := rules.CropTip(crop)
	return cropResponse{CropProfile: rules.ProfileOf(crop), Tip: tip}
}

// requestContext attributes the request to the authenticated user, if any.
func requestContext(c *gin.Context) context.Context {
	return service.WithUser(c.Request.Context(), c.GetString(middleware.UserIDKey))
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}

// writeError maps service errors to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "Invalid soil sample", verr.Error())
	case errors.Is(err, domain.ErrModelUnavailable):
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeModelUnavailable, "Models not loaded", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Recommendation not found", "")
	case errors.Is(err, service.ErrHistoryDisabled):
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeStorage, "Recommendation history is disabled", "")
	default:
		_ = c.Error(err)
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "Internal server error", "")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	loaded, version := s.recommender.ModelsLoaded()
	body := gin.H{
		"status":        "healthy",
		"models_loaded": loaded,
		"model_version": version,
		"timestamp":     time.Now().UTC(),
	}
	if s.status != nil {
		body["components"] = s.status.Status(c.Request.Context())
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) recommend(c *gin.Context, sample domain.SoilSample) {
	result, err := s.recommender.Recommend(requestContext(c), sample)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRecommendResponse(result))
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}
	s.recommend(c, req.sample())
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req soilRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}
	s.recommend(c, req.sample())
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req soilRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
		return
	}

	resp, err := s.recommender.Analyze(req.sample())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

func (s *Server) handleListRecommendations(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid pagination", err.Error())
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid pagination", err.Error())
		return
	}
	if limit == 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx := requestContext(c)
	records, err := s.recommender.History(ctx, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.recommender.Count(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]recommendResponse, len(records))
	for i, r := range records {
		items[i] = recommendResponse{
			ID:                     r.ID,
			RecommendationResponse: r.Response,
			ModelVersion:           r.ModelVersion,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendations": items,
		"total":           total,
		"limit":           limit,
		"offset":          offset,
	})
}

func (s *Server) handleExportRecommendations(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.recommender.Export(requestContext(c), &buf); err != nil {
		s.writeError(c, err)
		return
	}
	filename := fmt.Sprintf("recommendations-%s.json", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

func (s *Server) handleImportRecommendations(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	imported, skipped, err := s.recommender.Import(requestContext(c), body)
	if errors.Is(err, history.ErrInvalidExport) {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid history export", err.Error())
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

func (s *Server) handleDeleteRecommendation(c *gin.Context) {
	if err := s.recommender.Delete(requestContext(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetRecommendation(c *gin.Context) {
	record, err := s.recommender.Get(requestContext(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             record.ID,
		"recommendation": record.Response,
		"model_version":  record.ModelVersion,
		"created_at":     record.CreatedAt,
	})
}

func (s *Server) handleListCrops(c *gin.Context) {
	crops := domain.AllCrops()
	out := make([]cropResponse, len(crops))
	for i, crop := range crops {
		out[i] = newCropResponse(crop)
	}
	c.JSON(http.StatusOK, gin.H{"crops": out})
}

func (s *Server) handleGetCrop(c *gin.Context) {
	crop := domain.CropID(c.Param("crop"))
	if !crop.Known() {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Unknown crop", "unknown crops use the default profile")
		return
	}
	c.JSON(http.StatusOK, newCropResponse(crop))
}

func (s *Server) handleReloadModels(c *gin.Context) {
	if err := s.reloader.Reload(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeModelUnavailable, "Model reload failed", err.Error())
		return
	}
	_, version := s.recommender.ModelsLoaded()
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "model_version": version})
}
