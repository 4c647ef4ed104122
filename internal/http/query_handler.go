package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"twin-research/internal/domain"
	"twin-research/internal/service"
)

// Mensaje genérico para el usuario ante cualquier fallo no manejado.
const genericErrorResponse = "I encountered an error processing your question. Please try again or rephrase your question."

// QueryHandler mantiene dependencias para los endpoints de investigación.
type QueryHandler struct {
	logger    *zap.Logger
	surveySvc *service.SurveyService
	insights  *service.InsightsService
	limiter   service.QueryRateLimiter
}

func NewQueryHandler(
	logger *zap.Logger,
	surveySvc *service.SurveyService,
	insights *service.InsightsService,
	limiter service.QueryRateLimiter,
) *QueryHandler {
	return &QueryHandler{
		logger:    logger,
		surveySvc: surveySvc,
		insights:  insights,
		limiter:   limiter,
	}
}

type researchRequest struct {
	Product  string `json:"product"`
	Question string `json:"question"`
}

// HandleQuery maneja POST /api/query: el pipeline multi-query completo.
func (h *QueryHandler) HandleQuery(c *gin.Context) {
	req, ok := h.bindResearchRequest(c)
	if !ok {
		return
	}

	agg, fallback := h.surveySvc.RunResearch(c.Request.Context(), domain.Product(req.Product), req.Question)
	if fallback != nil {
		h.logger.Info("no panel available", zap.String("product", req.Product))
		c.JSON(http.StatusOK, fallback)
		return
	}

	c.JSON(http.StatusOK, agg)
}

// HandleInsights maneja POST /api/insights: briefing narrativo en una pasada.
func (h *QueryHandler) HandleInsights(c *gin.Context) {
	req, ok := h.bindResearchRequest(c)
	if !ok {
		return
	}

	product := domain.Product(req.Product)
	briefing, analyzed, err := h.insights.GenerateBriefing(c.Request.Context(), product, req.Question)
	if err != nil {
		h.logger.Error("generate briefing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    err.Error(),
			"response": genericErrorResponse,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":          briefing,
		"profiles_analyzed": analyzed,
		"product":           product,
	})
}

// bindResearchRequest valida body y producto antes de cualquier trabajo de
// backend, y aplica el rate limit por IP.
func (h *QueryHandler) bindResearchRequest(c *gin.Context) (researchRequest, bool) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Product == "" || req.Question == "" {
		h.logger.Warn("invalid research request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing product or question"})
		return researchRequest{}, false
	}

	if !domain.Product(req.Product).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product"})
		return researchRequest{}, false
	}

	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
		return researchRequest{}, false
	}

	return req, true
}
