package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"twin-research/internal/domain"
	"twin-research/internal/llm"
)

// Frases terminales de un SurveyResult degradado.
const (
	TopInsightInsufficientData = "Insufficient data"
	TopInsightUnavailable      = "Analysis temporarily unavailable"
	TopInsightFailed           = "Analysis failed"
)

// ResponseAnalyzer convierte las respuestas de un panel en un resumen
// categorizado con porcentajes y un score de confianza.
type ResponseAnalyzer struct {
	llmClient llm.Client
	logger    *zap.Logger
}

func NewResponseAnalyzer(llmClient llm.Client, logger *zap.Logger) *ResponseAnalyzer {
	return &ResponseAnalyzer{llmClient: llmClient, logger: logger}
}

// Analyze descarta respuestas con Error=true y pide al LLM agruparlas en 3-5
// categorías ponderadas. Nunca devuelve error: sin respuestas válidas o con
// backend caído entrega un resultado degradado con confianza 0. La pregunta y
// el insight_type se adjuntan siempre, cualquiera sea el camino.
func (a *ResponseAnalyzer) Analyze(ctx context.Context, responses []domain.PersonaResponse, subQ domain.SubQuestion) domain.SurveyResult {
	var valid []domain.PersonaResponse
	for _, r := range responses {
		if !r.Error {
			valid = append(valid, r)
		}
	}

	if len(valid) == 0 {
		return degradedResult(subQ, TopInsightInsufficientData)
	}

	raw, err := a.llmClient.Generate(ctx, buildAnalysisPrompt(valid, subQ), llm.Options{MaxTokens: 800, Temperature: 0.3})
	if err != nil {
		a.logger.Warn("analysis generate failed", zap.Error(err), zap.String("insight_type", subQ.InsightType))
		return degradedResult(subQ, TopInsightUnavailable)
	}

	var parsed struct {
		TopInsight string             `json:"top_insight"`
		DataPoints []domain.DataPoint `json:"data_points"`
		Confidence int                `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONPayload(raw)), &parsed); err != nil {
		a.logger.Warn("analysis parse failed", zap.Error(err), zap.String("insight_type", subQ.InsightType))
		return degradedResult(subQ, TopInsightUnavailable)
	}

	if parsed.DataPoints == nil {
		parsed.DataPoints = []domain.DataPoint{}
	}

	return domain.SurveyResult{
		Question:    subQ.Question,
		InsightType: subQ.InsightType,
		TopInsight:  parsed.TopInsight,
		DataPoints:  parsed.DataPoints,
		Confidence:  clampPercent(parsed.Confidence),
	}
}

func buildAnalysisPrompt(valid []domain.PersonaResponse, subQ domain.SubQuestion) string {
	var sb strings.Builder

	sb.WriteString("You are a market research analyst analyzing consumer responses to extract quantifiable insights.\n\n")
	sb.WriteString(fmt.Sprintf("QUESTION ASKED: %s\n", subQ.Question))
	sb.WriteString(fmt.Sprintf("INSIGHT TYPE: %s\n\n", subQ.InsightType))
	sb.WriteString(fmt.Sprintf("CONSUMER RESPONSES (%d participants):\n", len(valid)))
	for i, r := range valid {
		sb.WriteString(fmt.Sprintf("Participant %d: %s\n\n", i+1, r.Response))
	}
	sb.WriteString("Analyze these responses and extract the most common themes or patterns. Categorize responses and provide percentages.\n\n")
	sb.WriteString("Return your analysis in this exact JSON format - no extra text:\n\n")
	sb.WriteString(`{
  "top_insight": "One-sentence summary of the key finding",
  "data_points": [
    {"category": "Category name", "percentage": 35, "description": "Brief description"},
    {"category": "Category name", "percentage": 28, "description": "Brief description"},
    {"category": "Category name", "percentage": 22, "description": "Brief description"},
    {"category": "Category name", "percentage": 15, "description": "Brief description"}
  ],
  "confidence": 94
}

Requirements:
- Extract 3-5 distinct categories from the responses
- Percentages should add up to ~100%
- Be specific and actionable
- Confidence level based on response clarity and consistency`)

	return sb.String()
}

func degradedResult(subQ domain.SubQuestion, topInsight string) domain.SurveyResult {
	return domain.SurveyResult{
		Question:    subQ.Question,
		InsightType: subQ.InsightType,
		TopInsight:  topInsight,
		DataPoints:  []domain.DataPoint{},
		Confidence:  0,
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
