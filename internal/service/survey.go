package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"twin-research/internal/domain"
	"twin-research/internal/llm"
)

// Una unidad de trabajo concurrente por sub-pregunta; hay exactamente 3.
const subQuestionWorkers = 3

// SurveyService orquesta el pipeline multi-query completo: selección de panel,
// descomposición, fan-out por sub-pregunta y síntesis de insights.
type SurveyService struct {
	selector   *ProfileSelector
	decomposer *QuestionDecomposer
	panel      *PanelResponder
	analyzer   *ResponseAnalyzer
	llmClient  llm.Client
	logger     *zap.Logger
}

func NewSurveyService(
	selector *ProfileSelector,
	decomposer *QuestionDecomposer,
	panel *PanelResponder,
	analyzer *ResponseAnalyzer,
	llmClient llm.Client,
	logger *zap.Logger,
) *SurveyService {
	return &SurveyService{
		selector:   selector,
		decomposer: decomposer,
		panel:      panel,
		analyzer:   analyzer,
		llmClient:  llmClient,
		logger:     logger,
	}
}

// RunResearch ejecuta el pipeline para una pregunta de investigación. Sin panel
// disponible devuelve la forma reducida con narrativa de fallback; en cualquier
// otro caso devuelve el agregado completo, degradado por partes si hizo falta.
func (s *SurveyService) RunResearch(ctx context.Context, product domain.Product, question string) (*domain.AggregateResponse, *domain.FallbackResponse) {
	profileIDs := s.selector.SelectPanel(ctx, product)
	if len(profileIDs) == 0 {
		return nil, &domain.FallbackResponse{
			Response: fallbackNarrative(product),
			Product:  product,
		}
	}

	subQuestions := s.decomposer.Decompose(ctx, question)
	s.logger.Info("question decomposed", zap.Int("sub_questions", len(subQuestions)))

	results := s.processSubQuestions(ctx, profileIDs, subQuestions)
	keyInsights := s.synthesizeInsights(ctx, results, question)

	return &domain.AggregateResponse{
		Query:             question,
		Product:           product,
		TotalTwinsQueried: len(profileIDs),
		ProfilesAnalyzed:  len(profileIDs),
		Confidence:        averageConfidence(results),
		KeyInsights:       keyInsights,
		SurveyResults:     results,
		PrivacyNote:       domain.PrivacyNote,
	}, nil
}

// processSubQuestions corre responder+analyzer por sub-pregunta en paralelo.
// Cada unidad escribe solo su slot results[i], así el orden final siempre
// coincide con el orden de las sub-preguntas sin necesidad de locks. Un pánico
// dentro de una unidad se recupera en el borde y se convierte en un resultado
// terminal en ese índice, sin abortar a las unidades hermanas.
func (s *SurveyService) processSubQuestions(ctx context.Context, profileIDs []string, subQuestions []domain.SubQuestion) []domain.SurveyResult {
	results := make([]domain.SurveyResult, len(subQuestions))

	var g errgroup.Group
	g.SetLimit(subQuestionWorkers)

	for i, subQ := range subQuestions {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("sub-question unit panicked", zap.Int("index", i), zap.Any("panic", r))
					results[i] = degradedResult(subQ, TopInsightFailed)
				}
			}()

			s.logger.Info("processing sub-question", zap.Int("index", i), zap.String("question", subQ.Question))
			responses := s.panel.QueryPanel(ctx, profileIDs, subQ.Question)
			results[i] = s.analyzer.Analyze(ctx, responses, subQ)
			return nil
		})
	}

	// Las unidades nunca devuelven error; el join solo espera a que terminen.
	_ = g.Wait()

	return results
}

const synthesisPromptTemplate = `You are a market research analyst. Synthesize survey findings into 3 concise, actionable insights.

ORIGINAL RESEARCH QUESTION: %s

SURVEY FINDINGS:%s

Create exactly 3 key insights that:
- Are ONE sentence each (under 100 characters)
- Include specific percentages from the data
- Are actionable and highlight the most important findings
- Are numbered 1, 2, 3

Return in this exact JSON format - no extra text:

{
  "key_insights": [
    "62%% prioritize sustained energy boost and natural ingredients",
    "Finding balance without jitters is the top concern for 41%% of users",
    "59%% willing to pay $3+ for premium energy drinks with functional benefits"
  ]
}`

// synthesizeInsights reduce todos los SurveyResults a 3 insights de una
// oración. Ante fallo del backend usa los primeros 3 top_insights tal cual
// (pueden ser menos si hay menos resultados).
func (s *SurveyService) synthesizeInsights(ctx context.Context, results []domain.SurveyResult, question string) []string {
	prompt := fmt.Sprintf(synthesisPromptTemplate, question, buildFindingsDigest(results))

	raw, err := s.llmClient.Generate(ctx, prompt, llm.Options{MaxTokens: 300, Temperature: 0.3})
	if err != nil {
		s.logger.Warn("synthesis generate failed", zap.Error(err))
		return fallbackInsights(results)
	}

	var parsed struct {
		KeyInsights []string `json:"key_insights"`
	}
	if err := json.Unmarshal([]byte(extractJSONPayload(raw)), &parsed); err != nil || len(parsed.KeyInsights) == 0 {
		s.logger.Warn("synthesis parse failed", zap.Error(err))
		return fallbackInsights(results)
	}

	return parsed.KeyInsights
}

func buildFindingsDigest(results []domain.SurveyResult) string {
	var sb strings.Builder
	for i, result := range results {
		sb.WriteString(fmt.Sprintf("\n\nQuestion %d: %s\n", i+1, result.Question))
		sb.WriteString(fmt.Sprintf("Key Finding: %s\n", result.TopInsight))
		sb.WriteString("Top Categories:\n")
		top := result.DataPoints
		if len(top) > 3 {
			top = top[:3]
		}
		for _, dp := range top {
			sb.WriteString(fmt.Sprintf("  - %s: %d%%\n", dp.Category, dp.Percentage))
		}
	}
	return sb.String()
}

func fallbackInsights(results []domain.SurveyResult) []string {
	insights := make([]string, 0, 3)
	for _, result := range results {
		insights = append(insights, result.TopInsight)
		if len(insights) == 3 {
			break
		}
	}
	return insights
}

// averageConfidence es el promedio entero con división piso; 0 sin resultados.
func averageConfidence(results []domain.SurveyResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, result := range results {
		sum += result.Confidence
	}
	return sum / len(results)
}

func fallbackNarrative(product domain.Product) string {
	return fmt.Sprintf(`I apologize, but we don't have AI digital twin profiles available for %s at the moment.

In a production environment, this demo would analyze responses from our network of AI twins who have shared insights about their %s preferences and behaviors.

For demonstration purposes, I can tell you that our AI twins typically provide insights on:
- Flavor preferences and taste profiles
- Purchase frequency and occasions
- Price sensitivity and value perception
- Brand loyalty factors
- Health and wellness considerations
- Packaging and convenience preferences

Please try the demo again later when we have active profiles available.`, product, product)
}
