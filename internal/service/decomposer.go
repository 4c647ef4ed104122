package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"twin-research/internal/domain"
	"twin-research/internal/llm"
)

const decomposePromptTemplate = `You are a market research expert. Your task is to break down a broad research question into exactly 3 specific, actionable sub-questions that will provide the most valuable consumer insights.

RESEARCH QUESTION: %s

Create 3 sub-questions that:
1. Are specific and answerable by consumers
2. Cover different aspects (e.g., preferences, concerns, willingness-to-pay, usage patterns)
3. Will yield quantifiable insights when asked to consumers
4. Are phrased naturally, as if asking a real person

Return your response in this exact JSON format - no extra text:

{
  "sub_questions": [
    {
      "question": "First specific sub-question here?",
      "insight_type": "preferences|concerns|pricing|usage|barriers"
    },
    {
      "question": "Second specific sub-question here?",
      "insight_type": "preferences|concerns|pricing|usage|barriers"
    },
    {
      "question": "Third specific sub-question here?",
      "insight_type": "preferences|concerns|pricing|usage|barriers"
    }
  ]
}`

// QuestionDecomposer convierte una pregunta amplia en 3 sub-preguntas tipadas.
type QuestionDecomposer struct {
	llmClient llm.Client
	logger    *zap.Logger
}

func NewQuestionDecomposer(llmClient llm.Client, logger *zap.Logger) *QuestionDecomposer {
	return &QuestionDecomposer{llmClient: llmClient, logger: logger}
}

// Decompose devuelve siempre exactamente 3 sub-preguntas. Ante fallo del
// backend o salida malformada cae a plantillas deterministas para que el
// pipeline nunca se quede sin sub-preguntas.
func (d *QuestionDecomposer) Decompose(ctx context.Context, question string) []domain.SubQuestion {
	prompt := fmt.Sprintf(decomposePromptTemplate, question)

	raw, err := d.llmClient.Generate(ctx, prompt, llm.Options{MaxTokens: 500, Temperature: 0.5})
	if err != nil {
		d.logger.Warn("decompose generate failed", zap.Error(err))
		return fallbackSubQuestions(question)
	}

	var parsed struct {
		SubQuestions []domain.SubQuestion `json:"sub_questions"`
	}
	if err := json.Unmarshal([]byte(extractJSONPayload(raw)), &parsed); err != nil {
		d.logger.Warn("decompose parse failed", zap.Error(err))
		return fallbackSubQuestions(question)
	}

	if len(parsed.SubQuestions) != 3 {
		d.logger.Warn("decompose returned wrong count", zap.Int("count", len(parsed.SubQuestions)))
		return fallbackSubQuestions(question)
	}

	return parsed.SubQuestions
}

func fallbackSubQuestions(question string) []domain.SubQuestion {
	return []domain.SubQuestion{
		{Question: fmt.Sprintf("What are your preferences regarding %s?", question), InsightType: domain.InsightPreferences},
		{Question: fmt.Sprintf("What concerns do you have about %s?", question), InsightType: domain.InsightConcerns},
		{Question: fmt.Sprintf("How would you rate your interest in %s?", question), InsightType: domain.InsightUsage},
	}
}
