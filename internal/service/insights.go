package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"twin-research/internal/domain"
	"twin-research/internal/llm"
	"twin-research/internal/repository"
)

const insightsSystemPrompt = `You are an AI insights analyst for a platform that creates digital twin personas from deep conversational interviews.

Your role is to analyze multiple AI digital twin profiles and provide aggregated consumer insights to brand researchers.

CRITICAL GUIDELINES:
1. Analyze the profiles provided to understand consumer behaviors, preferences, and decision-making patterns
2. Provide specific, actionable insights based on the profile data
3. Cite patterns you observe (e.g., "3 out of 5 twins mentioned...")
4. Include percentage breakdowns when relevant
5. Highlight key trends and surprising findings
6. Keep responses concise but insightful (150-250 words)
7. Use natural, professional language - as if briefing a brand manager
8. Reference specific quotes or behaviors from the profiles when relevant

Remember: These are AI digital twins built from 15-20 minute interviews, not hypothetical personas. The insights should feel data-driven and authentic.`

// InsightsService genera un briefing narrativo en una sola pasada sobre los
// perfiles del panel, sin descomponer la pregunta. Es el camino directo,
// complementario al pipeline multi-query de SurveyService.
type InsightsService struct {
	selector  *ProfileSelector
	store     repository.ProfileStore
	llmClient llm.Client
	logger    *zap.Logger
}

func NewInsightsService(selector *ProfileSelector, store repository.ProfileStore, llmClient llm.Client, logger *zap.Logger) *InsightsService {
	return &InsightsService{selector: selector, store: store, llmClient: llmClient, logger: logger}
}

// GenerateBriefing arma el panel, formatea los perfiles y pide al LLM un
// briefing agregado. A diferencia del pipeline, acá un fallo sí se propaga:
// no hay forma degradada útil de un briefing narrativo.
func (s *InsightsService) GenerateBriefing(ctx context.Context, product domain.Product, question string) (string, int, error) {
	profileIDs := s.selector.SelectPanel(ctx, product)
	if len(profileIDs) == 0 {
		return fallbackNarrative(product), 0, nil
	}

	var profiles []domain.Profile
	for _, id := range profileIDs {
		profile, err := s.store.GetProfileVersion(ctx, id)
		if err != nil {
			s.logger.Warn("load profile failed", zap.Error(err), zap.String("profile_id", id))
			continue
		}
		profiles = append(profiles, profile)
	}
	if len(profiles) == 0 {
		return fallbackNarrative(product), 0, nil
	}

	prompt := buildBriefingPrompt(profiles, product, question)

	briefing, err := s.llmClient.Generate(ctx, prompt, llm.Options{MaxTokens: 800, Temperature: 0.7})
	if err != nil {
		return "", 0, fmt.Errorf("generate briefing: %w", err)
	}

	briefing += fmt.Sprintf("\n\n*Analysis based on %d AI digital twin profiles*", len(profiles))
	return briefing, len(profiles), nil
}

func buildBriefingPrompt(profiles []domain.Profile, product domain.Product, question string) string {
	var sb strings.Builder

	sb.WriteString(insightsSystemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("PRODUCT CATEGORY: %s\n\n", titleCase(string(product))))
	sb.WriteString(fmt.Sprintf("BRAND RESEARCH QUESTION:\n%s\n\n", question))
	sb.WriteString("AI DIGITAL TWIN PROFILES:\n")
	sb.WriteString(formatProfiles(profiles))
	sb.WriteString(fmt.Sprintf("\n\nAnalyze these %d digital twin profiles and provide aggregated consumer insights that answer the brand's question. Focus on:\n", len(profiles)))
	sb.WriteString("- Clear patterns and trends across the profiles\n")
	sb.WriteString("- Specific percentages and counts\n")
	sb.WriteString("- Actionable insights for product development/marketing\n")
	sb.WriteString("- Surprising or noteworthy findings\n\n")
	sb.WriteString("Provide your response as if briefing a brand manager.")

	return sb.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatProfiles(profiles []domain.Profile) string {
	sections := make([]string, 0, len(profiles))

	for i, profile := range profiles {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Twin %d:", i+1))

		if raw, ok := profile.ProfileData["demographics"]; ok {
			var demo struct {
				Age      json.Number `json:"age"`
				Location string      `json:"location"`
			}
			if err := json.Unmarshal(raw, &demo); err == nil {
				if demo.Age != "" {
					sb.WriteString(fmt.Sprintf("\n  Age: %s", demo.Age))
				}
				if demo.Location != "" {
					sb.WriteString(fmt.Sprintf("\n  Location: %s", demo.Location))
				}
			}
		}

		if raw, ok := profile.ProfileData["summary"]; ok {
			var summary string
			if err := json.Unmarshal(raw, &summary); err == nil && summary != "" {
				sb.WriteString(fmt.Sprintf("\n  Summary: %s", summary))
			}
		}

		appendRawSection(&sb, profile, "eating_habits", "Eating Habits")
		appendRawSection(&sb, profile, "purchase_behavior", "Purchase Behavior")
		appendRawSection(&sb, profile, "health_wellness", "Health & Wellness")

		sections = append(sections, sb.String())
	}

	return strings.Join(sections, "\n\n")
}

func appendRawSection(sb *strings.Builder, profile domain.Profile, key, label string) {
	raw, ok := profile.ProfileData[key]
	if !ok {
		return
	}
	compact, err := json.Marshal(raw)
	if err != nil {
		return
	}
	sb.WriteString(fmt.Sprintf("\n  %s: %s", label, compact))
}
