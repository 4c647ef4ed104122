package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"twin-research/internal/domain"
	"twin-research/internal/llm"
)

var analyzerSubQ = domain.SubQuestion{
	Question:    "What concerns do you have about pickles?",
	InsightType: domain.InsightConcerns,
}

func TestAnalyzeHappyPath(t *testing.T) {
	llmClient := &llm.MockClient{
		Response: `{
			"top_insight": "Sodium is the dominant concern",
			"data_points": [
				{"category": "Sodium", "percentage": 55, "description": "Too much salt"},
				{"category": "Additives", "percentage": 30, "description": "Preservatives"},
				{"category": "Price", "percentage": 15, "description": "Cost per jar"}
			],
			"confidence": 88
		}`,
	}

	analyzer := NewResponseAnalyzer(llmClient, zap.NewNop())
	result := analyzer.Analyze(context.Background(), []domain.PersonaResponse{
		{ProfileID: "p1", PersonName: "Ana", Response: "Too salty for me."},
		{ProfileID: "p2", PersonName: "Ben", Response: "I check labels for additives."},
	}, analyzerSubQ)

	if result.TopInsight != "Sodium is the dominant concern" {
		t.Fatalf("unexpected top insight: %q", result.TopInsight)
	}
	if len(result.DataPoints) != 3 || result.DataPoints[0].Percentage != 55 {
		t.Fatalf("unexpected data points: %+v", result.DataPoints)
	}
	if result.Confidence != 88 {
		t.Fatalf("expected confidence 88, got %d", result.Confidence)
	}
	if result.Question != analyzerSubQ.Question || result.InsightType != analyzerSubQ.InsightType {
		t.Fatalf("expected sub-question metadata attached, got %+v", result)
	}

	prompt := llmClient.Prompts[0]
	if !strings.Contains(prompt, "CONSUMER RESPONSES (2 participants)") {
		t.Fatalf("expected participant count in prompt")
	}
	if !strings.Contains(prompt, "Participant 1: Too salty for me.") {
		t.Fatalf("expected responses embedded in prompt")
	}
}

func TestAnalyzeExcludesErrorFlaggedResponses(t *testing.T) {
	llmClient := &llm.MockClient{
		Response: `{"top_insight": "ok", "data_points": [], "confidence": 50}`,
	}

	analyzer := NewResponseAnalyzer(llmClient, zap.NewNop())
	analyzer.Analyze(context.Background(), []domain.PersonaResponse{
		{ProfileID: "p1", Response: "valid answer"},
		{ProfileID: "p2", Response: "Error generating response: boom", Error: true},
	}, analyzerSubQ)

	if strings.Contains(llmClient.Prompts[0], "boom") {
		t.Fatalf("error-flagged response leaked into analysis prompt")
	}
	if !strings.Contains(llmClient.Prompts[0], "CONSUMER RESPONSES (1 participants)") {
		t.Fatalf("expected only valid responses counted")
	}
}

func TestAnalyzeAllErrorsIsTerminal(t *testing.T) {
	llmClient := &llm.MockClient{Response: "should not be called"}

	analyzer := NewResponseAnalyzer(llmClient, zap.NewNop())
	result := analyzer.Analyze(context.Background(), []domain.PersonaResponse{
		{ProfileID: "p1", Error: true},
		{ProfileID: "p2", Error: true},
	}, analyzerSubQ)

	if result.TopInsight != TopInsightInsufficientData {
		t.Fatalf("expected %q, got %q", TopInsightInsufficientData, result.TopInsight)
	}
	if result.Confidence != 0 || len(result.DataPoints) != 0 {
		t.Fatalf("expected degraded result, got %+v", result)
	}
	if result.DataPoints == nil {
		t.Fatalf("expected empty slice, not nil")
	}
	if len(llmClient.Prompts) != 0 {
		t.Fatalf("expected no llm call without valid responses")
	}
}

func TestAnalyzeBackendFailure(t *testing.T) {
	llmClient := &llm.MockClient{Err: errors.New("llm down")}

	analyzer := NewResponseAnalyzer(llmClient, zap.NewNop())
	result := analyzer.Analyze(context.Background(), []domain.PersonaResponse{
		{ProfileID: "p1", Response: "something"},
	}, analyzerSubQ)

	if result.TopInsight != TopInsightUnavailable || result.Confidence != 0 {
		t.Fatalf("expected unavailable result, got %+v", result)
	}
	if result.Question != analyzerSubQ.Question {
		t.Fatalf("expected question attached on failure path")
	}
}

func TestAnalyzeMalformedOutput(t *testing.T) {
	llmClient := &llm.MockClient{Response: "I could not categorize these."}

	analyzer := NewResponseAnalyzer(llmClient, zap.NewNop())
	result := analyzer.Analyze(context.Background(), []domain.PersonaResponse{
		{ProfileID: "p1", Response: "something"},
	}, analyzerSubQ)

	if result.TopInsight != TopInsightUnavailable {
		t.Fatalf("expected parse failure to degrade, got %+v", result)
	}
}

func TestAnalyzeClampsConfidence(t *testing.T) {
	llmClient := &llm.MockClient{
		Response: `{"top_insight": "x", "data_points": [], "confidence": 140}`,
	}

	analyzer := NewResponseAnalyzer(llmClient, zap.NewNop())
	result := analyzer.Analyze(context.Background(), []domain.PersonaResponse{
		{ProfileID: "p1", Response: "a"},
	}, analyzerSubQ)

	if result.Confidence != 100 {
		t.Fatalf("expected confidence clamped to 100, got %d", result.Confidence)
	}
}
