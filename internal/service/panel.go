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

// Tamaño de lote por llamada al LLM, para acotar el payload.
const panelBatchSize = 10

// PanelResponder genera una respuesta simulada en primera persona por twin
// para una sub-pregunta, consultando al LLM en lotes.
type PanelResponder struct {
	store     repository.ProfileStore
	llmClient llm.Client
	logger    *zap.Logger
}

func NewPanelResponder(store repository.ProfileStore, llmClient llm.Client, logger *zap.Logger) *PanelResponder {
	return &PanelResponder{store: store, llmClient: llmClient, logger: logger}
}

// QueryPanel carga los perfiles del panel y consulta al LLM lote por lote.
// El orden de salida es orden de lote y luego orden dentro del lote. Un lote
// que falla completo produce una PersonaResponse con Error=true por twin y los
// lotes restantes siguen procesándose.
func (p *PanelResponder) QueryPanel(ctx context.Context, profileIDs []string, question string) []domain.PersonaResponse {
	profiles := p.loadProfiles(ctx, profileIDs)
	if len(profiles) == 0 {
		return nil
	}

	var responses []domain.PersonaResponse
	for start := 0; start < len(profiles); start += panelBatchSize {
		end := start + panelBatchSize
		if end > len(profiles) {
			end = len(profiles)
		}
		responses = append(responses, p.queryBatch(ctx, profiles[start:end], question)...)
	}
	return responses
}

func (p *PanelResponder) loadProfiles(ctx context.Context, profileIDs []string) []domain.Profile {
	var profiles []domain.Profile
	for _, id := range profileIDs {
		profile, err := p.store.GetProfileVersion(ctx, id)
		if err != nil {
			p.logger.Warn("load profile failed", zap.Error(err), zap.String("profile_id", id))
			continue
		}
		if profile.PersonName == "" {
			profile.PersonName = "Unknown"
		}
		profiles = append(profiles, profile)
	}
	return profiles
}

// queryBatch pide una respuesta por persona en una sola llamada. Las respuestas
// vuelven indexadas por posición 1-based; una posición fuera de rango se
// descarta en silencio.
func (p *PanelResponder) queryBatch(ctx context.Context, batch []domain.Profile, question string) []domain.PersonaResponse {
	prompt := buildBatchPrompt(batch, question)

	raw, err := p.llmClient.Generate(ctx, prompt, llm.Options{MaxTokens: 2000, Temperature: 0.7})
	if err != nil {
		p.logger.Warn("batch generate failed", zap.Error(err), zap.Int("batch_size", len(batch)))
		return errorBatch(batch, err)
	}

	var parsed struct {
		Responses []struct {
			PersonNumber int    `json:"person_number"`
			PersonName   string `json:"person_name"`
			Response     string `json:"response"`
		} `json:"responses"`
	}
	if err := json.Unmarshal([]byte(extractJSONPayload(raw)), &parsed); err != nil {
		p.logger.Warn("batch parse failed", zap.Error(err), zap.Int("batch_size", len(batch)))
		return errorBatch(batch, err)
	}

	var responses []domain.PersonaResponse
	for _, item := range parsed.Responses {
		idx := item.PersonNumber - 1
		if idx < 0 || idx >= len(batch) {
			continue
		}
		text := item.Response
		if text == "" {
			text = "No response provided"
		}
		responses = append(responses, domain.PersonaResponse{
			ProfileID:  batch[idx].ProfileID,
			PersonName: batch[idx].PersonName,
			Response:   text,
		})
	}
	return responses
}

func buildBatchPrompt(batch []domain.Profile, question string) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing how multiple people would respond to a question based on their personality profiles.\n\n")
	sb.WriteString("PERSONALITY PROFILES:")
	for i, profile := range batch {
		bag, err := json.MarshalIndent(profile.ProfileData, "", "  ")
		if err != nil {
			bag = []byte("{}")
		}
		sb.WriteString(fmt.Sprintf("\n\nPERSON %d - %s:\n%s", i+1, profile.PersonName, bag))
	}

	sb.WriteString(fmt.Sprintf("\n\nQUESTION: %s\n\n", question))
	sb.WriteString("For each person, respond as THEY would, using first person (\"I\", \"my\", \"me\"). ")
	sb.WriteString("Base responses on their personality traits, attitudes, and decision-making patterns. ")
	sb.WriteString("Keep each response to 2-3 sentences.\n\n")
	sb.WriteString("Return your responses in this exact JSON format - no extra text:\n\n")
	sb.WriteString("{\n  \"responses\": [\n")
	sb.WriteString(fmt.Sprintf("    {\"person_number\": 1, \"person_name\": %q, \"response\": \"Their authentic response here\"},\n", batch[0].PersonName))
	sb.WriteString(fmt.Sprintf("    ... (continue for all %d people)\n", len(batch)))
	sb.WriteString("  ]\n}")

	return sb.String()
}

func errorBatch(batch []domain.Profile, cause error) []domain.PersonaResponse {
	responses := make([]domain.PersonaResponse, 0, len(batch))
	for _, profile := range batch {
		responses = append(responses, domain.PersonaResponse{
			ProfileID:  profile.ProfileID,
			PersonName: profile.PersonName,
			Response:   fmt.Sprintf("Error generating response: %v", cause),
			Error:      true,
		})
	}
	return responses
}
