package service

import (
	"context"

	"go.uber.org/zap"

	"twin-research/internal/domain"
	"twin-research/internal/repository"
)

const (
	// Cuántos perfiles activos se inspeccionan, en orden del store.
	selectorInspectLimit = 10
	// Tamaño máximo del panel.
	selectorPanelCap = 5
)

// Secciones de comportamiento que hacen relevante a un perfil para consultas
// de productos alimenticios.
var relevantSections = []string{
	"eating_habits",
	"health_wellness",
	"purchase_behavior",
	"lifestyle",
}

// ProfileSelector arma el panel de twins relevantes para una categoría de producto.
type ProfileSelector struct {
	store  repository.ProfileStore
	logger *zap.Logger
}

func NewProfileSelector(store repository.ProfileStore, logger *zap.Logger) *ProfileSelector {
	return &ProfileSelector{store: store, logger: logger}
}

// SelectPanel devuelve hasta 5 profile IDs con datos de comportamiento útiles,
// inspeccionando los primeros 10 perfiles activos. Si ninguno califica usa los
// primeros 5 sin condición. Un error del store se traga y devuelve panel vacío:
// el caller debe tratarlo como "sin panel disponible".
func (s *ProfileSelector) SelectPanel(ctx context.Context, product domain.Product) []string {
	profiles, err := s.store.GetActiveProfiles(ctx)
	if err != nil {
		s.logger.Warn("get active profiles failed", zap.Error(err), zap.String("product", string(product)))
		return nil
	}
	if len(profiles) == 0 {
		return nil
	}

	inspect := profiles
	if len(inspect) > selectorInspectLimit {
		inspect = inspect[:selectorInspectLimit]
	}

	var panel []string
	for _, profile := range inspect {
		if hasRelevantSection(profile) {
			panel = append(panel, profile.ProfileID)
		}
		if len(panel) >= selectorPanelCap {
			break
		}
	}

	// Sin datos de comportamiento: primeros 5 activos, sin filtrar.
	if len(panel) == 0 {
		fallback := profiles
		if len(fallback) > selectorPanelCap {
			fallback = fallback[:selectorPanelCap]
		}
		for _, profile := range fallback {
			if profile.ProfileID == "" {
				continue
			}
			panel = append(panel, profile.ProfileID)
		}
	}

	return panel
}

func hasRelevantSection(profile domain.Profile) bool {
	for _, section := range relevantSections {
		if _, ok := profile.ProfileData[section]; ok {
			return true
		}
	}
	return false
}
